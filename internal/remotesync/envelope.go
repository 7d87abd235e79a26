// Package remotesync forwards local mutations to the external workflow
// webhook. Local state never depends on the outcome.
package remotesync

import (
	"time"
)

// Action names the webhook operation.
type Action string

const (
	ActionCaseCreate    Action = "case.create"
	ActionCaseUpdate    Action = "case.update"
	ActionAuthLogin     Action = "auth.login"
	ActionPasswordReset Action = "auth.password_reset"
)

// Envelope is the JSON body posted to the webhook.
type Envelope struct {
	Action  Action    `json:"action"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// Response is the webhook's reply, decoded without a schema.
type Response map[string]any

// String returns a string field or "".
func (r Response) String(key string) string {
	if r == nil {
		return ""
	}
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}
