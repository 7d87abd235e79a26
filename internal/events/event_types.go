package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sac-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated            EventType = "case_created"
	EventCaseStatusChanged      EventType = "case_status_changed"
	EventPasswordResetRequested EventType = "password_reset_requested"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id,omitempty"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, caseID, actor string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CaseID:    caseID,
		Actor:     actor,
		Timestamp: at,
		Payload:   payload,
	}
}

// CaseCreatedPayload carries the case as stored.
type CaseCreatedPayload struct {
	Case domain.Case `json:"case"`
}

// CaseStatusChangedPayload payload.
type CaseStatusChangedPayload struct {
	OldStatus domain.CaseStatus `json:"old_status"`
	NewStatus domain.CaseStatus `json:"new_status"`
	Note      string            `json:"note,omitempty"`
	Case      domain.Case       `json:"case"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
