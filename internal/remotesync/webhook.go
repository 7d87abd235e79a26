package remotesync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// Sender delivers an envelope to the remote endpoint.
type Sender interface {
	Send(ctx context.Context, env Envelope) (Response, error)
}

// StatusError is returned for non-2xx replies.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook responded %d: %s", e.StatusCode, e.Body)
}

// WebhookClient posts envelopes with fasthttp.
type WebhookClient struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

// NewWebhookClient builds a client for url with a per-call timeout.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &WebhookClient{
		url:     url,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "sac-service",
			MaxIdleConnDuration: 30 * time.Second,
		},
	}
}

// Send posts env as JSON. The call is bounded by the client timeout and ctx's deadline.
func (w *WebhookClient) Send(ctx context.Context, env Envelope) (Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if env.SentAt.IsZero() {
		env.SentAt = time.Now().UTC()
	}
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	timeout := w.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(w.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBody(body)

	if err := w.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, fmt.Errorf("post %s: %w", env.Action, err)
	}

	status := resp.StatusCode()
	payload := bytes.TrimSpace(resp.Body())
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status, Body: truncate(string(payload), 256)}
	}

	out := Response{}
	if len(payload) > 0 && payload[0] == '{' {
		if err := json.Unmarshal(payload, &out); err != nil {
			return Response{}, nil
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
