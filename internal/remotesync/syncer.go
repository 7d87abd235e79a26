package remotesync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/observability"
)

// Sync outcomes recorded in metrics.
const (
	ResultOK       = "ok"
	ResultFailed   = "failed"
	ResultQueued   = "queued"
	ResultDropped  = "dropped"
	ResultDisabled = "disabled"
)

// Syncer sends envelopes without blocking local operations.
type Syncer struct {
	sender  Sender
	outbox  *Outbox
	metrics *observability.Metrics
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewSyncer builds a syncer. A nil sender disables remote sync; a nil outbox
// disables retries.
func NewSyncer(sender Sender, outbox *Outbox, metrics *observability.Metrics, logger *zap.Logger, timeout time.Duration) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Syncer{
		sender:  sender,
		outbox:  outbox,
		metrics: metrics,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Enabled reports whether a webhook is configured.
func (s *Syncer) Enabled() bool {
	return s != nil && s.sender != nil
}

// Dispatch sends in the background. key identifies the record in logs.
// Pending dispatches are independent; none cancels another.
func (s *Syncer) Dispatch(action Action, key string, payload any) {
	if s == nil {
		return
	}
	if !s.Enabled() {
		s.metrics.RecordSync(string(action), ResultDisabled)
		s.logger.Debug("remote sync disabled; skipping", zap.String("action", string(action)), zap.String("key", key))
		return
	}

	env := Envelope{Action: action, Payload: payload, SentAt: s.now().UTC()}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if _, err := s.sender.Send(ctx, env); err != nil {
			s.fail(env, key, err)
			return
		}
		s.metrics.RecordSync(string(action), ResultOK)
	}()
}

// Call sends synchronously and returns the webhook reply. When sync is
// disabled it returns an empty response and no error.
func (s *Syncer) Call(ctx context.Context, action Action, payload any) (Response, error) {
	if s == nil {
		return Response{}, nil
	}
	if !s.Enabled() {
		s.metrics.RecordSync(string(action), ResultDisabled)
		return Response{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	env := Envelope{Action: action, Payload: payload, SentAt: s.now().UTC()}
	resp, err := s.sender.Send(ctx, env)
	if err != nil {
		s.metrics.RecordSync(string(action), ResultFailed)
		s.logger.Warn("remote sync call failed", zap.String("action", string(action)), zap.Error(err))
		return nil, err
	}
	s.metrics.RecordSync(string(action), ResultOK)
	return resp, nil
}

// Wait blocks until in-flight dispatches finish.
func (s *Syncer) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

func (s *Syncer) fail(env Envelope, key string, err error) {
	s.metrics.RecordSync(string(env.Action), ResultFailed)
	s.logger.Warn("remote sync failed",
		zap.String("action", string(env.Action)),
		zap.String("key", key),
		zap.Error(err))

	if s.outbox == nil {
		return
	}
	if qerr := s.outbox.Enqueue(OutboxItem{Envelope: env, LastError: err.Error()}); qerr != nil {
		s.logger.Error("failed to enqueue sync retry", zap.String("action", string(env.Action)), zap.Error(qerr))
		return
	}
	s.metrics.RecordSync(string(env.Action), ResultQueued)
}
