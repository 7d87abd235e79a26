package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/events"
	"github.com/spec-kit/sac-service/internal/remotesync"
)

// SyncService forwards domain events to the remote webhook.
type SyncService struct {
	dispatcher events.Dispatcher
	syncer     *remotesync.Syncer
	logger     *zap.Logger
}

// NewSyncService creates the service.
func NewSyncService(dispatcher events.Dispatcher, syncer *remotesync.Syncer, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{dispatcher: dispatcher, syncer: syncer, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *SyncService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCaseCreated, n.handleCaseCreated)
	n.dispatcher.Subscribe(events.EventCaseStatusChanged, n.handleCaseStatusChanged)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
}

func (n *SyncService) handleCaseCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseCreatedPayload)
	if !ok {
		n.logger.Warn("unexpected payload", zap.String("event", string(event.Type)))
		return nil
	}
	n.logger.Debug("CaseCreated", zap.String("case_id", event.CaseID))
	n.syncer.Dispatch(remotesync.ActionCaseCreate, event.CaseID, map[string]any{
		"case":  payload.Case,
		"actor": event.Actor,
	})
	return nil
}

func (n *SyncService) handleCaseStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CaseStatusChangedPayload)
	if !ok {
		n.logger.Warn("unexpected payload", zap.String("event", string(event.Type)))
		return nil
	}
	n.logger.Debug("CaseStatusChanged",
		zap.String("case_id", event.CaseID),
		zap.String("from", string(payload.OldStatus)),
		zap.String("to", string(payload.NewStatus)))
	n.syncer.Dispatch(remotesync.ActionCaseUpdate, event.CaseID, map[string]any{
		"case_id":    event.CaseID,
		"old_status": payload.OldStatus,
		"new_status": payload.NewStatus,
		"note":       payload.Note,
		"actor":      event.Actor,
		"case":       payload.Case,
	})
	return nil
}

func (n *SyncService) handlePasswordResetRequested(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if !ok {
		n.logger.Warn("unexpected payload", zap.String("event", string(event.Type)))
		return nil
	}
	n.syncer.Dispatch(remotesync.ActionPasswordReset, payload.UserID, payload)
	return nil
}
