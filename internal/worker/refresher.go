package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/service"
)

// SnapshotSource produces a fresh dashboard snapshot.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (service.Snapshot, error)
}

// Refresher recomputes the dashboard snapshot on a fixed interval.
type Refresher struct {
	source   SnapshotSource
	logger   *zap.Logger
	interval time.Duration
	cron     *cron.Cron

	mu     sync.RWMutex
	latest *service.Snapshot
}

// NewRefresher builds the job; Start schedules it.
func NewRefresher(source SnapshotSource, logger *zap.Logger, interval time.Duration) (*Refresher, error) {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Refresher{
		source:   source,
		logger:   logger,
		interval: interval,
		cron:     cron.New(cron.WithSeconds()),
	}

	if err := r.schedule(fmt.Sprintf("@every %ds", int(interval.Seconds()))); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Refresher) schedule(spec string) error {
	_, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.interval)
		defer cancel()
		if _, err := r.Refresh(ctx); err != nil {
			r.logger.Error("dashboard refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule dashboard refresh %q: %w", spec, err)
	}
	return nil
}

// Start launches the cron scheduler.
func (r *Refresher) Start() {
	if r == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("dashboard refresher started", zap.Duration("interval", r.interval))
}

// Stop waits for a running refresh to finish or ctx to expire.
func (r *Refresher) Stop(ctx context.Context) {
	if r == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("dashboard refresher stopped")
}

// Refresh recomputes and stores the snapshot. A failed refresh keeps the previous one.
func (r *Refresher) Refresh(ctx context.Context) (service.Snapshot, error) {
	snap, err := r.source.Snapshot(ctx)
	if err != nil {
		return service.Snapshot{}, err
	}
	r.mu.Lock()
	r.latest = &snap
	r.mu.Unlock()
	return snap, nil
}

// Latest returns the last snapshot, computing one if none exists yet.
func (r *Refresher) Latest(ctx context.Context) (service.Snapshot, error) {
	r.mu.RLock()
	latest := r.latest
	r.mu.RUnlock()
	if latest != nil {
		return *latest, nil
	}
	return r.Refresh(ctx)
}
