package remotesync

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sac-service/internal/observability"
)

// ProcessorConfig controls how frequently the outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Processor retries outbox items on a cron schedule.
type Processor struct {
	outbox  *Outbox
	sender  Sender
	metrics *observability.Metrics
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

// NewProcessor builds the drain job; Start schedules it.
func NewProcessor(outbox *Outbox, sender Sender, metrics *observability.Metrics, logger *zap.Logger, cfg ProcessorConfig) (*Processor, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Processor{
		outbox:  outbox,
		sender:  sender,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	if err := p.schedule(fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Processor) schedule(spec string) error {
	_, err := p.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Interval)
		defer cancel()
		if err := p.Drain(ctx); err != nil {
			p.logger.Error("outbox drain failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule outbox drain %q: %w", spec, err)
	}
	return nil
}

// Start launches the cron scheduler.
func (p *Processor) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("sync outbox processor started", zap.Duration("interval", p.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (p *Processor) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.logger.Info("sync outbox processor stopped")
}

// Drain resends one batch. Items that keep failing are dropped after MaxRetries.
func (p *Processor) Drain(ctx context.Context) error {
	if p == nil || p.outbox == nil || p.sender == nil {
		return nil
	}

	items, err := p.outbox.GetBatch(p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		action := string(item.Envelope.Action)

		if _, err := p.sender.Send(ctx, item.Envelope); err != nil {
			item.Retries++
			item.LastError = err.Error()
			if item.Retries >= p.cfg.MaxRetries {
				p.logger.Warn("dropping sync item (max retries reached)",
					zap.String("item_id", item.ID),
					zap.String("action", action),
					zap.Error(err))
				if rerr := p.outbox.Remove(item); rerr != nil {
					p.logger.Warn("failed to remove sync item", zap.Error(rerr))
				}
				p.metrics.RecordSync(action, ResultDropped)
				continue
			}
			if rerr := p.outbox.Requeue(item); rerr != nil {
				p.logger.Error("failed to requeue sync item", zap.Error(rerr))
			}
			p.metrics.RecordSync(action, ResultFailed)
			continue
		}

		if err := p.outbox.Remove(item); err != nil {
			p.logger.Warn("failed to purge delivered sync item", zap.Error(err))
		}
		p.metrics.RecordSync(action, ResultOK)
	}
	return nil
}
