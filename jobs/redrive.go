package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-orders/core"
	"github.com/goliatone/go-orders/webhooks"
)

// Redriver replays a recorded webhook event. *webhooks.Processor
// satisfies it.
type Redriver interface {
	Redrive(ctx context.Context, record core.WebhookEvent) error
}

type RedriveStats struct {
	Scanned   int
	Replayed  int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// RedriveRunner sweeps unprocessed webhook events whose next attempt is
// due and replays them through the processor. Events past the attempt
// ceiling are excluded by the ledger query; the processor dead-letters
// them when a replay exhausts the last attempt.
type RedriveRunner struct {
	Ledger      webhooks.EventLedger
	Processor   Redriver
	Logger      core.Logger
	MaxAttempts int
	BatchSize   int
	Interval    time.Duration
	Now         func() time.Time
}

func NewRedriveRunner(ledger webhooks.EventLedger, processor Redriver, opts ...RedriveOption) (*RedriveRunner, error) {
	if ledger == nil {
		return nil, fmt.Errorf("jobs: event ledger is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("jobs: redrive processor is required")
	}
	runner := &RedriveRunner{
		Ledger:      ledger,
		Processor:   processor,
		MaxAttempts: webhooks.DefaultMaxAttempts,
		BatchSize:   50,
		Interval:    30 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(runner)
		}
	}
	return runner, nil
}

type RedriveOption func(*RedriveRunner)

func WithRedriveLogger(logger core.Logger) RedriveOption {
	return func(r *RedriveRunner) {
		r.Logger = logger
	}
}

func WithRedriveMaxAttempts(maxAttempts int) RedriveOption {
	return func(r *RedriveRunner) {
		if maxAttempts > 0 {
			r.MaxAttempts = maxAttempts
		}
	}
}

func WithRedriveBatchSize(size int) RedriveOption {
	return func(r *RedriveRunner) {
		if size > 0 {
			r.BatchSize = size
		}
	}
}

func WithRedriveInterval(interval time.Duration) RedriveOption {
	return func(r *RedriveRunner) {
		if interval > 0 {
			r.Interval = interval
		}
	}
}

// RunPending replays one batch of due events. Replay errors are counted,
// not returned; the ledger already recorded the failure and scheduled the
// next attempt.
func (r *RedriveRunner) RunPending(ctx context.Context) (RedriveStats, error) {
	if r == nil || r.Ledger == nil || r.Processor == nil {
		return RedriveStats{}, fmt.Errorf("jobs: redrive runner is not configured")
	}
	stats := RedriveStats{StartedAt: r.now()}
	events, err := r.Ledger.ListRetryable(ctx, stats.StartedAt, r.MaxAttempts, r.BatchSize)
	if err != nil {
		return stats, err
	}
	stats.Scanned = len(events)
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			stats.Duration = r.now().Sub(stats.StartedAt)
			return stats, err
		}
		if err := r.Processor.Redrive(ctx, event); err != nil {
			stats.Failed++
			if r.Logger != nil {
				r.Logger.Warn("webhook redrive attempt failed",
					"event_id", event.ID,
					"provider_event_id", event.ProviderEventID,
					"attempts", event.Attempts,
					"error", err,
				)
			}
			continue
		}
		stats.Replayed++
	}
	stats.Duration = r.now().Sub(stats.StartedAt)
	return stats, nil
}

// Run sweeps on the configured interval until the context is cancelled.
func (r *RedriveRunner) Run(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("jobs: redrive runner is not configured")
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats, err := r.RunPending(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if r.Logger != nil {
					r.Logger.Error("webhook redrive sweep failed", "error", err)
				}
				continue
			}
			if r.Logger != nil && stats.Scanned > 0 {
				r.Logger.Info("webhook redrive sweep finished",
					"scanned", stats.Scanned,
					"replayed", stats.Replayed,
					"failed", stats.Failed,
					"duration", stats.Duration,
				)
			}
		}
	}
}

func (r *RedriveRunner) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
