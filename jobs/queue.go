package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-orders/core"
	"github.com/goliatone/go-orders/webhooks"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
)

const JobIDWebhookRedrive = "orders.webhook.redrive"

// RedriveExecutionMessage builds the queue message for one event replay.
// The idempotency key is the event id, so re-enqueueing a still-pending
// event collapses into a single delivery.
func RedriveExecutionMessage(event core.WebhookEvent) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID: JobIDWebhookRedrive,
		Parameters: map[string]any{
			"event_id":          event.ID,
			"provider":          event.Provider,
			"provider_event_id": event.ProviderEventID,
			"attempts":          event.Attempts,
		},
		IdempotencyKey: strings.TrimSpace(event.ID),
	}
}

// RedriveEnqueuer pushes due events onto the job queue instead of
// replaying them inline. Used when replays should run on queue workers.
type RedriveEnqueuer struct {
	Ledger      webhooks.EventLedger
	Enqueuer    queue.Enqueuer
	Logger      core.Logger
	MaxAttempts int
	BatchSize   int
}

func NewRedriveEnqueuer(ledger webhooks.EventLedger, enqueuer queue.Enqueuer) (*RedriveEnqueuer, error) {
	if ledger == nil {
		return nil, fmt.Errorf("jobs: event ledger is required")
	}
	if enqueuer == nil {
		return nil, fmt.Errorf("jobs: queue enqueuer is required")
	}
	return &RedriveEnqueuer{
		Ledger:      ledger,
		Enqueuer:    enqueuer,
		MaxAttempts: webhooks.DefaultMaxAttempts,
		BatchSize:   50,
	}, nil
}

// EnqueuePending scans the retryable window and enqueues one message per
// due event. Returns the number of events enqueued.
func (e *RedriveEnqueuer) EnqueuePending(ctx context.Context, due func() []core.WebhookEvent) (int, error) {
	if e == nil || e.Ledger == nil || e.Enqueuer == nil {
		return 0, fmt.Errorf("jobs: redrive enqueuer is not configured")
	}
	var events []core.WebhookEvent
	if due != nil {
		events = due()
	} else {
		listed, err := e.Ledger.ListRetryable(ctx, nowUTC(), e.maxAttempts(), e.batchSize())
		if err != nil {
			return 0, err
		}
		events = listed
	}
	enqueued := 0
	for _, event := range events {
		if _, err := e.Enqueuer.Enqueue(ctx, RedriveExecutionMessage(event)); err != nil {
			if e.Logger != nil {
				e.Logger.Warn("webhook redrive enqueue failed",
					"event_id", event.ID,
					"error", err,
				)
			}
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

func (e *RedriveEnqueuer) maxAttempts() int {
	if e != nil && e.MaxAttempts > 0 {
		return e.MaxAttempts
	}
	return webhooks.DefaultMaxAttempts
}

func (e *RedriveEnqueuer) batchSize() int {
	if e != nil && e.BatchSize > 0 {
		return e.BatchSize
	}
	return 50
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// RedriveConsumer drains redrive messages from the queue and replays the
// referenced events. Failed replays are nacked with requeue; the ledger's
// attempt ceiling decides when the event stops coming back.
type RedriveConsumer struct {
	Ledger    webhooks.EventLedger
	Processor Redriver
	Dequeuer  queue.Dequeuer
	Logger    core.Logger
}

func NewRedriveConsumer(
	ledger webhooks.EventLedger,
	processor Redriver,
	dequeuer queue.Dequeuer,
) (*RedriveConsumer, error) {
	if ledger == nil {
		return nil, fmt.Errorf("jobs: event ledger is required")
	}
	if processor == nil {
		return nil, fmt.Errorf("jobs: redrive processor is required")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("jobs: queue dequeuer is required")
	}
	return &RedriveConsumer{
		Ledger:    ledger,
		Processor: processor,
		Dequeuer:  dequeuer,
	}, nil
}

// ConsumeOne processes a single delivery. A missing or already-processed
// event acks without effect.
func (c *RedriveConsumer) ConsumeOne(ctx context.Context) error {
	if c == nil || c.Ledger == nil || c.Processor == nil || c.Dequeuer == nil {
		return fmt.Errorf("jobs: redrive consumer is not configured")
	}
	delivery, err := c.Dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	msg := delivery.Message()
	if msg == nil {
		return delivery.Ack(ctx)
	}
	eventID, _ := msg.Parameters["event_id"].(string)
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return delivery.Ack(ctx)
	}

	event, err := c.Ledger.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, core.ErrWebhookEventNotFound) {
			return delivery.Ack(ctx)
		}
		return delivery.Nack(ctx, queue.NackOptions{Disposition: queue.NackDispositionRetry, Reason: err.Error()})
	}
	if event.Processed {
		return delivery.Ack(ctx)
	}

	if err := c.Processor.Redrive(ctx, event); err != nil {
		if c.Logger != nil {
			c.Logger.Warn("webhook redrive delivery failed",
				"event_id", event.ID,
				"attempts", event.Attempts,
				"error", err,
			)
		}
		// the ledger recorded the failure and owns the next attempt; do not
		// requeue on top of it
		return delivery.Ack(ctx)
	}
	return delivery.Ack(ctx)
}

// Consume loops until the context is cancelled.
func (c *RedriveConsumer) Consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.ConsumeOne(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.Logger != nil {
				c.Logger.Error("webhook redrive consume failed", "error", err)
			}
		}
	}
}
