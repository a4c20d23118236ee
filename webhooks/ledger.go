package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-orders/core"
)

// EventLedger is the durable record of provider event deliveries. Reserve
// must enforce uniqueness of the provider event id at the storage layer so
// two concurrent deliveries of the same event cannot both claim it.
type EventLedger interface {
	Reserve(
		ctx context.Context,
		provider string,
		providerEventID string,
		eventType string,
		payload []byte,
	) (core.WebhookEvent, bool, error)
	Get(ctx context.Context, eventID string) (core.WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string) error
	// MarkFailed records the attempt outcome, increments the attempt
	// counter, and returns the updated event.
	MarkFailed(ctx context.Context, eventID string, cause error, nextAttemptAt time.Time) (core.WebhookEvent, error)
	// Escalate writes the dead-letter row for an exhausted event. The
	// dead-letter table's unique event reference keeps this to one row per
	// event no matter how often it is called.
	Escalate(ctx context.Context, event core.WebhookEvent, cause error) error
	ListRetryable(ctx context.Context, due time.Time, maxAttempts int, limit int) ([]core.WebhookEvent, error)
}

// RetryPolicy spaces re-drive attempts for failed events.
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialRetryPolicy struct {
	Initial time.Duration
	Max     time.Duration
}

func (p ExponentialRetryPolicy) NextDelay(attempt int) time.Duration {
	initial := p.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.Max
	if maximum <= 0 {
		maximum = 5 * time.Minute
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay > maximum {
		return maximum
	}
	return delay
}

// Event is the provider-neutral view of a webhook payload.
type Event struct {
	ProviderEventID   string
	Type              string
	ProviderPaymentID string
	AmountCents       int64
	Reason            string
}

type eventEnvelope struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Event string `json:"event"`
	Data  struct {
		ProviderPaymentID string `json:"provider_payment_id"`
		PaymentID         string `json:"payment_id"`
		AmountCents       int64  `json:"amount_cents"`
		Reason            string `json:"reason"`
	} `json:"data"`
}

// ParseEvent extracts the dedupe key, event type, and payment reference
// from the raw payload bytes. Razorpay-style payloads use "event" for the
// type; everything else uses "type".
func ParseEvent(body []byte) (Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Event{}, fmt.Errorf("webhooks: parse event payload: %w", err)
	}
	eventType := strings.TrimSpace(envelope.Type)
	if eventType == "" {
		eventType = strings.TrimSpace(envelope.Event)
	}
	if strings.TrimSpace(envelope.ID) == "" || eventType == "" {
		return Event{}, fmt.Errorf("webhooks: event id and type are required")
	}
	paymentID := strings.TrimSpace(envelope.Data.ProviderPaymentID)
	if paymentID == "" {
		paymentID = strings.TrimSpace(envelope.Data.PaymentID)
	}
	return Event{
		ProviderEventID:   strings.TrimSpace(envelope.ID),
		Type:              eventType,
		ProviderPaymentID: paymentID,
		AmountCents:       envelope.Data.AmountCents,
		Reason:            strings.TrimSpace(envelope.Data.Reason),
	}, nil
}
