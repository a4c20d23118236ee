package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-orders/core"
)

const (
	ResponseBodyOK      = "ok"
	ResponseBodyInvalid = "invalid"

	// DefaultMaxAttempts bounds processing retries before an event is
	// dead-lettered.
	DefaultMaxAttempts = 5
)

// PaymentService is the reconciliation seam into the payment ledger. All
// operations look payments up by provider payment id.
type PaymentService interface {
	Capture(ctx context.Context, providerPaymentID string, amountCents int64) (core.Payment, error)
	Refund(ctx context.Context, providerPaymentID string, amountCents int64, reason string) (core.Payment, error)
	MarkFailed(ctx context.Context, providerPaymentID string, reason string) (core.Payment, error)
}

// OrderService is the reconciliation seam into the order state machine.
type OrderService interface {
	Get(ctx context.Context, orderID string) (core.Order, error)
	Transition(ctx context.Context, req core.TransitionRequest) (core.Order, error)
}

// Processor reconciles verified provider events against the payment ledger
// and the order state machine.
type Processor struct {
	Verifier    Verifier
	Ledger      EventLedger
	Payments    PaymentService
	Orders      OrderService
	Routing     Routing
	Logger      core.Logger
	RetryPolicy RetryPolicy
	MaxAttempts int
	Now         func() time.Time
}

func NewProcessor(
	verifier Verifier,
	ledger EventLedger,
	payments PaymentService,
	orders OrderService,
) *Processor {
	return &Processor{
		Verifier:    verifier,
		Ledger:      ledger,
		Payments:    payments,
		Orders:      orders,
		Routing:     DefaultRouting(),
		RetryPolicy: ExponentialRetryPolicy{},
		MaxAttempts: DefaultMaxAttempts,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Process handles one webhook delivery end to end: verify, reserve under
// the unique event id, dispatch, and record the outcome. The returned
// result carries the exact HTTP response for the provider; its status code
// drives provider retry behavior.
func (p *Processor) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil || p.Ledger == nil || p.Payments == nil || p.Orders == nil {
		return core.InboundResult{}, fmt.Errorf("webhooks: processor requires ledger, payments, and orders")
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		return core.InboundResult{}, fmt.Errorf("webhooks: provider id is required")
	}
	req.Provider = provider

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, req); err != nil {
			// warn without the payload so the secret never leaks
			if p.Logger != nil {
				p.Logger.Warn("webhook signature rejected",
					"provider", provider,
					"error", err.Error(),
				)
			}
			return rejected(provider), err
		}
	}

	event, err := ParseEvent(req.Body)
	if err != nil {
		return rejected(provider), err
	}

	record, existed, err := p.Ledger.Reserve(ctx, provider, event.ProviderEventID, event.Type, req.Body)
	if err != nil {
		return core.InboundResult{}, err
	}
	if existed {
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Body:       ResponseBodyOK,
			Metadata: map[string]any{
				"provider":          provider,
				"provider_event_id": event.ProviderEventID,
				"deduped":           true,
			},
		}, nil
	}

	if handleErr := p.dispatch(ctx, event); handleErr != nil {
		updated, markErr := p.markFailure(ctx, record, handleErr)
		if markErr != nil {
			return core.InboundResult{}, markErr
		}
		if updated.Attempts >= p.maxAttempts() {
			// exhausted on the spot; the DLQ row is already written, so
			// acknowledge to stop provider redelivery
			return acknowledged(provider, event.ProviderEventID, map[string]any{"dead_lettered": true}), nil
		}
		if updated.Attempts <= 1 {
			// first synchronous attempt: a 400 provokes one provider
			// redelivery, which the reserved row dedupes into a re-drive
			return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusBadRequest,
				Body:       ResponseBodyInvalid,
				Metadata: map[string]any{
					"provider":          provider,
					"provider_event_id": event.ProviderEventID,
				},
			}, handleErr
		}
		return acknowledged(provider, event.ProviderEventID, map[string]any{"retry_scheduled": true}), nil
	}

	if err := p.Ledger.MarkProcessed(ctx, record.ID); err != nil {
		return core.InboundResult{}, err
	}
	return acknowledged(provider, event.ProviderEventID, nil), nil
}

// Redrive replays a previously reserved event through the dispatch path.
// Used by the scheduled re-drive runner; signature verification already
// happened when the event was recorded.
func (p *Processor) Redrive(ctx context.Context, record core.WebhookEvent) error {
	if p == nil || p.Ledger == nil {
		return fmt.Errorf("webhooks: processor is not configured")
	}
	if record.Processed {
		return nil
	}
	event, err := ParseEvent(record.Payload)
	if err != nil {
		_, markErr := p.markFailure(ctx, record, err)
		if markErr != nil {
			return markErr
		}
		return err
	}
	if handleErr := p.dispatch(ctx, event); handleErr != nil {
		if _, markErr := p.markFailure(ctx, record, handleErr); markErr != nil {
			return markErr
		}
		return handleErr
	}
	return p.Ledger.MarkProcessed(ctx, record.ID)
}

func (p *Processor) dispatch(ctx context.Context, event Event) error {
	route, ok := p.routing().Lookup(event.Type)
	if !ok {
		// unmapped event types are acknowledged without effect
		if p.Logger != nil {
			p.Logger.Info("webhook event type not routed",
				"event_type", event.Type,
				"provider_event_id", event.ProviderEventID,
			)
		}
		return nil
	}
	if strings.TrimSpace(event.ProviderPaymentID) == "" {
		return fmt.Errorf("webhooks: event %s is missing a provider payment id", event.ProviderEventID)
	}

	var payment core.Payment
	var err error
	switch route.Operation {
	case PaymentOperationCapture:
		payment, err = p.Payments.Capture(ctx, event.ProviderPaymentID, event.AmountCents)
	case PaymentOperationFail:
		reason := event.Reason
		if reason == "" {
			reason = route.CancelReason
		}
		payment, err = p.Payments.MarkFailed(ctx, event.ProviderPaymentID, reason)
	case PaymentOperationRefund:
		payment, err = p.Payments.Refund(ctx, event.ProviderPaymentID, event.AmountCents, event.Reason)
	default:
		return fmt.Errorf("webhooks: unknown payment operation %q", route.Operation)
	}
	if err != nil {
		return err
	}

	if strings.TrimSpace(string(route.OrderTarget)) == "" {
		return nil
	}
	order, err := p.Orders.Get(ctx, payment.OrderID)
	if err != nil {
		return err
	}
	if order.Status == route.OrderTarget {
		// replay after a crash: the payment mutation was a no-op and the
		// order already moved
		return nil
	}
	note := route.CancelReason
	if route.OrderTarget == core.OrderStatusCancelled && note == "" {
		note = "payment failed"
	}
	_, err = p.Orders.Transition(ctx, core.TransitionRequest{
		OrderID: order.ID,
		Target:  route.OrderTarget,
		Actor:   core.Actor{ID: "reconciliation", Role: core.ActorRoleSystem},
		Note:    note,
		Metadata: map[string]any{
			"provider_payment_id": event.ProviderPaymentID,
		},
	})
	return err
}

func (p *Processor) markFailure(ctx context.Context, record core.WebhookEvent, cause error) (core.WebhookEvent, error) {
	nextAttemptAt := p.now().Add(p.retryPolicy().NextDelay(record.Attempts + 1))
	updated, err := p.Ledger.MarkFailed(ctx, record.ID, cause, nextAttemptAt)
	if err != nil {
		return core.WebhookEvent{}, err
	}
	if updated.Attempts >= p.maxAttempts() {
		if err := p.Ledger.Escalate(ctx, updated, cause); err != nil {
			return core.WebhookEvent{}, err
		}
	}
	return updated, nil
}

func rejected(provider string) core.InboundResult {
	return core.InboundResult{
		Accepted:   false,
		StatusCode: http.StatusBadRequest,
		Body:       ResponseBodyInvalid,
		Metadata: map[string]any{
			"provider": provider,
			"rejected": true,
		},
	}
}

func acknowledged(provider string, providerEventID string, metadata map[string]any) core.InboundResult {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["provider"] = provider
	metadata["provider_event_id"] = providerEventID
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Body:       ResponseBodyOK,
		Metadata:   metadata,
	}
}

func (p *Processor) routing() Routing {
	if p != nil && p.Routing != nil {
		return p.Routing
	}
	return DefaultRouting()
}

func (p *Processor) retryPolicy() RetryPolicy {
	if p != nil && p.RetryPolicy != nil {
		return p.RetryPolicy
	}
	return ExponentialRetryPolicy{}
}

func (p *Processor) maxAttempts() int {
	if p != nil && p.MaxAttempts > 0 {
		return p.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
