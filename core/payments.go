package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateIntentRequest opens a payment for an order. The amount is taken
// from the order total, never from the caller.
type CreateIntentRequest struct {
	Order    Order
	Currency string
	Method   string
}

func (r CreateIntentRequest) Validate() error {
	if strings.TrimSpace(r.Order.ID) == "" {
		return fmt.Errorf("core: order id is required")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return fmt.Errorf("core: currency is required")
	}
	if r.Order.TotalCents <= 0 {
		return fmt.Errorf("core: order total must be positive")
	}
	return nil
}

// PaymentLedger owns the payment monetary state machine. Provider network
// calls run under the configured timeout and never while a row is locked;
// their result is applied transactionally afterward.
type PaymentLedger struct {
	store           PaymentStore
	provider        PaymentProvider
	providerID      string
	providerTimeout time.Duration
	logger          Logger
	Now             func() time.Time
}

type PaymentLedgerOption func(*PaymentLedger)

func WithPaymentLedgerLogger(logger Logger) PaymentLedgerOption {
	return func(l *PaymentLedger) {
		l.logger = logger
	}
}

func WithProviderTimeout(timeout time.Duration) PaymentLedgerOption {
	return func(l *PaymentLedger) {
		if timeout > 0 {
			l.providerTimeout = timeout
		}
	}
}

func NewPaymentLedger(
	store PaymentStore,
	provider PaymentProvider,
	providerID string,
	opts ...PaymentLedgerOption,
) (*PaymentLedger, error) {
	if store == nil {
		return nil, fmt.Errorf("core: payment store is required")
	}
	if strings.TrimSpace(providerID) == "" {
		return nil, fmt.Errorf("core: provider id is required")
	}
	ledger := &PaymentLedger{
		store:           store,
		provider:        provider,
		providerID:      strings.TrimSpace(providerID),
		providerTimeout: 10 * time.Second,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ledger)
		}
	}
	return ledger, nil
}

// CreateIntent fails if a non-terminal payment already exists for the
// order. A provider failure leaves no payment record; the caller retries.
func (l *PaymentLedger) CreateIntent(ctx context.Context, req CreateIntentRequest) (Payment, error) {
	if l == nil || l.store == nil {
		return Payment{}, fmt.Errorf("core: payment ledger is not configured")
	}
	if err := req.Validate(); err != nil {
		return Payment{}, MapError(err)
	}
	if l.provider == nil {
		return Payment{}, MapError(fmt.Errorf("core: payment provider is not configured"))
	}

	existing, err := l.store.GetByOrderID(ctx, req.Order.ID)
	switch {
	case err == nil:
		if !existing.Status.Terminal() {
			return Payment{}, MapError(fmt.Errorf(
				"%w: order %s already has payment %s in status %s",
				ErrPaymentConflict, req.Order.ID, existing.ID, existing.Status,
			))
		}
	case errors.Is(err, ErrPaymentNotFound):
		// no payment yet, proceed
	default:
		return Payment{}, MapError(fmt.Errorf("core: look up existing payment for order %s: %w", req.Order.ID, err))
	}

	now := l.now()
	payment := Payment{
		ID:          uuid.NewString(),
		OrderID:     req.Order.ID,
		AmountCents: req.Order.TotalCents,
		Currency:    strings.ToUpper(strings.TrimSpace(req.Currency)),
		Provider:    l.providerID,
		Method:      strings.TrimSpace(req.Method),
		Status:      PaymentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	intent, err := l.callCreateIntent(ctx, payment)
	if err != nil {
		return Payment{}, MapError(fmt.Errorf("core: provider intent creation failed: %w", err))
	}
	payment.ProviderPaymentID = intent.ProviderPaymentID
	payment.ClientSecret = intent.ClientSecret

	created, err := l.store.Create(ctx, payment)
	if err != nil {
		return Payment{}, MapError(err)
	}
	return created, nil
}

// Capture moves a pending or authorized payment to CAPTURED. A repeat
// capture of the same amount is a no-op success; anything else conflicts.
// This is the seam the webhook path uses.
func (l *PaymentLedger) Capture(ctx context.Context, providerPaymentID string, amountCents int64) (Payment, error) {
	if l == nil || l.store == nil {
		return Payment{}, fmt.Errorf("core: payment ledger is not configured")
	}
	now := l.now()
	updated, err := l.store.Mutate(ctx, providerPaymentID, func(p *Payment) error {
		requested := amountCents
		if requested <= 0 {
			requested = p.AmountCents
		}
		if p.Status == PaymentStatusCaptured {
			if requested == p.CapturedCents {
				return nil
			}
			return fmt.Errorf(
				"%w: payment %s already captured for %d, requested %d",
				ErrPaymentConflict, p.ID, p.CapturedCents, requested,
			)
		}
		if p.Status != PaymentStatusPending && p.Status != PaymentStatusAuthorized {
			return fmt.Errorf("%w: cannot capture payment in status %s", ErrPaymentConflict, p.Status)
		}
		if requested > p.AmountCents {
			return fmt.Errorf(
				"%w: capture amount %d exceeds authorized %d",
				ErrPaymentConflict, requested, p.AmountCents,
			)
		}
		if err := p.TransitionTo(PaymentStatusCaptured, now); err != nil {
			return err
		}
		p.CapturedCents = requested
		at := now
		p.PaidAt = &at
		return nil
	})
	if err != nil {
		return Payment{}, MapError(err)
	}
	return updated, nil
}

// Refund moves a captured payment to REFUNDED. A repeat refund of the same
// amount is a no-op success.
func (l *PaymentLedger) Refund(ctx context.Context, providerPaymentID string, amountCents int64, reason string) (Payment, error) {
	if l == nil || l.store == nil {
		return Payment{}, fmt.Errorf("core: payment ledger is not configured")
	}
	now := l.now()
	updated, err := l.store.Mutate(ctx, providerPaymentID, func(p *Payment) error {
		requested := amountCents
		if requested <= 0 {
			requested = p.CapturedCents
		}
		if p.Status == PaymentStatusRefunded {
			if requested == p.RefundedCents {
				return nil
			}
			return fmt.Errorf(
				"%w: payment %s already refunded for %d, requested %d",
				ErrPaymentConflict, p.ID, p.RefundedCents, requested,
			)
		}
		if p.Status != PaymentStatusCaptured {
			return fmt.Errorf("%w: cannot refund payment in status %s", ErrPaymentConflict, p.Status)
		}
		if requested > p.CapturedCents {
			return fmt.Errorf(
				"%w: refund amount %d exceeds captured %d",
				ErrPaymentConflict, requested, p.CapturedCents,
			)
		}
		if err := p.TransitionTo(PaymentStatusRefunded, now); err != nil {
			return err
		}
		p.RefundedCents = requested
		return nil
	})
	if err != nil {
		return Payment{}, MapError(err)
	}
	if l.logger != nil && strings.TrimSpace(reason) != "" {
		l.logger.Info("payment refunded",
			"payment_id", updated.ID,
			"amount_cents", updated.RefundedCents,
			"reason", strings.TrimSpace(reason),
		)
	}
	return updated, nil
}

// MarkFailed records a provider-reported failure for a pending or
// authorized payment.
func (l *PaymentLedger) MarkFailed(ctx context.Context, providerPaymentID string, reason string) (Payment, error) {
	if l == nil || l.store == nil {
		return Payment{}, fmt.Errorf("core: payment ledger is not configured")
	}
	now := l.now()
	updated, err := l.store.Mutate(ctx, providerPaymentID, func(p *Payment) error {
		if p.Status == PaymentStatusFailed {
			return nil
		}
		if p.Status != PaymentStatusPending && p.Status != PaymentStatusAuthorized {
			return fmt.Errorf("%w: cannot fail payment in status %s", ErrPaymentConflict, p.Status)
		}
		if err := p.TransitionTo(PaymentStatusFailed, now); err != nil {
			return err
		}
		at := now
		p.FailedAt = &at
		p.FailureReason = strings.TrimSpace(reason)
		return nil
	})
	if err != nil {
		return Payment{}, MapError(err)
	}
	return updated, nil
}

// CaptureRemote instructs the provider to capture funds, then records the
// capture. Used by the direct API surface; webhook reconciliation records
// provider-originated captures through Capture alone.
func (l *PaymentLedger) CaptureRemote(ctx context.Context, providerPaymentID string, amountCents int64) (Payment, error) {
	if l == nil || l.provider == nil {
		return Payment{}, MapError(fmt.Errorf("core: payment provider is not configured"))
	}
	payment, err := l.store.GetByProviderPaymentID(ctx, providerPaymentID)
	if err != nil {
		return Payment{}, MapError(err)
	}
	requested := amountCents
	if requested <= 0 {
		requested = payment.AmountCents
	}
	if err := l.callProvider(ctx, func(ctx context.Context) error {
		return l.provider.Capture(ctx, providerPaymentID, requested)
	}); err != nil {
		return Payment{}, MapError(fmt.Errorf("core: provider capture failed: %w", err))
	}
	return l.Capture(ctx, providerPaymentID, requested)
}

// RefundRemote instructs the provider to move funds back, then records the
// refund.
func (l *PaymentLedger) RefundRemote(ctx context.Context, providerPaymentID string, amountCents int64, reason string) (Payment, error) {
	if l == nil || l.provider == nil {
		return Payment{}, MapError(fmt.Errorf("core: payment provider is not configured"))
	}
	payment, err := l.store.GetByProviderPaymentID(ctx, providerPaymentID)
	if err != nil {
		return Payment{}, MapError(err)
	}
	requested := amountCents
	if requested <= 0 {
		requested = payment.CapturedCents
	}
	if err := l.callProvider(ctx, func(ctx context.Context) error {
		return l.provider.Refund(ctx, providerPaymentID, requested, reason)
	}); err != nil {
		return Payment{}, MapError(fmt.Errorf("core: provider refund failed: %w", err))
	}
	return l.Refund(ctx, providerPaymentID, requested, reason)
}

func (l *PaymentLedger) callCreateIntent(ctx context.Context, payment Payment) (ProviderIntent, error) {
	var intent ProviderIntent
	err := l.callProvider(ctx, func(ctx context.Context) error {
		created, callErr := l.provider.CreateIntent(ctx, payment)
		if callErr != nil {
			return callErr
		}
		intent = created
		return nil
	})
	if err != nil {
		return ProviderIntent{}, err
	}
	if strings.TrimSpace(intent.ProviderPaymentID) == "" {
		return ProviderIntent{}, fmt.Errorf("core: provider returned empty payment id")
	}
	return intent, nil
}

func (l *PaymentLedger) callProvider(ctx context.Context, call func(ctx context.Context) error) error {
	timeout := l.providerTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(callCtx)
}

func (l *PaymentLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}
