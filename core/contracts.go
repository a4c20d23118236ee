package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// InboundRequest is a provider-agnostic webhook delivery: the exact body
// bytes the provider signed plus the transport headers.
type InboundRequest struct {
	Provider string
	Headers  map[string]string
	Body     []byte
	Metadata map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Body       string
	Metadata   map[string]any
}

// TransitionFunc mutates an order while its row is locked. It returns the
// timeline entry to append alongside the status change.
type TransitionFunc func(order *Order) (TimelineEntry, error)

// OrderStore persists orders. Mutate runs apply inside a single transaction
// with the order row locked for update and appends the returned timeline
// entry before committing; a concurrent caller observes the committed status
// and fails validation instead of overwriting.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (Order, error)
	Mutate(ctx context.Context, orderID string, apply TransitionFunc) (Order, error)
}

// PaymentMutator mutates a payment while its row is locked.
type PaymentMutator func(payment *Payment) error

type PaymentStore interface {
	// Create inserts a new payment. The storage layer rejects a second
	// non-terminal payment for the same order.
	Create(ctx context.Context, payment Payment) (Payment, error)
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (Payment, error)
	// Mutate looks the payment up by provider payment id, locks the row,
	// applies the mutation, and persists it in one transaction.
	Mutate(ctx context.Context, providerPaymentID string, apply PaymentMutator) (Payment, error)
}

type TimelineStore interface {
	ListByOrder(ctx context.Context, orderID string) ([]TimelineEntry, error)
}

type CommissionStore interface {
	// Current returns the vendor's open-ended commission row effective at
	// the given instant.
	Current(ctx context.Context, vendorID string, at time.Time) (VendorCommission, error)
	History(ctx context.Context, vendorID string) ([]VendorCommission, error)
}

// ProviderIntent is the provider handshake artifact for a new payment.
type ProviderIntent struct {
	ProviderPaymentID string
	ClientSecret      string
}

// PaymentProvider is the outbound seam to the payment processor. Calls are
// network I/O and must run under the configured timeout, never while an
// order row is locked.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, payment Payment) (ProviderIntent, error)
	Capture(ctx context.Context, providerPaymentID string, amountCents int64) error
	Refund(ctx context.Context, providerPaymentID string, amountCents int64, reason string) error
}

// StatusNotification is the best-effort downstream fan-out of an order
// status change.
type StatusNotification struct {
	OrderID    string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Actor      Actor
	OccurredAt time.Time
}

// Notifier delivers status notifications to downstream consumers. Failures
// are logged and never roll back the state change they follow.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, notification StatusNotification) error
}

type StoreProvider interface {
	OrderStore() OrderStore
	PaymentStore() PaymentStore
	TimelineStore() TimelineStore
	CommissionStore() CommissionStore
}
