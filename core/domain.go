package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidOrderStatusTransition   = errors.New("core: invalid order status transition")
	ErrInvalidPaymentStatusTransition = errors.New("core: invalid payment status transition")
	ErrOrderNotFound                  = errors.New("core: order not found")
	ErrPaymentNotFound                = errors.New("core: payment not found")
	ErrPaymentConflict                = errors.New("core: payment state conflict")
	ErrWebhookEventNotFound           = errors.New("core: webhook event not found")
	ErrCommissionNotFound             = errors.New("core: vendor commission not found")
	ErrInvalidMoneyBreakdown          = errors.New("core: invalid order money breakdown")
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusReady     OrderStatus = "READY"
	OrderStatusAssigned  OrderStatus = "ASSIGNED"
	OrderStatusPickedUp  OrderStatus = "PICKED_UP"
	OrderStatusEnroute   OrderStatus = "ENROUTE"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type Order struct {
	ID                 string
	CustomerID         string
	VendorID           string
	DriverID           string
	SubtotalCents      int64
	DeliveryFeeCents   int64
	TaxCents           int64
	DiscountCents      int64
	TotalCents         int64
	Status             OrderStatus
	PaymentID          string
	ScheduledAt        *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	Items              []OrderItem
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// OrderItem carries the price snapshot taken at order time. It is never
// re-derived from the catalog.
type OrderItem struct {
	ID             string
	OrderID        string
	ProductID      string
	Name           string
	Quantity       int
	UnitPriceCents int64
	CreatedAt      time.Time
}

func (o *Order) ValidateTotals() error {
	if o == nil {
		return nil
	}
	if o.SubtotalCents < 0 || o.DeliveryFeeCents < 0 || o.TaxCents < 0 || o.DiscountCents < 0 {
		return fmt.Errorf("%w: negative component", ErrInvalidMoneyBreakdown)
	}
	expected := o.SubtotalCents + o.DeliveryFeeCents + o.TaxCents - o.DiscountCents
	if expected < 0 {
		return fmt.Errorf("%w: total would be negative", ErrInvalidMoneyBreakdown)
	}
	if o.TotalCents != expected {
		return fmt.Errorf("%w: total %d does not match breakdown %d", ErrInvalidMoneyBreakdown, o.TotalCents, expected)
	}
	return nil
}

func (o *Order) TransitionTo(status OrderStatus, reason string, now time.Time) error {
	if o == nil {
		return nil
	}
	if !orderTransitionAllowed(o.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidOrderStatusTransition, o.Status, status)
	}
	o.Status = status
	o.UpdatedAt = now
	switch status {
	case OrderStatusDelivered:
		at := now
		o.DeliveredAt = &at
	case OrderStatusCancelled:
		at := now
		o.CancelledAt = &at
		if strings.TrimSpace(reason) != "" {
			o.CancellationReason = strings.TrimSpace(reason)
		}
	}
	return nil
}

func orderTransitionAllowed(current, next OrderStatus) bool {
	allowed := map[OrderStatus]map[OrderStatus]struct{}{
		OrderStatusPlaced: {
			OrderStatusAccepted:  {},
			OrderStatusCancelled: {},
		},
		OrderStatusAccepted: {
			OrderStatusPreparing: {},
			OrderStatusCancelled: {},
		},
		OrderStatusPreparing: {
			OrderStatusReady:     {},
			OrderStatusCancelled: {},
		},
		OrderStatusReady: {
			OrderStatusAssigned:  {},
			OrderStatusCancelled: {},
		},
		OrderStatusAssigned: {
			OrderStatusPickedUp:  {},
			OrderStatusCancelled: {},
		},
		OrderStatusPickedUp: {
			OrderStatusEnroute:   {},
			OrderStatusCancelled: {},
		},
		OrderStatusEnroute: {
			OrderStatusDelivered: {},
			OrderStatusCancelled: {},
		},
		OrderStatusDelivered: {},
		OrderStatusCancelled: {},
	}
	_, ok := allowed[current][next]
	return ok
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusAuthorized PaymentStatus = "AUTHORIZED"
	PaymentStatusCaptured   PaymentStatus = "CAPTURED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
)

func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

type Payment struct {
	ID                string
	OrderID           string
	AmountCents       int64
	CapturedCents     int64
	RefundedCents     int64
	Currency          string
	Provider          string
	ProviderPaymentID string
	ClientSecret      string
	Method            string
	Status            PaymentStatus
	PaidAt            *time.Time
	FailedAt          *time.Time
	FailureReason     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (p *Payment) TransitionTo(status PaymentStatus, now time.Time) error {
	if p == nil {
		return nil
	}
	if p.Status == status {
		p.UpdatedAt = now
		return nil
	}
	if !paymentTransitionAllowed(p.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidPaymentStatusTransition, p.Status, status)
	}
	p.Status = status
	p.UpdatedAt = now
	return nil
}

func paymentTransitionAllowed(current, next PaymentStatus) bool {
	allowed := map[PaymentStatus]map[PaymentStatus]struct{}{
		PaymentStatusPending: {
			PaymentStatusAuthorized: {},
			PaymentStatusCaptured:   {},
			PaymentStatusFailed:     {},
			PaymentStatusCancelled:  {},
		},
		PaymentStatusAuthorized: {
			PaymentStatusCaptured:  {},
			PaymentStatusFailed:    {},
			PaymentStatusCancelled: {},
		},
		PaymentStatusCaptured: {
			PaymentStatusRefunded: {},
		},
		PaymentStatusFailed:    {},
		PaymentStatusRefunded:  {},
		PaymentStatusCancelled: {},
	}
	_, ok := allowed[current][next]
	return ok
}

// WebhookEvent is the durable record of a provider event delivery. The
// provider event id is globally unique and is the dedupe key.
type WebhookEvent struct {
	ID              string
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
	Processed       bool
	ProcessingError string
	Attempts        int
	NextAttemptAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WebhookDeadLetter is an append-only escalation row created once an event
// exhausts its processing attempts. Triaged manually.
type WebhookDeadLetter struct {
	ID              string
	EventID         string
	Provider        string
	ProviderEventID string
	EventType       string
	Payload         []byte
	ErrorMessage    string
	Attempts        int
	CreatedAt       time.Time
}

type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleVendor   ActorRole = "vendor"
	ActorRoleDriver   ActorRole = "driver"
	ActorRoleAdmin    ActorRole = "admin"
	ActorRoleSystem   ActorRole = "system"
)

type Actor struct {
	ID   string
	Role ActorRole
}

type GeoPoint struct {
	Lat float64
	Lng float64
}

// TimelineEntry is one append-only audit row per order status change. Rows
// are never updated or deleted here; retention is an external concern.
type TimelineEntry struct {
	ID         string
	OrderID    string
	FromStatus OrderStatus
	ToStatus   OrderStatus
	ActorID    string
	ActorRole  ActorRole
	Note       string
	Location   *GeoPoint
	Metadata   map[string]any
	CreatedAt  time.Time
}

// VendorCommission is an effective-dated platform rate. At most one row per
// vendor has a nil EffectiveUntil; that row is the current rate.
type VendorCommission struct {
	ID             string
	VendorID       string
	RateBps        int
	FlatFeeCents   int64
	EffectiveFrom  time.Time
	EffectiveUntil *time.Time
	CreatedAt      time.Time
}
