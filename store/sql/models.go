package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type orderRecord struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                 string     `bun:"id,pk"`
	CustomerID         string     `bun:"customer_id,notnull"`
	VendorID           string     `bun:"vendor_id,notnull"`
	DriverID           *string    `bun:"driver_id"`
	SubtotalCents      int64      `bun:"subtotal_cents,notnull"`
	DeliveryFeeCents   int64      `bun:"delivery_fee_cents,notnull"`
	TaxCents           int64      `bun:"tax_cents,notnull"`
	DiscountCents      int64      `bun:"discount_cents,notnull"`
	TotalCents         int64      `bun:"total_cents,notnull"`
	Status             string     `bun:"status,notnull"`
	PaymentID          *string    `bun:"payment_id"`
	ScheduledAt        *time.Time `bun:"scheduled_at,nullzero"`
	DeliveredAt        *time.Time `bun:"delivered_at,nullzero"`
	CancelledAt        *time.Time `bun:"cancelled_at,nullzero"`
	CancellationReason string     `bun:"cancellation_reason"`
	CreatedAt          time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`

	Items []*orderItemRecord `bun:"rel:has-many,join:id=order_id"`
}

type orderItemRecord struct {
	bun.BaseModel `bun:"table:order_items,alias:oi"`

	ID             string    `bun:"id,pk"`
	OrderID        string    `bun:"order_id,notnull"`
	ProductID      string    `bun:"product_id,notnull"`
	Name           string    `bun:"name,notnull"`
	Quantity       int       `bun:"quantity,notnull"`
	UnitPriceCents int64     `bun:"unit_price_cents,notnull"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type paymentRecord struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID                string     `bun:"id,pk"`
	OrderID           string     `bun:"order_id,notnull"`
	AmountCents       int64      `bun:"amount_cents,notnull"`
	CapturedCents     int64      `bun:"captured_cents,notnull"`
	RefundedCents     int64      `bun:"refunded_cents,notnull"`
	Currency          string     `bun:"currency,notnull"`
	Provider          string     `bun:"provider,notnull"`
	ProviderPaymentID *string    `bun:"provider_payment_id"`
	ClientSecret      string     `bun:"client_secret"`
	Method            string     `bun:"method"`
	Status            string     `bun:"status,notnull"`
	PaidAt            *time.Time `bun:"paid_at,nullzero"`
	FailedAt          *time.Time `bun:"failed_at,nullzero"`
	FailureReason     string     `bun:"failure_reason"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:webhook_events,alias:we"`

	ID              string     `bun:"id,pk"`
	Provider        string     `bun:"provider,notnull"`
	ProviderEventID string     `bun:"provider_event_id,notnull"`
	EventType       string     `bun:"event_type,notnull"`
	Payload         []byte     `bun:"payload"`
	Processed       bool       `bun:"processed,notnull"`
	ProcessingError string     `bun:"processing_error"`
	Attempts        int        `bun:"attempts,notnull"`
	NextAttemptAt   *time.Time `bun:"next_attempt_at,nullzero"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type webhookDeadLetterRecord struct {
	bun.BaseModel `bun:"table:webhook_dead_letters,alias:wdl"`

	ID              string    `bun:"id,pk"`
	EventID         string    `bun:"event_id,notnull"`
	Provider        string    `bun:"provider,notnull"`
	ProviderEventID string    `bun:"provider_event_id,notnull"`
	EventType       string    `bun:"event_type,notnull"`
	Payload         []byte    `bun:"payload"`
	ErrorMessage    string    `bun:"error_message,notnull"`
	Attempts        int       `bun:"attempts,notnull"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type timelineEntryRecord struct {
	bun.BaseModel `bun:"table:order_timeline_entries,alias:ote"`

	ID         string         `bun:"id,pk"`
	OrderID    string         `bun:"order_id,notnull"`
	FromStatus string         `bun:"from_status,notnull"`
	ToStatus   string         `bun:"to_status,notnull"`
	ActorID    string         `bun:"actor_id,notnull"`
	ActorRole  string         `bun:"actor_role,notnull"`
	Note       string         `bun:"note"`
	Lat        *float64       `bun:"lat"`
	Lng        *float64       `bun:"lng"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type vendorCommissionRecord struct {
	bun.BaseModel `bun:"table:vendor_commissions,alias:vc"`

	ID             string     `bun:"id,pk"`
	VendorID       string     `bun:"vendor_id,notnull"`
	RateBps        int        `bun:"rate_bps,notnull"`
	FlatFeeCents   int64      `bun:"flat_fee_cents,notnull"`
	EffectiveFrom  time.Time  `bun:"effective_from,notnull"`
	EffectiveUntil *time.Time `bun:"effective_until,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
