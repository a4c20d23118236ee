package httpapi

import (
	"time"

	"github.com/goliatone/go-orders/core"
)

type orderResponse struct {
	ID                 string              `json:"id"`
	CustomerID         string              `json:"customer_id"`
	VendorID           string              `json:"vendor_id"`
	DriverID           string              `json:"driver_id,omitempty"`
	SubtotalCents      int64               `json:"subtotal_cents"`
	DeliveryFeeCents   int64               `json:"delivery_fee_cents"`
	TaxCents           int64               `json:"tax_cents"`
	DiscountCents      int64               `json:"discount_cents"`
	TotalCents         int64               `json:"total_cents"`
	Status             string              `json:"status"`
	PaymentID          string              `json:"payment_id,omitempty"`
	ScheduledAt        *time.Time          `json:"scheduled_at,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	Items              []orderItemResponse `json:"items"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

type orderItemResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func orderResponseFromDomain(order core.Order) orderResponse {
	out := orderResponse{
		ID:                 order.ID,
		CustomerID:         order.CustomerID,
		VendorID:           order.VendorID,
		DriverID:           order.DriverID,
		SubtotalCents:      order.SubtotalCents,
		DeliveryFeeCents:   order.DeliveryFeeCents,
		TaxCents:           order.TaxCents,
		DiscountCents:      order.DiscountCents,
		TotalCents:         order.TotalCents,
		Status:             string(order.Status),
		PaymentID:          order.PaymentID,
		ScheduledAt:        order.ScheduledAt,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		CancellationReason: order.CancellationReason,
		Items:              make([]orderItemResponse, 0, len(order.Items)),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for _, item := range order.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return out
}

type paymentResponse struct {
	ID                string     `json:"id"`
	OrderID           string     `json:"order_id"`
	AmountCents       int64      `json:"amount_cents"`
	CapturedCents     int64      `json:"captured_cents"`
	RefundedCents     int64      `json:"refunded_cents"`
	Currency          string     `json:"currency"`
	Provider          string     `json:"provider"`
	ProviderPaymentID string     `json:"provider_payment_id,omitempty"`
	ClientSecret      string     `json:"client_secret,omitempty"`
	Method            string     `json:"method,omitempty"`
	Status            string     `json:"status"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	FailedAt          *time.Time `json:"failed_at,omitempty"`
	FailureReason     string     `json:"failure_reason,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func paymentResponseFromDomain(payment core.Payment) paymentResponse {
	return paymentResponse{
		ID:                payment.ID,
		OrderID:           payment.OrderID,
		AmountCents:       payment.AmountCents,
		CapturedCents:     payment.CapturedCents,
		RefundedCents:     payment.RefundedCents,
		Currency:          payment.Currency,
		Provider:          payment.Provider,
		ProviderPaymentID: payment.ProviderPaymentID,
		ClientSecret:      payment.ClientSecret,
		Method:            payment.Method,
		Status:            string(payment.Status),
		PaidAt:            payment.PaidAt,
		FailedAt:          payment.FailedAt,
		FailureReason:     payment.FailureReason,
		CreatedAt:         payment.CreatedAt,
		UpdatedAt:         payment.UpdatedAt,
	}
}

type timelineEntryResponse struct {
	ID         string         `json:"id"`
	OrderID    string         `json:"order_id"`
	FromStatus string         `json:"from_status"`
	ToStatus   string         `json:"to_status"`
	ActorID    string         `json:"actor_id"`
	ActorRole  string         `json:"actor_role"`
	Note       string         `json:"note,omitempty"`
	Lat        *float64       `json:"lat,omitempty"`
	Lng        *float64       `json:"lng,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func timelineEntryResponseFromDomain(entry core.TimelineEntry) timelineEntryResponse {
	out := timelineEntryResponse{
		ID:         entry.ID,
		OrderID:    entry.OrderID,
		FromStatus: string(entry.FromStatus),
		ToStatus:   string(entry.ToStatus),
		ActorID:    entry.ActorID,
		ActorRole:  string(entry.ActorRole),
		Note:       entry.Note,
		Metadata:   entry.Metadata,
		CreatedAt:  entry.CreatedAt,
	}
	if entry.Location != nil {
		lat := entry.Location.Lat
		lng := entry.Location.Lng
		out.Lat = &lat
		out.Lng = &lng
	}
	return out
}

type commissionResponse struct {
	ID             string     `json:"id"`
	VendorID       string     `json:"vendor_id"`
	RateBps        int        `json:"rate_bps"`
	FlatFeeCents   int64      `json:"flat_fee_cents"`
	EffectiveFrom  time.Time  `json:"effective_from"`
	EffectiveUntil *time.Time `json:"effective_until,omitempty"`
}

func commissionResponseFromDomain(rate core.VendorCommission) commissionResponse {
	return commissionResponse{
		ID:             rate.ID,
		VendorID:       rate.VendorID,
		RateBps:        rate.RateBps,
		FlatFeeCents:   rate.FlatFeeCents,
		EffectiveFrom:  rate.EffectiveFrom,
		EffectiveUntil: rate.EffectiveUntil,
	}
}
