package httpapi

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-orders/core"
	"github.com/goliatone/go-orders/webhooks"
)

// OrderCreator persists new orders. *sqlstore.OrderStore satisfies it.
type OrderCreator interface {
	Create(ctx context.Context, order core.Order) (core.Order, error)
}

// OrderService is the lifecycle surface the API exposes.
type OrderService interface {
	Transition(ctx context.Context, req core.TransitionRequest) (core.Order, error)
}

// PaymentService is the payment surface the API exposes. Capture and
// refund call the provider before recording, so they use the remote
// variants of the ledger.
type PaymentService interface {
	CreateIntent(ctx context.Context, req core.CreateIntentRequest) (core.Payment, error)
	CaptureRemote(ctx context.Context, providerPaymentID string, amountCents int64) (core.Payment, error)
	RefundRemote(ctx context.Context, providerPaymentID string, amountCents int64, reason string) (core.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (core.Payment, error)
}

// WebhookProcessor handles raw provider deliveries.
type WebhookProcessor interface {
	Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

type Handlers struct {
	Orders      OrderService
	OrderReader core.OrderStore
	Creator     OrderCreator
	Payments    PaymentService
	Timeline    core.TimelineStore
	Commissions core.CommissionStore
	Processor   WebhookProcessor
	Logger      core.Logger

	MaxWebhookBodyBytes int64
}

const defaultMaxWebhookBodyBytes int64 = 1 << 20 // 1 MiB

type createOrderRequest struct {
	CustomerID       string                   `json:"customer_id" binding:"required"`
	VendorID         string                   `json:"vendor_id" binding:"required"`
	SubtotalCents    int64                    `json:"subtotal_cents"`
	DeliveryFeeCents int64                    `json:"delivery_fee_cents"`
	TaxCents         int64                    `json:"tax_cents"`
	DiscountCents    int64                    `json:"discount_cents"`
	TotalCents       int64                    `json:"total_cents"`
	ScheduledAt      *time.Time               `json:"scheduled_at"`
	Items            []createOrderItemRequest `json:"items" binding:"required,min=1"`
}

type createOrderItemRequest struct {
	ProductID      string `json:"product_id" binding:"required"`
	Name           string `json:"name" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

func (h *Handlers) CreateOrder(c *gin.Context) {
	if h == nil || h.Creator == nil {
		respondError(c, notConfiguredError())
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	order := core.Order{
		CustomerID:       req.CustomerID,
		VendorID:         req.VendorID,
		SubtotalCents:    req.SubtotalCents,
		DeliveryFeeCents: req.DeliveryFeeCents,
		TaxCents:         req.TaxCents,
		DiscountCents:    req.DiscountCents,
		TotalCents:       req.TotalCents,
		ScheduledAt:      req.ScheduledAt,
		Status:           core.OrderStatusPlaced,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, core.OrderItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	created, err := h.Creator.Create(c.Request.Context(), order)
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusCreated, orderResponseFromDomain(created))
}

func (h *Handlers) GetOrder(c *gin.Context) {
	if h == nil || h.OrderReader == nil {
		respondError(c, notConfiguredError())
		return
	}
	order, err := h.OrderReader.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusOK, orderResponseFromDomain(order))
}

type transitionRequest struct {
	Target    string         `json:"target" binding:"required"`
	ActorID   string         `json:"actor_id" binding:"required"`
	ActorRole string         `json:"actor_role" binding:"required"`
	Note      string         `json:"note"`
	Lat       *float64       `json:"lat"`
	Lng       *float64       `json:"lng"`
	Metadata  map[string]any `json:"metadata"`
}

func (h *Handlers) TransitionOrder(c *gin.Context) {
	if h == nil || h.Orders == nil {
		respondError(c, notConfiguredError())
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	domainReq := core.TransitionRequest{
		OrderID: c.Param("id"),
		Target:  core.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Target))),
		Actor: core.Actor{
			ID:   req.ActorID,
			Role: core.ActorRole(strings.ToLower(strings.TrimSpace(req.ActorRole))),
		},
		Note:     req.Note,
		Metadata: req.Metadata,
	}
	if req.Lat != nil && req.Lng != nil {
		domainReq.Location = &core.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}
	}
	order, err := h.Orders.Transition(c.Request.Context(), domainReq)
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusOK, orderResponseFromDomain(order))
}

func (h *Handlers) GetOrderTimeline(c *gin.Context) {
	if h == nil || h.Timeline == nil {
		respondError(c, notConfiguredError())
		return
	}
	entries, err := h.Timeline.ListByOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	out := make([]timelineEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, timelineEntryResponseFromDomain(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": out})
}

type createIntentRequest struct {
	OrderID  string `json:"order_id" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Method   string `json:"method"`
}

func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	if h == nil || h.Payments == nil || h.OrderReader == nil {
		respondError(c, notConfiguredError())
		return
	}
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	order, err := h.OrderReader.Get(c.Request.Context(), req.OrderID)
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	payment, err := h.Payments.CreateIntent(c.Request.Context(), core.CreateIntentRequest{
		Order:    order,
		Currency: req.Currency,
		Method:   req.Method,
	})
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusCreated, paymentResponseFromDomain(payment))
}

type captureRequest struct {
	ProviderPaymentID string `json:"provider_payment_id" binding:"required"`
	AmountCents       int64  `json:"amount_cents"`
}

func (h *Handlers) CapturePayment(c *gin.Context) {
	if h == nil || h.Payments == nil {
		respondError(c, notConfiguredError())
		return
	}
	var req captureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	payment, err := h.Payments.CaptureRemote(c.Request.Context(), req.ProviderPaymentID, req.AmountCents)
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusOK, paymentResponseFromDomain(payment))
}

type refundRequest struct {
	ProviderPaymentID string `json:"provider_payment_id" binding:"required"`
	AmountCents       int64  `json:"amount_cents"`
	Reason            string `json:"reason"`
}

func (h *Handlers) RefundPayment(c *gin.Context) {
	if h == nil || h.Payments == nil {
		respondError(c, notConfiguredError())
		return
	}
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}
	payment, err := h.Payments.RefundRemote(c.Request.Context(), req.ProviderPaymentID, req.AmountCents, req.Reason)
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusOK, paymentResponseFromDomain(payment))
}

func (h *Handlers) GetOrderPayment(c *gin.Context) {
	if h == nil || h.Payments == nil {
		respondError(c, notConfiguredError())
		return
	}
	payment, err := h.Payments.GetByOrderID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusOK, paymentResponseFromDomain(payment))
}

// HandleWebhook reads the exact body bytes the provider signed and hands
// the delivery to the processor. The response mirrors the processor's
// result verbatim; providers key their redelivery off the status code.
func (h *Handlers) HandleWebhook(c *gin.Context) {
	if h == nil || h.Processor == nil {
		respondError(c, notConfiguredError())
		return
	}
	limit := h.MaxWebhookBodyBytes
	if limit <= 0 {
		limit = defaultMaxWebhookBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit))
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for key := range c.Request.Header {
		headers[key] = c.GetHeader(key)
	}

	provider := strings.TrimSpace(c.Param("provider"))
	if provider == "" {
		provider = webhooks.ProviderFromHeaders(headers)
	}

	result, procErr := h.Processor.Process(c.Request.Context(), core.InboundRequest{
		Provider: provider,
		Headers:  headers,
		Body:     body,
	})
	if procErr != nil && result.StatusCode == 0 {
		respondError(c, core.MapError(procErr))
		return
	}
	if procErr != nil && h.Logger != nil {
		h.Logger.Warn("webhook processing returned error",
			"provider", provider,
			"status", result.StatusCode,
			"error", procErr.Error(),
		)
	}
	c.String(result.StatusCode, result.Body)
}

func (h *Handlers) GetVendorCommission(c *gin.Context) {
	if h == nil || h.Commissions == nil {
		respondError(c, notConfiguredError())
		return
	}
	rate, err := h.Commissions.Current(c.Request.Context(), c.Param("id"), time.Now().UTC())
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	c.JSON(http.StatusOK, commissionResponseFromDomain(rate))
}

func (h *Handlers) GetVendorCommissionHistory(c *gin.Context) {
	if h == nil || h.Commissions == nil {
		respondError(c, notConfiguredError())
		return
	}
	rates, err := h.Commissions.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, core.MapError(err))
		return
	}
	out := make([]commissionResponse, 0, len(rates))
	for _, rate := range rates {
		out = append(out, commissionResponseFromDomain(rate))
	}
	c.JSON(http.StatusOK, gin.H{"rates": out})
}

func respondError(c *gin.Context, err *goerrors.Error) {
	if err == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{"message": "An unexpected error occurred", "text_code": core.OrderErrorInternal},
		})
		return
	}
	status := err.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{
		"error": gin.H{
			"message":   err.Message,
			"text_code": err.TextCode,
			"category":  string(err.Category),
		},
	})
}

func bindError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "httpapi: invalid request body").
		WithCode(http.StatusBadRequest).
		WithTextCode(core.OrderErrorBadInput)
}

func notConfiguredError() *goerrors.Error {
	return goerrors.New("httpapi: handler is not configured", goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.OrderErrorInternal)
}
