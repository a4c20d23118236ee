package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-orders/core"
)

const (
	TypeTransitionOrder     = "orders.command.order.transition"
	TypeCreatePaymentIntent = "orders.command.payment.create_intent"
	TypeCapturePayment      = "orders.command.payment.capture"
	TypeRefundPayment       = "orders.command.payment.refund"
	TypeMarkPaymentFailed   = "orders.command.payment.mark_failed"
)

type TransitionOrderMessage struct {
	Request core.TransitionRequest
}

func (TransitionOrderMessage) Type() string { return TypeTransitionOrder }

func (m TransitionOrderMessage) Validate() error {
	if strings.TrimSpace(m.Request.OrderID) == "" {
		return fmt.Errorf("command: order id is required")
	}
	if strings.TrimSpace(string(m.Request.Target)) == "" {
		return fmt.Errorf("command: target status is required")
	}
	if strings.TrimSpace(m.Request.Actor.ID) == "" {
		return fmt.Errorf("command: actor id is required")
	}
	return nil
}

type CreatePaymentIntentMessage struct {
	Request core.CreateIntentRequest
}

func (CreatePaymentIntentMessage) Type() string { return TypeCreatePaymentIntent }

func (m CreatePaymentIntentMessage) Validate() error {
	if strings.TrimSpace(m.Request.Order.ID) == "" {
		return fmt.Errorf("command: order id is required")
	}
	if strings.TrimSpace(m.Request.Currency) == "" {
		return fmt.Errorf("command: currency is required")
	}
	if m.Request.Order.TotalCents <= 0 {
		return fmt.Errorf("command: order total must be positive")
	}
	return nil
}

type CapturePaymentMessage struct {
	ProviderPaymentID string
	AmountCents       int64
}

func (CapturePaymentMessage) Type() string { return TypeCapturePayment }

func (m CapturePaymentMessage) Validate() error {
	if strings.TrimSpace(m.ProviderPaymentID) == "" {
		return fmt.Errorf("command: provider payment id is required")
	}
	if m.AmountCents < 0 {
		return fmt.Errorf("command: capture amount must not be negative")
	}
	return nil
}

type RefundPaymentMessage struct {
	ProviderPaymentID string
	AmountCents       int64
	Reason            string
}

func (RefundPaymentMessage) Type() string { return TypeRefundPayment }

func (m RefundPaymentMessage) Validate() error {
	if strings.TrimSpace(m.ProviderPaymentID) == "" {
		return fmt.Errorf("command: provider payment id is required")
	}
	if m.AmountCents < 0 {
		return fmt.Errorf("command: refund amount must not be negative")
	}
	return nil
}

type MarkPaymentFailedMessage struct {
	ProviderPaymentID string
	Reason            string
}

func (MarkPaymentFailedMessage) Type() string { return TypeMarkPaymentFailed }

func (m MarkPaymentFailedMessage) Validate() error {
	if strings.TrimSpace(m.ProviderPaymentID) == "" {
		return fmt.Errorf("command: provider payment id is required")
	}
	return nil
}
