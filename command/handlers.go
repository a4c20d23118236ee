package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-orders/core"
)

// OrderMutatingService is the order lifecycle surface the command bus
// drives. *core.OrderFlow satisfies it.
type OrderMutatingService interface {
	Transition(ctx context.Context, req core.TransitionRequest) (core.Order, error)
}

// PaymentMutatingService is the payment surface the command bus drives.
// *core.PaymentLedger satisfies it. Capture and refund go through the
// remote variants so the provider is called before the ledger records.
type PaymentMutatingService interface {
	CreateIntent(ctx context.Context, req core.CreateIntentRequest) (core.Payment, error)
	CaptureRemote(ctx context.Context, providerPaymentID string, amountCents int64) (core.Payment, error)
	RefundRemote(ctx context.Context, providerPaymentID string, amountCents int64, reason string) (core.Payment, error)
	MarkFailed(ctx context.Context, providerPaymentID string, reason string) (core.Payment, error)
}

type TransitionOrderCommand struct {
	service OrderMutatingService
}

func NewTransitionOrderCommand(service OrderMutatingService) *TransitionOrderCommand {
	return &TransitionOrderCommand{service: service}
}

func (c *TransitionOrderCommand) Execute(ctx context.Context, msg TransitionOrderMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: order service is required")
	}
	out, err := c.service.Transition(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreatePaymentIntentCommand struct {
	service PaymentMutatingService
}

func NewCreatePaymentIntentCommand(service PaymentMutatingService) *CreatePaymentIntentCommand {
	return &CreatePaymentIntentCommand{service: service}
}

func (c *CreatePaymentIntentCommand) Execute(ctx context.Context, msg CreatePaymentIntentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payment service is required")
	}
	out, err := c.service.CreateIntent(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CapturePaymentCommand struct {
	service PaymentMutatingService
}

func NewCapturePaymentCommand(service PaymentMutatingService) *CapturePaymentCommand {
	return &CapturePaymentCommand{service: service}
}

func (c *CapturePaymentCommand) Execute(ctx context.Context, msg CapturePaymentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payment service is required")
	}
	out, err := c.service.CaptureRemote(ctx, msg.ProviderPaymentID, msg.AmountCents)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefundPaymentCommand struct {
	service PaymentMutatingService
}

func NewRefundPaymentCommand(service PaymentMutatingService) *RefundPaymentCommand {
	return &RefundPaymentCommand{service: service}
}

func (c *RefundPaymentCommand) Execute(ctx context.Context, msg RefundPaymentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payment service is required")
	}
	out, err := c.service.RefundRemote(ctx, msg.ProviderPaymentID, msg.AmountCents, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type MarkPaymentFailedCommand struct {
	service PaymentMutatingService
}

func NewMarkPaymentFailedCommand(service PaymentMutatingService) *MarkPaymentFailedCommand {
	return &MarkPaymentFailedCommand{service: service}
}

func (c *MarkPaymentFailedCommand) Execute(ctx context.Context, msg MarkPaymentFailedMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payment service is required")
	}
	out, err := c.service.MarkFailed(ctx, msg.ProviderPaymentID, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
