package command

import (
	"context"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-orders/core"
)

type stubOrderService struct {
	transitionFn func(ctx context.Context, req core.TransitionRequest) (core.Order, error)
}

func (s stubOrderService) Transition(ctx context.Context, req core.TransitionRequest) (core.Order, error) {
	if s.transitionFn == nil {
		return core.Order{}, fmt.Errorf("transition not configured")
	}
	return s.transitionFn(ctx, req)
}

type stubPaymentService struct {
	createIntentFn  func(ctx context.Context, req core.CreateIntentRequest) (core.Payment, error)
	captureRemoteFn func(ctx context.Context, providerPaymentID string, amountCents int64) (core.Payment, error)
	refundRemoteFn  func(ctx context.Context, providerPaymentID string, amountCents int64, reason string) (core.Payment, error)
	markFailedFn    func(ctx context.Context, providerPaymentID string, reason string) (core.Payment, error)
}

func (s stubPaymentService) CreateIntent(ctx context.Context, req core.CreateIntentRequest) (core.Payment, error) {
	if s.createIntentFn == nil {
		return core.Payment{}, fmt.Errorf("create intent not configured")
	}
	return s.createIntentFn(ctx, req)
}

func (s stubPaymentService) CaptureRemote(ctx context.Context, providerPaymentID string, amountCents int64) (core.Payment, error) {
	if s.captureRemoteFn == nil {
		return core.Payment{}, fmt.Errorf("capture not configured")
	}
	return s.captureRemoteFn(ctx, providerPaymentID, amountCents)
}

func (s stubPaymentService) RefundRemote(ctx context.Context, providerPaymentID string, amountCents int64, reason string) (core.Payment, error) {
	if s.refundRemoteFn == nil {
		return core.Payment{}, fmt.Errorf("refund not configured")
	}
	return s.refundRemoteFn(ctx, providerPaymentID, amountCents, reason)
}

func (s stubPaymentService) MarkFailed(ctx context.Context, providerPaymentID string, reason string) (core.Payment, error) {
	if s.markFailedFn == nil {
		return core.Payment{}, fmt.Errorf("mark failed not configured")
	}
	return s.markFailedFn(ctx, providerPaymentID, reason)
}

var _ PaymentMutatingService = stubPaymentService{}

func TestTransitionOrderCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := core.Order{ID: "ord-1", Status: core.OrderStatusAccepted}
	called := false
	svc := stubOrderService{
		transitionFn: func(_ context.Context, req core.TransitionRequest) (core.Order, error) {
			called = true
			if req.OrderID != "ord-1" || req.Target != core.OrderStatusAccepted {
				t.Fatalf("unexpected transition request: %#v", req)
			}
			return expected, nil
		},
	}

	cmd := NewTransitionOrderCommand(svc)
	collector := gocmd.NewResult[core.Order]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, TransitionOrderMessage{Request: core.TransitionRequest{
		OrderID: "ord-1",
		Target:  core.OrderStatusAccepted,
		Actor:   core.Actor{ID: "vendor-1", Role: core.ActorRoleVendor},
	}})
	if err != nil {
		t.Fatalf("execute transition: %v", err)
	}
	if !called {
		t.Fatalf("expected transition invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.ID != expected.ID || result.Status != expected.Status {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestPaymentCommands_DelegateToService(t *testing.T) {
	t.Run("create intent", func(t *testing.T) {
		called := false
		svc := stubPaymentService{
			createIntentFn: func(_ context.Context, req core.CreateIntentRequest) (core.Payment, error) {
				called = true
				if req.Order.ID != "ord-1" || req.Currency != "USD" {
					t.Fatalf("unexpected intent request: %#v", req)
				}
				return core.Payment{ID: "pay-1", OrderID: "ord-1"}, nil
			},
		}
		cmd := NewCreatePaymentIntentCommand(svc)
		collector := gocmd.NewResult[core.Payment]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, CreatePaymentIntentMessage{Request: core.CreateIntentRequest{
			Order:    core.Order{ID: "ord-1", TotalCents: 2500},
			Currency: "USD",
		}}); err != nil {
			t.Fatalf("execute create intent: %v", err)
		}
		if !called {
			t.Fatalf("expected create intent invocation")
		}
		if _, ok := collector.Load(); !ok {
			t.Fatalf("expected payment result")
		}
	})

	t.Run("capture", func(t *testing.T) {
		called := false
		svc := stubPaymentService{
			captureRemoteFn: func(_ context.Context, providerPaymentID string, amountCents int64) (core.Payment, error) {
				called = true
				if providerPaymentID != "pi_1" || amountCents != 2500 {
					t.Fatalf("unexpected capture payload: %q %d", providerPaymentID, amountCents)
				}
				return core.Payment{ID: "pay-1", Status: core.PaymentStatusCaptured}, nil
			},
		}
		cmd := NewCapturePaymentCommand(svc)
		collector := gocmd.NewResult[core.Payment]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		if err := cmd.Execute(ctx, CapturePaymentMessage{ProviderPaymentID: "pi_1", AmountCents: 2500}); err != nil {
			t.Fatalf("execute capture: %v", err)
		}
		if !called {
			t.Fatalf("expected capture invocation")
		}
		stored, ok := collector.Load()
		if !ok {
			t.Fatalf("expected capture result")
		}
		if stored.Status != core.PaymentStatusCaptured {
			t.Fatalf("unexpected capture result: %#v", stored)
		}
	})

	t.Run("refund", func(t *testing.T) {
		called := false
		svc := stubPaymentService{
			refundRemoteFn: func(_ context.Context, providerPaymentID string, amountCents int64, reason string) (core.Payment, error) {
				called = true
				if providerPaymentID != "pi_1" || reason != "order cancelled" {
					t.Fatalf("unexpected refund payload: %q %q", providerPaymentID, reason)
				}
				return core.Payment{ID: "pay-1", Status: core.PaymentStatusRefunded}, nil
			},
		}
		cmd := NewRefundPaymentCommand(svc)
		if err := cmd.Execute(context.Background(), RefundPaymentMessage{
			ProviderPaymentID: "pi_1",
			Reason:            "order cancelled",
		}); err != nil {
			t.Fatalf("execute refund: %v", err)
		}
		if !called {
			t.Fatalf("expected refund invocation")
		}
	})

	t.Run("mark failed", func(t *testing.T) {
		called := false
		svc := stubPaymentService{
			markFailedFn: func(_ context.Context, providerPaymentID string, reason string) (core.Payment, error) {
				called = true
				if providerPaymentID != "pi_1" || reason != "card declined" {
					t.Fatalf("unexpected mark failed payload: %q %q", providerPaymentID, reason)
				}
				return core.Payment{ID: "pay-1", Status: core.PaymentStatusFailed}, nil
			},
		}
		cmd := NewMarkPaymentFailedCommand(svc)
		if err := cmd.Execute(context.Background(), MarkPaymentFailedMessage{
			ProviderPaymentID: "pi_1",
			Reason:            "card declined",
		}); err != nil {
			t.Fatalf("execute mark failed: %v", err)
		}
		if !called {
			t.Fatalf("expected mark failed invocation")
		}
	})

	t.Run("service error propagates", func(t *testing.T) {
		svc := stubPaymentService{
			captureRemoteFn: func(context.Context, string, int64) (core.Payment, error) {
				return core.Payment{}, fmt.Errorf("provider offline")
			},
		}
		cmd := NewCapturePaymentCommand(svc)
		if err := cmd.Execute(context.Background(), CapturePaymentMessage{ProviderPaymentID: "pi_1"}); err == nil {
			t.Fatalf("expected service error surfaced")
		}
	})
}

func TestCommands_MissingServiceFails(t *testing.T) {
	if err := (&TransitionOrderCommand{}).Execute(context.Background(), TransitionOrderMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
	if err := (&CapturePaymentCommand{}).Execute(context.Background(), CapturePaymentMessage{}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name: "transition valid",
			msg: TransitionOrderMessage{Request: core.TransitionRequest{
				OrderID: "ord-1",
				Target:  core.OrderStatusAccepted,
				Actor:   core.Actor{ID: "vendor-1"},
			}},
			wantErr: false,
		},
		{
			name: "transition missing actor",
			msg: TransitionOrderMessage{Request: core.TransitionRequest{
				OrderID: "ord-1",
				Target:  core.OrderStatusAccepted,
			}},
			wantErr: true,
		},
		{
			name: "create intent valid",
			msg: CreatePaymentIntentMessage{Request: core.CreateIntentRequest{
				Order:    core.Order{ID: "ord-1", TotalCents: 2500},
				Currency: "USD",
			}},
			wantErr: false,
		},
		{
			name: "create intent zero total",
			msg: CreatePaymentIntentMessage{Request: core.CreateIntentRequest{
				Order:    core.Order{ID: "ord-1"},
				Currency: "USD",
			}},
			wantErr: true,
		},
		{
			name:    "capture valid",
			msg:     CapturePaymentMessage{ProviderPaymentID: "pi_1", AmountCents: 2500},
			wantErr: false,
		},
		{
			name:    "capture negative amount",
			msg:     CapturePaymentMessage{ProviderPaymentID: "pi_1", AmountCents: -1},
			wantErr: true,
		},
		{
			name:    "refund missing payment id",
			msg:     RefundPaymentMessage{AmountCents: 100},
			wantErr: true,
		},
		{
			name:    "mark failed missing payment id",
			msg:     MarkPaymentFailedMessage{Reason: "card declined"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
