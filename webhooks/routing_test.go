package webhooks

import (
	"testing"

	"github.com/goliatone/go-orders/core"
)

func TestRoutingFromConfig(t *testing.T) {
	routing, err := RoutingFromConfig(map[string]core.RoutingRule{
		"payment_intent.succeeded": {PaymentOperation: "capture"},
		"charge.refunded":          {PaymentOperation: "refund"},
		"payment_intent.payment_failed": {
			PaymentOperation: "fail",
			OrderTarget:      string(core.OrderStatusCancelled),
			CancelReason:     "payment declined",
		},
	})
	if err != nil {
		t.Fatalf("compile routing: %v", err)
	}

	route, ok := routing.Lookup("payment_intent.payment_failed")
	if !ok {
		t.Fatalf("expected route for payment_intent.payment_failed")
	}
	if route.Operation != PaymentOperationFail || route.OrderTarget != core.OrderStatusCancelled {
		t.Fatalf("unexpected route: %+v", route)
	}
	if route.CancelReason != "payment declined" {
		t.Fatalf("unexpected cancel reason %q", route.CancelReason)
	}

	if _, ok := routing.Lookup("customer.updated"); ok {
		t.Fatalf("unexpected route for unmapped event type")
	}
}

func TestRoutingFromConfig_Rejections(t *testing.T) {
	if _, err := RoutingFromConfig(map[string]core.RoutingRule{
		"payment.captured": {PaymentOperation: "charge"},
	}); err == nil {
		t.Fatalf("expected unknown operation rejection")
	}
	if _, err := RoutingFromConfig(map[string]core.RoutingRule{
		"  ": {PaymentOperation: "capture"},
	}); err == nil {
		t.Fatalf("expected blank event type rejection")
	}
}

func TestDefaultRouting(t *testing.T) {
	routing := DefaultRouting()
	for _, eventType := range []string{"payment.captured", "payment.failed", "payment.refunded"} {
		if _, ok := routing.Lookup(eventType); !ok {
			t.Fatalf("expected default route for %s", eventType)
		}
	}
	failed, _ := routing.Lookup("payment.failed")
	if failed.OrderTarget != core.OrderStatusCancelled {
		t.Fatalf("payment.failed must cancel the order, got %q", failed.OrderTarget)
	}
}
