package webhooks

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-orders/core"
)

type PaymentOperation string

const (
	PaymentOperationCapture PaymentOperation = "capture"
	PaymentOperationFail    PaymentOperation = "fail"
	PaymentOperationRefund  PaymentOperation = "refund"
)

// Route binds a provider event type to a payment operation and, optionally,
// an order transition driven by the payment outcome.
type Route struct {
	Operation    PaymentOperation
	OrderTarget  core.OrderStatus
	CancelReason string
}

type Routing map[string]Route

func (r Routing) Lookup(eventType string) (Route, bool) {
	route, ok := r[strings.TrimSpace(eventType)]
	return route, ok
}

// RoutingFromConfig compiles the configured event-type mapping. The mapping
// is configuration, not provider-specific hard-coding.
func RoutingFromConfig(rules map[string]core.RoutingRule) (Routing, error) {
	routing := make(Routing, len(rules))
	for eventType, rule := range rules {
		eventType = strings.TrimSpace(eventType)
		if eventType == "" {
			return nil, fmt.Errorf("webhooks: routing event type is required")
		}
		operation := PaymentOperation(strings.TrimSpace(rule.PaymentOperation))
		switch operation {
		case PaymentOperationCapture, PaymentOperationFail, PaymentOperationRefund:
		default:
			return nil, fmt.Errorf("webhooks: routing %q has unknown payment operation %q", eventType, rule.PaymentOperation)
		}
		routing[eventType] = Route{
			Operation:    operation,
			OrderTarget:  core.OrderStatus(strings.TrimSpace(rule.OrderTarget)),
			CancelReason: strings.TrimSpace(rule.CancelReason),
		}
	}
	return routing, nil
}

func DefaultRouting() Routing {
	routing, err := RoutingFromConfig(core.DefaultRouting())
	if err != nil {
		panic(err)
	}
	return routing
}
