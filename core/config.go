package core

import (
	"fmt"
	"strings"
	"time"
)

type WebhookSettings struct {
	// Secrets maps a provider id to its shared webhook secret.
	Secrets map[string]string `koanf:"secrets" mapstructure:"secrets"`
	// MaxAttempts is the processing ceiling before an event escalates to
	// the dead-letter table.
	MaxAttempts int `koanf:"max_attempts" mapstructure:"max_attempts"`
	// Tolerance bounds the timestamp drift accepted for signed envelopes.
	Tolerance time.Duration `koanf:"tolerance" mapstructure:"tolerance"`
}

type ProviderSettings struct {
	RequestTimeout time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
}

// RoutingRule maps a provider event type onto a payment operation and an
// optional order transition driven by the payment outcome.
type RoutingRule struct {
	PaymentOperation string `koanf:"payment_operation" mapstructure:"payment_operation"`
	OrderTarget      string `koanf:"order_target" mapstructure:"order_target"`
	CancelReason     string `koanf:"cancel_reason" mapstructure:"cancel_reason"`
}

type Config struct {
	ServiceName string                 `koanf:"service_name" mapstructure:"service_name"`
	Webhook     WebhookSettings        `koanf:"webhook" mapstructure:"webhook"`
	Provider    ProviderSettings       `koanf:"provider" mapstructure:"provider"`
	Routing     map[string]RoutingRule `koanf:"routing" mapstructure:"routing"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "orders",
		Webhook: WebhookSettings{
			MaxAttempts: 5,
			Tolerance:   5 * time.Minute,
		},
		Provider: ProviderSettings{
			RequestTimeout: 10 * time.Second,
		},
		Routing: DefaultRouting(),
	}
}

// DefaultRouting covers the provider event types the reconciliation path
// understands out of the box. A captured payment does not move the order;
// a failed payment cancels it.
func DefaultRouting() map[string]RoutingRule {
	return map[string]RoutingRule{
		"payment.captured": {
			PaymentOperation: "capture",
		},
		"payment.failed": {
			PaymentOperation: "fail",
			OrderTarget:      string(OrderStatusCancelled),
			CancelReason:     "payment failed",
		},
		"payment.refunded": {
			PaymentOperation: "refund",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Webhook.MaxAttempts <= 0 {
		return fmt.Errorf("core: webhook.max_attempts must be positive")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("core: provider.request_timeout must be positive")
	}
	for eventType, rule := range c.Routing {
		if strings.TrimSpace(eventType) == "" {
			return fmt.Errorf("core: routing event type is required")
		}
		switch strings.TrimSpace(rule.PaymentOperation) {
		case "capture", "fail", "refund":
		default:
			return fmt.Errorf("core: routing %q has unknown payment operation %q", eventType, rule.PaymentOperation)
		}
	}
	return nil
}
