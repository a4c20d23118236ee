package orders

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-orders/core"
)

type stubStoreProvider struct {
	orders      core.OrderStore
	payments    core.PaymentStore
	timeline    core.TimelineStore
	commissions core.CommissionStore
}

func (s stubStoreProvider) OrderStore() core.OrderStore           { return s.orders }
func (s stubStoreProvider) PaymentStore() core.PaymentStore       { return s.payments }
func (s stubStoreProvider) TimelineStore() core.TimelineStore     { return s.timeline }
func (s stubStoreProvider) CommissionStore() core.CommissionStore { return s.commissions }

type noopOrderStore struct{}

func (noopOrderStore) Get(context.Context, string) (core.Order, error) {
	return core.Order{}, core.ErrOrderNotFound
}

func (noopOrderStore) Mutate(context.Context, string, core.TransitionFunc) (core.Order, error) {
	return core.Order{}, core.ErrOrderNotFound
}

type noopPaymentStore struct{}

func (noopPaymentStore) Create(_ context.Context, payment core.Payment) (core.Payment, error) {
	return payment, nil
}

func (noopPaymentStore) GetByProviderPaymentID(context.Context, string) (core.Payment, error) {
	return core.Payment{}, core.ErrPaymentNotFound
}

func (noopPaymentStore) GetByOrderID(context.Context, string) (core.Payment, error) {
	return core.Payment{}, core.ErrPaymentNotFound
}

func (noopPaymentStore) Mutate(context.Context, string, core.PaymentMutator) (core.Payment, error) {
	return core.Payment{}, core.ErrPaymentNotFound
}

type noopTimelineStore struct{}

func (noopTimelineStore) ListByOrder(context.Context, string) ([]core.TimelineEntry, error) {
	return nil, nil
}

type noopCommissionStore struct{}

func (noopCommissionStore) Current(context.Context, string, time.Time) (core.VendorCommission, error) {
	return core.VendorCommission{}, core.ErrCommissionNotFound
}

func (noopCommissionStore) History(context.Context, string) ([]core.VendorCommission, error) {
	return nil, nil
}

type noopEventLedger struct{}

func (noopEventLedger) Reserve(_ context.Context, provider, providerEventID, eventType string, payload []byte) (core.WebhookEvent, bool, error) {
	return core.WebhookEvent{ID: "whe-1", Provider: provider, ProviderEventID: providerEventID}, false, nil
}

func (noopEventLedger) Get(context.Context, string) (core.WebhookEvent, error) {
	return core.WebhookEvent{}, core.ErrWebhookEventNotFound
}

func (noopEventLedger) MarkProcessed(context.Context, string) error { return nil }

func (noopEventLedger) MarkFailed(_ context.Context, eventID string, cause error, nextAttemptAt time.Time) (core.WebhookEvent, error) {
	return core.WebhookEvent{ID: eventID, Attempts: 1, NextAttemptAt: &nextAttemptAt}, nil
}

func (noopEventLedger) Escalate(context.Context, core.WebhookEvent, error) error { return nil }

func (noopEventLedger) ListRetryable(context.Context, time.Time, int, int) ([]core.WebhookEvent, error) {
	return nil, nil
}

func testStores() stubStoreProvider {
	return stubStoreProvider{
		orders:      noopOrderStore{},
		payments:    noopPaymentStore{},
		timeline:    noopTimelineStore{},
		commissions: noopCommissionStore{},
	}
}

func TestSetup(t *testing.T) {
	facade, err := Setup(DefaultConfig(), testStores())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if facade.Orders() == nil {
		t.Fatalf("expected order flow")
	}
	if facade.Payments() == nil {
		t.Fatalf("expected payment ledger")
	}
	if facade.Commission() == nil {
		t.Fatalf("expected commission calculator")
	}
	// no event ledger, no webhook surface
	if facade.Processor() != nil {
		t.Fatalf("expected nil processor without an event ledger")
	}
	if facade.Redrive() != nil {
		t.Fatalf("expected nil redrive runner without an event ledger")
	}

	commands := facade.Commands()
	if commands.TransitionOrder == nil || commands.CreatePaymentIntent == nil {
		t.Fatalf("expected commands wired")
	}
	if commands.CapturePayment == nil || commands.RefundPayment == nil || commands.MarkPaymentFailed == nil {
		t.Fatalf("expected payment commands wired")
	}
}

func TestSetup_WithEventLedger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Webhook.Secrets = map[string]string{"stripe": "whsec_test"}

	facade, err := Setup(cfg, testStores(), WithEventLedger(noopEventLedger{}))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if facade.Processor() == nil {
		t.Fatalf("expected webhook processor")
	}
	if facade.Redrive() == nil {
		t.Fatalf("expected redrive runner")
	}
	if facade.Processor().MaxAttempts != cfg.Webhook.MaxAttempts {
		t.Fatalf("expected attempt ceiling %d, got %d", cfg.Webhook.MaxAttempts, facade.Processor().MaxAttempts)
	}
}

type fixedConfigProvider struct {
	cfg Config
}

func (p fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

func TestResolveConfig_LayersRuntimeOverProvider(t *testing.T) {
	loaded := DefaultConfig()
	loaded.ServiceName = "from-provider"
	loaded.Webhook.MaxAttempts = 8

	runtime := Config{ServiceName: "from-runtime"}

	cfg, err := ResolveConfig(context.Background(), fixedConfigProvider{cfg: loaded}, runtime)
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime precedence, got %q", cfg.ServiceName)
	}
	if cfg.Webhook.MaxAttempts != 8 {
		t.Fatalf("expected provider attempt ceiling, got %d", cfg.Webhook.MaxAttempts)
	}
}

func TestResolveConfig_NilProviderUsesDefaults(t *testing.T) {
	cfg, err := ResolveConfig(context.Background(), nil, Config{})
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.ServiceName != "orders" {
		t.Fatalf("expected compiled defaults, got %q", cfg.ServiceName)
	}
}

func TestSetup_Rejections(t *testing.T) {
	if _, err := Setup(DefaultConfig(), nil); err == nil {
		t.Fatalf("expected store provider requirement")
	}

	invalid := DefaultConfig()
	invalid.Webhook.MaxAttempts = 0
	if _, err := Setup(invalid, testStores()); err == nil {
		t.Fatalf("expected config validation error")
	}

	badRouting := DefaultConfig()
	badRouting.Routing = map[string]core.RoutingRule{"payment.settled": {PaymentOperation: "settle"}}
	if _, err := Setup(badRouting, testStores()); err == nil {
		t.Fatalf("expected routing validation error")
	}
}
