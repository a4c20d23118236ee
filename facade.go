package orders

import (
	"context"
	"fmt"
	"strings"

	orderscommand "github.com/goliatone/go-orders/command"
	"github.com/goliatone/go-orders/core"
	"github.com/goliatone/go-orders/jobs"
	"github.com/goliatone/go-orders/webhooks"
)

// Commands bundles the command bus handlers wired against the facade's
// services.
type Commands struct {
	TransitionOrder     *orderscommand.TransitionOrderCommand
	CreatePaymentIntent *orderscommand.CreatePaymentIntentCommand
	CapturePayment      *orderscommand.CapturePaymentCommand
	RefundPayment       *orderscommand.RefundPaymentCommand
	MarkPaymentFailed   *orderscommand.MarkPaymentFailedCommand
}

// Facade wires the order lifecycle, payment ledger, webhook reconciliation,
// and commission services from one config and store provider.
type Facade struct {
	orders     *core.OrderFlow
	payments   *core.PaymentLedger
	processor  *webhooks.Processor
	commission *core.CommissionCalculator
	redrive    *jobs.RedriveRunner
	commands   Commands
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	logger      core.Logger
	notifier    core.Notifier
	provider    core.PaymentProvider
	providerID  string
	eventLedger webhooks.EventLedger
}

func WithLogger(logger core.Logger) FacadeOption {
	return func(options *facadeOptions) {
		options.logger = logger
	}
}

func WithNotifier(notifier core.Notifier) FacadeOption {
	return func(options *facadeOptions) {
		options.notifier = notifier
	}
}

// WithPaymentProvider sets the outbound payment processor client and the
// provider id payments are created under.
func WithPaymentProvider(providerID string, provider core.PaymentProvider) FacadeOption {
	return func(options *facadeOptions) {
		options.providerID = strings.TrimSpace(providerID)
		options.provider = provider
	}
}

func WithEventLedger(ledger webhooks.EventLedger) FacadeOption {
	return func(options *facadeOptions) {
		options.eventLedger = ledger
	}
}

// ResolveConfig layers persisted and runtime configuration over the compiled
// defaults, in ascending precedence, and validates the result.
func ResolveConfig(ctx context.Context, provider core.ConfigProvider, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded := defaults
	if provider != nil {
		var err error
		loaded, err = provider.Load(ctx, defaults)
		if err != nil {
			return Config{}, err
		}
	}
	return core.GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
}

// Setup builds the full service graph. The event ledger is required for
// webhook processing; stores come from the repository factory.
func Setup(cfg Config, stores core.StoreProvider, opts ...FacadeOption) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stores == nil {
		return nil, fmt.Errorf("orders: store provider is required")
	}
	options := facadeOptions{providerID: "stripe"}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	flowOpts := []core.OrderFlowOption{}
	if options.logger != nil {
		flowOpts = append(flowOpts, core.WithOrderFlowLogger(options.logger))
	}
	if options.notifier != nil {
		flowOpts = append(flowOpts, core.WithOrderFlowNotifier(options.notifier))
	}
	orderFlow, err := core.NewOrderFlow(stores.OrderStore(), flowOpts...)
	if err != nil {
		return nil, err
	}

	ledgerOpts := []core.PaymentLedgerOption{
		core.WithProviderTimeout(cfg.Provider.RequestTimeout),
	}
	if options.logger != nil {
		ledgerOpts = append(ledgerOpts, core.WithPaymentLedgerLogger(options.logger))
	}
	paymentLedger, err := core.NewPaymentLedger(
		stores.PaymentStore(),
		options.provider,
		options.providerID,
		ledgerOpts...,
	)
	if err != nil {
		return nil, err
	}

	commission, err := core.NewCommissionCalculator(stores.CommissionStore())
	if err != nil {
		return nil, err
	}

	facade := &Facade{
		orders:     orderFlow,
		payments:   paymentLedger,
		commission: commission,
	}
	facade.commands = Commands{
		TransitionOrder:     orderscommand.NewTransitionOrderCommand(orderFlow),
		CreatePaymentIntent: orderscommand.NewCreatePaymentIntentCommand(paymentLedger),
		CapturePayment:      orderscommand.NewCapturePaymentCommand(paymentLedger),
		RefundPayment:       orderscommand.NewRefundPaymentCommand(paymentLedger),
		MarkPaymentFailed:   orderscommand.NewMarkPaymentFailedCommand(paymentLedger),
	}

	if options.eventLedger != nil {
		routing, err := webhooks.RoutingFromConfig(cfg.Routing)
		if err != nil {
			return nil, err
		}
		processor := webhooks.NewProcessor(
			webhooks.HeaderSelectVerifier{
				Secrets:   cfg.Webhook.Secrets,
				Tolerance: cfg.Webhook.Tolerance,
			},
			options.eventLedger,
			paymentLedger,
			&orderFlowService{flow: orderFlow, store: stores.OrderStore()},
		)
		processor.Routing = routing
		processor.MaxAttempts = cfg.Webhook.MaxAttempts
		processor.Logger = options.logger
		facade.processor = processor

		runner, err := jobs.NewRedriveRunner(
			options.eventLedger,
			processor,
			jobs.WithRedriveLogger(options.logger),
			jobs.WithRedriveMaxAttempts(cfg.Webhook.MaxAttempts),
		)
		if err != nil {
			return nil, err
		}
		facade.redrive = runner
	}

	return facade, nil
}

func (f *Facade) Orders() *core.OrderFlow {
	if f == nil {
		return nil
	}
	return f.orders
}

func (f *Facade) Payments() *core.PaymentLedger {
	if f == nil {
		return nil
	}
	return f.payments
}

func (f *Facade) Processor() *webhooks.Processor {
	if f == nil {
		return nil
	}
	return f.processor
}

func (f *Facade) Commission() *core.CommissionCalculator {
	if f == nil {
		return nil
	}
	return f.commission
}

func (f *Facade) Redrive() *jobs.RedriveRunner {
	if f == nil {
		return nil
	}
	return f.redrive
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

// orderFlowService adapts OrderFlow plus the read path to the processor's
// OrderService seam.
type orderFlowService struct {
	flow  *core.OrderFlow
	store core.OrderStore
}

func (s *orderFlowService) Get(ctx context.Context, orderID string) (core.Order, error) {
	return s.store.Get(ctx, orderID)
}

func (s *orderFlowService) Transition(ctx context.Context, req core.TransitionRequest) (core.Order, error) {
	return s.flow.Transition(ctx, req)
}
