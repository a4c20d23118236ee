package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TransitionRequest asks for a validated order status change.
type TransitionRequest struct {
	OrderID  string
	Target   OrderStatus
	Actor    Actor
	Note     string
	Location *GeoPoint
	Metadata map[string]any
}

func (r TransitionRequest) Validate() error {
	if strings.TrimSpace(r.OrderID) == "" {
		return fmt.Errorf("core: order id is required")
	}
	if strings.TrimSpace(string(r.Target)) == "" {
		return fmt.Errorf("core: target status is required")
	}
	if strings.TrimSpace(r.Actor.ID) == "" {
		return fmt.Errorf("core: actor id is required")
	}
	return nil
}

// OrderFlow owns the order fulfillment state machine. Every transition runs
// inside a single store transaction with the order row locked, appends one
// timeline entry, and then notifies downstream best-effort.
type OrderFlow struct {
	store    OrderStore
	notifier Notifier
	logger   Logger
	Now      func() time.Time
}

type OrderFlowOption func(*OrderFlow)

func WithOrderFlowNotifier(notifier Notifier) OrderFlowOption {
	return func(f *OrderFlow) {
		f.notifier = notifier
	}
}

func WithOrderFlowLogger(logger Logger) OrderFlowOption {
	return func(f *OrderFlow) {
		f.logger = logger
	}
}

func NewOrderFlow(store OrderStore, opts ...OrderFlowOption) (*OrderFlow, error) {
	if store == nil {
		return nil, fmt.Errorf("core: order store is required")
	}
	flow := &OrderFlow{
		store: store,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(flow)
		}
	}
	return flow, nil
}

func (f *OrderFlow) Transition(ctx context.Context, req TransitionRequest) (Order, error) {
	if f == nil || f.store == nil {
		return Order{}, fmt.Errorf("core: order flow is not configured")
	}
	if err := req.Validate(); err != nil {
		return Order{}, MapError(err)
	}

	now := f.now()
	var from OrderStatus
	updated, err := f.store.Mutate(ctx, req.OrderID, func(order *Order) (TimelineEntry, error) {
		from = order.Status
		if err := order.TransitionTo(req.Target, req.Note, now); err != nil {
			return TimelineEntry{}, err
		}
		entry := TimelineEntry{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   req.Target,
			ActorID:    req.Actor.ID,
			ActorRole:  req.Actor.Role,
			Note:       strings.TrimSpace(req.Note),
			Location:   req.Location,
			Metadata:   req.Metadata,
			CreatedAt:  now,
		}
		return entry, nil
	})
	if err != nil {
		return Order{}, MapError(err)
	}

	f.notifyStatusChange(ctx, StatusNotification{
		OrderID:    updated.ID,
		FromStatus: from,
		ToStatus:   updated.Status,
		Actor:      req.Actor,
		OccurredAt: now,
	})
	return updated, nil
}

// notifyStatusChange is fire-and-forget: a notification failure never rolls
// back the transition it follows.
func (f *OrderFlow) notifyStatusChange(ctx context.Context, notification StatusNotification) {
	if f == nil || f.notifier == nil {
		return
	}
	if err := f.notifier.NotifyStatusChange(ctx, notification); err != nil && f.logger != nil {
		f.logger.Warn("order status notification failed",
			"order_id", notification.OrderID,
			"to_status", string(notification.ToStatus),
			"error", err.Error(),
		)
	}
}

func (f *OrderFlow) now() time.Time {
	if f != nil && f.Now != nil {
		return f.Now().UTC()
	}
	return time.Now().UTC()
}
