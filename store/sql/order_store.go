package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-orders/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type OrderStore struct {
	db   *bun.DB
	repo repository.Repository[*orderRecord]
}

func NewOrderStore(db *bun.DB) (*OrderStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*orderRecord](db, orderHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid order repository wiring: %w", err)
		}
	}
	return &OrderStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *OrderStore) Create(ctx context.Context, order core.Order) (core.Order, error) {
	if s == nil || s.db == nil {
		return core.Order{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	if err := order.ValidateTotals(); err != nil {
		return core.Order{}, err
	}
	if strings.TrimSpace(order.ID) == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = core.OrderStatusPlaced
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	record := orderFromDomain(order)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		for i := range order.Items {
			item := order.Items[i]
			if strings.TrimSpace(item.ID) == "" {
				item.ID = uuid.NewString()
			}
			item.OrderID = order.ID
			itemRecord := orderItemFromDomain(item)
			if _, err := tx.NewInsert().Model(itemRecord).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.Order{}, err
	}
	return s.Get(ctx, order.ID)
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (core.Order, error) {
	if s == nil || s.db == nil {
		return core.Order{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	record := &orderRecord{}
	err := s.db.NewSelect().
		Model(record).
		Relation("Items").
		Where("?TableAlias.id = ?", strings.TrimSpace(orderID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Order{}, fmt.Errorf("%w: %s", core.ErrOrderNotFound, orderID)
		}
		return core.Order{}, err
	}
	return orderToDomain(record), nil
}

// Mutate loads the order under a row lock, applies the transition, persists
// the result, and appends the timeline entry, all in one transaction. The
// loser of a concurrent race observes the committed status and fails
// validation instead of overwriting it.
func (s *OrderStore) Mutate(ctx context.Context, orderID string, apply core.TransitionFunc) (core.Order, error) {
	if s == nil || s.db == nil {
		return core.Order{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	if apply == nil {
		return core.Order{}, fmt.Errorf("sqlstore: transition func is required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return core.Order{}, fmt.Errorf("sqlstore: order id is required")
	}

	var updated core.Order
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &orderRecord{}
		query := tx.NewSelect().
			Model(record).
			Where("?TableAlias.id = ?", orderID).
			Limit(1)
		if s.db.Dialect().Name() == dialect.PG {
			query = query.For("UPDATE")
		}
		if err := query.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", core.ErrOrderNotFound, orderID)
			}
			return err
		}

		order := orderToDomain(record)
		entry, err := apply(&order)
		if err != nil {
			return err
		}

		next := orderFromDomain(order)
		if _, err := tx.NewUpdate().
			Model(next).
			WherePK().
			Exec(ctx); err != nil {
			return err
		}

		if strings.TrimSpace(entry.ID) == "" {
			entry.ID = uuid.NewString()
		}
		entry.OrderID = order.ID
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NewInsert().
			Model(timelineEntryFromDomain(entry)).
			Exec(ctx); err != nil {
			return err
		}

		updated = order
		return nil
	})
	if err != nil {
		return core.Order{}, err
	}
	return updated, nil
}

func orderFromDomain(order core.Order) *orderRecord {
	record := &orderRecord{
		ID:                 order.ID,
		CustomerID:         order.CustomerID,
		VendorID:           order.VendorID,
		SubtotalCents:      order.SubtotalCents,
		DeliveryFeeCents:   order.DeliveryFeeCents,
		TaxCents:           order.TaxCents,
		DiscountCents:      order.DiscountCents,
		TotalCents:         order.TotalCents,
		Status:             string(order.Status),
		ScheduledAt:        order.ScheduledAt,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		CancellationReason: order.CancellationReason,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if strings.TrimSpace(order.DriverID) != "" {
		driverID := order.DriverID
		record.DriverID = &driverID
	}
	if strings.TrimSpace(order.PaymentID) != "" {
		paymentID := order.PaymentID
		record.PaymentID = &paymentID
	}
	return record
}

func orderToDomain(record *orderRecord) core.Order {
	if record == nil {
		return core.Order{}
	}
	order := core.Order{
		ID:                 record.ID,
		CustomerID:         record.CustomerID,
		VendorID:           record.VendorID,
		SubtotalCents:      record.SubtotalCents,
		DeliveryFeeCents:   record.DeliveryFeeCents,
		TaxCents:           record.TaxCents,
		DiscountCents:      record.DiscountCents,
		TotalCents:         record.TotalCents,
		Status:             core.OrderStatus(record.Status),
		ScheduledAt:        record.ScheduledAt,
		DeliveredAt:        record.DeliveredAt,
		CancelledAt:        record.CancelledAt,
		CancellationReason: record.CancellationReason,
		CreatedAt:          record.CreatedAt,
		UpdatedAt:          record.UpdatedAt,
	}
	if record.DriverID != nil {
		order.DriverID = *record.DriverID
	}
	if record.PaymentID != nil {
		order.PaymentID = *record.PaymentID
	}
	for _, item := range record.Items {
		order.Items = append(order.Items, orderItemToDomain(item))
	}
	return order
}

func orderItemFromDomain(item core.OrderItem) *orderItemRecord {
	return &orderItemRecord{
		ID:             item.ID,
		OrderID:        item.OrderID,
		ProductID:      item.ProductID,
		Name:           item.Name,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		CreatedAt:      item.CreatedAt,
	}
}

func orderItemToDomain(record *orderItemRecord) core.OrderItem {
	if record == nil {
		return core.OrderItem{}
	}
	return core.OrderItem{
		ID:             record.ID,
		OrderID:        record.OrderID,
		ProductID:      record.ProductID,
		Name:           record.Name,
		Quantity:       record.Quantity,
		UnitPriceCents: record.UnitPriceCents,
		CreatedAt:      record.CreatedAt,
	}
}

var _ core.OrderStore = (*OrderStore)(nil)
