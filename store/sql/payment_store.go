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

type PaymentStore struct {
	db   *bun.DB
	repo repository.Repository[*paymentRecord]
}

func NewPaymentStore(db *bun.DB) (*PaymentStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*paymentRecord](db, paymentHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid payment repository wiring: %w", err)
		}
	}
	return &PaymentStore{
		db:   db,
		repo: repo,
	}, nil
}

// Create inserts a payment. The partial unique index on open payments per
// order turns a concurrent second intent into a conflict instead of a
// double charge.
func (s *PaymentStore) Create(ctx context.Context, payment core.Payment) (core.Payment, error) {
	if s == nil || s.db == nil {
		return core.Payment{}, fmt.Errorf("sqlstore: payment store is not configured")
	}
	if strings.TrimSpace(payment.ID) == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now

	record := paymentFromDomain(payment)
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return core.Payment{}, fmt.Errorf(
				"%w: order %s already has an open payment",
				core.ErrPaymentConflict, payment.OrderID,
			)
		}
		return core.Payment{}, err
	}
	return paymentToDomain(record), nil
}

func (s *PaymentStore) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (core.Payment, error) {
	if s == nil || s.db == nil {
		return core.Payment{}, fmt.Errorf("sqlstore: payment store is not configured")
	}
	providerPaymentID = strings.TrimSpace(providerPaymentID)
	if providerPaymentID == "" {
		return core.Payment{}, fmt.Errorf("%w: empty provider payment id", core.ErrPaymentNotFound)
	}
	record := &paymentRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.provider_payment_id = ?", providerPaymentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Payment{}, fmt.Errorf("%w: %s", core.ErrPaymentNotFound, providerPaymentID)
		}
		return core.Payment{}, err
	}
	return paymentToDomain(record), nil
}

func (s *PaymentStore) GetByOrderID(ctx context.Context, orderID string) (core.Payment, error) {
	if s == nil || s.db == nil {
		return core.Payment{}, fmt.Errorf("sqlstore: payment store is not configured")
	}
	record := &paymentRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.order_id = ?", strings.TrimSpace(orderID)).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Payment{}, fmt.Errorf("%w: no payment for order %s", core.ErrPaymentNotFound, orderID)
		}
		return core.Payment{}, err
	}
	return paymentToDomain(record), nil
}

// Mutate locks the payment row by provider payment id, applies the
// mutation, and persists it in the same transaction.
func (s *PaymentStore) Mutate(ctx context.Context, providerPaymentID string, apply core.PaymentMutator) (core.Payment, error) {
	if s == nil || s.db == nil {
		return core.Payment{}, fmt.Errorf("sqlstore: payment store is not configured")
	}
	if apply == nil {
		return core.Payment{}, fmt.Errorf("sqlstore: payment mutator is required")
	}
	providerPaymentID = strings.TrimSpace(providerPaymentID)
	if providerPaymentID == "" {
		return core.Payment{}, fmt.Errorf("%w: empty provider payment id", core.ErrPaymentNotFound)
	}

	var updated core.Payment
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record := &paymentRecord{}
		query := tx.NewSelect().
			Model(record).
			Where("?TableAlias.provider_payment_id = ?", providerPaymentID).
			Limit(1)
		if s.db.Dialect().Name() == dialect.PG {
			query = query.For("UPDATE")
		}
		if err := query.Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %s", core.ErrPaymentNotFound, providerPaymentID)
			}
			return err
		}

		payment := paymentToDomain(record)
		if err := apply(&payment); err != nil {
			return err
		}

		next := paymentFromDomain(payment)
		if _, err := tx.NewUpdate().
			Model(next).
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		updated = payment
		return nil
	})
	if err != nil {
		return core.Payment{}, err
	}
	return updated, nil
}

func paymentFromDomain(payment core.Payment) *paymentRecord {
	record := &paymentRecord{
		ID:            payment.ID,
		OrderID:       payment.OrderID,
		AmountCents:   payment.AmountCents,
		CapturedCents: payment.CapturedCents,
		RefundedCents: payment.RefundedCents,
		Currency:      payment.Currency,
		Provider:      payment.Provider,
		ClientSecret:  payment.ClientSecret,
		Method:        payment.Method,
		Status:        string(payment.Status),
		PaidAt:        payment.PaidAt,
		FailedAt:      payment.FailedAt,
		FailureReason: payment.FailureReason,
		CreatedAt:     payment.CreatedAt,
		UpdatedAt:     payment.UpdatedAt,
	}
	if strings.TrimSpace(payment.ProviderPaymentID) != "" {
		providerPaymentID := payment.ProviderPaymentID
		record.ProviderPaymentID = &providerPaymentID
	}
	return record
}

func paymentToDomain(record *paymentRecord) core.Payment {
	if record == nil {
		return core.Payment{}
	}
	payment := core.Payment{
		ID:            record.ID,
		OrderID:       record.OrderID,
		AmountCents:   record.AmountCents,
		CapturedCents: record.CapturedCents,
		RefundedCents: record.RefundedCents,
		Currency:      record.Currency,
		Provider:      record.Provider,
		ClientSecret:  record.ClientSecret,
		Method:        record.Method,
		Status:        core.PaymentStatus(record.Status),
		PaidAt:        record.PaidAt,
		FailedAt:      record.FailedAt,
		FailureReason: record.FailureReason,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.ProviderPaymentID != nil {
		payment.ProviderPaymentID = *record.ProviderPaymentID
	}
	return payment
}

var _ core.PaymentStore = (*PaymentStore)(nil)
