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

// CommissionStore persists effective-dated vendor rates. At most one row
// per vendor has a NULL effective_until; SetRate closes it before opening
// the next one so history never overlaps.
type CommissionStore struct {
	db   *bun.DB
	repo repository.Repository[*vendorCommissionRecord]
}

func NewCommissionStore(db *bun.DB) (*CommissionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*vendorCommissionRecord](db, commissionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid commission repository wiring: %w", err)
		}
	}
	return &CommissionStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *CommissionStore) Current(ctx context.Context, vendorID string, at time.Time) (core.VendorCommission, error) {
	if s == nil || s.db == nil {
		return core.VendorCommission{}, fmt.Errorf("sqlstore: commission store is not configured")
	}
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return core.VendorCommission{}, fmt.Errorf("%w: empty vendor id", core.ErrCommissionNotFound)
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	record := &vendorCommissionRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.vendor_id = ?", vendorID).
		Where("?TableAlias.effective_from <= ?", at).
		Where("?TableAlias.effective_until IS NULL OR ?TableAlias.effective_until > ?", at).
		Order("effective_from DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.VendorCommission{}, fmt.Errorf("%w: vendor %s", core.ErrCommissionNotFound, vendorID)
		}
		return core.VendorCommission{}, err
	}
	return commissionToDomain(record), nil
}

func (s *CommissionStore) History(ctx context.Context, vendorID string) ([]core.VendorCommission, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: commission store is not configured")
	}
	var records []*vendorCommissionRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.vendor_id = ?", strings.TrimSpace(vendorID)).
		Order("effective_from DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	rates := make([]core.VendorCommission, 0, len(records))
	for _, record := range records {
		rates = append(rates, commissionToDomain(record))
	}
	return rates, nil
}

// SetRate closes the vendor's open rate at effectiveFrom and inserts the new
// open-ended row in the same transaction.
func (s *CommissionStore) SetRate(
	ctx context.Context,
	vendorID string,
	rateBps int,
	flatFeeCents int64,
	effectiveFrom time.Time,
) (core.VendorCommission, error) {
	if s == nil || s.db == nil {
		return core.VendorCommission{}, fmt.Errorf("sqlstore: commission store is not configured")
	}
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return core.VendorCommission{}, fmt.Errorf("sqlstore: vendor id is required")
	}
	if rateBps < 0 || rateBps > 10000 {
		return core.VendorCommission{}, fmt.Errorf("sqlstore: rate must be between 0 and 10000 basis points")
	}
	if flatFeeCents < 0 {
		return core.VendorCommission{}, fmt.Errorf("sqlstore: flat fee must not be negative")
	}
	if effectiveFrom.IsZero() {
		effectiveFrom = time.Now()
	}
	effectiveFrom = effectiveFrom.UTC()

	record := &vendorCommissionRecord{
		ID:            uuid.NewString(),
		VendorID:      vendorID,
		RateBps:       rateBps,
		FlatFeeCents:  flatFeeCents,
		EffectiveFrom: effectiveFrom,
		CreatedAt:     time.Now().UTC(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		open := &vendorCommissionRecord{}
		query := tx.NewSelect().
			Model(open).
			Where("?TableAlias.vendor_id = ?", vendorID).
			Where("?TableAlias.effective_until IS NULL").
			Limit(1)
		if s.db.Dialect().Name() == dialect.PG {
			query = query.For("UPDATE")
		}
		switch err := query.Scan(ctx); {
		case err == nil:
			if !open.EffectiveFrom.Before(effectiveFrom) {
				return fmt.Errorf(
					"sqlstore: new rate must start after the current rate began (%s)",
					open.EffectiveFrom.Format(time.RFC3339),
				)
			}
			if _, err := tx.NewUpdate().
				Model((*vendorCommissionRecord)(nil)).
				Set("effective_until = ?", effectiveFrom).
				Where("id = ?", open.ID).
				Exec(ctx); err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			// first rate for this vendor
		default:
			return err
		}

		_, err := tx.NewInsert().Model(record).Exec(ctx)
		return err
	})
	if err != nil {
		return core.VendorCommission{}, err
	}
	return commissionToDomain(record), nil
}

func commissionToDomain(record *vendorCommissionRecord) core.VendorCommission {
	if record == nil {
		return core.VendorCommission{}
	}
	rate := core.VendorCommission{
		ID:            record.ID,
		VendorID:      record.VendorID,
		RateBps:       record.RateBps,
		FlatFeeCents:  record.FlatFeeCents,
		EffectiveFrom: record.EffectiveFrom,
		CreatedAt:     record.CreatedAt,
	}
	if record.EffectiveUntil != nil {
		value := *record.EffectiveUntil
		rate.EffectiveUntil = &value
	}
	return rate
}

var _ core.CommissionStore = (*CommissionStore)(nil)
