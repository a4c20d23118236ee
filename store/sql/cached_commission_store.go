package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-orders/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const commissionCacheKeyPrefix = "go-orders::vendor_commission::v1"

// CachedCommissionStore fronts commission reads with a cache. Only the
// vendor's open-ended rate is cached; historical lookups fall through to
// the base store, and SetRate invalidates the vendor's entry.
type CachedCommissionStore struct {
	base  *CommissionStore
	cache repositorycache.CacheService
}

func NewCachedCommissionStore(
	base *CommissionStore,
	cacheService repositorycache.CacheService,
) (*CachedCommissionStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base commission store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: commission cache service is required")
	}
	return &CachedCommissionStore{base: base, cache: cacheService}, nil
}

// CommissionCacheKey returns the deterministic cache key for a vendor's
// open-ended rate: go-orders::vendor_commission::v1::<vendor_id> with the
// vendor segment URL-path escaped.
func CommissionCacheKey(vendorID string) (string, error) {
	vendorID = strings.TrimSpace(vendorID)
	if vendorID == "" {
		return "", fmt.Errorf("sqlstore: vendor id is required")
	}
	return commissionCacheKeyPrefix + "::" + url.PathEscape(vendorID), nil
}

func (s *CachedCommissionStore) Current(ctx context.Context, vendorID string, at time.Time) (core.VendorCommission, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.VendorCommission{}, fmt.Errorf("sqlstore: cached commission store is not configured")
	}
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	cacheKey, err := CommissionCacheKey(vendorID)
	if err != nil {
		return core.VendorCommission{}, err
	}
	rate, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.VendorCommission, error) {
		return s.base.Current(ctx, vendorID, time.Now().UTC())
	})
	if err != nil {
		return core.VendorCommission{}, err
	}
	if commissionCovers(rate, at) {
		return rate, nil
	}
	// historical instant, bypass the cache
	return s.base.Current(ctx, vendorID, at)
}

func (s *CachedCommissionStore) History(ctx context.Context, vendorID string) ([]core.VendorCommission, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached commission store is not configured")
	}
	return s.base.History(ctx, vendorID)
}

func (s *CachedCommissionStore) SetRate(
	ctx context.Context,
	vendorID string,
	rateBps int,
	flatFeeCents int64,
	effectiveFrom time.Time,
) (core.VendorCommission, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.VendorCommission{}, fmt.Errorf("sqlstore: cached commission store is not configured")
	}
	rate, err := s.base.SetRate(ctx, vendorID, rateBps, flatFeeCents, effectiveFrom)
	if err != nil {
		return core.VendorCommission{}, err
	}
	cacheKey, keyErr := CommissionCacheKey(vendorID)
	if keyErr != nil {
		return core.VendorCommission{}, keyErr
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.VendorCommission{}, err
	}
	return rate, nil
}

func commissionCovers(rate core.VendorCommission, at time.Time) bool {
	if rate.EffectiveFrom.After(at) {
		return false
	}
	return rate.EffectiveUntil == nil || rate.EffectiveUntil.After(at)
}

var _ core.CommissionStore = (*CachedCommissionStore)(nil)
