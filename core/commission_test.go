package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memoryCommissionStore struct {
	rates map[string][]VendorCommission
}

func (s *memoryCommissionStore) Current(ctx context.Context, vendorID string, at time.Time) (VendorCommission, error) {
	for _, rate := range s.rates[vendorID] {
		if rate.EffectiveFrom.After(at) {
			continue
		}
		if rate.EffectiveUntil == nil || rate.EffectiveUntil.After(at) {
			return rate, nil
		}
	}
	return VendorCommission{}, ErrCommissionNotFound
}

func (s *memoryCommissionStore) History(ctx context.Context, vendorID string) ([]VendorCommission, error) {
	return s.rates[vendorID], nil
}

func TestCommissionCalculatorForOrder(t *testing.T) {
	now := time.Now().UTC()
	store := &memoryCommissionStore{rates: map[string][]VendorCommission{
		"ven-1": {{
			ID: "rate-1", VendorID: "ven-1", RateBps: 1500, FlatFeeCents: 30,
			EffectiveFrom: now.Add(-24 * time.Hour),
		}},
	}}
	calc, err := NewCommissionCalculator(store)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	breakdown, err := calc.ForOrder(context.Background(), Order{
		ID: "ord-1", VendorID: "ven-1", SubtotalCents: 2000, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("for order: %v", err)
	}
	// 15% of 2000 plus the 30 cent flat fee
	if breakdown.CommissionCents != 330 {
		t.Fatalf("expected commission 330, got %d", breakdown.CommissionCents)
	}
	if breakdown.VendorNetCents != 1670 {
		t.Fatalf("expected vendor net 1670, got %d", breakdown.VendorNetCents)
	}
	if breakdown.RateBps != 1500 || breakdown.FlatFeeCents != 30 {
		t.Fatalf("expected rate echoed in breakdown, got %d bps / %d flat", breakdown.RateBps, breakdown.FlatFeeCents)
	}
}

func TestCommissionCalculatorForOrder_TruncatesTowardZero(t *testing.T) {
	now := time.Now().UTC()
	store := &memoryCommissionStore{rates: map[string][]VendorCommission{
		"ven-1": {{ID: "rate-1", VendorID: "ven-1", RateBps: 1250, EffectiveFrom: now.Add(-time.Hour)}},
	}}
	calc, err := NewCommissionCalculator(store)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	// 12.5% of 999 is 124.875; integer math truncates, never rounds up
	breakdown, err := calc.ForOrder(context.Background(), Order{
		ID: "ord-1", VendorID: "ven-1", SubtotalCents: 999, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("for order: %v", err)
	}
	if breakdown.CommissionCents != 124 {
		t.Fatalf("expected truncated commission 124, got %d", breakdown.CommissionCents)
	}
}

func TestCommissionCalculatorForOrder_CapsAtSubtotal(t *testing.T) {
	now := time.Now().UTC()
	store := &memoryCommissionStore{rates: map[string][]VendorCommission{
		"ven-1": {{ID: "rate-1", VendorID: "ven-1", RateBps: 3000, FlatFeeCents: 500, EffectiveFrom: now.Add(-time.Hour)}},
	}}
	calc, err := NewCommissionCalculator(store)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	breakdown, err := calc.ForOrder(context.Background(), Order{
		ID: "ord-1", VendorID: "ven-1", SubtotalCents: 400, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("for order: %v", err)
	}
	if breakdown.CommissionCents != 400 {
		t.Fatalf("commission must never exceed the subtotal, got %d", breakdown.CommissionCents)
	}
	if breakdown.VendorNetCents != 0 {
		t.Fatalf("expected zero vendor net, got %d", breakdown.VendorNetCents)
	}
}

func TestCommissionCalculatorForOrder_Errors(t *testing.T) {
	store := &memoryCommissionStore{rates: map[string][]VendorCommission{}}
	calc, err := NewCommissionCalculator(store)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	if _, err := calc.ForOrder(context.Background(), Order{ID: "ord-1", VendorID: "ven-1", SubtotalCents: -1}); !errors.Is(err, ErrInvalidMoneyBreakdown) {
		t.Fatalf("expected negative subtotal rejection, got %v", err)
	}
	if _, err := calc.ForOrder(context.Background(), Order{ID: "ord-1", VendorID: "ven-1", SubtotalCents: 100}); !errors.Is(err, ErrCommissionNotFound) {
		t.Fatalf("expected missing rate error, got %v", err)
	}
}
