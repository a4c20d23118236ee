package core

import (
	"context"
	"fmt"
)

// CommissionBreakdown is the platform's cut of an order subtotal.
type CommissionBreakdown struct {
	VendorID        string
	OrderID         string
	SubtotalCents   int64
	RateBps         int
	FlatFeeCents    int64
	CommissionCents int64
	VendorNetCents  int64
}

// CommissionCalculator resolves the vendor's current effective-dated rate
// and computes the platform commission in integer basis points, avoiding
// floating point rounding.
type CommissionCalculator struct {
	store CommissionStore
}

func NewCommissionCalculator(store CommissionStore) (*CommissionCalculator, error) {
	if store == nil {
		return nil, fmt.Errorf("core: commission store is required")
	}
	return &CommissionCalculator{store: store}, nil
}

func (c *CommissionCalculator) ForOrder(ctx context.Context, order Order) (CommissionBreakdown, error) {
	if c == nil || c.store == nil {
		return CommissionBreakdown{}, fmt.Errorf("core: commission calculator is not configured")
	}
	if order.SubtotalCents < 0 {
		return CommissionBreakdown{}, MapError(fmt.Errorf("%w: negative subtotal", ErrInvalidMoneyBreakdown))
	}
	rate, err := c.store.Current(ctx, order.VendorID, order.CreatedAt)
	if err != nil {
		return CommissionBreakdown{}, MapError(err)
	}
	commission := order.SubtotalCents*int64(rate.RateBps)/10000 + rate.FlatFeeCents
	if commission > order.SubtotalCents {
		commission = order.SubtotalCents
	}
	return CommissionBreakdown{
		VendorID:        order.VendorID,
		OrderID:         order.ID,
		SubtotalCents:   order.SubtotalCents,
		RateBps:         rate.RateBps,
		FlatFeeCents:    rate.FlatFeeCents,
		CommissionCents: commission,
		VendorNetCents:  order.SubtotalCents - commission,
	}, nil
}
