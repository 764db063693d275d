package gather

import (
	"context"
	"time"

	"marketetl/internal/domain"
	"marketetl/internal/metrics"
	"marketetl/internal/store"
)

// TreasurySource fetches one month of daily treasury rates.
type TreasurySource interface {
	MonthlyRates(ctx context.Context, year int, month time.Month) ([]domain.TreasuryRate, error)
}

// CollectTreasury fetches the month's rates, persists them, and returns the
// yield-curve summary for the latest day alongside the row count.
func CollectTreasury(ctx context.Context, src TreasurySource, st store.TreasuryStore, year int, month time.Month) (int, *metrics.YieldCurve, error) {
	rates, err := src.MonthlyRates(ctx, year, month)
	if err != nil {
		return 0, nil, err
	}
	n, err := st.UpsertTreasuryRates(ctx, rates)
	if err != nil {
		return 0, nil, err
	}
	if len(rates) == 0 {
		return 0, nil, nil
	}
	yc := metrics.ComputeYieldCurve(rates[len(rates)-1])
	return n, &yc, nil
}
