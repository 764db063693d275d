// Package store persists fetched market data to SQLite and exports query
// results to Parquet. All dates are YYYY-MM-DD strings so natural keys
// compare byte-wise.
package store

import (
	"context"

	"marketetl/internal/domain"
)

// OptionsStore persists and retrieves options chain snapshots.
type OptionsStore interface {
	// UpsertOptionsChain replaces the (symbol, effDate) snapshot with records
	// in one transaction and returns the number of rows inserted. An empty
	// records slice still clears the prior snapshot.
	UpsertOptionsChain(ctx context.Context, symbol, effDate string, records []domain.OptionContract) (int, error)

	// OptionsChain returns contracts for a symbol, optionally filtered to one
	// expiration date.
	OptionsChain(ctx context.Context, symbol, expiration string) ([]domain.OptionContract, error)

	// ExpirationDates returns the distinct expiration dates stored for a
	// symbol, ascending.
	ExpirationDates(ctx context.Context, symbol string) ([]string, error)

	// HighVolumeOptions returns contracts with volume >= minVolume, highest
	// volume first, up to limit.
	HighVolumeOptions(ctx context.Context, minVolume int64, limit int) ([]domain.OptionContract, error)

	// OptionSymbols returns the distinct symbols with stored chains.
	OptionSymbols(ctx context.Context) ([]string, error)

	// DeleteOptionsOlderThan removes chain rows whose effective date is more
	// than days days old and returns how many were deleted.
	DeleteOptionsOlderThan(ctx context.Context, days int) (int64, error)
}

// StockStore persists and retrieves company snapshots, daily prices, and
// earnings dates.
type StockStore interface {
	// UpsertStockInfo saves the current snapshot for a symbol, replacing any
	// previous one.
	UpsertStockInfo(ctx context.Context, info *domain.StockInfo) error

	// StockInfo returns the stored snapshot for a symbol, or nil if absent.
	StockInfo(ctx context.Context, symbol string) (*domain.StockInfo, error)

	// UpsertStockPrices saves daily bars keyed by (symbol, date).
	UpsertStockPrices(ctx context.Context, prices []domain.StockPrice) (int, error)

	// StockPrices returns bars for a symbol within [start, end], ascending.
	// Empty bounds are open-ended.
	StockPrices(ctx context.Context, symbol, start, end string) ([]domain.StockPrice, error)

	// UpsertEarningsDates saves earnings events keyed by
	// (symbol, earnings_date, earnings_type).
	UpsertEarningsDates(ctx context.Context, dates []domain.EarningsDate) (int, error)
}

// TreasuryStore persists and retrieves daily treasury rates.
type TreasuryStore interface {
	// UpsertTreasuryRates saves daily rate rows keyed by date.
	UpsertTreasuryRates(ctx context.Context, rates []domain.TreasuryRate) (int, error)

	// TreasuryRates returns rows within [start, end], ascending. Empty bounds
	// are open-ended.
	TreasuryRates(ctx context.Context, start, end string) ([]domain.TreasuryRate, error)

	// LatestTreasuryRate returns the most recent row, or nil when empty.
	LatestTreasuryRate(ctx context.Context) (*domain.TreasuryRate, error)
}

// MetricsStore persists and retrieves derived option metrics.
type MetricsStore interface {
	// UpsertOptionMetrics saves metric rows keyed by
	// (symbol, expiration_date, strike_price, option_type).
	UpsertOptionMetrics(ctx context.Context, metrics []domain.OptionMetric) (int, error)

	// OptionMetrics returns metric rows matching the filter.
	OptionMetrics(ctx context.Context, filter MetricsFilter) ([]domain.OptionMetric, error)
}

// MetricsFilter narrows an OptionMetrics query. Zero values mean "any".
type MetricsFilter struct {
	Symbol     string
	Expiration string
	OptionType domain.OptionType
	Moneyness  string
	MinVolume  int64
	Limit      int
}

// Stats is a row-count rollup across all tables.
type Stats struct {
	OptionsRows    int64
	OptionSymbols  int64
	StockInfoRows  int64
	StockPriceRows int64
	EarningsRows   int64
	MetricsRows    int64
	TreasuryRows   int64

	// Effective-date range of stored option chains; empty when no rows.
	OptionsFirstDate string
	OptionsLastDate  string
}
