package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"marketetl/internal/domain"
	"marketetl/internal/metrics"
	"marketetl/internal/store"
	"marketetl/internal/yahoo"
)

// Categories selects which collection passes a run performs.
type Categories struct {
	Options   bool
	StockInfo bool
	Prices    bool
	Treasury  bool
	Metrics   bool
}

// Summary is the end-of-run report.
type Summary struct {
	Options      Totals
	StockInfo    Totals
	Earnings     Totals
	Prices       Totals
	TreasuryDays int
	MetricsRows  int
	Failures     []string
	Elapsed      time.Duration
}

// EarningsSource fetches upcoming earnings dates for a symbol.
type EarningsSource interface {
	EarningsDates(ctx context.Context, symbol string) ([]domain.EarningsDate, error)
}

var _ EarningsSource = (*yahoo.Client)(nil)

// Orchestrator wires the fetchers, the store, and the dispatcher settings
// into per-category collection passes.
type Orchestrator struct {
	Quotes   QuoteSource
	Options  *OptionsFetcher
	Earnings EarningsSource // nil disables the earnings pass
	Bars     BarSource      // nil disables the price-bars pass
	Treasury TreasurySource
	Store    *store.SQLiteStore

	BatchSize     int
	MaxConcurrent int
	PricePeriod   string

	Log *slog.Logger
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Log != nil {
		return o.Log
	}
	return slog.Default()
}

// isNoData covers both the dispatcher's own sentinel and the quote client's.
func isNoData(err error) bool {
	return errors.Is(err, ErrNoData) || errors.Is(err, yahoo.ErrNoData)
}

func (o *Orchestrator) dispatcher() dispatcherSettings {
	return dispatcherSettings{
		batchSize:     o.BatchSize,
		maxConcurrent: o.MaxConcurrent,
		log:           o.logger(),
	}
}

type dispatcherSettings struct {
	batchSize     int
	maxConcurrent int
	log           *slog.Logger
}

// CollectOptions fetches and persists option chain snapshots for symbols,
// stamped with today's effective date.
func (o *Orchestrator) CollectOptions(ctx context.Context, symbols []string) (Totals, error) {
	set := o.dispatcher()
	effDate := domain.Today()
	log := set.log.With("category", "options")
	d := &Dispatcher[[]domain.OptionContract]{
		Fetch:    o.Options.FetchChain,
		IsNoData: isNoData,
		Sink: func(ctx context.Context, results []Result[[]domain.OptionContract]) (int, int, error) {
			rows, failed := 0, 0
			for _, r := range results {
				n, err := o.Store.UpsertOptionsChain(ctx, r.Symbol, effDate, r.Payload)
				rows += n
				if err != nil {
					failed++
					log.Warn("persist failed", "symbol", r.Symbol, "error", err)
				}
			}
			return rows, failed, nil
		},
		BatchSize:     set.batchSize,
		MaxConcurrent: set.maxConcurrent,
		Log:           log,
	}
	return d.Run(ctx, symbols)
}

// CollectStockInfo fetches and persists company snapshots for symbols.
func (o *Orchestrator) CollectStockInfo(ctx context.Context, symbols []string) (Totals, error) {
	set := o.dispatcher()
	log := set.log.With("category", "stock_info")
	d := &Dispatcher[*domain.StockInfo]{
		Fetch:    o.Quotes.StockInfo,
		IsNoData: isNoData,
		Sink: func(ctx context.Context, results []Result[*domain.StockInfo]) (int, int, error) {
			rows, failed := 0, 0
			for _, r := range results {
				if err := o.Store.UpsertStockInfo(ctx, r.Payload); err != nil {
					failed++
					log.Warn("persist failed", "symbol", r.Symbol, "error", err)
					continue
				}
				rows++
			}
			return rows, failed, nil
		},
		BatchSize:     set.batchSize,
		MaxConcurrent: set.maxConcurrent,
		Log:           log,
	}
	return d.Run(ctx, symbols)
}

// CollectEarnings fetches and persists upcoming earnings dates for symbols.
func (o *Orchestrator) CollectEarnings(ctx context.Context, symbols []string) (Totals, error) {
	if o.Earnings == nil {
		return Totals{}, nil
	}
	set := o.dispatcher()
	log := set.log.With("category", "earnings")
	d := &Dispatcher[[]domain.EarningsDate]{
		Fetch:    o.Earnings.EarningsDates,
		IsNoData: isNoData,
		Sink: func(ctx context.Context, results []Result[[]domain.EarningsDate]) (int, int, error) {
			rows, failed := 0, 0
			for _, r := range results {
				n, err := o.Store.UpsertEarningsDates(ctx, r.Payload)
				rows += n
				if err != nil {
					failed++
					log.Warn("persist failed", "symbol", r.Symbol, "error", err)
				}
			}
			return rows, failed, nil
		},
		BatchSize:     set.batchSize,
		MaxConcurrent: set.maxConcurrent,
		Log:           log,
	}
	return d.Run(ctx, symbols)
}

// CollectPrices fetches and persists daily bars covering PricePeriod for
// symbols. Requires a configured BarClient.
func (o *Orchestrator) CollectPrices(ctx context.Context, symbols []string) (Totals, error) {
	if o.Bars == nil {
		return Totals{}, errors.New("price bars collection requires Alpaca credentials")
	}
	set := o.dispatcher()
	period := o.PricePeriod
	if period == "" {
		period = "ytd"
	}
	log := set.log.With("category", "prices")
	d := &Dispatcher[[]domain.StockPrice]{
		Fetch: func(ctx context.Context, symbol string) ([]domain.StockPrice, error) {
			return o.Bars.DailyBars(ctx, symbol, period)
		},
		IsNoData: isNoData,
		Sink: func(ctx context.Context, results []Result[[]domain.StockPrice]) (int, int, error) {
			rows, failed := 0, 0
			for _, r := range results {
				n, err := o.Store.UpsertStockPrices(ctx, r.Payload)
				rows += n
				if err != nil {
					failed++
					log.Warn("persist failed", "symbol", r.Symbol, "error", err)
					continue
				}
				s := metrics.ComputePriceSummary(r.Symbol, r.Payload)
				log.Info("price summary",
					"symbol", s.Symbol,
					"days", s.Days,
					"change_pct", floatOrNA(s.ChangePercent),
					"high", floatOrNA(s.High),
					"low", floatOrNA(s.Low),
					"volatility", floatOrNA(s.Volatility),
					"trend", s.Trend,
				)
			}
			return rows, failed, nil
		},
		BatchSize:     set.batchSize,
		MaxConcurrent: set.maxConcurrent,
		Log:           log,
	}
	return d.Run(ctx, symbols)
}

// ComputeMetrics derives and persists option metrics for symbols from the
// chains and snapshots already in the store. An empty symbols list covers
// every symbol with stored chains.
func (o *Orchestrator) ComputeMetrics(ctx context.Context, symbols []string) (int, error) {
	log := o.logger().With("category", "metrics")

	if len(symbols) == 0 {
		var err error
		symbols, err = o.Store.OptionSymbols(ctx)
		if err != nil {
			return 0, err
		}
	}

	asOf := domain.Today()
	total := 0
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		chain, err := o.Store.OptionsChain(ctx, symbol, "")
		if err != nil {
			return total, err
		}
		if len(chain) == 0 {
			continue
		}

		var price *float64
		info, err := o.Store.StockInfo(ctx, symbol)
		if err != nil {
			return total, err
		}
		if info != nil {
			price = info.CurrentPrice
		}
		if price == nil {
			log.Warn("no underlying price, moneyness will be unknown", "symbol", symbol)
		}

		rows := metrics.ComputeAll(chain, price, asOf)
		n, err := o.Store.UpsertOptionMetrics(ctx, rows)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Run performs the selected collection passes in order (stock info, options,
// prices, treasury, metrics). A category's failure is recorded and the run
// continues, except on context cancellation.
func (o *Orchestrator) Run(ctx context.Context, symbols []string, cats Categories, treasuryYear int, treasuryMonth time.Month) *Summary {
	log := o.logger()
	started := time.Now()
	sum := &Summary{}

	fail := func(category string, err error) {
		sum.Failures = append(sum.Failures, fmt.Sprintf("%s: %v", category, err))
		log.Error("category failed", "category", category, "error", err)
	}

	if cats.StockInfo {
		totals, err := o.CollectStockInfo(ctx, symbols)
		sum.StockInfo = totals
		if err != nil {
			fail("stock_info", err)
		}
		if o.Earnings != nil && ctx.Err() == nil {
			totals, err := o.CollectEarnings(ctx, symbols)
			sum.Earnings = totals
			if err != nil {
				fail("earnings", err)
			}
		}
	}
	if cats.Options && ctx.Err() == nil {
		totals, err := o.CollectOptions(ctx, symbols)
		sum.Options = totals
		if err != nil {
			fail("options", err)
		}
	}
	if cats.Prices && ctx.Err() == nil {
		totals, err := o.CollectPrices(ctx, symbols)
		sum.Prices = totals
		if err != nil {
			fail("prices", err)
		}
	}
	if cats.Treasury && ctx.Err() == nil {
		days, yc, err := CollectTreasury(ctx, o.Treasury, o.Store, treasuryYear, treasuryMonth)
		sum.TreasuryDays = days
		if err != nil {
			fail("treasury", err)
		} else if yc != nil {
			log.Info("yield curve",
				"date", yc.Date,
				"slope_10y_2y", floatOrNA(yc.Slope),
				"curvature", floatOrNA(yc.Curvature),
				"inverted", yc.Inverted,
			)
		}
	}
	if cats.Metrics && ctx.Err() == nil {
		rows, err := o.ComputeMetrics(ctx, symbols)
		sum.MetricsRows = rows
		if err != nil {
			fail("metrics", err)
		}
	}

	sum.Elapsed = time.Since(started).Round(time.Millisecond)
	log.Info("run complete",
		"options_rows", sum.Options.Rows,
		"stock_info_rows", sum.StockInfo.Rows,
		"price_rows", sum.Prices.Rows,
		"treasury_days", sum.TreasuryDays,
		"metrics_rows", sum.MetricsRows,
		"failures", len(sum.Failures),
		"elapsed", sum.Elapsed,
	)
	return sum
}

func floatOrNA(v *float64) any {
	if v == nil {
		return "n/a"
	}
	return *v
}
