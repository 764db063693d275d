// Command collect runs the market-data collection pipeline: option chains,
// company snapshots, daily price bars, and treasury rates, persisted to
// SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketetl/internal/config"
	"marketetl/internal/domain"
	"marketetl/internal/gather"
	"marketetl/internal/store"
	"marketetl/internal/treasury"
	"marketetl/internal/universe"
	"marketetl/internal/util"
	"marketetl/internal/yahoo"
)

func main() {
	var (
		collectAll      = flag.Bool("all", false, "collect every category")
		collectStock    = flag.Bool("stock", false, "collect company snapshots")
		collectOptions  = flag.Bool("options", false, "collect option chains")
		collectPrices   = flag.Bool("prices", false, "collect daily price bars (requires Alpaca credentials)")
		collectTreasury = flag.Bool("treasury", false, "collect treasury rates")
		collectMetrics  = flag.Bool("metrics", false, "compute option metrics from stored data")

		symbolList  = flag.String("symbols", "", "comma-separated symbols to collect")
		useSP500    = flag.Bool("sp500", false, "use the cached S&P 500 list")
		useETFs     = flag.Bool("etfs", false, "use the index ETF list")
		useIndices  = flag.Bool("indices", false, "use the market index list")
		limit       = flag.Int("limit", 0, "cap the number of symbols (0 = all)")
		updateSP500 = flag.Bool("update-sp500", false, "refresh the cached S&P 500 list from Wikipedia")

		rateLimit      = flag.Float64("rate-limit", 0, "quote API requests per second (0 = config value)")
		maxConcurrent  = flag.Int("max-concurrent", 0, "max in-flight fetches per batch (0 = config value)")
		batchSize      = flag.Int("batch-size", 0, "symbols per batch (0 = config value)")
		maxExpirations = flag.Int("max-expirations", 0, "expiration dates per symbol (0 = config value)")
		pricePeriod    = flag.String("price-period", "", "trailing period for price bars (1d..10y, ytd, max)")
		treasuryYear   = flag.Int("treasury-year", 0, "treasury month to fetch: year (0 = current)")
		treasuryMonth  = flag.Int("treasury-month", 0, "treasury month to fetch: month 1-12 (0 = current)")

		dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
		configPath = flag.String("config", "", "config file path")
		showStats  = flag.Bool("stats", false, "print database statistics and exit")
		pruneDays  = flag.Int("prune-days", 0, "delete options snapshots older than this many days")
	)
	flag.Parse()

	// Optional .env for credentials; absence is fine.
	_ = godotenv.Load()

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = "config/marketetl.yaml"
		if p := os.Getenv("MARKETETL_CONFIG"); p != "" {
			cfgPath = p
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if *rateLimit > 0 {
		cfg.Quotes.RatePerSecond = *rateLimit
	}
	if *maxConcurrent > 0 {
		cfg.Collect.MaxConcurrent = *maxConcurrent
	}
	if *batchSize > 0 {
		cfg.Collect.BatchSize = *batchSize
	}
	if *maxExpirations > 0 {
		cfg.Collect.MaxExpirations = *maxExpirations
	}
	if *pricePeriod != "" {
		cfg.Collect.PricePeriod = *pricePeriod
	}
	if *dbPath != "" {
		cfg.Storage.SQLitePath = *dbPath
	}

	logger := util.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath, logger)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *showStats {
		printStats(ctx, st)
		return
	}

	if *updateSP500 {
		if err := refreshSP500(ctx, cfg); err != nil {
			log.Fatalf("failed to update S&P 500 list: %v", err)
		}
	}

	if *pruneDays > 0 {
		deleted, err := st.DeleteOptionsOlderThan(ctx, *pruneDays)
		if err != nil {
			log.Fatalf("retention cleanup failed: %v", err)
		}
		logger.Info("retention cleanup", "days", *pruneDays, "deleted", deleted)
	}

	cats := gather.Categories{
		StockInfo: *collectStock || *collectAll,
		Options:   *collectOptions || *collectAll,
		Prices:    *collectPrices || *collectAll,
		Treasury:  *collectTreasury || *collectAll,
		Metrics:   *collectMetrics || *collectAll,
	}
	if !cats.StockInfo && !cats.Options && !cats.Prices && !cats.Treasury && !cats.Metrics {
		if *updateSP500 || *pruneDays > 0 {
			return
		}
		fmt.Fprintln(os.Stderr, "no collection category selected (use -stock, -options, -prices, -treasury, -metrics, or -all)")
		flag.Usage()
		os.Exit(2)
	}

	var symbols []string
	if cats.StockInfo || cats.Options || cats.Prices || cats.Metrics {
		symbols, err = resolveSymbols(cfg, *symbolList, *useSP500, *useETFs, *useIndices, *limit)
		if err != nil {
			log.Fatalf("failed to resolve symbol universe: %v", err)
		}
		logger.Info("symbol universe resolved", "symbols", len(symbols))
	}

	limiter := util.NewRateLimiter(cfg.Quotes.RatePerSecond, cfg.Quotes.RateBurst)
	quotes := yahoo.NewClient(yahoo.ClientConfig{
		BaseURL:    cfg.Quotes.BaseURL,
		Timeout:    cfg.Quotes.Timeout.Std(),
		MaxRetries: cfg.Quotes.MaxRetries,
		Limiter:    limiter,
		Logger:     logger,
	})

	var bars gather.BarSource
	if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" {
		bars = gather.NewBarClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, logger)
	} else if cats.Prices {
		logger.Warn("prices requested but Alpaca credentials are missing, skipping price bars")
		cats.Prices = false
	}

	orch := &gather.Orchestrator{
		Quotes: quotes,
		Options: &gather.OptionsFetcher{
			Source:         quotes,
			MaxExpirations: cfg.Collect.MaxExpirations,
			FanOut:         cfg.Collect.FanOut,
			Log:            logger,
		},
		Earnings:      quotes,
		Bars:          bars,
		Treasury:      treasury.NewClient(cfg.Treasury.BaseURL, cfg.Treasury.Delay.Std(), logger),
		Store:         st,
		BatchSize:     cfg.Collect.BatchSize,
		MaxConcurrent: cfg.Collect.MaxConcurrent,
		PricePeriod:   cfg.Collect.PricePeriod,
		Log:           logger,
	}

	year, month := *treasuryYear, time.Month(*treasuryMonth)
	now := time.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}

	sum := orch.Run(ctx, symbols, cats, year, month)
	if len(sum.Failures) > 0 {
		for _, f := range sum.Failures {
			fmt.Fprintln(os.Stderr, "failed:", f)
		}
		os.Exit(1)
	}
}

// resolveSymbols combines the selected symbol sources, deduplicated in
// source order. With no source selected, the cached S&P 500 list is used.
func resolveSymbols(cfg *config.Config, symbolList string, sp500, etfs, indices bool, limit int) ([]string, error) {
	var symbols []string
	seen := map[string]bool{}
	add := func(syms []string) {
		for _, s := range syms {
			s = domain.NormalizeSymbol(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			symbols = append(symbols, s)
		}
	}

	if symbolList != "" {
		add(strings.Split(symbolList, ","))
	}
	if symbolList == "" && !sp500 && !etfs && !indices {
		sp500 = true
	}

	if sp500 {
		syms, err := universe.LoadCSV(cfg.Universe.SP500CSV)
		if err != nil {
			return nil, fmt.Errorf("loading %s (run -update-sp500 to create it): %w", cfg.Universe.SP500CSV, err)
		}
		add(syms)
	}
	if etfs {
		syms, err := universe.LoadCSV(cfg.Universe.ETFCSV)
		if err != nil {
			return nil, err
		}
		add(syms)
	}
	if indices {
		syms, err := universe.LoadCSV(cfg.Universe.IndexCSV)
		if err != nil {
			return nil, err
		}
		add(syms)
	}
	return universe.Limit(symbols, limit), nil
}

// refreshSP500 scrapes the constituents table and rewrites the local cache.
func refreshSP500(ctx context.Context, cfg *config.Config) error {
	constituents, err := universe.FetchSP500(ctx, nil, cfg.Universe.WikipediaURL)
	if err != nil {
		return err
	}
	if err := universe.WriteCSV(cfg.Universe.SP500CSV, constituents); err != nil {
		return err
	}
	slog.Info("updated S&P 500 list", "path", cfg.Universe.SP500CSV, "constituents", len(constituents))
	return nil
}

func printStats(ctx context.Context, st *store.SQLiteStore) {
	stats, err := st.Stats(ctx)
	if err != nil {
		log.Fatalf("failed to read stats: %v", err)
	}
	fmt.Printf("options_chain:   %d rows (%d symbols", stats.OptionsRows, stats.OptionSymbols)
	if stats.OptionsFirstDate != "" {
		fmt.Printf(", %s .. %s", stats.OptionsFirstDate, stats.OptionsLastDate)
	}
	fmt.Println(")")
	fmt.Printf("stock_info:      %d rows\n", stats.StockInfoRows)
	fmt.Printf("stock_prices:    %d rows\n", stats.StockPriceRows)
	fmt.Printf("earnings_dates:  %d rows\n", stats.EarningsRows)
	fmt.Printf("option_metrics:  %d rows\n", stats.MetricsRows)
	fmt.Printf("treasury_rates:  %d rows\n", stats.TreasuryRows)
}
