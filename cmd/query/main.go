// Command query reads collected market data back out of the SQLite store,
// printing to stdout and optionally exporting to CSV or Parquet files.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"marketetl/internal/config"
	"marketetl/internal/domain"
	"marketetl/internal/store"
	"marketetl/internal/util"
)

const maxPrintRows = 20

func main() {
	var (
		queryOptions   = flag.Bool("options", false, "query option chains (requires -symbol)")
		queryStock     = flag.Bool("stock", false, "query daily price bars (requires -symbol)")
		queryStockInfo = flag.Bool("stock-info", false, "query the company snapshot (requires -symbol)")
		queryTreasury  = flag.Bool("treasury", false, "query treasury rates")
		queryMetrics   = flag.Bool("metrics", false, "query option metrics")
		highVolume     = flag.Bool("high-volume", false, "query the most traded option contracts across all symbols")
		queryAll       = flag.Bool("all", false, "query every dataset")

		symbol     = flag.String("symbol", "", "ticker symbol")
		expiration = flag.String("expiration", "", "expiration date filter (YYYY-MM-DD)")
		optionType = flag.String("type", "", "option type filter (call or put)")
		moneyness  = flag.String("moneyness", "", "moneyness filter (ITM, ATM, OTM)")
		minVolume  = flag.Int64("min-volume", 0, "minimum volume filter for metrics")
		start      = flag.String("start", "", "start date filter (YYYY-MM-DD)")
		end        = flag.String("end", "", "end date filter (YYYY-MM-DD)")
		limit      = flag.Int("limit", 0, "row limit for metrics (0 = all)")

		dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
		configPath = flag.String("config", "", "config file path")
		output     = flag.String("output", "", "file prefix for exported results")
		format     = flag.String("format", "csv", "export format: csv or parquet")
	)
	flag.Parse()

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
	if *dbPath != "" {
		cfg.Storage.SQLitePath = *dbPath
	}
	if *format != "csv" && *format != "parquet" {
		log.Fatalf("unknown format %q (want csv or parquet)", *format)
	}

	logger := util.NewLogger(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath, logger)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	q := &querier{store: st, output: *output, format: *format}

	wantSymbolData := *queryOptions || *queryStock || *queryStockInfo
	if *queryAll {
		wantSymbolData = *symbol != ""
		*queryTreasury = true
		*queryMetrics = true
	}
	if !wantSymbolData && !*queryTreasury && !*queryMetrics && !*highVolume {
		fmt.Fprintln(os.Stderr, "no dataset selected (use -options, -stock, -stock-info, -treasury, -metrics, -high-volume, or -all)")
		flag.Usage()
		os.Exit(2)
	}

	if (*queryOptions || *queryStock || *queryStockInfo) && *symbol == "" {
		log.Fatal("-options, -stock, and -stock-info require -symbol")
	}

	if *queryOptions || (*queryAll && *symbol != "") {
		q.options(ctx, *symbol, *expiration)
	}
	if *queryStockInfo || (*queryAll && *symbol != "") {
		q.stockInfo(ctx, *symbol)
	}
	if *queryStock || (*queryAll && *symbol != "") {
		q.stockPrices(ctx, *symbol, *start, *end)
	}
	if *highVolume {
		q.highVolume(ctx, *minVolume, *limit)
	}
	if *queryTreasury {
		q.treasury(ctx, *start, *end)
	}
	if *queryMetrics {
		q.metrics(ctx, store.MetricsFilter{
			Symbol:     *symbol,
			Expiration: *expiration,
			OptionType: domain.OptionType(*optionType),
			Moneyness:  *moneyness,
			MinVolume:  *minVolume,
			Limit:      *limit,
		})
	}
}

// querier runs one dataset query at a time: print a preview, then export
// when an output prefix was given.
type querier struct {
	store  *store.SQLiteStore
	output string
	format string
}

func (q *querier) exportPath(dataset string) string {
	return fmt.Sprintf("%s_%s.%s", q.output, dataset, q.format)
}

func (q *querier) options(ctx context.Context, symbol, expiration string) {
	rows, err := q.store.OptionsChain(ctx, symbol, expiration)
	if err != nil {
		log.Fatalf("options query failed: %v", err)
	}
	fmt.Printf("== options: %d contracts for %s ==\n", len(rows), domain.NormalizeSymbol(symbol))
	for i, r := range rows {
		if i == maxPrintRows {
			fmt.Printf("... %d more\n", len(rows)-maxPrintRows)
			break
		}
		fmt.Printf("%s %s %-4s strike=%.2f bid=%s ask=%s last=%s vol=%s oi=%s\n",
			r.ExpirationDate, r.EffDate, r.OptionType, r.StrikePrice,
			fstr(r.Bid), fstr(r.Ask), fstr(r.LastPrice), istr(r.Volume), istr(r.OpenInterest))
	}
	if q.output == "" {
		return
	}
	path := q.exportPath("options")
	if q.format == "parquet" {
		err = store.ExportOptionsParquet(path, rows)
	} else {
		err = writeCSV(path, optionCSVRecords(rows))
	}
	exported(path, len(rows), err)
}

func (q *querier) highVolume(ctx context.Context, minVolume int64, limit int) {
	rows, err := q.store.HighVolumeOptions(ctx, minVolume, limit)
	if err != nil {
		log.Fatalf("high-volume query failed: %v", err)
	}
	fmt.Printf("== high-volume: %d contracts ==\n", len(rows))
	for i, r := range rows {
		if i == maxPrintRows {
			fmt.Printf("... %d more\n", len(rows)-maxPrintRows)
			break
		}
		fmt.Printf("%s %s %-4s strike=%.2f vol=%s oi=%s last=%s\n",
			r.Symbol, r.ExpirationDate, r.OptionType, r.StrikePrice,
			istr(r.Volume), istr(r.OpenInterest), fstr(r.LastPrice))
	}
	if q.output == "" {
		return
	}
	path := q.exportPath("high_volume")
	if q.format == "parquet" {
		err = store.ExportOptionsParquet(path, rows)
	} else {
		err = writeCSV(path, optionCSVRecords(rows))
	}
	exported(path, len(rows), err)
}

func optionCSVRecords(rows []domain.OptionContract) [][]string {
	records := [][]string{{"symbol", "expiration_date", "strike_price", "option_type",
		"bid", "ask", "last_price", "volume", "open_interest", "implied_volatility", "eff_date"}}
	for _, r := range rows {
		records = append(records, []string{r.Symbol, r.ExpirationDate,
			formatFloat(r.StrikePrice), string(r.OptionType), fstr(r.Bid), fstr(r.Ask),
			fstr(r.LastPrice), istr(r.Volume), istr(r.OpenInterest),
			fstr(r.ImpliedVolatility), r.EffDate})
	}
	return records
}

func (q *querier) stockInfo(ctx context.Context, symbol string) {
	info, err := q.store.StockInfo(ctx, symbol)
	if err != nil {
		log.Fatalf("stock-info query failed: %v", err)
	}
	if info == nil {
		fmt.Printf("== stock-info: no snapshot for %s ==\n", domain.NormalizeSymbol(symbol))
		return
	}
	fmt.Printf("== stock-info: %s ==\n", info.Symbol)
	fmt.Printf("company=%s price=%s market_cap=%s sector=%s as_of=%s\n",
		sstr(info.CompanyName), fstr(info.CurrentPrice), fstr(info.MarketCap),
		sstr(info.Sector), info.EffDate)
	if q.output == "" {
		return
	}
	path := q.exportPath("stock_info")
	rows := []domain.StockInfo{*info}
	if q.format == "parquet" {
		err = store.ExportStockInfoParquet(path, rows)
	} else {
		err = writeCSV(path, [][]string{
			{"symbol", "company_name", "current_price", "market_cap", "sector", "industry", "eff_date"},
			{info.Symbol, sstr(info.CompanyName), fstr(info.CurrentPrice),
				fstr(info.MarketCap), sstr(info.Sector), sstr(info.Industry), info.EffDate},
		})
	}
	exported(path, 1, err)
}

func (q *querier) stockPrices(ctx context.Context, symbol, start, end string) {
	rows, err := q.store.StockPrices(ctx, symbol, start, end)
	if err != nil {
		log.Fatalf("stock query failed: %v", err)
	}
	fmt.Printf("== stock: %d bars for %s ==\n", len(rows), domain.NormalizeSymbol(symbol))
	for i, r := range rows {
		if i == maxPrintRows {
			fmt.Printf("... %d more\n", len(rows)-maxPrintRows)
			break
		}
		fmt.Printf("%s open=%s high=%s low=%s close=%s vol=%s\n",
			r.Date, fstr(r.Open), fstr(r.High), fstr(r.Low), fstr(r.Close), istr(r.Volume))
	}
	if q.output == "" {
		return
	}
	path := q.exportPath("stock_prices")
	if q.format == "parquet" {
		err = store.ExportStockPricesParquet(path, rows)
	} else {
		records := [][]string{{"symbol", "date", "open", "high", "low", "close", "volume"}}
		for _, r := range rows {
			records = append(records, []string{r.Symbol, r.Date, fstr(r.Open),
				fstr(r.High), fstr(r.Low), fstr(r.Close), istr(r.Volume)})
		}
		err = writeCSV(path, records)
	}
	exported(path, len(rows), err)
}

func (q *querier) treasury(ctx context.Context, start, end string) {
	rows, err := q.store.TreasuryRates(ctx, start, end)
	if err != nil {
		log.Fatalf("treasury query failed: %v", err)
	}
	fmt.Printf("== treasury: %d days ==\n", len(rows))
	for i, r := range rows {
		if i == maxPrintRows {
			fmt.Printf("... %d more\n", len(rows)-maxPrintRows)
			break
		}
		fmt.Printf("%s 1m=%s 3m=%s 6m=%s 1y=%s 10y=%s\n",
			r.Date, fstr(r.OneMonth), fstr(r.ThreeMonth), fstr(r.SixMonth),
			fstr(r.OneYear), fstr(r.TenYear))
	}
	if q.output == "" {
		return
	}
	path := q.exportPath("treasury")
	if q.format == "parquet" {
		err = store.ExportTreasuryParquet(path, rows)
	} else {
		records := [][]string{{"date", "one_month", "two_month", "three_month",
			"six_month", "one_year", "two_year", "ten_year", "thirty_year"}}
		for _, r := range rows {
			records = append(records, []string{r.Date, fstr(r.OneMonth), fstr(r.TwoMonth),
				fstr(r.ThreeMonth), fstr(r.SixMonth), fstr(r.OneYear), fstr(r.TwoYear),
				fstr(r.TenYear), fstr(r.ThirtyYear)})
		}
		err = writeCSV(path, records)
	}
	exported(path, len(rows), err)
}

func (q *querier) metrics(ctx context.Context, filter store.MetricsFilter) {
	rows, err := q.store.OptionMetrics(ctx, filter)
	if err != nil {
		log.Fatalf("metrics query failed: %v", err)
	}
	fmt.Printf("== metrics: %d rows ==\n", len(rows))
	for i, m := range rows {
		if i == maxPrintRows {
			fmt.Printf("... %d more\n", len(rows)-maxPrintRows)
			break
		}
		fmt.Printf("%s %s %-4s strike=%.2f %s intrinsic=%s time=%s days=%s vol=%s\n",
			m.Symbol, m.ExpirationDate, m.OptionType, m.StrikePrice, m.Moneyness,
			fstr(m.IntrinsicValue), fstr(m.TimeValue), istr(m.DaysToExpiration), istr(m.Volume))
	}
	if q.output == "" {
		return
	}
	path := q.exportPath("metrics")
	if q.format == "parquet" {
		err = store.ExportMetricsParquet(path, rows)
	} else {
		records := [][]string{{"symbol", "expiration_date", "strike_price", "option_type",
			"moneyness", "intrinsic_value", "time_value", "days_to_expiration",
			"implied_volatility", "volume", "open_interest", "bid_ask_spread"}}
		for _, m := range rows {
			records = append(records, []string{m.Symbol, m.ExpirationDate,
				formatFloat(m.StrikePrice), string(m.OptionType), m.Moneyness,
				fstr(m.IntrinsicValue), fstr(m.TimeValue), istr(m.DaysToExpiration),
				fstr(m.ImpliedVolatility), istr(m.Volume), istr(m.OpenInterest),
				fstr(m.BidAskSpread)})
		}
		err = writeCSV(path, records)
	}
	exported(path, len(rows), err)
}

func exported(path string, rows int, err error) {
	if err != nil {
		log.Fatalf("export to %s failed: %v", path, err)
	}
	fmt.Printf("exported %d rows to %s\n", rows, path)
}

func writeCSV(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fstr(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}

func istr(v *int64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatInt(*v, 10)
}

func sstr(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}
