package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"marketetl/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "market_data.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func contract(symbol, expiration string, strike float64, typ domain.OptionType, effDate string) domain.OptionContract {
	return domain.OptionContract{
		Symbol:         symbol,
		ExpirationDate: expiration,
		StrikePrice:    strike,
		OptionType:     typ,
		Bid:            domain.Float(1.0),
		Ask:            domain.Float(1.2),
		Volume:         domain.Int(10),
		EffDate:        effDate,
	}
}

func TestUpsertOptionsChainReplacesSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	calls := []domain.OptionContract{
		contract("AAPL", "2024-06-21", 170, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 175, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 185, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 190, domain.Call, "2024-06-03"),
	}
	n, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03", calls)
	if err != nil {
		t.Fatalf("UpsertOptionsChain: %v", err)
	}
	if n != 5 {
		t.Errorf("inserted %d rows, want 5", n)
	}

	// Re-upsert with a smaller snapshot: previous rows must be gone.
	puts := []domain.OptionContract{
		contract("AAPL", "2024-06-21", 170, domain.Put, "2024-06-03"),
		contract("AAPL", "2024-06-21", 175, domain.Put, "2024-06-03"),
		contract("AAPL", "2024-06-21", 180, domain.Put, "2024-06-03"),
	}
	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03", puts); err != nil {
		t.Fatalf("UpsertOptionsChain: %v", err)
	}

	got, err := s.OptionsChain(ctx, "AAPL", "")
	if err != nil {
		t.Fatalf("OptionsChain: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d rows after replace, want 3", len(got))
	}
	for _, c := range got {
		if c.OptionType != domain.Put {
			t.Errorf("stale row survived the replace: %+v", c)
		}
	}
}

func TestUpsertOptionsChainIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []domain.OptionContract{
		contract("MSFT", "2024-07-19", 400, domain.Call, "2024-06-03"),
		contract("MSFT", "2024-07-19", 410, domain.Call, "2024-06-03"),
	}
	for i := 0; i < 3; i++ {
		if _, err := s.UpsertOptionsChain(ctx, "MSFT", "2024-06-03", records); err != nil {
			t.Fatalf("UpsertOptionsChain #%d: %v", i, err)
		}
	}

	got, err := s.OptionsChain(ctx, "MSFT", "")
	if err != nil {
		t.Fatalf("OptionsChain: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d rows after repeated upserts, want 2", len(got))
	}
}

func TestUpsertOptionsChainEmptyClearsSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03",
		[]domain.OptionContract{contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03", nil); err != nil {
		t.Fatalf("empty upsert: %v", err)
	}

	got, err := s.OptionsChain(ctx, "AAPL", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty upsert should clear the snapshot, %d rows remain", len(got))
	}
}

func TestUpsertOptionsChainKeepsOtherSnapshots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03",
		[]domain.OptionContract{contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertOptionsChain(ctx, "MSFT", "2024-06-03",
		[]domain.OptionContract{contract("MSFT", "2024-06-21", 400, domain.Call, "2024-06-03")}); err != nil {
		t.Fatal(err)
	}
	// A different eff_date for AAPL must not disturb the 06-03 snapshot.
	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-04",
		[]domain.OptionContract{contract("AAPL", "2024-06-21", 185, domain.Call, "2024-06-04")}); err != nil {
		t.Fatal(err)
	}

	got, err := s.OptionsChain(ctx, "AAPL", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("AAPL rows = %d, want 2 (one per eff_date)", len(got))
	}

	syms, err := s.OptionSymbols(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(syms) != 2 || syms[0] != "AAPL" || syms[1] != "MSFT" {
		t.Errorf("OptionSymbols = %v", syms)
	}
}

func TestOptionsChainRoundTripsOptionalFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := domain.OptionContract{
		Symbol:         "AAPL",
		ExpirationDate: "2024-06-21",
		StrikePrice:    180,
		OptionType:     domain.Call,
		LastPrice:      domain.Float(5.2),
		EffDate:        "2024-06-03",
	}
	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03", []domain.OptionContract{in}); err != nil {
		t.Fatal(err)
	}

	got, err := s.OptionsChain(ctx, "AAPL", "2024-06-21")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	c := got[0]
	if c.Bid != nil || c.Ask != nil || c.Volume != nil || c.OpenInterest != nil {
		t.Errorf("absent fields must come back nil: %+v", c)
	}
	if c.LastPrice == nil || *c.LastPrice != 5.2 {
		t.Errorf("LastPrice = %v, want 5.2", c.LastPrice)
	}
}

func TestExpirationDates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []domain.OptionContract{
		contract("AAPL", "2024-07-19", 180, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 185, domain.Call, "2024-06-03"),
	}
	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03", records); err != nil {
		t.Fatal(err)
	}

	dates, err := s.ExpirationDates(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if len(dates) != 2 || dates[0] != "2024-06-21" || dates[1] != "2024-07-19" {
		t.Errorf("ExpirationDates = %v", dates)
	}
}

func TestDeleteOptionsOlderThan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2000-01-01",
		[]domain.OptionContract{contract("AAPL", "2000-02-18", 100, domain.Call, "2000-01-01")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertOptionsChain(ctx, "AAPL", domain.Today(),
		[]domain.OptionContract{contract("AAPL", "2099-01-15", 180, domain.Call, domain.Today())}); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.DeleteOptionsOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("DeleteOptionsOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted %d rows, want 1", deleted)
	}

	got, err := s.OptionsChain(ctx, "AAPL", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].EffDate != domain.Today() {
		t.Errorf("surviving rows = %+v", got)
	}
}

func TestUpsertStockInfoLastWriteWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &domain.StockInfo{
		Symbol:       "aapl",
		CompanyName:  domain.String("Apple Inc."),
		CurrentPrice: domain.Float(190),
		EffDate:      "2024-06-03",
	}
	if err := s.UpsertStockInfo(ctx, first); err != nil {
		t.Fatal(err)
	}
	second := &domain.StockInfo{
		Symbol:       "AAPL",
		CompanyName:  domain.String("Apple Inc."),
		CurrentPrice: domain.Float(195),
		EffDate:      "2024-06-04",
	}
	if err := s.UpsertStockInfo(ctx, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.StockInfo(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("StockInfo returned nil")
	}
	if got.CurrentPrice == nil || *got.CurrentPrice != 195 {
		t.Errorf("CurrentPrice = %v, want 195 (last write wins)", got.CurrentPrice)
	}
	if got.EffDate != "2024-06-04" {
		t.Errorf("EffDate = %q", got.EffDate)
	}

	missing, err := s.StockInfo(ctx, "ZZZFAKE")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Errorf("unknown symbol should return nil, got %+v", missing)
	}
}

func TestUpsertStockPrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	bars := []domain.StockPrice{
		{Symbol: "AAPL", Date: "2024-06-03", Close: domain.Float(194.0), Volume: domain.Int(1000)},
		{Symbol: "AAPL", Date: "2024-06-04", Close: domain.Float(195.5), Volume: domain.Int(1100)},
	}
	if _, err := s.UpsertStockPrices(ctx, bars); err != nil {
		t.Fatal(err)
	}
	// Conflicting re-insert updates in place.
	bars[1].Close = domain.Float(196.0)
	if _, err := s.UpsertStockPrices(ctx, bars); err != nil {
		t.Fatal(err)
	}

	got, err := s.StockPrices(ctx, "AAPL", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bars, want 2", len(got))
	}
	if *got[1].Close != 196.0 {
		t.Errorf("conflict update lost: close = %v", *got[1].Close)
	}

	ranged, err := s.StockPrices(ctx, "AAPL", "2024-06-04", "2024-06-04")
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 1 || ranged[0].Date != "2024-06-04" {
		t.Errorf("range query = %+v", ranged)
	}
}

func TestUpsertTreasuryRates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rates := []domain.TreasuryRate{
		{Date: "2024-06-03", OneMonth: domain.Float(5.28), TenYear: domain.Float(4.41)},
		{Date: "2024-06-04", OneMonth: domain.Float(5.27)},
	}
	if _, err := s.UpsertTreasuryRates(ctx, rates); err != nil {
		t.Fatal(err)
	}

	got, err := s.TreasuryRates(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0].TenYear == nil || *got[0].TenYear != 4.41 {
		t.Errorf("TenYear = %v", got[0].TenYear)
	}
	if got[1].TenYear != nil {
		t.Errorf("missing maturity should stay nil, got %v", got[1].TenYear)
	}

	latest, err := s.LatestTreasuryRate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest == nil || latest.Date != "2024-06-04" {
		t.Errorf("LatestTreasuryRate = %+v", latest)
	}
}

func TestLatestTreasuryRateEmpty(t *testing.T) {
	s := newTestStore(t)
	latest, err := s.LatestTreasuryRate(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if latest != nil {
		t.Errorf("empty table should give nil, got %+v", latest)
	}
}

func TestOptionMetricsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	metrics := []domain.OptionMetric{
		{Symbol: "AAPL", ExpirationDate: "2024-06-21", StrikePrice: 180, OptionType: domain.Call,
			Moneyness: "ITM", Volume: domain.Int(500)},
		{Symbol: "AAPL", ExpirationDate: "2024-06-21", StrikePrice: 200, OptionType: domain.Call,
			Moneyness: "OTM", Volume: domain.Int(50)},
		{Symbol: "MSFT", ExpirationDate: "2024-07-19", StrikePrice: 400, OptionType: domain.Put,
			Moneyness: "ATM", Volume: domain.Int(900)},
	}
	if _, err := s.UpsertOptionMetrics(ctx, metrics); err != nil {
		t.Fatal(err)
	}

	got, err := s.OptionMetrics(ctx, MetricsFilter{Symbol: "AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("symbol filter gave %d rows, want 2", len(got))
	}

	got, err = s.OptionMetrics(ctx, MetricsFilter{MinVolume: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("volume filter gave %d rows, want 2", len(got))
	}
	if *got[0].Volume != 900 {
		t.Errorf("rows not ordered by volume desc: %+v", got)
	}

	got, err = s.OptionMetrics(ctx, MetricsFilter{Moneyness: "ATM", OptionType: domain.Put})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Symbol != "MSFT" {
		t.Errorf("moneyness+type filter = %+v", got)
	}

	got, err = s.OptionMetrics(ctx, MetricsFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("limit ignored, got %d rows", len(got))
	}
}

func TestHighVolumeOptions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	records := []domain.OptionContract{
		contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 185, domain.Call, "2024-06-03"),
	}
	records[0].Volume = domain.Int(5000)
	records[1].Volume = nil
	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03", records); err != nil {
		t.Fatal(err)
	}

	got, err := s.HighVolumeOptions(ctx, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || *got[0].Volume != 5000 {
		t.Errorf("HighVolumeOptions = %+v", got)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03",
		[]domain.OptionContract{contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03")}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertTreasuryRates(ctx,
		[]domain.TreasuryRate{{Date: "2024-06-03"}}); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.OptionsRows != 1 || st.OptionSymbols != 1 || st.TreasuryRows != 1 {
		t.Errorf("Stats = %+v", st)
	}
	if st.OptionsFirstDate != "2024-06-03" || st.OptionsLastDate != "2024-06-03" {
		t.Errorf("options date range = %s..%s", st.OptionsFirstDate, st.OptionsLastDate)
	}
}

func TestCreatedAtStamped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertOptionsChain(ctx, "AAPL", "2024-06-03",
		[]domain.OptionContract{contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03")}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertStockInfo(ctx, &domain.StockInfo{Symbol: "AAPL", EffDate: "2024-06-03"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpsertTreasuryRates(ctx,
		[]domain.TreasuryRate{{Date: "2024-06-03"}}); err != nil {
		t.Fatal(err)
	}

	for _, table := range []string{"options_chain", "stock_info", "treasury_rates"} {
		var createdAt string
		if err := s.db.QueryRowContext(ctx,
			`SELECT created_at FROM `+table+` LIMIT 1`).Scan(&createdAt); err != nil {
			t.Fatalf("%s: %v", table, err)
		}
		if createdAt == "" {
			t.Errorf("%s: created_at not stamped on insert", table)
		}
	}
}

func TestParquetExportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", "options.parquet")

	lastTrade := time.Date(2024, time.June, 3, 15, 30, 0, 0, time.UTC)
	in := []domain.OptionContract{
		contract("AAPL", "2024-06-21", 180, domain.Call, "2024-06-03"),
		contract("AAPL", "2024-06-21", 185, domain.Put, "2024-06-03"),
	}
	in[0].LastTradeDate = &lastTrade
	in[1].Bid = nil
	if err := ExportOptionsParquet(path, in); err != nil {
		t.Fatalf("ExportOptionsParquet: %v", err)
	}

	records, err := ReadOptionsParquet(path)
	if err != nil {
		t.Fatalf("ReadOptionsParquet: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Symbol != "AAPL" || records[0].OptionType != "call" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[0].LastTradeDate == nil || *records[0].LastTradeDate != lastTrade.UnixMilli() {
		t.Errorf("LastTradeDate = %v, want %d", records[0].LastTradeDate, lastTrade.UnixMilli())
	}
	if records[1].Bid != nil {
		t.Errorf("nil Bid must survive the round trip, got %v", records[1].Bid)
	}
	if records[1].LastTradeDate != nil {
		t.Errorf("nil LastTradeDate must survive the round trip, got %v", records[1].LastTradeDate)
	}
}
