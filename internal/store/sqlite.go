package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"marketetl/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ OptionsStore = (*SQLiteStore)(nil)
var _ StockStore = (*SQLiteStore)(nil)
var _ TreasuryStore = (*SQLiteStore)(nil)
var _ MetricsStore = (*SQLiteStore)(nil)

// Schema migrations, applied in order. PRAGMA user_version tracks the last
// applied index + 1.
var migrations = []string{
	`CREATE TABLE options_chain (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol             TEXT NOT NULL,
		expiration_date    TEXT NOT NULL,
		strike_price       REAL NOT NULL,
		option_type        TEXT NOT NULL CHECK (option_type IN ('call', 'put')),
		bid                REAL,
		ask                REAL,
		last_price         REAL,
		volume             INTEGER,
		open_interest      INTEGER,
		implied_volatility REAL,
		contract_name      TEXT,
		last_trade_date    TEXT,
		eff_date           TEXT NOT NULL,
		created_at         TEXT NOT NULL DEFAULT (datetime('now')),
		UNIQUE (symbol, eff_date, expiration_date, strike_price, option_type)
	);
	CREATE INDEX idx_options_symbol_eff ON options_chain (symbol, eff_date);
	CREATE INDEX idx_options_expiration ON options_chain (expiration_date);

	CREATE TABLE stock_info (
		symbol        TEXT PRIMARY KEY,
		company_name  TEXT,
		current_price REAL,
		market_cap    REAL,
		sector        TEXT,
		industry      TEXT,
		eff_date      TEXT NOT NULL,
		created_at    TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE stock_prices (
		symbol         TEXT NOT NULL,
		date           TEXT NOT NULL,
		open           REAL,
		high           REAL,
		low            REAL,
		close          REAL,
		volume         INTEGER,
		adjusted_close REAL,
		created_at     TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (symbol, date)
	);

	CREATE TABLE earnings_dates (
		symbol         TEXT NOT NULL,
		earnings_date  TEXT NOT NULL,
		earnings_type  TEXT NOT NULL,
		fiscal_year    INTEGER,
		fiscal_quarter INTEGER,
		created_at     TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (symbol, earnings_date, earnings_type)
	);

	CREATE TABLE option_metrics (
		symbol             TEXT NOT NULL,
		expiration_date    TEXT NOT NULL,
		strike_price       REAL NOT NULL,
		option_type        TEXT NOT NULL,
		current_price      REAL,
		option_price       REAL,
		intrinsic_value    REAL,
		time_value         REAL,
		moneyness          TEXT NOT NULL,
		days_to_expiration INTEGER,
		implied_volatility REAL,
		volume             INTEGER,
		open_interest      INTEGER,
		bid_ask_spread     REAL,
		created_at         TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (symbol, expiration_date, strike_price, option_type)
	);
	CREATE INDEX idx_metrics_moneyness ON option_metrics (moneyness);

	CREATE TABLE treasury_rates (
		date        TEXT PRIMARY KEY,
		one_month   REAL,
		two_month   REAL,
		three_month REAL,
		six_month   REAL,
		one_year    REAL,
		two_year    REAL,
		three_year  REAL,
		five_year   REAL,
		seven_year  REAL,
		ten_year    REAL,
		twenty_year REAL,
		thirty_year REAL,
		created_at  TEXT NOT NULL DEFAULT (datetime('now'))
	);`,
}

// SQLiteStore implements all store interfaces backed by a single SQLite
// database file.
type SQLiteStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath, applying any
// pending schema migrations.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	s := &SQLiteStore{db: db, log: logger.With("component", "store")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	var version int
	if err := s.db.QueryRow(`PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("bumping schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.log.Info("applied schema migration", "version", i+1)
	}
	return nil
}

// ---------------------------------------------------------------------------
// OptionsStore implementation
// ---------------------------------------------------------------------------

// UpsertOptionsChain replaces the snapshot for (symbol, effDate): the prior
// rows are deleted and records inserted in one transaction. Rows that fail to
// insert are logged and skipped without aborting the snapshot.
func (s *SQLiteStore) UpsertOptionsChain(ctx context.Context, symbol, effDate string, records []domain.OptionContract) (int, error) {
	symbol = domain.NormalizeSymbol(symbol)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM options_chain WHERE symbol = ? AND eff_date = ?`, symbol, effDate); err != nil {
		return 0, fmt.Errorf("clearing snapshot %s/%s: %w", symbol, effDate, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO options_chain
		(symbol, expiration_date, strike_price, option_type, bid, ask, last_price,
		 volume, open_interest, implied_volatility, contract_name, last_trade_date, eff_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range records {
		var lastTrade *string
		if r.LastTradeDate != nil {
			lastTrade = domain.String(r.LastTradeDate.UTC().Format(time.RFC3339))
		}
		_, err := stmt.ExecContext(ctx, symbol, r.ExpirationDate, r.StrikePrice,
			string(r.OptionType), r.Bid, r.Ask, r.LastPrice, r.Volume, r.OpenInterest,
			r.ImpliedVolatility, r.ContractName, lastTrade, effDate)
		if err != nil {
			s.log.Warn("skipping options row", "symbol", symbol,
				"expiration", r.ExpirationDate, "strike", r.StrikePrice, "error", err)
			continue
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing snapshot %s/%s: %w", symbol, effDate, err)
	}
	return inserted, nil
}

const optionColumns = `symbol, expiration_date, strike_price, option_type, bid, ask,
	last_price, volume, open_interest, implied_volatility, contract_name,
	last_trade_date, eff_date`

// OptionsChain returns stored contracts for a symbol, optionally restricted
// to one expiration date.
func (s *SQLiteStore) OptionsChain(ctx context.Context, symbol, expiration string) ([]domain.OptionContract, error) {
	symbol = domain.NormalizeSymbol(symbol)

	query := `SELECT ` + optionColumns + ` FROM options_chain WHERE symbol = ?`
	args := []any{symbol}
	if expiration != "" {
		query += ` AND expiration_date = ?`
		args = append(args, expiration)
	}
	query += ` ORDER BY expiration_date, strike_price, option_type`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOptions(rows)
}

// ExpirationDates returns the distinct expiration dates stored for a symbol.
func (s *SQLiteStore) ExpirationDates(ctx context.Context, symbol string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT expiration_date FROM options_chain WHERE symbol = ? ORDER BY expiration_date`,
		domain.NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

// HighVolumeOptions returns the most-traded contracts with volume >= minVolume.
func (s *SQLiteStore) HighVolumeOptions(ctx context.Context, minVolume int64, limit int) ([]domain.OptionContract, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+optionColumns+` FROM options_chain
		 WHERE volume IS NOT NULL AND volume >= ?
		 ORDER BY volume DESC LIMIT ?`, minVolume, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOptions(rows)
}

// OptionSymbols returns the distinct symbols with stored chains.
func (s *SQLiteStore) OptionSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT symbol FROM options_chain ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

// DeleteOptionsOlderThan removes chain rows with an effective date before
// today minus days.
func (s *SQLiteStore) DeleteOptionsOlderThan(ctx context.Context, days int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -days).Format(domain.DateFormat)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM options_chain WHERE eff_date < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanOptions(rows *sql.Rows) ([]domain.OptionContract, error) {
	var out []domain.OptionContract
	for rows.Next() {
		var (
			c         domain.OptionContract
			otype     string
			bid, ask  sql.NullFloat64
			last, iv  sql.NullFloat64
			vol, oi   sql.NullInt64
			name, ltd sql.NullString
		)
		if err := rows.Scan(&c.Symbol, &c.ExpirationDate, &c.StrikePrice, &otype,
			&bid, &ask, &last, &vol, &oi, &iv, &name, &ltd, &c.EffDate); err != nil {
			return nil, err
		}
		c.OptionType = domain.OptionType(otype)
		c.Bid = nullFloat(bid)
		c.Ask = nullFloat(ask)
		c.LastPrice = nullFloat(last)
		c.Volume = nullInt(vol)
		c.OpenInterest = nullInt(oi)
		c.ImpliedVolatility = nullFloat(iv)
		c.ContractName = nullString(name)
		if ltd.Valid {
			if ts, err := time.Parse(time.RFC3339, ltd.String); err == nil {
				c.LastTradeDate = &ts
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// StockStore implementation
// ---------------------------------------------------------------------------

// UpsertStockInfo saves the snapshot for a symbol. Last write wins.
func (s *SQLiteStore) UpsertStockInfo(ctx context.Context, info *domain.StockInfo) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO stock_info
		(symbol, company_name, current_price, market_cap, sector, industry, eff_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		domain.NormalizeSymbol(info.Symbol), info.CompanyName, info.CurrentPrice,
		info.MarketCap, info.Sector, info.Industry, info.EffDate)
	return err
}

// StockInfo returns the stored snapshot for a symbol, or nil when absent.
func (s *SQLiteStore) StockInfo(ctx context.Context, symbol string) (*domain.StockInfo, error) {
	var (
		info             domain.StockInfo
		name, sec, ind   sql.NullString
		price, marketCap sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `SELECT symbol, company_name, current_price,
		market_cap, sector, industry, eff_date FROM stock_info WHERE symbol = ?`,
		domain.NormalizeSymbol(symbol)).
		Scan(&info.Symbol, &name, &price, &marketCap, &sec, &ind, &info.EffDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	info.CompanyName = nullString(name)
	info.CurrentPrice = nullFloat(price)
	info.MarketCap = nullFloat(marketCap)
	info.Sector = nullString(sec)
	info.Industry = nullString(ind)
	return &info, nil
}

// UpsertStockPrices saves daily bars keyed by (symbol, date).
func (s *SQLiteStore) UpsertStockPrices(ctx context.Context, prices []domain.StockPrice) (int, error) {
	return s.batchUpsert(ctx, len(prices), `INSERT INTO stock_prices
		(symbol, date, open, high, low, close, volume, adjusted_close)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume,
			adjusted_close = excluded.adjusted_close`,
		func(i int) []any {
			p := prices[i]
			return []any{domain.NormalizeSymbol(p.Symbol), p.Date, p.Open, p.High,
				p.Low, p.Close, p.Volume, p.AdjustedClose}
		})
}

// StockPrices returns bars for a symbol within [start, end], ascending.
func (s *SQLiteStore) StockPrices(ctx context.Context, symbol, start, end string) ([]domain.StockPrice, error) {
	query := `SELECT symbol, date, open, high, low, close, volume, adjusted_close
		FROM stock_prices WHERE symbol = ?`
	args := []any{domain.NormalizeSymbol(symbol)}
	if start != "" {
		query += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StockPrice
	for rows.Next() {
		var (
			p                  domain.StockPrice
			o, h, l, c, adjC   sql.NullFloat64
			vol                sql.NullInt64
		)
		if err := rows.Scan(&p.Symbol, &p.Date, &o, &h, &l, &c, &vol, &adjC); err != nil {
			return nil, err
		}
		p.Open = nullFloat(o)
		p.High = nullFloat(h)
		p.Low = nullFloat(l)
		p.Close = nullFloat(c)
		p.Volume = nullInt(vol)
		p.AdjustedClose = nullFloat(adjC)
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertEarningsDates saves earnings events.
func (s *SQLiteStore) UpsertEarningsDates(ctx context.Context, dates []domain.EarningsDate) (int, error) {
	return s.batchUpsert(ctx, len(dates), `INSERT INTO earnings_dates
		(symbol, earnings_date, earnings_type, fiscal_year, fiscal_quarter)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (symbol, earnings_date, earnings_type) DO UPDATE SET
			fiscal_year = excluded.fiscal_year,
			fiscal_quarter = excluded.fiscal_quarter`,
		func(i int) []any {
			d := dates[i]
			return []any{domain.NormalizeSymbol(d.Symbol), d.EarningsDate,
				d.EarningsType, d.FiscalYear, d.FiscalQuarter}
		})
}

// ---------------------------------------------------------------------------
// TreasuryStore implementation
// ---------------------------------------------------------------------------

const treasuryColumns = `date, one_month, two_month, three_month, six_month,
	one_year, two_year, three_year, five_year, seven_year, ten_year,
	twenty_year, thirty_year`

// UpsertTreasuryRates saves daily rate rows keyed by date.
func (s *SQLiteStore) UpsertTreasuryRates(ctx context.Context, rates []domain.TreasuryRate) (int, error) {
	return s.batchUpsert(ctx, len(rates), `INSERT INTO treasury_rates
		(`+treasuryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (date) DO UPDATE SET
			one_month = excluded.one_month, two_month = excluded.two_month,
			three_month = excluded.three_month, six_month = excluded.six_month,
			one_year = excluded.one_year, two_year = excluded.two_year,
			three_year = excluded.three_year, five_year = excluded.five_year,
			seven_year = excluded.seven_year, ten_year = excluded.ten_year,
			twenty_year = excluded.twenty_year, thirty_year = excluded.thirty_year`,
		func(i int) []any {
			r := rates[i]
			return []any{r.Date, r.OneMonth, r.TwoMonth, r.ThreeMonth, r.SixMonth,
				r.OneYear, r.TwoYear, r.ThreeYear, r.FiveYear, r.SevenYear,
				r.TenYear, r.TwentyYear, r.ThirtyYear}
		})
}

// TreasuryRates returns rows within [start, end], ascending.
func (s *SQLiteStore) TreasuryRates(ctx context.Context, start, end string) ([]domain.TreasuryRate, error) {
	query := `SELECT ` + treasuryColumns + ` FROM treasury_rates WHERE 1 = 1`
	var args []any
	if start != "" {
		query += ` AND date >= ?`
		args = append(args, start)
	}
	if end != "" {
		query += ` AND date <= ?`
		args = append(args, end)
	}
	query += ` ORDER BY date`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TreasuryRate
	for rows.Next() {
		r, err := scanTreasury(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestTreasuryRate returns the most recent row, or nil when the table is
// empty.
func (s *SQLiteStore) LatestTreasuryRate(ctx context.Context) (*domain.TreasuryRate, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+treasuryColumns+` FROM treasury_rates ORDER BY date DESC LIMIT 1`)
	r, err := scanTreasury(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanTreasury(scan func(...any) error) (domain.TreasuryRate, error) {
	var (
		r    domain.TreasuryRate
		cols [12]sql.NullFloat64
	)
	dest := make([]any, 0, 13)
	dest = append(dest, &r.Date)
	for i := range cols {
		dest = append(dest, &cols[i])
	}
	if err := scan(dest...); err != nil {
		return r, err
	}
	fields := []**float64{&r.OneMonth, &r.TwoMonth, &r.ThreeMonth, &r.SixMonth,
		&r.OneYear, &r.TwoYear, &r.ThreeYear, &r.FiveYear, &r.SevenYear,
		&r.TenYear, &r.TwentyYear, &r.ThirtyYear}
	for i, f := range fields {
		*f = nullFloat(cols[i])
	}
	return r, nil
}

// ---------------------------------------------------------------------------
// MetricsStore implementation
// ---------------------------------------------------------------------------

// UpsertOptionMetrics saves derived metric rows.
func (s *SQLiteStore) UpsertOptionMetrics(ctx context.Context, metrics []domain.OptionMetric) (int, error) {
	return s.batchUpsert(ctx, len(metrics), `INSERT INTO option_metrics
		(symbol, expiration_date, strike_price, option_type, current_price,
		 option_price, intrinsic_value, time_value, moneyness, days_to_expiration,
		 implied_volatility, volume, open_interest, bid_ask_spread)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (symbol, expiration_date, strike_price, option_type) DO UPDATE SET
			current_price = excluded.current_price,
			option_price = excluded.option_price,
			intrinsic_value = excluded.intrinsic_value,
			time_value = excluded.time_value,
			moneyness = excluded.moneyness,
			days_to_expiration = excluded.days_to_expiration,
			implied_volatility = excluded.implied_volatility,
			volume = excluded.volume,
			open_interest = excluded.open_interest,
			bid_ask_spread = excluded.bid_ask_spread`,
		func(i int) []any {
			m := metrics[i]
			return []any{domain.NormalizeSymbol(m.Symbol), m.ExpirationDate,
				m.StrikePrice, string(m.OptionType), m.CurrentPrice, m.OptionPrice,
				m.IntrinsicValue, m.TimeValue, m.Moneyness, m.DaysToExpiration,
				m.ImpliedVolatility, m.Volume, m.OpenInterest, m.BidAskSpread}
		})
}

// OptionMetrics returns metric rows matching the filter, most traded first.
func (s *SQLiteStore) OptionMetrics(ctx context.Context, filter MetricsFilter) ([]domain.OptionMetric, error) {
	query := `SELECT symbol, expiration_date, strike_price, option_type,
		current_price, option_price, intrinsic_value, time_value, moneyness,
		days_to_expiration, implied_volatility, volume, open_interest,
		bid_ask_spread FROM option_metrics WHERE 1 = 1`
	var args []any
	if filter.Symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, domain.NormalizeSymbol(filter.Symbol))
	}
	if filter.Expiration != "" {
		query += ` AND expiration_date = ?`
		args = append(args, filter.Expiration)
	}
	if filter.OptionType != "" {
		query += ` AND option_type = ?`
		args = append(args, string(filter.OptionType))
	}
	if filter.Moneyness != "" {
		query += ` AND moneyness = ?`
		args = append(args, filter.Moneyness)
	}
	if filter.MinVolume > 0 {
		query += ` AND volume IS NOT NULL AND volume >= ?`
		args = append(args, filter.MinVolume)
	}
	query += ` ORDER BY volume DESC NULLS LAST, symbol, expiration_date, strike_price`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.OptionMetric
	for rows.Next() {
		var (
			m                      domain.OptionMetric
			otype                  string
			cur, opt, intr, tv, bs sql.NullFloat64
			iv                     sql.NullFloat64
			days, vol, oi          sql.NullInt64
		)
		if err := rows.Scan(&m.Symbol, &m.ExpirationDate, &m.StrikePrice, &otype,
			&cur, &opt, &intr, &tv, &m.Moneyness, &days, &iv, &vol, &oi, &bs); err != nil {
			return nil, err
		}
		m.OptionType = domain.OptionType(otype)
		m.CurrentPrice = nullFloat(cur)
		m.OptionPrice = nullFloat(opt)
		m.IntrinsicValue = nullFloat(intr)
		m.TimeValue = nullFloat(tv)
		m.DaysToExpiration = nullInt(days)
		m.ImpliedVolatility = nullFloat(iv)
		m.Volume = nullInt(vol)
		m.OpenInterest = nullInt(oi)
		m.BidAskSpread = nullFloat(bs)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ---------------------------------------------------------------------------
// Stats and shared helpers
// ---------------------------------------------------------------------------

// Stats returns row counts across all tables plus the options snapshot date
// range.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM options_chain`, &st.OptionsRows},
		{`SELECT COUNT(DISTINCT symbol) FROM options_chain`, &st.OptionSymbols},
		{`SELECT COUNT(*) FROM stock_info`, &st.StockInfoRows},
		{`SELECT COUNT(*) FROM stock_prices`, &st.StockPriceRows},
		{`SELECT COUNT(*) FROM earnings_dates`, &st.EarningsRows},
		{`SELECT COUNT(*) FROM option_metrics`, &st.MetricsRows},
		{`SELECT COUNT(*) FROM treasury_rates`, &st.TreasuryRows},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, err
		}
	}

	var first, last sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT MIN(eff_date), MAX(eff_date) FROM options_chain`).Scan(&first, &last); err != nil {
		return nil, err
	}
	st.OptionsFirstDate = first.String
	st.OptionsLastDate = last.String
	return &st, nil
}

// batchUpsert runs the same statement for n rows inside one transaction and
// returns the number of rows written.
func (s *SQLiteStore) batchUpsert(ctx context.Context, n int, query string, args func(int) []any) (int, error) {
	if n == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func nullString(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	return &n.String
}
