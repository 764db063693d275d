package store

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"marketetl/internal/domain"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// OptionRecord is the Parquet schema for options chain rows.
type OptionRecord struct {
	Symbol            string   `parquet:"symbol"`
	ExpirationDate    string   `parquet:"expiration_date"`
	StrikePrice       float64  `parquet:"strike_price"`
	OptionType        string   `parquet:"option_type"`
	Bid               *float64 `parquet:"bid,optional"`
	Ask               *float64 `parquet:"ask,optional"`
	LastPrice         *float64 `parquet:"last_price,optional"`
	Volume            *int64   `parquet:"volume,optional"`
	OpenInterest      *int64   `parquet:"open_interest,optional"`
	ImpliedVolatility *float64 `parquet:"implied_volatility,optional"`
	ContractName      *string  `parquet:"contract_name,optional"`
	LastTradeDate     *int64   `parquet:"last_trade_date,optional"` // unix millis
	EffDate           string   `parquet:"eff_date"`
}

// StockPriceRecord is the Parquet schema for daily bars.
type StockPriceRecord struct {
	Symbol        string   `parquet:"symbol"`
	Date          string   `parquet:"date"`
	Open          *float64 `parquet:"open,optional"`
	High          *float64 `parquet:"high,optional"`
	Low           *float64 `parquet:"low,optional"`
	Close         *float64 `parquet:"close,optional"`
	Volume        *int64   `parquet:"volume,optional"`
	AdjustedClose *float64 `parquet:"adjusted_close,optional"`
}

// StockInfoRecord is the Parquet schema for company snapshots.
type StockInfoRecord struct {
	Symbol       string   `parquet:"symbol"`
	CompanyName  *string  `parquet:"company_name,optional"`
	CurrentPrice *float64 `parquet:"current_price,optional"`
	MarketCap    *float64 `parquet:"market_cap,optional"`
	Sector       *string  `parquet:"sector,optional"`
	Industry     *string  `parquet:"industry,optional"`
	EffDate      string   `parquet:"eff_date"`
}

// TreasuryRecord is the Parquet schema for daily treasury rates.
type TreasuryRecord struct {
	Date       string   `parquet:"date"`
	OneMonth   *float64 `parquet:"one_month,optional"`
	TwoMonth   *float64 `parquet:"two_month,optional"`
	ThreeMonth *float64 `parquet:"three_month,optional"`
	SixMonth   *float64 `parquet:"six_month,optional"`
	OneYear    *float64 `parquet:"one_year,optional"`
	TwoYear    *float64 `parquet:"two_year,optional"`
	ThreeYear  *float64 `parquet:"three_year,optional"`
	FiveYear   *float64 `parquet:"five_year,optional"`
	SevenYear  *float64 `parquet:"seven_year,optional"`
	TenYear    *float64 `parquet:"ten_year,optional"`
	TwentyYear *float64 `parquet:"twenty_year,optional"`
	ThirtyYear *float64 `parquet:"thirty_year,optional"`
}

// MetricRecord is the Parquet schema for derived option metrics.
type MetricRecord struct {
	Symbol            string   `parquet:"symbol"`
	ExpirationDate    string   `parquet:"expiration_date"`
	StrikePrice       float64  `parquet:"strike_price"`
	OptionType        string   `parquet:"option_type"`
	CurrentPrice      *float64 `parquet:"current_price,optional"`
	OptionPrice       *float64 `parquet:"option_price,optional"`
	IntrinsicValue    *float64 `parquet:"intrinsic_value,optional"`
	TimeValue         *float64 `parquet:"time_value,optional"`
	Moneyness         string   `parquet:"moneyness"`
	DaysToExpiration  *int64   `parquet:"days_to_expiration,optional"`
	ImpliedVolatility *float64 `parquet:"implied_volatility,optional"`
	Volume            *int64   `parquet:"volume,optional"`
	OpenInterest      *int64   `parquet:"open_interest,optional"`
	BidAskSpread      *float64 `parquet:"bid_ask_spread,optional"`
}

// ---------------------------------------------------------------------------
// Export functions
// ---------------------------------------------------------------------------

// ExportOptionsParquet writes contracts to a Parquet file at path.
func ExportOptionsParquet(path string, contracts []domain.OptionContract) error {
	records := make([]OptionRecord, 0, len(contracts))
	for _, c := range contracts {
		var lastTrade *int64
		if c.LastTradeDate != nil {
			ms := c.LastTradeDate.UnixMilli()
			lastTrade = &ms
		}
		records = append(records, OptionRecord{
			Symbol:            c.Symbol,
			ExpirationDate:    c.ExpirationDate,
			StrikePrice:       c.StrikePrice,
			OptionType:        string(c.OptionType),
			Bid:               c.Bid,
			Ask:               c.Ask,
			LastPrice:         c.LastPrice,
			Volume:            c.Volume,
			OpenInterest:      c.OpenInterest,
			ImpliedVolatility: c.ImpliedVolatility,
			ContractName:      c.ContractName,
			LastTradeDate:     lastTrade,
			EffDate:           c.EffDate,
		})
	}
	return writeParquetFile(path, records)
}

// ExportStockPricesParquet writes daily bars to a Parquet file at path.
func ExportStockPricesParquet(path string, prices []domain.StockPrice) error {
	records := make([]StockPriceRecord, 0, len(prices))
	for _, p := range prices {
		records = append(records, StockPriceRecord{
			Symbol:        p.Symbol,
			Date:          p.Date,
			Open:          p.Open,
			High:          p.High,
			Low:           p.Low,
			Close:         p.Close,
			Volume:        p.Volume,
			AdjustedClose: p.AdjustedClose,
		})
	}
	return writeParquetFile(path, records)
}

// ExportStockInfoParquet writes company snapshots to a Parquet file at path.
func ExportStockInfoParquet(path string, infos []domain.StockInfo) error {
	records := make([]StockInfoRecord, 0, len(infos))
	for _, in := range infos {
		records = append(records, StockInfoRecord{
			Symbol:       in.Symbol,
			CompanyName:  in.CompanyName,
			CurrentPrice: in.CurrentPrice,
			MarketCap:    in.MarketCap,
			Sector:       in.Sector,
			Industry:     in.Industry,
			EffDate:      in.EffDate,
		})
	}
	return writeParquetFile(path, records)
}

// ExportTreasuryParquet writes daily treasury rates to a Parquet file at path.
func ExportTreasuryParquet(path string, rates []domain.TreasuryRate) error {
	records := make([]TreasuryRecord, 0, len(rates))
	for _, r := range rates {
		records = append(records, TreasuryRecord{
			Date:       r.Date,
			OneMonth:   r.OneMonth,
			TwoMonth:   r.TwoMonth,
			ThreeMonth: r.ThreeMonth,
			SixMonth:   r.SixMonth,
			OneYear:    r.OneYear,
			TwoYear:    r.TwoYear,
			ThreeYear:  r.ThreeYear,
			FiveYear:   r.FiveYear,
			SevenYear:  r.SevenYear,
			TenYear:    r.TenYear,
			TwentyYear: r.TwentyYear,
			ThirtyYear: r.ThirtyYear,
		})
	}
	return writeParquetFile(path, records)
}

// ExportMetricsParquet writes derived metrics to a Parquet file at path.
func ExportMetricsParquet(path string, metrics []domain.OptionMetric) error {
	records := make([]MetricRecord, 0, len(metrics))
	for _, m := range metrics {
		records = append(records, MetricRecord{
			Symbol:            m.Symbol,
			ExpirationDate:    m.ExpirationDate,
			StrikePrice:       m.StrikePrice,
			OptionType:        string(m.OptionType),
			CurrentPrice:      m.CurrentPrice,
			OptionPrice:       m.OptionPrice,
			IntrinsicValue:    m.IntrinsicValue,
			TimeValue:         m.TimeValue,
			Moneyness:         m.Moneyness,
			DaysToExpiration:  m.DaysToExpiration,
			ImpliedVolatility: m.ImpliedVolatility,
			Volume:            m.Volume,
			OpenInterest:      m.OpenInterest,
			BidAskSpread:      m.BidAskSpread,
		})
	}
	return writeParquetFile(path, records)
}

// ReadOptionsParquet loads contracts back from a Parquet export. Used by
// tests and one-off inspection.
func ReadOptionsParquet(path string) ([]OptionRecord, error) {
	return parquet.ReadFile[OptionRecord](path)
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}
