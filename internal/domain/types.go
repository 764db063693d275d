// Package domain defines the record types shared between the fetchers, the
// store, and the metrics calculators. Optional fields are pointers so that
// "unknown from source" is distinguishable from a genuine zero.
package domain

import (
	"strings"
	"time"
)

// DateFormat is the canonical YYYY-MM-DD layout used for all business dates
// and effective dates.
const DateFormat = "2006-01-02"

// Market date helpers operate on strings in DateFormat so the natural keys
// stored in SQLite compare byte-wise.

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Today returns the current date in DateFormat, used as the effective date
// stamped on a fetch snapshot.
func Today() string {
	return time.Now().Format(DateFormat)
}

// OptionType is either "call" or "put".
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionContract is one row of an options chain. Natural key:
// (Symbol, ExpirationDate, StrikePrice, OptionType). EffDate is the snapshot
// date, distinct from ExpirationDate.
type OptionContract struct {
	Symbol            string
	ExpirationDate    string
	StrikePrice       float64
	OptionType        OptionType
	Bid               *float64
	Ask               *float64
	LastPrice         *float64
	Volume            *int64
	OpenInterest      *int64
	ImpliedVolatility *float64
	ContractName      *string
	LastTradeDate     *time.Time
	EffDate           string
}

// StockInfo is the current company snapshot for a symbol. Keyed by Symbol
// alone: a new fetch replaces the previous row (no history).
type StockInfo struct {
	Symbol       string
	CompanyName  *string
	CurrentPrice *float64
	MarketCap    *float64
	Sector       *string
	Industry     *string
	EffDate      string
}

// StockPrice is one daily OHLCV bar. Natural key: (Symbol, Date).
type StockPrice struct {
	Symbol        string
	Date          string
	Open          *float64
	High          *float64
	Low           *float64
	Close         *float64
	Volume        *int64
	AdjustedClose *float64
}

// EarningsDate is one announced or estimated earnings event.
// Natural key: (Symbol, EarningsDate, EarningsType).
type EarningsDate struct {
	Symbol        string
	EarningsDate  string
	EarningsType  string // "historical" or "estimate"
	FiscalYear    *int64
	FiscalQuarter *int64
}

// TreasuryRate is one day of treasury bill rates. Natural key: Date.
// Maturities missing from the feed stay nil.
type TreasuryRate struct {
	Date       string
	OneMonth   *float64
	TwoMonth   *float64
	ThreeMonth *float64
	SixMonth   *float64
	OneYear    *float64
	TwoYear    *float64
	ThreeYear  *float64
	FiveYear   *float64
	SevenYear  *float64
	TenYear    *float64
	TwentyYear *float64
	ThirtyYear *float64
}

// OptionMetric is a derived-analytics row computed from an OptionContract and
// the underlying's current price. Natural key:
// (Symbol, ExpirationDate, StrikePrice, OptionType).
type OptionMetric struct {
	Symbol            string
	ExpirationDate    string
	StrikePrice       float64
	OptionType        OptionType
	CurrentPrice      *float64
	OptionPrice       *float64
	IntrinsicValue    *float64
	TimeValue         *float64
	Moneyness         string // "ITM", "ATM", "OTM", or "Unknown"
	DaysToExpiration  *int64
	ImpliedVolatility *float64
	Volume            *int64
	OpenInterest      *int64
	BidAskSpread      *float64
}

// Float returns a pointer to v. Convenience for building records with
// optional fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }
