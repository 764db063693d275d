package metrics

import (
	"math"

	"marketetl/internal/domain"
)

// Price trend labels, based on the change over the analyzed window.
const (
	TrendUp       = "upward"
	TrendDown     = "downward"
	TrendSideways = "sideways"
)

// trendThreshold is the fractional move that separates a trend from noise.
const trendThreshold = 0.05

// PriceSummary describes a symbol's price history over one window of daily
// bars.
type PriceSummary struct {
	Symbol        string
	Days          int
	ChangePercent *float64
	High          *float64
	Low           *float64
	Volatility    *float64 // annualized
	Trend         string
}

// ComputePriceSummary summarizes a window of daily bars, assumed sorted by
// date ascending. Bars without a close are ignored for return-based fields.
func ComputePriceSummary(symbol string, bars []domain.StockPrice) PriceSummary {
	s := PriceSummary{
		Symbol: domain.NormalizeSymbol(symbol),
		Days:   len(bars),
		Trend:  TrendSideways,
	}

	var closes []float64
	for _, b := range bars {
		if b.Close != nil {
			closes = append(closes, *b.Close)
		}
		if b.High != nil && (s.High == nil || *b.High > *s.High) {
			s.High = domain.Float(*b.High)
		}
		if b.Low != nil && (s.Low == nil || *b.Low < *s.Low) {
			s.Low = domain.Float(*b.Low)
		}
	}
	if len(closes) < 2 {
		return s
	}

	first, last := closes[0], closes[len(closes)-1]
	if first != 0 {
		change := (last - first) / first
		s.ChangePercent = domain.Float(change * 100)
		switch {
		case change > trendThreshold:
			s.Trend = TrendUp
		case change < -trendThreshold:
			s.Trend = TrendDown
		}
	}

	s.Volatility = domain.Float(annualizedVolatility(closes))
	return s
}

// annualizedVolatility is the standard deviation of daily returns scaled by
// sqrt(252 trading days).
func annualizedVolatility(closes []float64) float64 {
	var returns []float64
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, closes[i]/closes[i-1]-1)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance) * math.Sqrt(252)
}
