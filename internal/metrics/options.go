// Package metrics derives analytics from stored market data: per-contract
// option metrics, yield-curve shape, and price history summaries.
package metrics

import (
	"time"

	"marketetl/internal/domain"
)

// Moneyness classifications. ATM requires exact equality of price and strike.
const (
	ITM              = "ITM"
	ATM              = "ATM"
	OTM              = "OTM"
	MoneynessUnknown = "Unknown"
)

// IntrinsicValue returns the exercise value of a contract at price:
// max(0, price-strike) for calls, max(0, strike-price) for puts.
func IntrinsicValue(typ domain.OptionType, price, strike float64) float64 {
	var v float64
	switch typ {
	case domain.Call:
		v = price - strike
	case domain.Put:
		v = strike - price
	}
	if v < 0 {
		return 0
	}
	return v
}

// Moneyness classifies a contract relative to the underlying price.
func Moneyness(typ domain.OptionType, price, strike float64) string {
	switch {
	case price == strike:
		return ATM
	case typ == domain.Call && price > strike,
		typ == domain.Put && price < strike:
		return ITM
	default:
		return OTM
	}
}

// DaysToExpiration returns whole days from asOf to expiration. Negative for
// already-expired contracts.
func DaysToExpiration(expiration, asOf string) (int64, error) {
	exp, err := time.Parse(domain.DateFormat, expiration)
	if err != nil {
		return 0, err
	}
	now, err := time.Parse(domain.DateFormat, asOf)
	if err != nil {
		return 0, err
	}
	return int64(exp.Sub(now) / (24 * time.Hour)), nil
}

// BidAskSpread returns ask-bid when both quotes are present and non-zero,
// nil otherwise.
func BidAskSpread(bid, ask *float64) *float64 {
	if bid == nil || ask == nil || *bid == 0 || *ask == 0 {
		return nil
	}
	return domain.Float(*ask - *bid)
}

// Compute derives the metric row for one contract. currentPrice may be nil,
// in which case the price-dependent fields stay nil and moneyness is
// Unknown. asOf is the valuation date for days-to-expiration.
func Compute(c domain.OptionContract, currentPrice *float64, asOf string) domain.OptionMetric {
	m := domain.OptionMetric{
		Symbol:            c.Symbol,
		ExpirationDate:    c.ExpirationDate,
		StrikePrice:       c.StrikePrice,
		OptionType:        c.OptionType,
		CurrentPrice:      currentPrice,
		OptionPrice:       c.LastPrice,
		Moneyness:         MoneynessUnknown,
		ImpliedVolatility: c.ImpliedVolatility,
		Volume:            c.Volume,
		OpenInterest:      c.OpenInterest,
		BidAskSpread:      BidAskSpread(c.Bid, c.Ask),
	}

	if days, err := DaysToExpiration(c.ExpirationDate, asOf); err == nil {
		m.DaysToExpiration = domain.Int(days)
	}

	if currentPrice != nil {
		intrinsic := IntrinsicValue(c.OptionType, *currentPrice, c.StrikePrice)
		m.IntrinsicValue = domain.Float(intrinsic)
		m.Moneyness = Moneyness(c.OptionType, *currentPrice, c.StrikePrice)
		if c.LastPrice != nil {
			m.TimeValue = domain.Float(*c.LastPrice - intrinsic)
		}
	}
	return m
}

// ComputeAll derives metric rows for a whole chain against one underlying
// price.
func ComputeAll(contracts []domain.OptionContract, currentPrice *float64, asOf string) []domain.OptionMetric {
	out := make([]domain.OptionMetric, 0, len(contracts))
	for _, c := range contracts {
		out = append(out, Compute(c, currentPrice, asOf))
	}
	return out
}
