package metrics

import "marketetl/internal/domain"

// YieldCurve summarizes the shape of one day's treasury curve.
type YieldCurve struct {
	Date      string
	Slope     *float64 // 10Y - 2Y
	Curvature *float64 // (2Y + 30Y)/2 - 10Y
	Inverted  bool
}

// Slope returns the 10Y-2Y spread, nil when either maturity is missing.
func Slope(r domain.TreasuryRate) *float64 {
	if r.TenYear == nil || r.TwoYear == nil {
		return nil
	}
	return domain.Float(*r.TenYear - *r.TwoYear)
}

// Curvature returns (2Y + 30Y)/2 - 10Y, nil when any input is missing.
func Curvature(r domain.TreasuryRate) *float64 {
	if r.TwoYear == nil || r.TenYear == nil || r.ThirtyYear == nil {
		return nil
	}
	return domain.Float((*r.TwoYear+*r.ThirtyYear)/2 - *r.TenYear)
}

// ComputeYieldCurve derives the curve summary for one day of rates. The curve
// counts as inverted when the 10Y-2Y slope is negative.
func ComputeYieldCurve(r domain.TreasuryRate) YieldCurve {
	yc := YieldCurve{
		Date:      r.Date,
		Slope:     Slope(r),
		Curvature: Curvature(r),
	}
	yc.Inverted = yc.Slope != nil && *yc.Slope < 0
	return yc
}
