package calculator

import (
	"github.com/shopspring/decimal"

	"ETFPal/internal/model"
)

var hundred = decimal.NewFromInt(100)

// PeriodChanges returns the close-to-close change of the latest n periods,
// most recent first. A period whose predecessor is missing or invalid has
// HasPrior=false. Records with an invalid close end the list.
func PeriodChanges(series model.PriceSeries, n int) []model.PeriodChange {
	recs := series.Records
	if n < 0 {
		n = 0
	}
	if n > len(recs) {
		n = len(recs)
	}
	out := make([]model.PeriodChange, 0, n)
	for i := 0; i < n; i++ {
		r := recs[i]
		if !r.Close.Valid {
			break
		}
		pc := model.PeriodChange{PeriodStart: r.PeriodStart, Close: r.Close.Decimal}
		if i+1 < len(recs) && recs[i+1].Close.Valid && !recs[i+1].Close.Decimal.IsZero() {
			prev := recs[i+1].Close.Decimal
			pc.Change = r.Close.Decimal.Sub(prev)
			pc.Percent = pc.Change.Div(prev).Mul(hundred).Round(2)
			pc.HasPrior = true
		}
		out = append(out, pc)
	}
	return out
}

// LatestCloses returns the most recent valid close of each series, keyed by
// instrument name. Series without a valid latest close are left out.
func LatestCloses(series map[string]model.PriceSeries) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(series))
	for name, s := range series {
		if r, ok := s.Latest(); ok && r.Close.Valid {
			out[name] = r.Close.Decimal
		}
	}
	return out
}
