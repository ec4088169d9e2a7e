package calculator

import (
	"ETFPal/internal/model"
)

// CountConsecutiveDown counts consecutive down periods walking from the most
// recent period toward older ones. It returns 0 for series shorter than two.
//
// Close-over-close compares each period with its predecessor, starting with the
// pair (0, 1), so a strictly falling series of N periods yields N-1.
// Candle-body inspects each period on its own starting at index 1; the current
// period is still open and never counts.
//
// The scan stops at the first period that does not qualify or carries invalid
// prices. An unknown rule counts nothing.
func CountConsecutiveDown(series model.PriceSeries, rule model.StreakRule) int {
	recs := series.Records
	if len(recs) < 2 {
		return 0
	}

	count := 0
	switch rule {
	case model.RuleCloseOverClose:
		for i := 1; i < len(recs); i++ {
			cur, prev := recs[i-1], recs[i]
			if !cur.Valid() || !prev.Valid() {
				break
			}
			if !cur.Close.Decimal.LessThan(prev.Close.Decimal) {
				break
			}
			count++
		}
	case model.RuleCandleBody:
		for i := 1; i < len(recs); i++ {
			r := recs[i]
			if !r.Valid() {
				break
			}
			if !r.Close.Decimal.LessThan(r.Open.Decimal) {
				break
			}
			count++
		}
	}
	return count
}

// CountConsecutiveDownAll returns the smallest down streak among the given
// series: the weaker signal governs. It returns 0 when no series is given.
func CountConsecutiveDownAll(rule model.StreakRule, series ...model.PriceSeries) int {
	if len(series) == 0 {
		return 0
	}
	lowest := CountConsecutiveDown(series[0], rule)
	for _, s := range series[1:] {
		if n := CountConsecutiveDown(s, rule); n < lowest {
			lowest = n
		}
	}
	return lowest
}

// CountConsecutiveUp counts consecutive calendar months in which both
// instruments closed higher than the month before, walking back from the most
// recent month. Each series is first reduced to its month-closing records, so
// weekly and monthly series both count months, not periods.
//
// The walk stops at the first month where either instrument failed to rise, at
// invalid prices, or where the two series' months do not line up.
func CountConsecutiveUp(a, b model.PriceSeries) int {
	if a.Len() < 2 || b.Len() < 2 {
		return 0
	}
	ma, mb := monthCloses(a.Records), monthCloses(b.Records)
	n := len(ma)
	if len(mb) < n {
		n = len(mb)
	}

	count := 0
	for i := 0; i+1 < n; i++ {
		if !sameMonth(ma[i], mb[i]) || !sameMonth(ma[i+1], mb[i+1]) {
			break
		}
		if !rose(ma[i], ma[i+1]) || !rose(mb[i], mb[i+1]) {
			break
		}
		count++
	}
	return count
}

// monthCloses keeps the latest record of each calendar month. Records are
// most-recent-first, so that is the first one met for each month.
func monthCloses(recs []model.PriceRecord) []model.PriceRecord {
	out := make([]model.PriceRecord, 0, len(recs))
	for _, r := range recs {
		if len(out) > 0 && sameMonth(out[len(out)-1], r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sameMonth(x, y model.PriceRecord) bool {
	return x.PeriodStart.Year() == y.PeriodStart.Year() && x.PeriodStart.Month() == y.PeriodStart.Month()
}

func rose(cur, prev model.PriceRecord) bool {
	if !cur.Valid() || !prev.Valid() {
		return false
	}
	return cur.Close.Decimal.GreaterThan(prev.Close.Decimal)
}
