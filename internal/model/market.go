package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one period (week or month) of an instrument's prices.
// PeriodStart is the provider's label date for the period, not necessarily a trading day.
type PriceRecord struct {
	PeriodStart time.Time
	Open        decimal.NullDecimal
	Close       decimal.NullDecimal
}

// Valid reports whether both prices are present and non-negative.
func (r PriceRecord) Valid() bool {
	if !r.Open.Valid || !r.Close.Valid {
		return false
	}
	return !r.Open.Decimal.IsNegative() && !r.Close.Decimal.IsNegative()
}

// PriceSeries holds one instrument's records ordered most-recent-first (index 0 = latest).
type PriceSeries struct {
	Symbol    string
	Records   []PriceRecord
	Refreshed string // provider "last refreshed" label, informational only
}

// NewPriceSeries copies records, orders them most-recent-first and drops
// duplicate period dates (the first occurrence wins).
func NewPriceSeries(symbol string, records []PriceRecord) PriceSeries {
	sorted := make([]PriceRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PeriodStart.After(sorted[j].PeriodStart)
	})

	out := sorted[:0]
	seen := make(map[string]struct{}, len(sorted))
	for _, r := range sorted {
		key := r.PeriodStart.Format("2006-01-02")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return PriceSeries{Symbol: symbol, Records: out}
}

// Len returns the number of periods in the series.
func (s PriceSeries) Len() int { return len(s.Records) }

// Latest returns the most recent record, if any.
func (s PriceSeries) Latest() (PriceRecord, bool) {
	if len(s.Records) == 0 {
		return PriceRecord{}, false
	}
	return s.Records[0], true
}

// MarketSnapshot holds the weekly and monthly series of every tracked instrument,
// keyed by instrument name.
type MarketSnapshot struct {
	Weekly    map[string]PriceSeries
	Monthly   map[string]PriceSeries
	FetchedAt time.Time
}

// Instrument is one tracked index fund: Name is the stable key used in
// snapshots and ledger prices, Symbol is the provider ticker.
type Instrument struct {
	Name   string
	Symbol string
}
