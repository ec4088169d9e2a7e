package collector

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ETFPal/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Series are keyed by MockKey(symbol, cadence); missing keys get a generated
// gently rising series around Price.
type MockFetcher struct {
	Price  decimal.Decimal
	Series map[string]model.PriceSeries
	Err    error
	End    time.Time // latest period of generated series; zero means now
}

// MockKey builds the Series key for symbol and cadence.
func MockKey(symbol string, cadence model.Cadence) string {
	return symbol + "/" + string(cadence)
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(ctx context.Context, symbol string, cadence model.Cadence) (model.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return model.PriceSeries{}, err
	}
	if m.Err != nil {
		return model.PriceSeries{}, m.Err
	}
	if _, err := seriesKey(cadence); err != nil {
		return model.PriceSeries{}, err
	}
	if s, ok := m.Series[MockKey(symbol, cadence)]; ok {
		return s, nil
	}
	return generateMockSeries(symbol, cadence, m.price(), m.end(), 24), nil
}

func (m *MockFetcher) price() decimal.Decimal {
	if m.Price.IsPositive() {
		return m.Price
	}
	return decimal.NewFromInt(100)
}

func (m *MockFetcher) end() time.Time {
	if m.End.IsZero() {
		return time.Now().UTC()
	}
	return m.End
}

func generateMockSeries(symbol string, cadence model.Cadence, base decimal.Decimal, end time.Time, count int) model.PriceSeries {
	step := decimal.RequireFromString("0.001")
	records := make([]model.PriceRecord, count)
	for i := 0; i < count; i++ {
		start := end.AddDate(0, 0, -7*i)
		if cadence == model.CadenceMonthly {
			start = time.Date(end.Year(), end.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		}
		// i=0 is the latest period and carries the highest price.
		p := base.Mul(decimal.NewFromInt(1).Add(step.Mul(decimal.NewFromInt(int64(count/2 - i))))).Round(2)
		records[i] = model.PriceRecord{
			PeriodStart: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
			Open:        decimal.NewNullDecimal(p.Mul(decimal.RequireFromString("0.999")).Round(2)),
			Close:       decimal.NewNullDecimal(p),
		}
	}
	return model.NewPriceSeries(symbol, records)
}
