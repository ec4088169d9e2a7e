package collector

import (
	"context"

	"ETFPal/internal/model"
)

// Fetcher retrieves one instrument's price series at a weekly or monthly cadence.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol string, cadence model.Cadence) (model.PriceSeries, error)
	Name() string
}
