package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ETFPal/internal/metrics"
	"ETFPal/internal/model"
)

// Collector fetches the weekly and monthly series of every tracked instrument.
type Collector struct {
	Fetcher     Fetcher
	Instruments []model.Instrument
	Metrics     *metrics.Metrics
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, instruments []model.Instrument, m *metrics.Metrics) *Collector {
	return &Collector{Fetcher: fetcher, Instruments: instruments, Metrics: m}
}

// Collect fetches both cadences for all instruments. Any failed fetch fails
// the whole snapshot.
func (c *Collector) Collect(ctx context.Context) (*model.MarketSnapshot, error) {
	snap := &model.MarketSnapshot{
		Weekly:    make(map[string]model.PriceSeries, len(c.Instruments)),
		Monthly:   make(map[string]model.PriceSeries, len(c.Instruments)),
		FetchedAt: time.Now(),
	}

	for _, cadence := range []model.Cadence{model.CadenceWeekly, model.CadenceMonthly} {
		for _, inst := range c.Instruments {
			series, err := c.fetch(ctx, inst, cadence)
			if err != nil {
				return nil, err
			}
			if cadence == model.CadenceWeekly {
				snap.Weekly[inst.Name] = series
			} else {
				snap.Monthly[inst.Name] = series
			}
		}
	}
	return snap, nil
}

func (c *Collector) fetch(ctx context.Context, inst model.Instrument, cadence model.Cadence) (model.PriceSeries, error) {
	start := time.Now()
	series, err := c.Fetcher.FetchSeries(ctx, inst.Symbol, cadence)
	c.Metrics.ObserveFetch(c.Fetcher.Name(), cadence, time.Since(start), err)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s (%s) %s: %w", inst.Name, inst.Symbol, cadence, err)
	}

	if series.Len() < 2 {
		log.Warn().Str("instrument", inst.Name).Str("cadence", string(cadence)).
			Int("periods", series.Len()).Msg("short price series, streaks will be zero")
	}
	log.Debug().Str("instrument", inst.Name).Str("cadence", string(cadence)).
		Int("periods", series.Len()).Str("refreshed", series.Refreshed).Msg("series fetched")
	return series, nil
}
