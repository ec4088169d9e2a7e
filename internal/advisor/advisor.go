// Package advisor ties the collectors, the streak analysis, the rule engine,
// the calendar and the ledger into one evaluation.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ETFPal/internal/calculator"
	"ETFPal/internal/calendar"
	"ETFPal/internal/ledger"
	"ETFPal/internal/metrics"
	"ETFPal/internal/model"
	"ETFPal/internal/strategy"
)

// trendPeriods is how many recent weekly moves go into each advice.
const trendPeriods = 3

// Source produces a market snapshot. *collector.Collector satisfies it.
type Source interface {
	Collect(ctx context.Context) (*model.MarketSnapshot, error)
}

// Advisor evaluates the investment config against fresh market data.
type Advisor struct {
	source      Source
	ledger      ledger.Ledger
	cfg         model.InvestmentConfig
	instruments []model.Instrument
	loc         *time.Location
	metrics     *metrics.Metrics
}

// New validates cfg and returns an Advisor. Exactly two instruments are required.
func New(source Source, l ledger.Ledger, cfg model.InvestmentConfig, instruments []model.Instrument, loc *time.Location, m *metrics.Metrics) (*Advisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(instruments) != 2 {
		return nil, fmt.Errorf("advisor: need exactly 2 instruments, got %d", len(instruments))
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Advisor{
		source:      source,
		ledger:      l,
		cfg:         cfg,
		instruments: instruments,
		loc:         loc,
		metrics:     m,
	}, nil
}

// Config returns the investment config the advisor evaluates with.
func (a *Advisor) Config() model.InvestmentConfig { return a.cfg }

// Location returns the calendar frame for dates.
func (a *Advisor) Location() *time.Location { return a.loc }

// Analyze computes the streak metrics of a snapshot.
func (a *Advisor) Analyze(snap *model.MarketSnapshot) model.StreakMetrics {
	first, second := a.instruments[0].Name, a.instruments[1].Name
	return model.StreakMetrics{
		DownWeeks:  calculator.CountConsecutiveDownAll(a.cfg.StreakRule, snap.Weekly[first], snap.Weekly[second]),
		DownMonths: calculator.CountConsecutiveDownAll(a.cfg.StreakRule, snap.Monthly[first], snap.Monthly[second]),
		UpMonths:   calculator.CountConsecutiveUp(snap.Monthly[first], snap.Monthly[second]),
	}
}

// Advise collects data and returns the advice for today.
func (a *Advisor) Advise(ctx context.Context, today time.Time) (*model.Advice, error) {
	return a.AdviseFor(ctx, today, model.TriggerScheduled)
}

// AdviseFor is Advise with an explicit trigger.
func (a *Advisor) AdviseFor(ctx context.Context, today time.Time, trigger model.TriggerType) (*model.Advice, error) {
	advice, err := a.advise(ctx, today, trigger)
	if err != nil {
		a.metrics.AdviceFailed(trigger)
		return nil, err
	}
	return advice, nil
}

func (a *Advisor) advise(ctx context.Context, today time.Time, trigger model.TriggerType) (*model.Advice, error) {
	snap, err := a.source.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}

	m := a.Analyze(snap)
	advice := strategy.Evaluate(m, a.cfg)
	advice.TriggerType = trigger
	advice.Date = calendar.FormatDate(today, a.loc)
	advice.Prices = calculator.LatestCloses(snap.Weekly)
	advice.Trends = make(map[string][]model.PeriodChange, len(a.instruments))
	for _, inst := range a.instruments {
		advice.Trends[inst.Name] = calculator.PeriodChanges(snap.Weekly[inst.Name], trendPeriods)
	}

	last, next, err := a.Schedule(ctx, today)
	if err != nil {
		return nil, err
	}
	advice.LastDate = last
	advice.NextDate = next
	if advice.Due, err = calendar.IsDue(next, today, a.loc); err != nil {
		return nil, err
	}

	nextDay, _ := calendar.ParseDate(next)
	a.metrics.ObserveAdvice(advice, nextDay)

	log.Info().
		Int("down_weeks", m.DownWeeks).
		Int("down_months", m.DownMonths).
		Int("up_months", m.UpMonths).
		Str("percentage", advice.Percentage.String()).
		Str("amount", advice.Amount.StringFixed(2)).
		Str("next", next).
		Bool("due", advice.Due).
		Str("trigger", string(trigger)).
		Msg("advice evaluated")
	return advice, nil
}

// Schedule returns the last ledger date (empty when none) and the next
// investment date, without touching market data.
func (a *Advisor) Schedule(ctx context.Context, today time.Time) (last, next string, err error) {
	evt, err := a.ledger.LastEvent(ctx)
	if err != nil {
		return "", "", fmt.Errorf("read ledger: %w", err)
	}
	if evt != nil {
		last = evt.Date
	}
	next, err = calendar.NextInvestmentDate(last, today, a.cfg.Cadence, a.cfg.AnchorDay, a.cfg.MonthEnd, a.loc)
	if err != nil {
		return "", "", fmt.Errorf("next investment date: %w", err)
	}
	return last, next, nil
}

// Execute records the investment described by advice in the ledger.
func (a *Advisor) Execute(ctx context.Context, advice *model.Advice) (*model.InvestmentEvent, error) {
	if advice == nil || advice.Date == "" {
		return nil, errors.New("execute: advice has no evaluation date")
	}
	if !advice.Due {
		log.Warn().Str("date", advice.Date).Str("next", advice.NextDate).Msg("executing investment before its scheduled date")
	}

	evt := model.InvestmentEvent{
		ID:         uuid.New(),
		Date:       advice.Date,
		Amount:     advice.Amount,
		Percentage: advice.Percentage,
		Prices:     advice.Prices,
	}
	err := a.ledger.Append(ctx, evt)
	a.metrics.ObserveAppend(err)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}

	log.Info().Str("id", evt.ID.String()).Str("date", evt.Date).Str("amount", evt.Amount.StringFixed(2)).Msg("investment recorded")
	return &evt, nil
}

// History returns up to limit ledger events, newest first.
func (a *Advisor) History(ctx context.Context, limit int) ([]model.InvestmentEvent, error) {
	return a.ledger.Events(ctx, limit)
}
