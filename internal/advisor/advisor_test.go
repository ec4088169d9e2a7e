package advisor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFPal/internal/collector"
	"ETFPal/internal/ledger"
	"ETFPal/internal/model"
)

var instruments = []model.Instrument{
	{Name: "nasdaq", Symbol: "QQQ"},
	{Name: "sp500", Symbol: "SPY"},
}

var tuesday = time.Date(2024, 6, 11, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func weeklySeries(symbol string, closes ...string) model.PriceSeries {
	latest := time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
	recs := make([]model.PriceRecord, len(closes))
	for i, c := range closes {
		recs[i] = model.PriceRecord{
			PeriodStart: latest.AddDate(0, 0, -7*i),
			Open:        decimal.NewNullDecimal(d(c)),
			Close:       decimal.NewNullDecimal(d(c)),
		}
	}
	return model.NewPriceSeries(symbol, recs)
}

func monthlySeries(symbol string, closes ...string) model.PriceSeries {
	recs := make([]model.PriceRecord, len(closes))
	for i, c := range closes {
		recs[i] = model.PriceRecord{
			PeriodStart: time.Date(2024, time.May-time.Month(i), 28, 0, 0, 0, 0, time.UTC),
			Open:        decimal.NewNullDecimal(d(c)),
			Close:       decimal.NewNullDecimal(d(c)),
		}
	}
	return model.NewPriceSeries(symbol, recs)
}

func config() model.InvestmentConfig {
	return model.InvestmentConfig{
		Cadence:             model.CadenceWeekly,
		AnchorDay:           2,
		WeeklyIncreaseRate:  d("10"),
		MonthlyIncreaseRate: d("10"),
		BaseAmount:          d("100"),
		StreakRule:          model.RuleCloseOverClose,
		RateMode:            model.RateAdditive,
		MonthEnd:            model.MonthEndRoll,
		UpMonthsWarning:     6,
	}
}

func fallingMarket() *collector.MockFetcher {
	return &collector.MockFetcher{Series: map[string]model.PriceSeries{
		collector.MockKey("QQQ", model.CadenceWeekly):  weeklySeries("QQQ", "90", "95", "100", "105", "100"),
		collector.MockKey("SPY", model.CadenceWeekly):  weeklySeries("SPY", "50", "52", "54", "53"),
		collector.MockKey("QQQ", model.CadenceMonthly): monthlySeries("QQQ", "80", "85", "90"),
		collector.MockKey("SPY", model.CadenceMonthly): monthlySeries("SPY", "40", "42"),
	}}
}

func newAdvisor(t *testing.T, f collector.Fetcher, l ledger.Ledger) *Advisor {
	t.Helper()
	a, err := New(collector.NewCollector(f, instruments, nil), l, config(), instruments, time.UTC, nil)
	require.NoError(t, err)
	return a
}

func fileLedger(t *testing.T) *ledger.FileLedger {
	t.Helper()
	l, err := ledger.NewFileLedger(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)
	return l
}

func TestAdvise(t *testing.T) {
	a := newAdvisor(t, fallingMarket(), fileLedger(t))

	adv, err := a.Advise(context.Background(), tuesday)
	require.NoError(t, err)

	assert.Equal(t, model.StreakMetrics{DownWeeks: 2, DownMonths: 1, UpMonths: 0}, adv.Metrics)
	assert.True(t, adv.Percentage.Equal(d("130")), "got %s", adv.Percentage)
	assert.True(t, adv.Amount.Equal(d("130")))
	assert.Equal(t, "2024-06-11", adv.Date)
	assert.Empty(t, adv.LastDate)
	assert.Equal(t, "2024-06-11", adv.NextDate)
	assert.True(t, adv.Due)
	assert.True(t, adv.Prices["nasdaq"].Equal(d("90")))
	assert.True(t, adv.Prices["sp500"].Equal(d("50")))

	require.Len(t, adv.Trends["nasdaq"], 3)
	assert.True(t, adv.Trends["nasdaq"][0].Change.Equal(d("-5")))
	assert.True(t, adv.Trends["nasdaq"][0].Percent.Equal(d("-5.26")))
	assert.Empty(t, adv.WarningMsg)
}

func TestExecuteThenReschedule(t *testing.T) {
	ctx := context.Background()
	l := fileLedger(t)
	a := newAdvisor(t, fallingMarket(), l)

	adv, err := a.Advise(ctx, tuesday)
	require.NoError(t, err)

	evt, err := a.Execute(ctx, adv)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-11", evt.Date)
	assert.True(t, evt.Amount.Equal(d("130")))
	assert.True(t, evt.Prices["sp500"].Equal(d("50")))

	last, err := l.LastEvent(ctx)
	require.NoError(t, err)
	assert.Equal(t, evt.ID, last.ID)

	again, err := a.Advise(ctx, tuesday)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-11", again.LastDate)
	assert.Equal(t, "2024-06-18", again.NextDate)
	assert.False(t, again.Due)

	history, err := a.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAdvise_UpMonthsWarning(t *testing.T) {
	f := &collector.MockFetcher{Series: map[string]model.PriceSeries{
		collector.MockKey("QQQ", model.CadenceWeekly):  weeklySeries("QQQ", "110", "100"),
		collector.MockKey("SPY", model.CadenceWeekly):  weeklySeries("SPY", "60", "55"),
		collector.MockKey("QQQ", model.CadenceMonthly): monthlySeries("QQQ", "170", "160", "150", "140", "130", "120", "110"),
		collector.MockKey("SPY", model.CadenceMonthly): monthlySeries("SPY", "70", "66", "62", "58", "54", "50", "46"),
	}}
	a := newAdvisor(t, f, fileLedger(t))

	adv, err := a.Advise(context.Background(), tuesday)
	require.NoError(t, err)
	assert.Equal(t, 6, adv.Metrics.UpMonths)
	assert.Equal(t, 0, adv.Metrics.DownWeeks)
	assert.True(t, adv.Percentage.Equal(d("100")))
	assert.NotEmpty(t, adv.WarningMsg)
}

func TestAdvise_CollectFailure(t *testing.T) {
	a := newAdvisor(t, &collector.MockFetcher{Err: collector.ErrRateLimited}, fileLedger(t))
	_, err := a.Advise(context.Background(), tuesday)
	assert.ErrorIs(t, err, collector.ErrRateLimited)
}

func TestAdviseFor_Trigger(t *testing.T) {
	a := newAdvisor(t, fallingMarket(), fileLedger(t))
	adv, err := a.AdviseFor(context.Background(), tuesday, model.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerManual, adv.TriggerType)

	adv, err = a.Advise(context.Background(), tuesday)
	require.NoError(t, err)
	assert.Equal(t, model.TriggerScheduled, adv.TriggerType)
}

type brokenLedger struct{}

func (brokenLedger) Append(context.Context, model.InvestmentEvent) error {
	return ledger.ErrPersist
}
func (brokenLedger) LastEvent(context.Context) (*model.InvestmentEvent, error) {
	return nil, nil
}
func (brokenLedger) Events(context.Context, int) ([]model.InvestmentEvent, error) {
	return nil, errors.New("unavailable")
}

func TestExecute_PersistFailure(t *testing.T) {
	a := newAdvisor(t, fallingMarket(), brokenLedger{})
	adv, err := a.Advise(context.Background(), tuesday)
	require.NoError(t, err)

	_, err = a.Execute(context.Background(), adv)
	assert.ErrorIs(t, err, ledger.ErrPersist)
}

func TestExecute_RejectsEmptyAdvice(t *testing.T) {
	a := newAdvisor(t, fallingMarket(), fileLedger(t))
	_, err := a.Execute(context.Background(), &model.Advice{})
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	cfg := config()
	cfg.Cadence = "yearly"
	_, err := New(nil, fileLedger(t), cfg, instruments, time.UTC, nil)
	assert.Error(t, err)

	_, err = New(nil, fileLedger(t), config(), instruments[:1], time.UTC, nil)
	assert.Error(t, err)
}
