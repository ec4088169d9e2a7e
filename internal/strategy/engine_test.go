package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ETFPal/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func baseConfig() model.InvestmentConfig {
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

func TestInvestmentPercentage(t *testing.T) {
	tests := []struct {
		weeks, months int
		wr, mr        string
		want          string
	}{
		{0, 0, "10", "10", "100"},
		{0, 0, "37.5", "0", "100"},
		{3, 0, "10", "10", "130"},
		{0, 2, "10", "10", "120"},
		{3, 2, "10", "10", "150"},
		{1, 1, "2.5", "7.25", "109.75"},
		{-3, -1, "10", "10", "100"},
		{4, 0, "0", "10", "100"},
	}
	for _, tt := range tests {
		got := InvestmentPercentage(tt.weeks, tt.months, d(tt.wr), d(tt.mr))
		assert.Truef(t, got.Equal(d(tt.want)), "InvestmentPercentage(%d, %d, %s, %s) = %s, want %s",
			tt.weeks, tt.months, tt.wr, tt.mr, got, tt.want)
	}
}

func TestInvestmentPercentage_NeverBelowBaseline(t *testing.T) {
	got := InvestmentPercentage(3, 2, d("-10"), d("-10"))
	assert.True(t, got.Equal(Baseline), "got %s", got)
}

func TestCadencePercentage(t *testing.T) {
	assert.True(t, CadencePercentage(3, model.CadenceWeekly, d("10"), d("20")).Equal(d("130")))
	assert.True(t, CadencePercentage(3, model.CadenceMonthly, d("10"), d("20")).Equal(d("160")))
	assert.True(t, CadencePercentage(3, model.CadenceDaily, d("10"), d("20")).Equal(d("130")))
	assert.True(t, CadencePercentage(0, model.CadenceMonthly, d("10"), d("20")).Equal(d("100")))
}

func TestInvestmentAmount(t *testing.T) {
	assert.True(t, InvestmentAmount(d("150"), d("100")).Equal(d("150")))
	assert.True(t, InvestmentAmount(d("100"), d("250")).Equal(d("250")))
	assert.True(t, InvestmentAmount(d("130"), d("55.5")).Equal(d("72.15")))
}

func TestEvaluate_Additive(t *testing.T) {
	m := model.StreakMetrics{DownWeeks: 3, DownMonths: 2}
	adv := Evaluate(m, baseConfig())
	require.NotNil(t, adv)
	require.Len(t, adv.Factors, 2)

	assert.Equal(t, FactorDownWeeks, adv.Factors[0].Name)
	assert.True(t, adv.Factors[0].Boost.Equal(d("30")))
	assert.Equal(t, FactorDownMonths, adv.Factors[1].Name)
	assert.True(t, adv.Factors[1].Boost.Equal(d("20")))

	want := InvestmentPercentage(3, 2, d("10"), d("10"))
	assert.True(t, adv.Percentage.Equal(want))
	assert.True(t, adv.Amount.Equal(d("150")))
	assert.Equal(t, model.TriggerScheduled, adv.TriggerType)
	assert.Empty(t, adv.WarningMsg)
}

func TestEvaluate_SingleMode(t *testing.T) {
	cfg := baseConfig()
	cfg.RateMode = model.RateSingle
	cfg.Cadence = model.CadenceMonthly
	cfg.MonthlyIncreaseRate = d("15")

	adv := Evaluate(model.StreakMetrics{DownWeeks: 5, DownMonths: 2}, cfg)
	require.Len(t, adv.Factors, 1)
	assert.Equal(t, FactorDownMonths, adv.Factors[0].Name)
	assert.True(t, adv.Percentage.Equal(d("130")), "got %s", adv.Percentage)
	assert.True(t, adv.Amount.Equal(d("130")))
}

func TestEvaluate_UpMonthsWarning(t *testing.T) {
	cfg := baseConfig()
	adv := Evaluate(model.StreakMetrics{UpMonths: 6}, cfg)
	assert.NotEmpty(t, adv.WarningMsg)

	adv = Evaluate(model.StreakMetrics{UpMonths: 5}, cfg)
	assert.Empty(t, adv.WarningMsg)

	cfg.UpMonthsWarning = 0
	adv = Evaluate(model.StreakMetrics{UpMonths: 12}, cfg)
	assert.Empty(t, adv.WarningMsg, "threshold 0 disables the warning")
}

func TestEvaluate_Idempotent(t *testing.T) {
	m := model.StreakMetrics{DownWeeks: 2, DownMonths: 1, UpMonths: 0}
	a := Evaluate(m, baseConfig())
	b := Evaluate(m, baseConfig())
	assert.Equal(t, a.Percentage.String(), b.Percentage.String())
	assert.Equal(t, a.Amount.String(), b.Amount.String())
}
