package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"ETFPal/internal/model"
)

// Baseline is the percentage invested when no streak is active.
var Baseline = decimal.NewFromInt(100)

// InvestmentPercentage combines both streaks additively:
// 100 + downWeeks*weeklyRate + downMonths*monthlyRate.
// Counts <= 0 add nothing and the result never drops below 100.
func InvestmentPercentage(downWeeks, downMonths int, weeklyRate, monthlyRate decimal.Decimal) decimal.Decimal {
	pct := Baseline.Add(boost(downWeeks, weeklyRate)).Add(boost(downMonths, monthlyRate))
	return decimal.Max(pct, Baseline)
}

// CadencePercentage applies only the rate of the active cadence:
// 100 + downPeriods*rate. Daily uses the weekly rate.
func CadencePercentage(downPeriods int, cadence model.Cadence, weeklyRate, monthlyRate decimal.Decimal) decimal.Decimal {
	rate := weeklyRate
	if cadence == model.CadenceMonthly {
		rate = monthlyRate
	}
	return decimal.Max(Baseline.Add(boost(downPeriods, rate)), Baseline)
}

// InvestmentAmount returns baseAmount * percentage / 100.
func InvestmentAmount(percentage, baseAmount decimal.Decimal) decimal.Decimal {
	return baseAmount.Mul(percentage).Div(Baseline)
}

// Evaluate turns streak metrics into advice: factor breakdown, percentage and
// amount. Scheduling fields are left for the caller.
func Evaluate(m model.StreakMetrics, cfg model.InvestmentConfig) *model.Advice {
	var factors []model.FactorScore
	var pct decimal.Decimal

	switch cfg.RateMode {
	case model.RateSingle:
		f := cadenceFactor(m, cfg)
		factors = []model.FactorScore{f}
		pct = CadencePercentage(f.Periods, cfg.Cadence, cfg.WeeklyIncreaseRate, cfg.MonthlyIncreaseRate)
	default:
		factors = []model.FactorScore{scoreDownWeeks(m, cfg), scoreDownMonths(m, cfg)}
		pct = InvestmentPercentage(m.DownWeeks, m.DownMonths, cfg.WeeklyIncreaseRate, cfg.MonthlyIncreaseRate)
	}

	advice := &model.Advice{
		Cadence:     cfg.Cadence,
		Metrics:     m,
		Factors:     factors,
		Percentage:  pct,
		BaseAmount:  cfg.BaseAmount,
		Amount:      InvestmentAmount(pct, cfg.BaseAmount),
		TriggerType: model.TriggerScheduled,
	}

	if cfg.UpMonthsWarning > 0 && m.UpMonths >= cfg.UpMonthsWarning {
		advice.WarningMsg = fmt.Sprintf("⚠️ 两只指数已连续上涨 %d 个月，注意追高风险", m.UpMonths)
	}

	return advice
}
