package strategy

import (
	"github.com/shopspring/decimal"

	"ETFPal/internal/model"
)

// Factor names as they appear in reports and snapshots.
const (
	FactorDownWeeks  = "连续下跌周数"
	FactorDownMonths = "连续下跌月数"
)

// boost returns periods*rate, or zero when there is no streak.
func boost(periods int, rate decimal.Decimal) decimal.Decimal {
	if periods <= 0 || rate.IsNegative() {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(periods)).Mul(rate)
}

// scoreDownWeeks scores the weekly down streak at the weekly increase rate.
func scoreDownWeeks(m model.StreakMetrics, cfg model.InvestmentConfig) model.FactorScore {
	return model.FactorScore{
		Name:    FactorDownWeeks,
		Periods: m.DownWeeks,
		Rate:    cfg.WeeklyIncreaseRate,
		Boost:   boost(m.DownWeeks, cfg.WeeklyIncreaseRate),
	}
}

// scoreDownMonths scores the monthly down streak at the monthly increase rate.
func scoreDownMonths(m model.StreakMetrics, cfg model.InvestmentConfig) model.FactorScore {
	return model.FactorScore{
		Name:    FactorDownMonths,
		Periods: m.DownMonths,
		Rate:    cfg.MonthlyIncreaseRate,
		Boost:   boost(m.DownMonths, cfg.MonthlyIncreaseRate),
	}
}

// cadenceFactor picks the one factor that applies in single-rate mode.
// Daily investing follows the weekly streak.
func cadenceFactor(m model.StreakMetrics, cfg model.InvestmentConfig) model.FactorScore {
	if cfg.Cadence == model.CadenceMonthly {
		return scoreDownMonths(m, cfg)
	}
	return scoreDownWeeks(m, cfg)
}
