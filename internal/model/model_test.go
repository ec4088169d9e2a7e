package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(day string, open, close string) PriceRecord {
	t, _ := time.Parse("2006-01-02", day)
	r := PriceRecord{PeriodStart: t}
	if open != "" {
		r.Open = decimal.NewNullDecimal(decimal.RequireFromString(open))
	}
	if close != "" {
		r.Close = decimal.NewNullDecimal(decimal.RequireFromString(close))
	}
	return r
}

func TestPriceRecord_Valid(t *testing.T) {
	assert.True(t, rec("2024-06-07", "10", "11").Valid())
	assert.True(t, rec("2024-06-07", "0", "0").Valid())
	assert.False(t, rec("2024-06-07", "", "11").Valid())
	assert.False(t, rec("2024-06-07", "10", "").Valid())
	assert.False(t, rec("2024-06-07", "-1", "11").Valid())
}

func TestNewPriceSeries_SortsMostRecentFirst(t *testing.T) {
	s := NewPriceSeries("QQQ", []PriceRecord{
		rec("2024-05-24", "1", "1"),
		rec("2024-06-07", "3", "3"),
		rec("2024-05-31", "2", "2"),
	})
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "QQQ", s.Symbol)
	assert.Equal(t, "2024-06-07", s.Records[0].PeriodStart.Format("2006-01-02"))
	assert.Equal(t, "2024-05-31", s.Records[1].PeriodStart.Format("2006-01-02"))
	assert.Equal(t, "2024-05-24", s.Records[2].PeriodStart.Format("2006-01-02"))

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "3", latest.Close.Decimal.String())
}

func TestNewPriceSeries_DropsDuplicates(t *testing.T) {
	s := NewPriceSeries("SPY", []PriceRecord{
		rec("2024-06-07", "1", "1"),
		rec("2024-06-07", "9", "9"),
		rec("2024-05-31", "2", "2"),
	})
	require.Equal(t, 2, s.Len())
	assert.Equal(t, "1", s.Records[0].Close.Decimal.String(), "first occurrence wins")
}

func TestNewPriceSeries_DoesNotAliasInput(t *testing.T) {
	in := []PriceRecord{rec("2024-05-31", "1", "1"), rec("2024-06-07", "2", "2")}
	_ = NewPriceSeries("QQQ", in)
	assert.Equal(t, "2024-05-31", in[0].PeriodStart.Format("2006-01-02"))
}

func TestPriceSeries_Empty(t *testing.T) {
	s := NewPriceSeries("QQQ", nil)
	assert.Equal(t, 0, s.Len())
	_, ok := s.Latest()
	assert.False(t, ok)
}

func validConfig() InvestmentConfig {
	return InvestmentConfig{
		Cadence:             CadenceWeekly,
		AnchorDay:           2,
		WeeklyIncreaseRate:  decimal.NewFromInt(10),
		MonthlyIncreaseRate: decimal.NewFromInt(10),
		BaseAmount:          decimal.NewFromInt(100),
		StreakRule:          RuleCloseOverClose,
		RateMode:            RateAdditive,
		MonthEnd:            MonthEndRoll,
	}
}

func TestInvestmentConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*InvestmentConfig)
	}{
		{"unknown cadence", func(c *InvestmentConfig) { c.Cadence = "yearly" }},
		{"weekly anchor out of range", func(c *InvestmentConfig) { c.AnchorDay = 7 }},
		{"monthly anchor zero", func(c *InvestmentConfig) { c.Cadence = CadenceMonthly; c.AnchorDay = 0 }},
		{"anchor above 31", func(c *InvestmentConfig) { c.Cadence = CadenceMonthly; c.AnchorDay = 32 }},
		{"negative weekly rate", func(c *InvestmentConfig) { c.WeeklyIncreaseRate = decimal.NewFromInt(-1) }},
		{"negative monthly rate", func(c *InvestmentConfig) { c.MonthlyIncreaseRate = decimal.NewFromInt(-1) }},
		{"zero base amount", func(c *InvestmentConfig) { c.BaseAmount = decimal.Zero }},
		{"unknown streak rule", func(c *InvestmentConfig) { c.StreakRule = "heikin_ashi" }},
		{"unknown rate mode", func(c *InvestmentConfig) { c.RateMode = "multiplicative" }},
		{"unknown month end policy", func(c *InvestmentConfig) { c.MonthEnd = "skip" }},
		{"negative warning threshold", func(c *InvestmentConfig) { c.UpMonthsWarning = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestInvestmentConfig_DailyIgnoresAnchor(t *testing.T) {
	c := validConfig()
	c.Cadence = CadenceDaily
	c.AnchorDay = 0
	assert.NoError(t, c.Validate())
}
