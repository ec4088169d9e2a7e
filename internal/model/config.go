package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Cadence is the recurrence period for investments.
type Cadence string

const (
	CadenceDaily   Cadence = "daily"
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// StreakRule selects what makes a period count as "down".
type StreakRule string

const (
	// RuleCloseOverClose: the period closed below the prior period's close.
	RuleCloseOverClose StreakRule = "close_over_close"
	// RuleCandleBody: the period closed below its own open (a red candle).
	RuleCandleBody StreakRule = "candle_body"
)

// RateMode selects how weekly and monthly streaks combine into a percentage.
type RateMode string

const (
	RateAdditive RateMode = "additive"
	RateSingle   RateMode = "single"
)

// MonthEndPolicy decides what happens when the anchor day does not exist in a month.
type MonthEndPolicy string

const (
	// MonthEndRoll moves to the next month that has the anchor day.
	MonthEndRoll MonthEndPolicy = "roll"
	// MonthEndClamp uses the last day of the short month.
	MonthEndClamp MonthEndPolicy = "clamp"
)

// InvestmentConfig is supplied by the caller on every evaluation.
// AnchorDay is a weekday (0=Sunday..6=Saturday) for weekly, a day of month
// (1..31) for monthly and ignored for daily.
type InvestmentConfig struct {
	Cadence             Cadence        `validate:"required,oneof=daily weekly monthly"`
	AnchorDay           int            `validate:"min=0,max=31"`
	WeeklyIncreaseRate  decimal.Decimal
	MonthlyIncreaseRate decimal.Decimal
	BaseAmount          decimal.Decimal
	StreakRule          StreakRule     `validate:"required,oneof=close_over_close candle_body"`
	RateMode            RateMode       `validate:"required,oneof=additive single"`
	MonthEnd            MonthEndPolicy `validate:"required,oneof=roll clamp"`
	UpMonthsWarning     int            `validate:"min=0"`
}

var validate = validator.New()

// Validate checks the enumerations, the anchor day range for the cadence,
// and the sign of rates and base amount.
func (c InvestmentConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("investment config: %w", err)
	}
	switch c.Cadence {
	case CadenceWeekly:
		if c.AnchorDay > 6 {
			return fmt.Errorf("investment config: weekly anchor day %d not in 0..6", c.AnchorDay)
		}
	case CadenceMonthly:
		if c.AnchorDay < 1 {
			return fmt.Errorf("investment config: monthly anchor day %d not in 1..31", c.AnchorDay)
		}
	}
	if c.WeeklyIncreaseRate.IsNegative() || c.MonthlyIncreaseRate.IsNegative() {
		return errors.New("investment config: increase rates must be >= 0")
	}
	if !c.BaseAmount.IsPositive() {
		return errors.New("investment config: base amount must be positive")
	}
	return nil
}
