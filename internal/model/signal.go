package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TriggerType indicates what produced the advice.
type TriggerType string

const (
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerReminder  TriggerType = "REMINDER"
	TriggerManual    TriggerType = "MANUAL"
)

// FactorScore is one signal's contribution to the investment percentage.
type FactorScore struct {
	Name    string
	Periods int
	Rate    decimal.Decimal
	Boost   decimal.Decimal // percentage points added on top of 100
}

// PeriodChange is the close-to-close move of one period against its predecessor.
type PeriodChange struct {
	PeriodStart time.Time
	Close       decimal.Decimal
	Change      decimal.Decimal
	Percent     decimal.Decimal
	HasPrior    bool
}

// Advice is the advisor's output for one evaluation.
type Advice struct {
	Date        string // evaluation day, yyyy-mm-dd
	Cadence     Cadence
	Metrics     StreakMetrics
	Factors     []FactorScore
	Percentage  decimal.Decimal
	BaseAmount  decimal.Decimal
	Amount      decimal.Decimal
	LastDate    string // last ledger event date, empty when none
	NextDate    string
	Due         bool
	Prices      map[string]decimal.Decimal // latest weekly close per instrument
	Trends      map[string][]PeriodChange  // latest weekly changes per instrument
	TriggerType TriggerType
	WarningMsg  string
}
