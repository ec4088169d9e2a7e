package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvestmentEvent is one executed investment. Events are append-only.
type InvestmentEvent struct {
	ID         uuid.UUID                  `json:"id"`
	Date       string                     `json:"date"` // yyyy-mm-dd in the configured calendar frame
	Amount     decimal.Decimal            `json:"amount"`
	Percentage decimal.Decimal            `json:"percentage"`
	Prices     map[string]decimal.Decimal `json:"prices"`
}

// StreakMetrics holds the streak counts an evaluation is based on.
// Down counts are the minimum across both instruments.
type StreakMetrics struct {
	DownWeeks  int
	DownMonths int
	UpMonths   int
}
