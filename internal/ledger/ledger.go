// Package ledger persists executed investments as an append-only log.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"ETFPal/internal/model"
)

// ErrPersist wraps every failure to durably write an event. Callers decide
// whether to retry.
var ErrPersist = errors.New("ledger: failed to persist investment event")

// ErrInvalidEvent is returned when an event is rejected before any write.
var ErrInvalidEvent = errors.New("ledger: invalid investment event")

// Ledger is an append-only record of executed investments.
// Implementations serialize concurrent appends so no event is lost.
type Ledger interface {
	// Append durably stores evt. Previously appended events are never touched.
	Append(ctx context.Context, evt model.InvestmentEvent) error
	// LastEvent returns the most recently appended event, or nil when the ledger is empty.
	LastEvent(ctx context.Context) (*model.InvestmentEvent, error)
	// Events returns up to limit events, most recent first. limit <= 0 returns all.
	Events(ctx context.Context, limit int) ([]model.InvestmentEvent, error)
}

// Prepare assigns an ID when missing and rejects events without a date or
// with a negative amount.
func Prepare(evt *model.InvestmentEvent) error {
	if evt.Date == "" {
		return errors.Join(ErrInvalidEvent, errors.New("missing date"))
	}
	if evt.Amount.IsNegative() {
		return errors.Join(ErrInvalidEvent, errors.New("negative amount"))
	}
	if evt.ID == uuid.Nil {
		evt.ID = newID()
	}
	return nil
}
