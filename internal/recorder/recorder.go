package recorder

import (
	"context"

	"ETFPal/internal/model"
)

// Recorder persists every evaluated piece of advice for later analysis.
type Recorder interface {
	RecordAdvice(ctx context.Context, advice *model.Advice) error
	Close() error
}
