package recorder

import (
	"context"

	"ETFPal/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAdvice(_ context.Context, _ *model.Advice) error { return nil }
func (n *NoopRecorder) Close() error                                          { return nil }
