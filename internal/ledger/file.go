package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ETFPal/internal/model"
)

var newID = uuid.New

// fileState is the on-disk layout of a FileLedger.
type fileState struct {
	Events    []model.InvestmentEvent `json:"events"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// FileLedger keeps the ledger in a single JSON file. Writes go to a temp file
// that is renamed over the original, so a crash never leaves a torn file.
type FileLedger struct {
	mu       sync.Mutex
	state    *fileState
	filePath string
}

// NewFileLedger opens or creates the ledger at filePath.
func NewFileLedger(filePath string) (*FileLedger, error) {
	state, err := loadState(filePath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", filePath).Int("events", len(state.Events)).Msg("ledger opened")
	return &FileLedger{state: state, filePath: filePath}, nil
}

// Append adds evt to the end of the log and writes the file.
// On failure the in-memory log is rolled back and the error wraps ErrPersist.
func (l *FileLedger) Append(ctx context.Context, evt model.InvestmentEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Prepare(&evt); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.state.Events
	l.state.Events = append(prev[:len(prev):len(prev)], evt)
	if err := l.save(); err != nil {
		l.state.Events = prev
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	log.Debug().Str("id", evt.ID.String()).Str("date", evt.Date).Msg("ledger event appended")
	return nil
}

// LastEvent returns a copy of the newest event, or nil when empty.
func (l *FileLedger) LastEvent(ctx context.Context) (*model.InvestmentEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.state.Events)
	if n == 0 {
		return nil, nil
	}
	evt := l.state.Events[n-1]
	return &evt, nil
}

// Events returns up to limit events, newest first.
func (l *FileLedger) Events(ctx context.Context, limit int) ([]model.InvestmentEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.state.Events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.InvestmentEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.state.Events[i])
	}
	return out, nil
}

func (l *FileLedger) save() error {
	l.state.UpdatedAt = time.Now()
	return saveState(l.filePath, l.state)
}

// loadState reads the ledger file. A missing file yields an empty ledger.
func loadState(filePath string) (*fileState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileState{}, nil
		}
		return nil, err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", filePath, err)
	}
	return &state, nil
}

func saveState(filePath string, state *fileState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(filePath), filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}
