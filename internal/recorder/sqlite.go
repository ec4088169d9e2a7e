package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"ETFPal/internal/ledger"
	"ETFPal/internal/model"
)

// SQLiteRecorder stores advice snapshots and doubles as a SQLite-backed
// investment ledger. Decimals are stored as TEXT to keep them exact.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

var _ ledger.Ledger = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets dashboards read while the advisor writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS advice_snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			eval_date    TEXT NOT NULL,
			cadence      TEXT,
			down_weeks   INTEGER,
			down_months  INTEGER,
			up_months    INTEGER,
			percentage   TEXT,
			base_amount  TEXT,
			amount       TEXT,
			last_date    TEXT,
			next_date    TEXT,
			due          INTEGER,
			trigger_type TEXT,
			warning      TEXT,
			prices       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_advice_ts ON advice_snapshots(timestamp)`,

		`CREATE TABLE IF NOT EXISTS investments (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			date       TEXT NOT NULL,
			amount     TEXT NOT NULL,
			percentage TEXT,
			prices     TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_investments_date ON investments(date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordAdvice(ctx context.Context, a *model.Advice) error {
	prices, err := json.Marshal(a.Prices)
	if err != nil {
		return fmt.Errorf("encode prices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO advice_snapshots
		(timestamp, eval_date, cadence, down_weeks, down_months, up_months,
		 percentage, base_amount, amount, last_date, next_date, due,
		 trigger_type, warning, prices)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), a.Date, string(a.Cadence),
		a.Metrics.DownWeeks, a.Metrics.DownMonths, a.Metrics.UpMonths,
		a.Percentage.String(), a.BaseAmount.String(), a.Amount.String(),
		a.LastDate, a.NextDate, a.Due,
		string(a.TriggerType), a.WarningMsg, string(prices),
	)
	return err
}

// CountAdvice returns the number of stored advice snapshots.
func (r *SQLiteRecorder) CountAdvice(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM advice_snapshots`).Scan(&n)
	return n, err
}

// Append implements ledger.Ledger. Each insert is its own transaction.
func (r *SQLiteRecorder) Append(ctx context.Context, evt model.InvestmentEvent) error {
	if err := ledger.Prepare(&evt); err != nil {
		return err
	}
	prices, err := json.Marshal(evt.Prices)
	if err != nil {
		return fmt.Errorf("%w: encode prices: %v", ledger.ErrPersist, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO investments
		(id, date, amount, percentage, prices, created_at)
		VALUES (?,?,?,?,?,?)`,
		evt.ID.String(), evt.Date, evt.Amount.String(), evt.Percentage.String(),
		string(prices), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrPersist, err)
	}
	return nil
}

func (r *SQLiteRecorder) LastEvent(ctx context.Context) (*model.InvestmentEvent, error) {
	events, err := r.Events(ctx, 1)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

func (r *SQLiteRecorder) Events(ctx context.Context, limit int) ([]model.InvestmentEvent, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, date, amount, percentage, prices
		FROM investments ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.InvestmentEvent
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func scanEvent(rows *sql.Rows) (model.InvestmentEvent, error) {
	var (
		id, date, amount string
		pct, prices      sql.NullString
		evt              model.InvestmentEvent
		err              error
	)
	if err = rows.Scan(&id, &date, &amount, &pct, &prices); err != nil {
		return evt, err
	}
	if evt.ID, err = uuid.Parse(id); err != nil {
		return evt, fmt.Errorf("investment id %q: %w", id, err)
	}
	evt.Date = date
	if evt.Amount, err = decimal.NewFromString(amount); err != nil {
		return evt, fmt.Errorf("investment %s amount: %w", id, err)
	}
	if pct.Valid && pct.String != "" {
		if evt.Percentage, err = decimal.NewFromString(pct.String); err != nil {
			return evt, fmt.Errorf("investment %s percentage: %w", id, err)
		}
	}
	if prices.Valid && prices.String != "" {
		if err = json.Unmarshal([]byte(prices.String), &evt.Prices); err != nil {
			return evt, fmt.Errorf("investment %s prices: %w", id, err)
		}
	}
	return evt, nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	if r.db == nil {
		return errors.New("sqlite recorder already closed")
	}
	err := r.db.Close()
	r.db = nil
	return err
}
