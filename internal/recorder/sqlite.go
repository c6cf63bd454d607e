package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"DayScreener/internal/model"
)

// SQLiteRecorder persists cycle history and the alert guard to SQLite.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while cycles write.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screen_cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			quoted      INTEGER,
			filtered    INTEGER,
			top_movers  TEXT,
			mood        TEXT,
			alert_sent  INTEGER,
			advisory    TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON screen_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS alerts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			alert_date TEXT,
			kind       TEXT,
			movers     INTEGER,
			success    INTEGER,
			error      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_ts ON alerts(timestamp)`,

		`CREATE TABLE IF NOT EXISTS training_runs (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			symbol     TEXT,
			row_count  INTEGER,
			accuracy   REAL,
			prediction INTEGER,
			up_prob    REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_training_symbol ON training_runs(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS alert_state (
			id             INTEGER PRIMARY KEY CHECK (id = 1),
			last_sent_date TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRecorder) RecordCycle(ctx context.Context, rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO screen_cycles
		(timestamp, quoted, filtered, top_movers, mood, alert_sent, advisory, duration_ms)
		VALUES (?,?,?,?,?,?,?,?)`,
		rec.Time.Unix(), rec.Quoted, rec.Filtered, strings.Join(rec.TopMovers, ","),
		rec.Mood, boolInt(rec.AlertSent), rec.Advisory, rec.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecordAlert(ctx context.Context, rec *AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO alerts
		(timestamp, alert_date, kind, movers, success, error)
		VALUES (?,?,?,?,?,?)`,
		rec.Time.Unix(), rec.Date, rec.Kind, rec.Movers, boolInt(rec.Success), rec.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordTraining(ctx context.Context, rec *TrainingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO training_runs
		(timestamp, symbol, row_count, accuracy, prediction, up_prob)
		VALUES (?,?,?,?,?,?)`,
		rec.Time.Unix(), rec.Symbol, rec.Rows, rec.Accuracy, rec.Prediction, rec.UpProb,
	)
	return err
}

func (r *SQLiteRecorder) LoadAlertState(ctx context.Context) (model.AlertState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var state model.AlertState
	err := r.db.QueryRowContext(ctx, `SELECT last_sent_date FROM alert_state WHERE id = 1`).Scan(&state.LastSentDate)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AlertState{}, nil
	}
	if err != nil {
		return model.AlertState{}, fmt.Errorf("load alert state: %w", err)
	}
	return state, nil
}

// SaveAlertState stores the guard date. The stored date never moves backwards.
func (r *SQLiteRecorder) SaveAlertState(ctx context.Context, state model.AlertState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO alert_state (id, last_sent_date) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_sent_date = excluded.last_sent_date
		WHERE excluded.last_sent_date > alert_state.last_sent_date`,
		state.LastSentDate,
	)
	if err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}

// CountRows returns the number of rows in one of the history tables.
func (r *SQLiteRecorder) CountRows(ctx context.Context, table string) (int, error) {
	switch table {
	case "screen_cycles", "alerts", "training_runs":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
