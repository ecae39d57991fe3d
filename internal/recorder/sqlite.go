package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const asOfLayout = "2006-01-02"

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL so the HTTP server can read history while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL UNIQUE,
			source       TEXT,
			status       TEXT NOT NULL,
			error        TEXT,
			as_of        TEXT,
			rows_fetched INTEGER,
			instruments  INTEGER,
			records      INTEGER,
			excluded     INTEGER,
			started_at   INTEGER NOT NULL,
			finished_at  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS run_records (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			as_of           TEXT NOT NULL,
			position        INTEGER NOT NULL,
			code            TEXT NOT NULL,
			title           TEXT,
			category        TEXT,
			price           REAL,
			daily_change    REAL,
			return_7d       REAL,
			return_30d      REAL,
			return_90d      REAL,
			return_ytd      REAL,
			risk_tier       INTEGER,
			signal          TEXT,
			investors       INTEGER,
			portfolio_value REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_records_run ON run_records(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_records_code ON run_records(code, as_of)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run row and, for successful runs, one row per ranked
// fund. Both land in a single transaction.
func (r *SQLiteRecorder) RecordRun(rec *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	asOf := ""
	if !rec.AsOf.IsZero() {
		asOf = rec.AsOf.Format(asOfLayout)
	}

	_, err = tx.Exec(`INSERT INTO runs
		(run_id, source, status, error, as_of, rows_fetched, instruments, records, excluded, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Source, rec.Status, rec.Error, asOf,
		rec.RowsFetched, rec.Instruments, rec.Records, rec.Excluded,
		rec.StartedAt.Unix(), rec.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if rec.Snapshot != nil {
		stmt, err := tx.Prepare(`INSERT INTO run_records
			(run_id, as_of, position, code, title, category, price, daily_change,
			 return_7d, return_30d, return_90d, return_ytd,
			 risk_tier, signal, investors, portfolio_value)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return fmt.Errorf("prepare run_records: %w", err)
		}
		defer stmt.Close()

		for i, m := range rec.Snapshot.Records {
			_, err := stmt.Exec(
				rec.RunID, rec.Snapshot.AsOf.String(), i+1, m.Code, m.Title, string(m.Category),
				m.LatestPrice, nullable(m.DailyChangePct),
				nullable(m.Return7dPct), nullable(m.Return30dPct), nullable(m.Return90dPct), nullable(m.ReturnYTDPct),
				m.RiskTier, string(m.Signal), m.InvestorCount, m.PortfolioValue,
			)
			if err != nil {
				return fmt.Errorf("insert record %s: %w", m.Code, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.log.Debug().Str("run_id", rec.RunID).Str("status", rec.Status).Int("records", rec.Records).Msg("run recorded")
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT run_id, source, status, error, as_of,
		rows_fetched, instruments, records, excluded, started_at, finished_at
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec               RunRecord
			source, errText   sql.NullString
			asOf              sql.NullString
			started, finished int64
		)
		if err := rows.Scan(&rec.RunID, &source, &rec.Status, &errText, &asOf,
			&rec.RowsFetched, &rec.Instruments, &rec.Records, &rec.Excluded,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.Source = source.String
		rec.Error = errText.String
		if asOf.String != "" {
			if t, err := time.Parse(asOfLayout, asOf.String); err == nil {
				rec.AsOf = t
			}
		}
		rec.StartedAt = time.Unix(started, 0).UTC()
		rec.FinishedAt = time.Unix(finished, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
