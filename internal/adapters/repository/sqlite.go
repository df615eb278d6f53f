package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/chase/internal/domain/form"
	"github.com/okian/chase/internal/domain/model"
	"github.com/okian/chase/pkg/logger"
)

const (
	defaultBatchSize     = 5000
	defaultBusyTimeoutMS = 5000
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS deliveries (
		match_id         TEXT    NOT NULL,
		match_date       TEXT    NOT NULL,
		innings          INTEGER NOT NULL,
		team             TEXT    NOT NULL,
		over_ball        TEXT    NOT NULL,
		overs_completed  REAL    NOT NULL,
		balls_elapsed    INTEGER NOT NULL,
		score_before     INTEGER NOT NULL,
		wickets_before   INTEGER NOT NULL,
		runs_in_ball     INTEGER NOT NULL,
		is_wicket        INTEGER NOT NULL,
		target           INTEGER,
		runs_required    INTEGER,
		balls_remaining  INTEGER,
		req_run_rate     REAL,
		current_run_rate REAL    NOT NULL,
		batsman          TEXT    NOT NULL,
		bowler           TEXT    NOT NULL,
		winner           TEXT    NOT NULL,
		PRIMARY KEY (match_id, innings, balls_elapsed)
	)`,
	`CREATE TABLE IF NOT EXISTS player_form (
		role       TEXT    NOT NULL,
		player     TEXT    NOT NULL,
		match_id   TEXT    NOT NULL,
		match_date TEXT    NOT NULL,
		seq        INTEGER NOT NULL,
		total      REAL    NOT NULL,
		form       REAL    NOT NULL,
		PRIMARY KEY (role, player, match_id)
	)`,
	`CREATE INDEX IF NOT EXISTS player_form_latest ON player_form (role, player, seq)`,
	`CREATE TABLE IF NOT EXISTS form_medians (
		role   TEXT PRIMARY KEY,
		median REAL NOT NULL
	)`,
}

// SQLiteStore is a Store backed by a single SQLite file.
type SQLiteStore struct {
	db            *sql.DB
	path          string
	batchSize     int
	busyTimeoutMS int
	log           logger.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		path:          path,
		batchSize:     defaultBatchSize,
		busyTimeoutMS: defaultBusyTimeoutMS,
		log:           logger.Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrStore, path, err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrStore, path, err)
	}
	s.db = db

	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Debug(ctx, "corpus store opened", logger.String("path", path))
	return s, nil
}

// Migrate applies pragmas and creates missing tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	stmts := append([]string{fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeoutMS)}, schema...)
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %w", ErrStore, err)
		}
	}
	return nil
}

const insertRow = `INSERT OR REPLACE INTO deliveries (
	match_id, match_date, innings, team, over_ball, overs_completed, balls_elapsed,
	score_before, wickets_before, runs_in_ball, is_wicket, target, runs_required,
	balls_remaining, req_run_rate, current_run_rate, batsman, bowler, winner
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// SaveRows upserts rows in batches, one transaction per batch. Rows already
// stored for other matches are kept.
func (s *SQLiteStore) SaveRows(ctx context.Context, rows []model.Row) error {
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		err := s.inTx(ctx, func(tx *sql.Tx) error {
			return insertRows(ctx, tx, rows[start:end])
		})
		if err != nil {
			return fmt.Errorf("%w: save rows: %w", ErrStore, err)
		}
	}
	return nil
}

// ReplaceRows swaps the stored corpus for rows in a single transaction.
func (s *SQLiteStore) ReplaceRows(ctx context.Context, rows []model.Row) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM deliveries`); err != nil {
			return err
		}
		return insertRows(ctx, tx, rows)
	})
	if err != nil {
		return fmt.Errorf("%w: replace rows: %w", ErrStore, err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, rows []model.Row) error {
	stmt, err := tx.PrepareContext(ctx, insertRow)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			r.MatchID, r.Date, r.Innings, r.Team, r.OverBall, r.OversCompleted, r.BallsElapsed,
			r.ScoreBefore, r.WicketsBefore, r.RunsInBall, r.IsWicket, nullInt(r.Target), nullInt(r.RunsRequired),
			nullInt(r.BallsRemaining), nullFloat(r.ReqRunRate), r.CurrentRunRate, r.Batsman, r.Bowler, r.Winner,
		); err != nil {
			return err
		}
	}
	return nil
}

// LoadRows returns every stored row in corpus order.
func (s *SQLiteStore) LoadRows(ctx context.Context) ([]model.Row, error) {
	rs, err := s.db.QueryContext(ctx, `SELECT
		match_id, match_date, innings, team, over_ball, overs_completed, balls_elapsed,
		score_before, wickets_before, runs_in_ball, is_wicket, target, runs_required,
		balls_remaining, req_run_rate, current_run_rate, batsman, bowler, winner
		FROM deliveries ORDER BY match_date, match_id, innings, balls_elapsed`)
	if err != nil {
		return nil, fmt.Errorf("%w: load rows: %w", ErrStore, err)
	}
	defer func() { _ = rs.Close() }()

	var out []model.Row
	for rs.Next() {
		var r model.Row
		var target, required, remaining sql.NullInt64
		var rrr sql.NullFloat64
		if err := rs.Scan(
			&r.MatchID, &r.Date, &r.Innings, &r.Team, &r.OverBall, &r.OversCompleted, &r.BallsElapsed,
			&r.ScoreBefore, &r.WicketsBefore, &r.RunsInBall, &r.IsWicket, &target, &required,
			&remaining, &rrr, &r.CurrentRunRate, &r.Batsman, &r.Bowler, &r.Winner,
		); err != nil {
			return nil, fmt.Errorf("%w: scan row: %w", ErrStore, err)
		}
		r.Target, r.RunsRequired, r.BallsRemaining = intPtr(target), intPtr(required), intPtr(remaining)
		if rrr.Valid {
			v := rrr.Float64
			r.ReqRunRate = &v
		}
		out = append(out, r)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("%w: load rows: %w", ErrStore, err)
	}
	return out, nil
}

// CountRows returns the number of stored rows.
func (s *SQLiteStore) CountRows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count rows: %w", ErrStore, err)
	}
	return n, nil
}

// SaveForms replaces the stored form table and medians.
func (s *SQLiteStore) SaveForms(ctx context.Context, t *form.Table) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM player_form`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM form_medians`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO player_form
			(role, player, match_id, match_date, seq, total, form) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, e := range t.Entries() {
			if _, err := stmt.ExecContext(ctx, string(e.Role), e.Player, e.MatchID, e.Date, e.Seq, e.Total, e.Form); err != nil {
				return err
			}
		}
		for _, role := range form.Roles {
			if _, err := tx.ExecContext(ctx, `INSERT INTO form_medians (role, median) VALUES (?, ?)`,
				string(role), t.Median(role)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save forms: %w", ErrStore, err)
	}
	return nil
}

// LoadForms rebuilds the immutable form table from storage.
func (s *SQLiteStore) LoadForms(ctx context.Context) (*form.Table, error) {
	medians := map[form.Role]float64{}
	mr, err := s.db.QueryContext(ctx, `SELECT role, median FROM form_medians`)
	if err != nil {
		return nil, fmt.Errorf("%w: load medians: %w", ErrStore, err)
	}
	for mr.Next() {
		var role string
		var m float64
		if err := mr.Scan(&role, &m); err != nil {
			_ = mr.Close()
			return nil, fmt.Errorf("%w: scan median: %w", ErrStore, err)
		}
		medians[form.Role(role)] = m
	}
	_ = mr.Close()
	if err := mr.Err(); err != nil {
		return nil, fmt.Errorf("%w: load medians: %w", ErrStore, err)
	}
	if len(medians) == 0 {
		return nil, ErrNoForms
	}

	rs, err := s.db.QueryContext(ctx, `SELECT role, player, match_id, match_date, seq, total, form
		FROM player_form ORDER BY role, player, seq`)
	if err != nil {
		return nil, fmt.Errorf("%w: load forms: %w", ErrStore, err)
	}
	defer func() { _ = rs.Close() }()

	var entries []form.Entry
	for rs.Next() {
		var e form.Entry
		var role string
		if err := rs.Scan(&role, &e.Player, &e.MatchID, &e.Date, &e.Seq, &e.Total, &e.Form); err != nil {
			return nil, fmt.Errorf("%w: scan form: %w", ErrStore, err)
		}
		e.Role = form.Role(role)
		entries = append(entries, e)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("%w: load forms: %w", ErrStore, err)
	}
	return form.FromEntries(entries, medians), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

var _ Store = (*SQLiteStore)(nil)
