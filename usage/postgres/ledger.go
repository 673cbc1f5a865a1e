package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/w-h-a/doclens/internal/pgconn"
	"github.com/w-h-a/doclens/usage"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS usage_sources (
		source     TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS usage_records (
		id          UUID PRIMARY KEY,
		source      TEXT NOT NULL REFERENCES usage_sources (source),
		class       TEXT NOT NULL,
		session_id  TEXT NOT NULL DEFAULT '',
		admitted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_records_source_admitted
		ON usage_records (source, admitted_at)`,
}

type postgresLedger struct {
	options usage.Options
	conn    *sql.DB
}

func (l *postgresLedger) Admit(ctx context.Context, req usage.AdmitRequest) (usage.Decision, error) {
	if err := req.Validate(); err != nil {
		return usage.Decision{}, err
	}

	tx, err := l.conn.BeginTx(ctx, nil)
	if err != nil {
		return usage.Decision{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO usage_sources (source) VALUES ($1) ON CONFLICT (source) DO NOTHING`,
		req.Source,
	); err != nil {
		return usage.Decision{}, fmt.Errorf("upsert usage source: %w", err)
	}

	// the row lock serializes admissions for one source
	var locked string
	if err := tx.QueryRowContext(
		ctx,
		`SELECT source FROM usage_sources WHERE source = $1 FOR UPDATE`,
		req.Source,
	).Scan(&locked); err != nil {
		return usage.Decision{}, fmt.Errorf("lock usage source: %w", err)
	}

	var before int
	if err := tx.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM usage_records WHERE source = $1 AND admitted_at >= $2 AND admitted_at < $3`,
		req.Source, req.WindowStart.UTC(), req.WindowEnd.UTC(),
	).Scan(&before); err != nil {
		return usage.Decision{}, fmt.Errorf("count usage: %w", err)
	}

	decision := usage.Decide(req, before)
	if !decision.Admitted {
		return decision, nil
	}

	rec := decision.Record
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO usage_records (id, source, class, session_id, admitted_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Source, rec.Class, rec.SessionID, rec.AdmittedAt,
	); err != nil {
		return usage.Decision{}, fmt.Errorf("insert usage record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return usage.Decision{}, err
	}

	return decision, nil
}

func (l *postgresLedger) Count(ctx context.Context, source string, from time.Time, to time.Time) (int, error) {
	var n int
	if err := l.conn.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM usage_records WHERE source = $1 AND admitted_at >= $2 AND admitted_at < $3`,
		source, from.UTC(), to.UTC(),
	).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (l *postgresLedger) Close() error {
	return l.conn.Close()
}

func NewLedger(opts ...usage.Option) usage.Ledger {
	options := usage.NewOptions(opts...)

	return &postgresLedger{
		options: options,
		conn:    pgconn.Open(options.Context, options.Location, schema...),
	}
}
