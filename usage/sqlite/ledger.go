package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/w-h-a/doclens/usage"
)

const memoryLocation = ":memory:"

type sqliteLedger struct {
	options usage.Options
	db      *sql.DB
}

func (l *sqliteLedger) Admit(ctx context.Context, req usage.AdmitRequest) (usage.Decision, error) {
	if err := req.Validate(); err != nil {
		return usage.Decision{}, err
	}

	// _txlock=immediate takes the write lock at BEGIN so concurrent admits
	// for the same source serialize on the count
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return usage.Decision{}, fmt.Errorf("begin admission: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var before int
	if err := tx.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM usage_records WHERE source = ? AND admitted_at >= ? AND admitted_at < ?`,
		req.Source, req.WindowStart.UnixNano(), req.WindowEnd.UnixNano(),
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
		`INSERT INTO usage_records (id, source, class, session_id, admitted_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.Class, rec.SessionID, rec.AdmittedAt.UnixNano(),
	); err != nil {
		return usage.Decision{}, fmt.Errorf("insert usage record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return usage.Decision{}, fmt.Errorf("commit admission: %w", err)
	}

	return decision, nil
}

func (l *sqliteLedger) Count(ctx context.Context, source string, from time.Time, to time.Time) (int, error) {
	var n int
	if err := l.db.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM usage_records WHERE source = ? AND admitted_at >= ? AND admitted_at < ?`,
		source, from.UnixNano(), to.UnixNano(),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usage: %w", err)
	}
	return n, nil
}

func (l *sqliteLedger) Close() error {
	return l.db.Close()
}

func dsn(location string) string {
	params := "_txlock=immediate&_busy_timeout=10000"
	if location != memoryLocation {
		params += "&_journal_mode=WAL"
	}

	if strings.Contains(location, "?") {
		return location + "&" + params
	}

	return location + "?" + params
}

func NewLedger(opts ...usage.Option) usage.Ledger {
	options := usage.NewOptions(opts...)

	if len(options.Location) == 0 {
		options.Location = memoryLocation
	}

	l := &sqliteLedger{
		options: options,
	}

	db, err := sql.Open("sqlite3", dsn(options.Location))
	if err != nil {
		detail := "failed to open sqlite usage ledger"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	// every connection to :memory: is a separate database
	if strings.HasPrefix(options.Location, memoryLocation) {
		db.SetMaxOpenConns(1)
	}

	if err := newMigrationRunner(db).Run(); err != nil {
		detail := "failed to migrate sqlite usage ledger"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	l.db = db

	return l
}
