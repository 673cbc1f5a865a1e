package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/w-h-a/doclens/history"
	"github.com/w-h-a/doclens/internal/pgconn"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS documents (
		id                TEXT PRIMARY KEY,
		owner             TEXT NOT NULL,
		class             TEXT NOT NULL,
		name              TEXT NOT NULL,
		pages             INTEGER NOT NULL DEFAULT 0,
		passages          INTEGER NOT NULL DEFAULT 0,
		processing_method TEXT NOT NULL DEFAULT '',
		size_bytes        BIGINT NOT NULL DEFAULT 0,
		text_length       INTEGER NOT NULL DEFAULT 0,
		preview           TEXT NOT NULL DEFAULT '',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_owner_created ON documents (owner, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS queries (
		id               UUID PRIMARY KEY,
		document_id      TEXT NOT NULL,
		owner            TEXT NOT NULL,
		question         TEXT NOT NULL,
		answer           TEXT NOT NULL,
		response_time_ms BIGINT NOT NULL DEFAULT 0,
		embedding        vector,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_queries_document_owner_created ON queries (document_id, owner, created_at DESC)`,
}

type postgresRecorder struct {
	options history.Options
	conn    *sql.DB
}

func (p *postgresRecorder) SaveDocument(ctx context.Context, doc history.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO documents (
			id,
			owner,
			class,
			name,
			pages,
			passages,
			processing_method,
			size_bytes,
			text_length,
			preview,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.conn.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.Owner,
		doc.Class,
		doc.Name,
		doc.Pages,
		doc.Passages,
		doc.Method,
		doc.Size,
		doc.TextLength,
		doc.Preview,
		doc.CreatedAt,
	)

	return err
}

func (p *postgresRecorder) SaveQuery(ctx context.Context, q history.Query) error {
	if len(q.ID) == 0 {
		q.ID = uuid.New().String()
	}

	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	var embedding any
	if p.options.Embedder != nil {
		vec, err := p.options.Embedder.Embed(ctx, q.Question)
		if err != nil {
			return fmt.Errorf("embed question: %w", err)
		}
		embedding = pgvector.NewVector(vec)
	}

	query := `
		INSERT INTO queries (
			id,
			document_id,
			owner,
			question,
			answer,
			response_time_ms,
			embedding,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := p.conn.ExecContext(
		ctx,
		query,
		q.ID,
		q.DocumentID,
		q.Owner,
		q.Question,
		q.Answer,
		q.ResponseTime.Milliseconds(),
		embedding,
		q.CreatedAt,
	)

	return err
}

func (p *postgresRecorder) ListDocuments(ctx context.Context, owner string, limit int) ([]history.Document, error) {
	if limit < 1 {
		limit = 100
	}

	query := `
		SELECT
			id,
			owner,
			class,
			name,
			pages,
			passages,
			processing_method,
			size_bytes,
			text_length,
			created_at
		FROM documents
		WHERE owner = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := p.conn.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []history.Document

	for rows.Next() {
		var doc history.Document

		if err := rows.Scan(
			&doc.ID,
			&doc.Owner,
			&doc.Class,
			&doc.Name,
			&doc.Pages,
			&doc.Passages,
			&doc.Method,
			&doc.Size,
			&doc.TextLength,
			&doc.CreatedAt,
		); err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (p *postgresRecorder) ListQueries(ctx context.Context, documentID string, owner string, limit int) ([]history.Query, error) {
	if limit < 1 {
		limit = 100
	}

	query := `
		SELECT
			id,
			document_id,
			owner,
			question,
			answer,
			response_time_ms,
			0::float8 AS score,
			created_at
		FROM queries
		WHERE document_id = $1 AND owner = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := p.conn.QueryContext(ctx, query, documentID, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQueries(rows)
}

func (p *postgresRecorder) SimilarQueries(ctx context.Context, documentID string, owner string, text string, limit int) ([]history.Query, error) {
	if p.options.Embedder == nil {
		return nil, history.ErrUnsupported
	}

	if limit < 1 {
		return nil, nil
	}

	vec, err := p.options.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	query := `
		SELECT
			id,
			document_id,
			owner,
			question,
			answer,
			response_time_ms,
			1 - (embedding <=> $3) AS score,
			created_at
		FROM queries
		WHERE document_id = $1 AND owner = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $3
		LIMIT $4
	`

	rows, err := p.conn.QueryContext(ctx, query, documentID, owner, pgvector.NewVector(vec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQueries(rows)
}

func scanQueries(rows *sql.Rows) ([]history.Query, error) {
	var queries []history.Query

	for rows.Next() {
		var q history.Query
		var ms int64

		if err := rows.Scan(
			&q.ID,
			&q.DocumentID,
			&q.Owner,
			&q.Question,
			&q.Answer,
			&ms,
			&q.Score,
			&q.CreatedAt,
		); err != nil {
			return nil, err
		}

		q.ResponseTime = time.Duration(ms) * time.Millisecond

		queries = append(queries, q)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return queries, nil
}

func NewRecorder(opts ...history.Option) history.Recorder {
	options := history.NewOptions(opts...)

	return &postgresRecorder{
		options: options,
		conn:    pgconn.Open(options.Context, options.Location, schema...),
	}
}
