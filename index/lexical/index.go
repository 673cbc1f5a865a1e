// Package lexical ranks passages with BM25 term scoring. It needs no
// embedding provider.
package lexical

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve"
	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/index"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const textField = "text"

var tracer = otel.Tracer("github.com/w-h-a/doclens/index/lexical")

type lexicalIndex struct {
	bleve    bleve.Index
	passages []chunker.Passage
}

func (i *lexicalIndex) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	ctx, span := tracer.Start(ctx, "lexical.Search")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if err := index.Validate(ctx, query, k); err != nil {
		return nil, err
	}

	n := min(k, len(i.passages))

	q := bleve.NewMatchQuery(query)
	q.SetField(textField)

	req := bleve.NewSearchRequestOptions(q, n, 0, false)

	res, err := i.bleve.SearchInContext(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", index.ErrSearch, err)
	}

	hits := make([]index.Hit, 0, n)
	seen := make(map[int]struct{}, n)

	for _, h := range res.Hits {
		pos, err := strconv.Atoi(h.ID)
		if err != nil || pos < 0 || pos >= len(i.passages) {
			return nil, fmt.Errorf("%w: unknown passage id %q", index.ErrSearch, h.ID)
		}
		seen[pos] = struct{}{}
		hits = append(hits, index.Hit{
			Passage: i.passages[pos],
			Score:   h.Score,
		})
	}

	// unmatched passages fill the remainder in document order
	for pos := 0; len(hits) < n && pos < len(i.passages); pos++ {
		if _, ok := seen[pos]; ok {
			continue
		}
		hits = append(hits, index.Hit{Passage: i.passages[pos]})
	}

	span.SetAttributes(attribute.Int("matched_count", len(res.Hits)))
	span.SetStatus(codes.Ok, "success")

	return index.Rank(hits, k), nil
}

func (i *lexicalIndex) Len() int {
	return len(i.passages)
}

type lexicalBuilder struct {
	options index.Options
}

func (b *lexicalBuilder) Build(ctx context.Context, passages []chunker.Passage) (index.Index, error) {
	ctx, span := tracer.Start(ctx, "lexical.Build")
	defer span.End()

	span.SetAttributes(attribute.Int("passage_count", len(passages)))

	if len(passages) == 0 {
		return nil, index.ErrEmptyIndex
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrBuild, err)
	}

	batch := idx.NewBatch()
	for i, p := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := batch.Index(strconv.Itoa(i), map[string]any{textField: p.Text}); err != nil {
			return nil, fmt.Errorf("%w: %w", index.ErrBuild, err)
		}
	}

	if err := idx.Batch(batch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", index.ErrBuild, err)
	}

	owned := make([]chunker.Passage, len(passages))
	copy(owned, passages)

	b.options.Logger.DebugContext(ctx, "built lexical index", "passages", len(owned))

	span.SetStatus(codes.Ok, "success")

	return &lexicalIndex{
		bleve:    idx,
		passages: owned,
	}, nil
}

func NewBuilder(opts ...index.Option) index.Builder {
	options := index.NewOptions(opts...)

	return &lexicalBuilder{
		options: options,
	}
}
