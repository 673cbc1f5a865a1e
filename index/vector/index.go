package vector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/embedder"
	"github.com/w-h-a/doclens/index"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const collectionName = "passages"

var tracer = otel.Tracer("github.com/w-h-a/doclens/index/vector")

type vectorIndex struct {
	embedder   embedder.Embedder
	collection *chromem.Collection
	passages   []chunker.Passage
}

func (i *vectorIndex) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	ctx, span := tracer.Start(ctx, "vector.Search")
	defer span.End()

	span.SetAttributes(attribute.Int("k", k))

	if err := index.Validate(ctx, query, k); err != nil {
		return nil, err
	}

	vec, err := i.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: embedding query: %w", index.ErrSearch, err)
	}

	// chromem requires nResults <= document count
	n := k
	if count := i.collection.Count(); n > count {
		n = count
	}

	results, err := i.collection.QueryEmbedding(ctx, embedder.Normalize(vec), n, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", index.ErrSearch, err)
	}

	hits := make([]index.Hit, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil || pos < 0 || pos >= len(i.passages) {
			return nil, fmt.Errorf("%w: unknown passage id %q", index.ErrSearch, r.ID)
		}
		hits = append(hits, index.Hit{
			Passage: i.passages[pos],
			Score:   float64(r.Similarity),
		})
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")

	return index.Rank(hits, k), nil
}

func (i *vectorIndex) Len() int {
	return len(i.passages)
}

type vectorBuilder struct {
	options  index.Options
	embedder embedder.Embedder
}

func (b *vectorBuilder) Build(ctx context.Context, passages []chunker.Passage) (index.Index, error) {
	ctx, span := tracer.Start(ctx, "vector.Build")
	defer span.End()

	span.SetAttributes(attribute.Int("passage_count", len(passages)))

	if len(passages) == 0 {
		return nil, index.ErrEmptyIndex
	}

	vectors := make([][]float32, len(passages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.options.Concurrency)

	for i, p := range passages {
		g.Go(func() error {
			vec, err := b.embedder.Embed(gctx, p.Text)
			if err != nil {
				return fmt.Errorf("passage %d: %w", p.Index, err)
			}
			vectors[i] = embedder.Normalize(vec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", index.ErrBuild, err)
	}

	db := chromem.NewDB()

	collection, err := db.CreateCollection(collectionName, nil, b.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", index.ErrBuild, err)
	}

	docs := make([]chromem.Document, len(passages))
	for i, p := range passages {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   p.Text,
			Embedding: vectors[i],
		}
	}

	if err := collection.AddDocuments(ctx, docs, b.options.Concurrency); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", index.ErrBuild, err)
	}

	owned := make([]chunker.Passage, len(passages))
	copy(owned, passages)

	b.options.Logger.DebugContext(ctx, "built vector index", "passages", len(owned))

	span.SetStatus(codes.Ok, "success")

	return &vectorIndex{
		embedder:   b.embedder,
		collection: collection,
		passages:   owned,
	}, nil
}

func (b *vectorBuilder) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := b.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return embedder.Normalize(vec), nil
	}
}

// NewBuilder returns a Builder that embeds passages with e and ranks them by
// cosine similarity.
func NewBuilder(e embedder.Embedder, opts ...index.Option) index.Builder {
	options := index.NewOptions(opts...)

	if options.Concurrency < 1 {
		options.Concurrency = 1
	}

	return &vectorBuilder{
		options:  options,
		embedder: e,
	}
}
