package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/doclens/embedder"
	"github.com/w-h-a/doclens/history"
)

type storedQuery struct {
	query  history.Query
	vector []float32
}

type memoryRecorder struct {
	options   history.Options
	documents []history.Document
	queries   []storedQuery
	mtx       sync.RWMutex
}

func (r *memoryRecorder) SaveDocument(ctx context.Context, doc history.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.documents = append(r.documents, doc)
	if over := len(r.documents) - r.options.Capacity; over > 0 {
		r.documents = slices.Delete(r.documents, 0, over)
	}

	return nil
}

func (r *memoryRecorder) SaveQuery(ctx context.Context, q history.Query) error {
	if len(q.ID) == 0 {
		q.ID = uuid.New().String()
	}

	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}

	var vec []float32
	if r.options.Embedder != nil {
		var err error
		vec, err = r.options.Embedder.Embed(ctx, q.Question)
		if err != nil {
			return fmt.Errorf("embed question: %w", err)
		}
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.queries = append(r.queries, storedQuery{query: q, vector: vec})
	if over := len(r.queries) - r.options.Capacity; over > 0 {
		r.queries = slices.Delete(r.queries, 0, over)
	}

	return nil
}

func (r *memoryRecorder) ListDocuments(ctx context.Context, owner string, limit int) ([]history.Document, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	var out []history.Document
	for i := len(r.documents) - 1; i >= 0 && (limit < 1 || len(out) < limit); i-- {
		if r.documents[i].Owner == owner {
			out = append(out, r.documents[i])
		}
	}

	return out, nil
}

func (r *memoryRecorder) ListQueries(ctx context.Context, documentID string, owner string, limit int) ([]history.Query, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	var out []history.Query
	for i := len(r.queries) - 1; i >= 0 && (limit < 1 || len(out) < limit); i-- {
		if q := r.queries[i].query; q.DocumentID == documentID && q.Owner == owner {
			out = append(out, q)
		}
	}

	return out, nil
}

func (r *memoryRecorder) SimilarQueries(ctx context.Context, documentID string, owner string, text string, limit int) ([]history.Query, error) {
	if r.options.Embedder == nil {
		return nil, history.ErrUnsupported
	}

	if limit < 1 {
		return nil, nil
	}

	vec, err := r.options.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	r.mtx.RLock()
	defer r.mtx.RUnlock()

	candidates := make([]history.Query, 0, len(r.queries))
	for _, sq := range r.queries {
		if sq.query.DocumentID != documentID || sq.query.Owner != owner || len(sq.vector) == 0 {
			continue
		}
		q := sq.query
		q.Score = embedder.CosineSimilarity(vec, sq.vector)
		candidates = append(candidates, q)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return candidates, nil
}

func NewRecorder(opts ...history.Option) history.Recorder {
	options := history.NewOptions(opts...)

	if options.Capacity < 1 {
		options.Capacity = history.DefaultCapacity
	}

	return &memoryRecorder{
		options: options,
	}
}
