package query

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/generator"
	"github.com/w-h-a/doclens/index"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/session"
)

type countingIndex struct {
	hits  []index.Hit
	err   error
	calls atomic.Int32
}

func (i *countingIndex) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	i.calls.Add(1)
	if i.err != nil {
		return nil, i.err
	}
	return index.Rank(append([]index.Hit(nil), i.hits...), k), nil
}

func (i *countingIndex) Len() int { return len(i.hits) }

type countingGenerator struct {
	answer string
	err    error
	calls  atomic.Int32
	system string
	prompt string
}

func (g *countingGenerator) Generate(ctx context.Context, system string, prompt string) (string, error) {
	g.calls.Add(1)
	g.system = system
	g.prompt = prompt
	return g.answer, g.err
}

func hit(i int, text string, score float64) index.Hit {
	return index.Hit{Passage: chunker.Passage{Index: i, Text: text, Length: len(text)}, Score: score}
}

func sessionWith(idx index.Index) *session.Session {
	return &session.Session{ID: "s-1", Index: idx, Class: session.ClassGuest, Owner: "addr:198.51.100.4"}
}

func TestAnswer_ContextOrderAndPrompt(t *testing.T) {
	idx := &countingIndex{hits: []index.Hit{
		hit(0, "Rent is due monthly.", 0.2),
		hit(1, "Either party may terminate with notice.", 0.9),
		hit(2, "Pets are not allowed.", 0.5),
	}}
	gen := &countingGenerator{answer: "  Sixty days notice is required.  "}
	p := NewPipeline(gen)

	ans, err := p.Answer(context.Background(), sessionWith(idx), "  How do I terminate?  ", 2)
	require.NoError(t, err)

	assert.Equal(t, "Sixty days notice is required.", ans.Text)
	require.Len(t, ans.Passages, 2)
	assert.Equal(t, 1, ans.Passages[0].Passage.Index)
	assert.Equal(t, 2, ans.Passages[1].Passage.Index)

	ctxText, question := generator.ParsePrompt(gen.prompt)
	assert.Equal(t, "Either party may terminate with notice.\n\nPets are not allowed.", ctxText)
	assert.Equal(t, "How do I terminate?", question)
	assert.Equal(t, SystemInstruction, gen.system)
}

func TestAnswer_InvalidQuestionSkipsRetrieval(t *testing.T) {
	idx := &countingIndex{hits: []index.Hit{hit(0, "text", 1)}}
	gen := &countingGenerator{answer: "never"}
	p := NewPipeline(gen)

	for _, q := range []string{"", "   \n\t", strings.Repeat("a", 600)} {
		_, err := p.Answer(context.Background(), sessionWith(idx), q, 3)
		require.ErrorIs(t, err, service.ErrInvalidInput)
	}

	assert.Zero(t, idx.calls.Load())
	assert.Zero(t, gen.calls.Load())
}

func TestAnswer_LengthCountsRunes(t *testing.T) {
	idx := &countingIndex{hits: []index.Hit{hit(0, "text", 1)}}
	p := NewPipeline(&countingGenerator{answer: "ok"})

	// 500 multi-byte runes is within the limit
	_, err := p.Answer(context.Background(), sessionWith(idx), strings.Repeat("é", 500), 1)
	require.NoError(t, err)

	_, err = p.Answer(context.Background(), sessionWith(idx), strings.Repeat("é", 501), 1)
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAnswer_RetrievalError(t *testing.T) {
	idx := &countingIndex{err: errors.New("embedding timeout")}
	gen := &countingGenerator{answer: "never"}

	_, err := NewPipeline(gen).Answer(context.Background(), sessionWith(idx), "what is the rent?", 3)
	require.ErrorIs(t, err, service.ErrRetrieval)
	assert.Zero(t, gen.calls.Load())
}

func TestAnswer_SynthesisError(t *testing.T) {
	idx := &countingIndex{hits: []index.Hit{hit(0, "Rent is due monthly.", 1)}}

	tests := []struct {
		name string
		gen  *countingGenerator
	}{
		{"adapter error", &countingGenerator{err: errors.New("upstream 503")}},
		{"blank output", &countingGenerator{answer: " \n "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPipeline(tt.gen).Answer(context.Background(), sessionWith(idx), "what is the rent?", 3)
			require.ErrorIs(t, err, service.ErrSynthesis)
			assert.EqualValues(t, 1, tt.gen.calls.Load())
		})
	}
}
