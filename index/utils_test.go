package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/chunker"
)

func TestValidate(t *testing.T) {
	ctx := context.Background()

	require.ErrorIs(t, Validate(ctx, "q", 0), ErrInvalidK)
	require.ErrorIs(t, Validate(ctx, "q", -3), ErrInvalidK)
	require.ErrorIs(t, Validate(ctx, "  ", 3), ErrEmptyQuery)
	require.NoError(t, Validate(ctx, "q", 1))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	require.ErrorIs(t, Validate(canceled, "q", 1), context.Canceled)
}

func TestRank(t *testing.T) {
	hits := []Hit{
		{Passage: chunker.Passage{Index: 2}, Score: 0.5},
		{Passage: chunker.Passage{Index: 0}, Score: 0.9},
		{Passage: chunker.Passage{Index: 1}, Score: 0.5},
		{Passage: chunker.Passage{Index: 3}, Score: 0.1},
	}

	ranked := Rank(hits, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, 0, ranked[0].Passage.Index)
	assert.Equal(t, 1, ranked[1].Passage.Index)
	assert.Equal(t, 2, ranked[2].Passage.Index)
}
