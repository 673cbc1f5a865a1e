package lexical

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/index"
)

func fixture() []chunker.Passage {
	texts := []string{
		"The tenant shall pay rent on the first day of each month.",
		"The landlord may terminate the lease with sixty days written notice.",
		"Security deposits are returned within thirty days after move out.",
		"Pets are not permitted on the premises without written consent.",
	}

	out := make([]chunker.Passage, len(texts))
	for i, text := range texts {
		out[i] = chunker.Passage{Index: i, Text: text, Length: len(text)}
	}
	return out
}

func TestBuild_EmptyPassages(t *testing.T) {
	_, err := NewBuilder().Build(context.Background(), []chunker.Passage{})
	require.ErrorIs(t, err, index.ErrEmptyIndex)
}

func TestSearch_MatchesTerms(t *testing.T) {
	ctx := context.Background()

	idx, err := NewBuilder().Build(ctx, fixture())
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "terminate lease", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Passage.Index)
	assert.Greater(t, hits[0].Score, 0.0)
}

func TestSearch_SizeAndOrder(t *testing.T) {
	ctx := context.Background()
	ps := fixture()

	idx, err := NewBuilder().Build(ctx, ps)
	require.NoError(t, err)

	for k := 1; k <= 6; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			hits, err := idx.Search(ctx, "written?", k)
			require.NoError(t, err)
			assert.Len(t, hits, min(k, len(ps)))

			for i := 1; i < len(hits); i++ {
				assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
			}
		})
	}
}

func TestSearch_NoMatchesStillFillsK(t *testing.T) {
	ctx := context.Background()

	idx, err := NewBuilder().Build(ctx, fixture())
	require.NoError(t, err)

	hits, err := idx.Search(ctx, "zeppelin", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Passage.Index)
	assert.Equal(t, 1, hits[1].Passage.Index)
}

func TestSearch_InvalidK(t *testing.T) {
	idx, err := NewBuilder().Build(context.Background(), fixture())
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), "rent", -1)
	require.ErrorIs(t, err, index.ErrInvalidK)
}
