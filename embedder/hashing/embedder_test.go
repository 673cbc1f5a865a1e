package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/embedder"
)

func TestEmbed_Deterministic(t *testing.T) {
	e := NewEmbedder()

	a, err := e.Embed(context.Background(), "Termination requires written notice.")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Termination requires written notice.")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, defaultDimensions)
}

func TestEmbed_UnitLengthAndNeverZero(t *testing.T) {
	e := NewEmbedder(embedder.WithDimensions(64))

	for _, text := range []string{"", "   ", "the of and", "indemnification clause"} {
		vec, err := e.Embed(context.Background(), text)
		require.NoError(t, err)

		var sum float64
		for _, x := range vec {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5, "text %q", text)
	}
}

func TestEmbed_SharedTermsScoreHigher(t *testing.T) {
	e := NewEmbedder()
	ctx := context.Background()

	query, err := e.Embed(ctx, "When may the landlord terminate the lease?")
	require.NoError(t, err)
	related, err := e.Embed(ctx, "The landlord may terminate the lease after sixty days notice.")
	require.NoError(t, err)
	unrelated, err := e.Embed(ctx, "Shipping costs are borne by the buyer.")
	require.NoError(t, err)

	assert.Greater(t, embedder.CosineSimilarity(query, related), embedder.CosineSimilarity(query, unrelated))
}

func TestEmbed_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEmbedder().Embed(ctx, "text")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"lessee", "shall", "pay", "rent", "2024"}, Tokenize("The Lessee shall pay the rent in 2024."))
}
