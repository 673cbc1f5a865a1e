package extractive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/w-h-a/doclens/generator"
)

func TestGenerate_QuotesMatchingSentences(t *testing.T) {
	g := NewGenerator()

	prompt := generator.BuildPrompt(
		"The tenant pays rent on the first day. Pets are not allowed.\n\nThe lease terminates after twelve months.",
		"When does the lease terminate?",
	)

	answer, err := g.Generate(context.Background(), "system", prompt)
	require.NoError(t, err)
	assert.Equal(t, "The lease terminates after twelve months.", answer)
}

func TestGenerate_KeepsDocumentOrder(t *testing.T) {
	g := NewGenerator()

	prompt := generator.BuildPrompt(
		"Rent is due monthly. Parking is free. Late rent incurs a fee.",
		"What about rent?",
	)

	answer, err := g.Generate(context.Background(), "", prompt)
	require.NoError(t, err)
	assert.Equal(t, "Rent is due monthly. Late rent incurs a fee.", answer)
}

func TestGenerate_NoOverlapFallsBackToFirstSentence(t *testing.T) {
	answer, err := NewGenerator().Generate(context.Background(), "", generator.BuildPrompt("Alpha clause. Beta clause.", "zebra?"))
	require.NoError(t, err)
	assert.Equal(t, "Alpha clause.", answer)
}

func TestGenerate_EmptyContext(t *testing.T) {
	_, err := NewGenerator().Generate(context.Background(), "", generator.BuildPrompt("  ", "anything"))
	require.Error(t, err)
}
