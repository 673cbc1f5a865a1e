package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("clause one\n\nclause two", "What is clause two?")
	assert.Equal(t, "Document context:\nclause one\n\nclause two\n\nQuestion: What is clause two?", got)
}

func TestParsePrompt(t *testing.T) {
	ctx, q := ParsePrompt(BuildPrompt("clause one\n\nclause two", "What is clause two?"))
	assert.Equal(t, "clause one\n\nclause two", ctx)
	assert.Equal(t, "What is clause two?", q)

	ctx, q = ParsePrompt("free form text")
	assert.Equal(t, "free form text", ctx)
	assert.Empty(t, q)
}
