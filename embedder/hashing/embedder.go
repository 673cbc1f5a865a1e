// Package hashing embeds text locally by hashing word features into a fixed
// number of buckets. It needs no model or network and is deterministic, which
// makes it the default for offline runs and tests.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/w-h-a/doclens/embedder"
)

const defaultDimensions = 512

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "was": {}, "what": {}, "which": {},
	"with": {}, "does": {}, "do": {}, "how": {}, "who": {},
}

type hashingEmbedder struct {
	options embedder.Options
}

func (e *hashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dims := e.options.Dimensions

	// the last bucket is a constant bias so no text maps to the zero vector
	vec := make([]float64, dims)
	vec[dims-1] = 0.01

	counts := map[string]int{}
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}

	for tok, n := range counts {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		bucket := int(sum % uint64(dims-1))
		weight := 1 + math.Log(float64(n))
		if sum&(1<<63) != 0 {
			weight = -weight
		}

		vec[bucket] += weight
	}

	out := make([]float32, dims)
	for i, v := range vec {
		out[i] = float32(v)
	}

	return embedder.Normalize(out), nil
}

// Tokenize lowercases text and returns its word tokens without stopwords.
func Tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)

	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, ok := stopwords[tok]; ok {
			continue
		}
		tokens = append(tokens, tok)
	}

	return tokens
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if options.Dimensions < 2 {
		options.Dimensions = defaultDimensions
	}

	return &hashingEmbedder{
		options: options,
	}
}
