// Package extractive answers from the supplied context alone by quoting the
// sentences that share the most terms with the question. It runs without a
// model and is used for local runs and tests.
package extractive

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/w-h-a/doclens/embedder/hashing"
	"github.com/w-h-a/doclens/generator"
)

const maxSentences = 3

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)

type scored struct {
	pos   int
	text  string
	score int
}

type extractiveGenerator struct {
	options generator.Options
}

func (g *extractiveGenerator) Generate(ctx context.Context, system string, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	body, question := generator.ParsePrompt(prompt)

	var sentences []scored
	for i, s := range sentencePattern.FindAllString(body, -1) {
		s = strings.TrimSpace(s)
		if len(s) == 0 {
			continue
		}
		sentences = append(sentences, scored{pos: i, text: s})
	}

	if len(sentences) == 0 {
		return "", errors.New("no response from extractive generator")
	}

	terms := map[string]struct{}{}
	for _, tok := range hashing.Tokenize(question) {
		terms[tok] = struct{}{}
	}

	for i := range sentences {
		seen := map[string]struct{}{}
		for _, tok := range hashing.Tokenize(sentences[i].text) {
			if _, ok := terms[tok]; !ok {
				continue
			}
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			sentences[i].score++
		}
	}

	ranked := append([]scored(nil), sentences...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if ranked[0].score == 0 {
		return sentences[0].text, nil
	}

	picked := make([]scored, 0, maxSentences)
	for _, s := range ranked {
		if s.score == 0 || len(picked) == maxSentences {
			break
		}
		picked = append(picked, s)
	}

	sort.Slice(picked, func(i, j int) bool {
		return picked[i].pos < picked[j].pos
	})

	parts := make([]string, len(picked))
	for i, s := range picked {
		parts[i] = s.text
	}

	return strings.Join(parts, " "), nil
}

func NewGenerator(opts ...generator.Option) generator.Generator {
	options := generator.NewOptions(opts...)

	return &extractiveGenerator{
		options: options,
	}
}
