package index

import (
	"context"
	"sort"
	"strings"
)

// Validate checks the arguments every Search implementation shares.
func Validate(ctx context.Context, query string, k int) error {
	if k <= 0 {
		return ErrInvalidK
	}

	if len(strings.TrimSpace(query)) == 0 {
		return ErrEmptyQuery
	}

	return ctx.Err()
}

// Rank orders hits by descending score, breaking ties by passage order, and
// keeps at most k of them.
func Rank(hits []Hit, k int) []Hit {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Passage.Index < hits[j].Passage.Index
		}
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	return hits
}
