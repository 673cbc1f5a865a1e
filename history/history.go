package history

import (
	"context"
	"errors"
	"time"
)

var ErrUnsupported = errors.New("operation not supported by this recorder")

const PreviewLength = 10000

type Document struct {
	ID         string    `json:"id"`
	Owner      string    `json:"-"`
	Class      string    `json:"caller_class"`
	Name       string    `json:"display_name"`
	Pages      int       `json:"pages"`
	Passages   int       `json:"passages"`
	Method     string    `json:"processing_method"`
	Size       int64     `json:"size_bytes"`
	TextLength int       `json:"text_length"`
	Preview    string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type Query struct {
	ID           string        `json:"id"`
	DocumentID   string        `json:"document_id"`
	Owner        string        `json:"-"`
	Question     string        `json:"question"`
	Answer       string        `json:"answer"`
	ResponseTime time.Duration `json:"-"`
	Score        float64       `json:"score,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Preview returns at most PreviewLength runes of text.
func Preview(text string) string {
	n := 0
	for i := range text {
		if n == PreviewLength {
			return text[:i]
		}
		n++
	}
	return text
}

// Recorder keeps document and question history beyond the life of a
// session. Callers treat failures as non-fatal.
type Recorder interface {
	SaveDocument(ctx context.Context, doc Document) error
	SaveQuery(ctx context.Context, q Query) error
	ListDocuments(ctx context.Context, owner string, limit int) ([]Document, error)
	// ListQueries and SimilarQueries only return the owner's questions; the
	// limit applies after that filter.
	ListQueries(ctx context.Context, documentID string, owner string, limit int) ([]Query, error)
	SimilarQueries(ctx context.Context, documentID string, owner string, text string, limit int) ([]Query, error)
}
