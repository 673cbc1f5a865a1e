package doclens

import (
	"context"
	"errors"

	"github.com/w-h-a/doclens/history"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/admission"
	"github.com/w-h-a/doclens/internal/service/ingest"
	"github.com/w-h-a/doclens/internal/service/query"
	"github.com/w-h-a/doclens/internal/service/session"
	"github.com/w-h-a/doclens/usage"
)

const defaultHistoryLimit = 20

type Lens struct {
	ingest    *ingest.Service
	query     *query.Service
	admission *admission.Service
	store     session.Store
	ledger    usage.Ledger
	recorder  history.Recorder
}

func (l *Lens) Upload(ctx context.Context, caller service.Caller, name string, data []byte) (ingest.Result, error) {
	return l.ingest.Ingest(ctx, caller, ingest.Upload{Name: name, Data: data})
}

func (l *Lens) Seed(ctx context.Context, name string, data []byte) (ingest.Result, error) {
	return l.ingest.Seed(ctx, ingest.Upload{Name: name, Data: data})
}

func (l *Lens) Ask(ctx context.Context, caller service.Caller, sessionID string, question string) (query.Answer, error) {
	return l.query.Ask(ctx, caller, sessionID, question)
}

func (l *Lens) Document(ctx context.Context, sessionID string) (*session.Session, error) {
	return l.query.Lookup(ctx, sessionID)
}

// View returns the document text to callers allowed to read it in full:
// anyone for demo documents, the uploader otherwise.
func (l *Lens) View(ctx context.Context, caller service.Caller, sessionID string) (*session.Session, error) {
	sess, err := l.query.Lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !CanView(caller, sess) {
		return nil, service.NewError(service.ErrForbidden, "document text is not available to this caller", nil)
	}

	return sess, nil
}

func CanView(caller service.Caller, sess *session.Session) bool {
	return sess.Viewable || caller.Owns(sess)
}

func (l *Lens) Documents(ctx context.Context, caller service.Caller, limit int) ([]history.Document, error) {
	if caller.Class() != session.ClassMember {
		return nil, service.NewError(service.ErrUnauthenticated, "sign in to see your document history", nil)
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	docs, err := l.recorder.ListDocuments(ctx, caller.Source(), limit)
	if err != nil {
		return nil, historyError(err)
	}

	return docs, nil
}

// Queries lists the caller's questions about a document, newest first, or
// ranked by similarity to similar when it is set.
func (l *Lens) Queries(ctx context.Context, caller service.Caller, documentID string, similar string, limit int) ([]history.Query, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var (
		queries []history.Query
		err     error
	)

	if len(similar) > 0 {
		queries, err = l.recorder.SimilarQueries(ctx, documentID, caller.Source(), similar, limit)
	} else {
		queries, err = l.recorder.ListQueries(ctx, documentID, caller.Source(), limit)
	}
	if err != nil {
		return nil, historyError(err)
	}

	return queries, nil
}

func (l *Lens) Usage(ctx context.Context, caller service.Caller) (admission.Decision, error) {
	return l.admission.Remaining(ctx, caller)
}

func (l *Lens) Sessions() int {
	return l.store.Len()
}

func (l *Lens) Close() error {
	return l.ledger.Close()
}

func historyError(err error) error {
	if errors.Is(err, history.ErrUnsupported) {
		return service.NewError(service.ErrInvalidInput, "similarity search is not available", err)
	}
	return service.NewError(service.ErrInternal, "history lookup failed", err)
}

func New(
	ingest *ingest.Service,
	query *query.Service,
	admission *admission.Service,
	store session.Store,
	ledger usage.Ledger,
	recorder history.Recorder,
) *Lens {
	return &Lens{
		ingest:    ingest,
		query:     query,
		admission: admission,
		store:     store,
		ledger:    ledger,
		recorder:  recorder,
	}
}
