package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/w-h-a/doclens/chunker"
	"github.com/w-h-a/doclens/extractor"
	"github.com/w-h-a/doclens/history"
	"github.com/w-h-a/doclens/index"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/admission"
	"github.com/w-h-a/doclens/internal/service/session"
)

const demoOwner = "demo"

type Upload struct {
	Name string
	Data []byte
}

type Result struct {
	SessionID string        `json:"session_id"`
	Class     session.Class `json:"caller_class"`
	Remaining int           `json:"remaining_quota"`
	Unlimited bool          `json:"unlimited"`
	Passages  int           `json:"passages"`
	Pages     int           `json:"pages"`
	Method    string        `json:"processing_method"`
}

type Service struct {
	options   Options
	extractor extractor.Extractor
	builder   index.Builder
	store     session.Store
	admission *admission.Service
}

// Ingest admits the caller, then extracts, chunks and indexes the upload and
// stores the finished session. Quota consumed at admission is kept even if a
// later step fails.
func (s *Service) Ingest(ctx context.Context, caller service.Caller, upload Upload) (Result, error) {
	class := caller.Class()

	if err := s.check(upload); err != nil {
		s.options.Metrics.Ingestion(string(class), "rejected", 0)
		return Result{}, err
	}

	id := session.NewID()

	decision, err := s.admission.TryAdmit(ctx, caller, id)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, service.ErrQuotaExceeded) {
			outcome = "denied"
		}
		s.options.Metrics.Ingestion(string(class), outcome, 0)
		return Result{}, err
	}

	sess, res, err := s.build(ctx, session.Draft{
		ID:    id,
		Name:  upload.Name,
		Class: class,
		Owner: caller.Source(),
	}, upload)
	if err != nil {
		s.options.Metrics.Ingestion(string(class), "failed", 0)
		return Result{}, err
	}

	s.options.Metrics.Ingestion(string(class), "ok", len(sess.Passages))

	s.options.Logger.InfoContext(ctx, "document ingested",
		"session_id", sess.ID,
		"class", class,
		"passages", len(sess.Passages),
		"method", res.Method,
	)

	s.record(ctx, sess, res, int64(len(upload.Data)))

	return Result{
		SessionID: sess.ID,
		Class:     class,
		Remaining: decision.Remaining,
		Unlimited: decision.Unlimited,
		Passages:  len(sess.Passages),
		Pages:     res.Pages,
		Method:    res.Method,
	}, nil
}

// Seed loads a demo document. Demo sessions bypass admission, never expire
// and can be viewed by anyone.
func (s *Service) Seed(ctx context.Context, upload Upload) (Result, error) {
	if err := s.check(upload); err != nil {
		return Result{}, err
	}

	sess, res, err := s.build(ctx, session.Draft{
		Name:     upload.Name,
		Class:    session.ClassDemo,
		Owner:    demoOwner,
		Viewable: true,
	}, upload)
	if err != nil {
		return Result{}, err
	}

	s.options.Logger.InfoContext(ctx, "demo document loaded", "session_id", sess.ID, "passages", len(sess.Passages))

	return Result{
		SessionID: sess.ID,
		Class:     session.ClassDemo,
		Remaining: -1,
		Unlimited: true,
		Passages:  len(sess.Passages),
		Pages:     res.Pages,
		Method:    res.Method,
	}, nil
}

func (s *Service) check(upload Upload) error {
	size := int64(len(upload.Data))

	if size > s.options.MaxBytes {
		return service.NewError(service.ErrPayloadTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.options.MaxBytes), nil)
	}

	if size == 0 {
		return service.NewError(service.ErrInvalidInput, "upload is empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(upload.Name))
	if !slices.Contains(s.options.Formats, ext) {
		return service.NewError(service.ErrUnsupportedFormat, fmt.Sprintf("accepted formats: %s", strings.Join(s.options.Formats, ", ")), nil)
	}

	return nil
}

func (s *Service) build(ctx context.Context, draft session.Draft, upload Upload) (*session.Session, extractor.Result, error) {
	res, err := s.extractor.Extract(ctx, upload.Name, upload.Data)
	if err != nil {
		return nil, res, extractionError(err)
	}

	text := chunker.Normalize(res.Text)
	if len(text) == 0 {
		return nil, res, service.NewError(service.ErrEmptyExtraction, "document contains no extractable text", nil)
	}

	passages, err := chunker.Split(text, s.options.ChunkSize, s.options.ChunkOverlap)
	if err != nil {
		return nil, res, service.NewError(service.ErrInternal, "chunking failed", err)
	}

	idx, err := s.builder.Build(ctx, passages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, res, service.NewError(service.ErrInternal, "ingestion canceled", ctxErr)
		}
		return nil, res, service.NewError(service.ErrRetrieval, "could not index document, try again later", err)
	}

	draft.Text = text
	draft.Passages = passages
	draft.Index = idx

	sess, err := s.store.Create(ctx, draft)
	if err != nil {
		return nil, res, service.NewError(service.ErrInternal, "storing session failed", err)
	}

	return sess, res, nil
}

func (s *Service) record(ctx context.Context, sess *session.Session, res extractor.Result, size int64) {
	if s.options.Recorder == nil {
		return
	}

	err := s.options.Recorder.SaveDocument(ctx, history.Document{
		ID:         sess.ID,
		Owner:      sess.Owner,
		Class:      string(sess.Class),
		Name:       sess.Name,
		Pages:      res.Pages,
		Passages:   len(sess.Passages),
		Method:     res.Method,
		Size:       size,
		TextLength: len([]rune(sess.Text)),
		Preview:    history.Preview(sess.Text),
		CreatedAt:  sess.CreatedAt,
	})
	if err != nil {
		s.options.Logger.WarnContext(ctx, "failed to record document history", "session_id", sess.ID, "error", err)
	}
}

func extractionError(err error) error {
	switch {
	case errors.Is(err, extractor.ErrUnsupportedFormat):
		return service.NewError(service.ErrUnsupportedFormat, "document could not be read", err)
	case errors.Is(err, extractor.ErrEmpty):
		return service.NewError(service.ErrEmptyExtraction, "document contains no extractable text", err)
	}
	return service.NewError(service.ErrInternal, "text extraction failed", err)
}

func New(
	extractor extractor.Extractor,
	builder index.Builder,
	store session.Store,
	admission *admission.Service,
	opts ...Option,
) *Service {
	options := NewOptions(opts...)

	return &Service{
		options:   options,
		extractor: extractor,
		builder:   builder,
		store:     store,
		admission: admission,
	}
}
