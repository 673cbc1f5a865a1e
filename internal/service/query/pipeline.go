package query

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/w-h-a/doclens/generator"
	"github.com/w-h-a/doclens/index"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/session"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("github.com/w-h-a/doclens/internal/service/query")

const SystemInstruction = `You are a legal document analyst. Answer the question using only the document context provided.
Quote or paraphrase the relevant clauses and say plainly when the context does not contain the answer.
If the document is not a legal or contractual text, say that you can only analyze legal documents and do not answer.
Do not give legal advice beyond explaining what the document says.`

type Answer struct {
	Text     string
	Passages []index.Hit
	Latency  time.Duration
}

type Pipeline struct {
	generator         generator.Generator
	system            string
	maxQuestionLength int
}

// Answer retrieves the k most relevant passages of the session and asks the
// generator to answer from them alone.
func (p *Pipeline) Answer(ctx context.Context, sess *session.Session, question string, k int) (answer Answer, err error) {
	ctx, span := tracer.Start(ctx, "query.Answer", trace.WithAttributes(
		attribute.String("session_id", sess.ID),
		attribute.Int("k", k),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("passages", len(answer.Passages)))
			span.SetStatus(codes.Ok, "success")
		}
		span.End()
	}()

	start := time.Now()

	question = strings.TrimSpace(question)

	if len(question) == 0 {
		return Answer{}, service.NewError(service.ErrInvalidInput, "question is empty", nil)
	}

	if utf8.RuneCountInString(question) > p.maxQuestionLength {
		return Answer{}, service.NewError(service.ErrInvalidInput, fmt.Sprintf("question exceeds %d characters", p.maxQuestionLength), nil)
	}

	if k <= 0 {
		return Answer{}, service.NewError(service.ErrInvalidInput, "k must be positive", nil)
	}

	hits, err := sess.Index.Search(ctx, question, k)
	if err != nil {
		return Answer{}, service.NewError(service.ErrRetrieval, "could not search document, try again later", err)
	}

	texts := make([]string, 0, len(hits))
	for _, hit := range hits {
		texts = append(texts, hit.Passage.Text)
	}

	prompt := generator.BuildPrompt(strings.Join(texts, "\n\n"), question)

	text, err := p.generator.Generate(ctx, p.system, prompt)
	if err != nil {
		return Answer{}, service.NewError(service.ErrSynthesis, "could not generate an answer, try again later", err)
	}

	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return Answer{}, service.NewError(service.ErrSynthesis, "could not generate an answer, try again later", nil)
	}

	return Answer{
		Text:     text,
		Passages: hits,
		Latency:  time.Since(start),
	}, nil
}

func NewPipeline(gen generator.Generator, opts ...Option) *Pipeline {
	options := NewOptions(opts...)

	return &Pipeline{
		generator:         gen,
		system:            options.SystemInstruction,
		maxQuestionLength: options.MaxQuestionLength,
	}
}
