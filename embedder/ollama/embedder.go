package ollama

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/w-h-a/doclens/embedder"
)

const (
	defaultModel    = "nomic-embed-text"
	defaultLocation = "http://localhost:11434"
)

type ollamaEmbedder struct {
	options embedder.Options
	client  embeddings.Embedder
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.client.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}

	if len(vec) == 0 {
		return nil, errors.New("no response from Ollama")
	}

	return vec, nil
}

func NewEmbedder(opts ...embedder.Option) embedder.Embedder {
	options := embedder.NewOptions(opts...)

	if len(options.Model) == 0 {
		options.Model = defaultModel
	}

	if len(options.Location) == 0 {
		options.Location = defaultLocation
	}

	e := &ollamaEmbedder{
		options: options,
	}

	llm, err := ollama.New(
		ollama.WithModel(options.Model),
		ollama.WithServerURL(options.Location),
	)
	if err != nil {
		detail := "failed to create ollama client"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	client, err := embeddings.NewEmbedder(llm)
	if err != nil {
		detail := "failed to create ollama embedder"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	e.client = client

	return e
}
