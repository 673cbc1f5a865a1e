package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/doclens"
	"github.com/w-h-a/doclens/embedder"
	googleembedder "github.com/w-h-a/doclens/embedder/google"
	"github.com/w-h-a/doclens/embedder/hashing"
	ollamaembedder "github.com/w-h-a/doclens/embedder/ollama"
	openaiembedder "github.com/w-h-a/doclens/embedder/openai"
	"github.com/w-h-a/doclens/extractor"
	"github.com/w-h-a/doclens/extractor/command"
	"github.com/w-h-a/doclens/extractor/pdf"
	"github.com/w-h-a/doclens/extractor/text"
	"github.com/w-h-a/doclens/generator"
	anthropicgenerator "github.com/w-h-a/doclens/generator/anthropic"
	"github.com/w-h-a/doclens/generator/extractive"
	googlegenerator "github.com/w-h-a/doclens/generator/google"
	openaigenerator "github.com/w-h-a/doclens/generator/openai"
	"github.com/w-h-a/doclens/history"
	historymemory "github.com/w-h-a/doclens/history/memory"
	historypostgres "github.com/w-h-a/doclens/history/postgres"
	"github.com/w-h-a/doclens/identity"
	"github.com/w-h-a/doclens/identity/jwt"
	"github.com/w-h-a/doclens/index"
	"github.com/w-h-a/doclens/index/lexical"
	"github.com/w-h-a/doclens/index/vector"
	"github.com/w-h-a/doclens/internal/api"
	"github.com/w-h-a/doclens/internal/metrics"
	"github.com/w-h-a/doclens/internal/service/admission"
	"github.com/w-h-a/doclens/internal/service/ingest"
	"github.com/w-h-a/doclens/internal/service/query"
	"github.com/w-h-a/doclens/internal/service/session"
	"github.com/w-h-a/doclens/server"
	httpserver "github.com/w-h-a/doclens/server/http"
	"github.com/w-h-a/doclens/usage"
	usagememory "github.com/w-h-a/doclens/usage/memory"
	usagepostgres "github.com/w-h-a/doclens/usage/postgres"
	usageredis "github.com/w-h-a/doclens/usage/redis"
	usagesqlite "github.com/w-h-a/doclens/usage/sqlite"
)

var (
	cfg struct {
		// Server config
		Address    string  `help:"Address to listen on" default:":8080" env:"DOCLENS_ADDRESS"`
		TrustProxy bool    `help:"Identify guests by the first X-Forwarded-For hop" env:"DOCLENS_TRUST_PROXY"`
		MaxUpload  int64   `help:"Upload ceiling in bytes" default:"52428800" env:"DOCLENS_MAX_UPLOAD"`
		RateLimit  float64 `help:"Requests per second allowed per caller, 0 disables" default:"2" env:"DOCLENS_RATE_LIMIT"`
		RateBurst  int     `help:"Request burst allowed per caller" default:"10" env:"DOCLENS_RATE_BURST"`

		// Logging config
		LogLevel  string `help:"Log level" default:"info" enum:"debug,info,warn,error" env:"DOCLENS_LOG_LEVEL"`
		LogFormat string `help:"Log format" default:"text" enum:"text,json" env:"DOCLENS_LOG_FORMAT"`

		// Identity config
		JwtSecret   string        `help:"HMAC secret for member tokens, empty treats everyone as a guest" env:"DOCLENS_JWT_SECRET"`
		JwtIssuer   string        `help:"Required token issuer" env:"DOCLENS_JWT_ISSUER"`
		JwtAudience string        `help:"Required token audience" env:"DOCLENS_JWT_AUDIENCE"`
		JwtLeeway   time.Duration `help:"Clock skew tolerated on token times" default:"30s" env:"DOCLENS_JWT_LEEWAY"`

		// Admission config
		GuestQuota     int    `help:"Uploads per UTC day for guests" default:"2" env:"DOCLENS_GUEST_QUOTA"`
		MemberQuota    int    `help:"Uploads per UTC day for members, 0 is unlimited" default:"0" env:"DOCLENS_MEMBER_QUOTA"`
		Ledger         string `help:"Usage ledger backend" default:"sqlite" enum:"memory,sqlite,postgres,redis" env:"DOCLENS_LEDGER"`
		LedgerLocation string `help:"Ledger DSN, file path or address" default:"doclens.db" env:"DOCLENS_LEDGER_LOCATION"`

		// Session config
		GuestTTL      time.Duration `help:"How long guest documents stay loaded" default:"24h" env:"DOCLENS_GUEST_TTL"`
		MemberTTL     time.Duration `help:"How long member documents stay loaded" default:"168h" env:"DOCLENS_MEMBER_TTL"`
		SweepInterval time.Duration `help:"How often expired documents are evicted" default:"10m" env:"DOCLENS_SWEEP_INTERVAL"`
		DemoFile      string        `help:"Document loaded at startup for everyone to try" env:"DOCLENS_DEMO_FILE"`

		// Ingestion config
		ChunkSize    int    `help:"Passage length in characters" default:"1000" env:"DOCLENS_CHUNK_SIZE"`
		ChunkOverlap int    `help:"Characters shared by neighbouring passages" default:"200" env:"DOCLENS_CHUNK_OVERLAP"`
		OcrCommand   string `help:"Command run on PDFs without a text layer, {file} is replaced by the path" env:"DOCLENS_OCR_COMMAND"`

		// Retrieval config
		Index            string `help:"Retrieval index" default:"vector" enum:"vector,lexical" env:"DOCLENS_INDEX"`
		TopK             int    `help:"Passages sent to the generator" default:"3" env:"DOCLENS_TOP_K"`
		Embedder         string `help:"Embedding provider" default:"openai" enum:"openai,google,ollama,hashing" env:"DOCLENS_EMBEDDER"`
		EmbedderKey      string `help:"API Key for the embedder" env:"DOCLENS_EMBEDDER_KEY"`
		EmbedderModel    string `help:"Model identifier for embedder" env:"DOCLENS_EMBEDDER_MODEL"`
		EmbedderURL      string `help:"Base URL of the embedding service" env:"DOCLENS_EMBEDDER_URL"`
		EmbedConcurrency int    `help:"Passages embedded in parallel" default:"4" env:"DOCLENS_EMBED_CONCURRENCY"`

		// Generator config
		Generator      string  `help:"Answer provider" default:"openai" enum:"openai,anthropic,google,extractive" env:"DOCLENS_GENERATOR"`
		GeneratorKey   string  `help:"API Key for the generator" env:"DOCLENS_GENERATOR_KEY"`
		GeneratorModel string  `help:"Model identifier for generator" env:"DOCLENS_GENERATOR_MODEL"`
		Temperature    float64 `help:"Sampling temperature" default:"0.1" env:"DOCLENS_TEMPERATURE"`
		MaxTokens      int     `help:"Maximum answer length in tokens" default:"1024" env:"DOCLENS_MAX_TOKENS"`

		// History config
		History         string `help:"Where uploads and questions are recorded (memory keeps the newest 10000 of each and is for development)" default:"memory" enum:"memory,postgres" env:"DOCLENS_HISTORY"`
		HistoryLocation string `help:"Postgres DSN for history" env:"DOCLENS_HISTORY_LOCATION"`
	}
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	_ = kong.Parse(&cfg,
		kong.Name("doclens"),
		kong.Description("Ask questions about your legal documents."),
	)

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create session store
	store := session.NewMemoryStore(
		session.WithTTL(session.ClassGuest, cfg.GuestTTL),
		session.WithTTL(session.ClassMember, cfg.MemberTTL),
		session.WithLogger(logger),
	)

	m := metrics.New(store.Len)

	// Create admission
	ledger := newLedger(cfg.Ledger, cfg.LedgerLocation, logger)

	adm := admission.New(
		ledger,
		admission.WithQuota(session.ClassGuest, cfg.GuestQuota),
		admission.WithQuota(session.ClassMember, cfg.MemberQuota),
		admission.WithLogger(logger),
		admission.WithMetrics(m),
	)

	// Create retrieval and synthesis
	emb := newEmbedder(cfg.Embedder)
	builder := newBuilder(cfg.Index, emb, logger)
	gen := newGenerator(cfg.Generator)
	rec := newRecorder(cfg.History, cfg.HistoryLocation, emb, logger)

	// Create services
	ingestion := ingest.New(
		newExtractor(cfg.OcrCommand),
		builder,
		store,
		adm,
		ingest.WithMaxBytes(cfg.MaxUpload),
		ingest.WithChunking(cfg.ChunkSize, cfg.ChunkOverlap),
		ingest.WithRecorder(rec),
		ingest.WithLogger(logger),
		ingest.WithMetrics(m),
	)

	questions := query.New(
		store,
		query.NewPipeline(gen),
		query.WithTopK(cfg.TopK),
		query.WithRecorder(rec),
		query.WithLogger(logger),
		query.WithMetrics(m),
	)

	lens := doclens.New(ingestion, questions, adm, store, ledger, rec)
	defer lens.Close()

	if len(cfg.DemoFile) > 0 {
		seedDemo(ctx, lens, cfg.DemoFile, logger)
	}

	sweeper := session.NewSweeper(store, cfg.SweepInterval, session.WithLogger(logger))
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// Create server
	handler := api.New(
		lens,
		api.WithVerifier(newVerifier()),
		api.WithTrustProxy(cfg.TrustProxy),
		api.WithMaxUploadBytes(cfg.MaxUpload),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		api.WithLogger(logger),
		api.WithMetrics(m),
	)

	srv := httpserver.NewServer(
		handler.Router(),
		server.WithAddress(cfg.Address),
		httpserver.WithOperation("doclens-api"),
		httpserver.WithMiddleware(handler.Middleware()...),
	)

	if err := srv.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func newLedger(backend string, location string, logger *slog.Logger) usage.Ledger {
	opts := []usage.Option{
		usage.WithLocation(location),
		usage.WithLogger(logger),
	}

	switch backend {
	case "memory":
		return usagememory.NewLedger(opts...)
	case "postgres":
		return usagepostgres.NewLedger(opts...)
	case "redis":
		return usageredis.NewLedger(opts...)
	}
	return usagesqlite.NewLedger(opts...)
}

func newEmbedder(provider string) embedder.Embedder {
	opts := []embedder.Option{
		embedder.WithApiKey(cfg.EmbedderKey),
	}
	if len(cfg.EmbedderModel) > 0 {
		opts = append(opts, embedder.WithModel(cfg.EmbedderModel))
	}
	if len(cfg.EmbedderURL) > 0 {
		opts = append(opts, embedder.WithLocation(cfg.EmbedderURL))
	}

	switch provider {
	case "google":
		return googleembedder.NewEmbedder(opts...)
	case "ollama":
		return ollamaembedder.NewEmbedder(opts...)
	case "hashing":
		return hashing.NewEmbedder(opts...)
	}
	return openaiembedder.NewEmbedder(opts...)
}

func newBuilder(kind string, emb embedder.Embedder, logger *slog.Logger) index.Builder {
	opts := []index.Option{
		index.WithConcurrency(cfg.EmbedConcurrency),
		index.WithLogger(logger),
	}

	if kind == "lexical" {
		return lexical.NewBuilder(opts...)
	}
	return vector.NewBuilder(emb, opts...)
}

func newGenerator(provider string) generator.Generator {
	opts := []generator.Option{
		generator.WithApiKey(cfg.GeneratorKey),
		generator.WithTemperature(cfg.Temperature),
		generator.WithMaxTokens(cfg.MaxTokens),
	}
	if len(cfg.GeneratorModel) > 0 {
		opts = append(opts, generator.WithModel(cfg.GeneratorModel))
	}

	switch provider {
	case "anthropic":
		return anthropicgenerator.NewGenerator(opts...)
	case "google":
		return googlegenerator.NewGenerator(opts...)
	case "extractive":
		return extractive.NewGenerator(opts...)
	}
	return openaigenerator.NewGenerator(opts...)
}

func newRecorder(backend string, location string, emb embedder.Embedder, logger *slog.Logger) history.Recorder {
	opts := []history.Option{
		history.WithLocation(location),
		history.WithEmbedder(emb),
		history.WithLogger(logger),
	}

	if backend == "postgres" {
		return historypostgres.NewRecorder(opts...)
	}
	return historymemory.NewRecorder(opts...)
}

func newExtractor(ocr string) extractor.Extractor {
	var pdfs extractor.Extractor = pdf.NewExtractor()
	if len(strings.TrimSpace(ocr)) > 0 {
		pdfs = extractor.WithFallback(pdfs, command.NewExtractor(ocr))
	}

	plain := text.NewExtractor()

	return extractor.NewRouter(map[string]extractor.Extractor{
		".pdf": pdfs,
		".txt": plain,
		".md":  plain,
	})
}

func newVerifier() identity.Verifier {
	if len(cfg.JwtSecret) == 0 {
		return nil
	}

	return jwt.NewVerifier(
		identity.WithSecret(cfg.JwtSecret),
		identity.WithIssuer(cfg.JwtIssuer),
		identity.WithAudience(cfg.JwtAudience),
		identity.WithLeeway(cfg.JwtLeeway),
	)
}

func seedDemo(ctx context.Context, lens *doclens.Lens, path string, logger *slog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to read demo document", "path", path, "error", err)
		return
	}

	res, err := lens.Seed(ctx, filepath.Base(path), data)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load demo document", "path", path, "error", err)
		return
	}

	logger.InfoContext(ctx, "demo document ready", "session_id", res.SessionID)
}
