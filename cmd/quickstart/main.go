package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"github.com/w-h-a/doclens"
	"github.com/w-h-a/doclens/embedder"
	"github.com/w-h-a/doclens/embedder/hashing"
	"github.com/w-h-a/doclens/extractor"
	"github.com/w-h-a/doclens/extractor/pdf"
	"github.com/w-h-a/doclens/extractor/text"
	"github.com/w-h-a/doclens/generator"
	"github.com/w-h-a/doclens/generator/extractive"
	openaigenerator "github.com/w-h-a/doclens/generator/openai"
	"github.com/w-h-a/doclens/history"
	historymemory "github.com/w-h-a/doclens/history/memory"
	"github.com/w-h-a/doclens/index"
	"github.com/w-h-a/doclens/index/vector"
	"github.com/w-h-a/doclens/internal/service"
	"github.com/w-h-a/doclens/internal/service/admission"
	"github.com/w-h-a/doclens/internal/service/ingest"
	"github.com/w-h-a/doclens/internal/service/query"
	"github.com/w-h-a/doclens/internal/service/session"
	usagememory "github.com/w-h-a/doclens/usage/memory"
)

var (
	cfg struct {
		// Document config
		File string `arg:"" help:"PDF, text or markdown document to load" type:"existingfile"`

		// Generator config
		GeneratorKey string `help:"API Key for the generator, empty answers by quoting the document" default:"" env:"OPENAI_API_KEY"`
		Generator    string `help:"Model identifier for generator" default:"gpt-4o-mini"`

		// Retrieval config
		Dimensions int `help:"Dimensions of the local hashing embedder" default:"512"`
		TopK       int `help:"Passages sent to the generator" default:"3"`
	}
)

func main() {
	_ = godotenv.Load()

	// Parse inputs
	_ = kong.Parse(&cfg)
	ctx := context.Background()

	data, err := os.ReadFile(cfg.File)
	if err != nil {
		log.Fatalf("❌ failed to read document: %v", err)
	}

	// Create answer model
	var model generator.Generator = extractive.NewGenerator()
	if len(cfg.GeneratorKey) > 0 {
		model = openaigenerator.NewGenerator(
			generator.WithApiKey(cfg.GeneratorKey),
			generator.WithModel(cfg.Generator),
		)
	}

	// Create local retrieval
	builder := vector.NewBuilder(
		hashing.NewEmbedder(embedder.WithDimensions(cfg.Dimensions)),
		index.WithConcurrency(1),
	)

	store := session.NewMemoryStore()
	ledger := usagememory.NewLedger()
	rec := historymemory.NewRecorder(history.WithEmbedder(hashing.NewEmbedder()))
	adm := admission.New(ledger)

	router := extractor.NewRouter(map[string]extractor.Extractor{
		".pdf": pdf.NewExtractor(),
		".txt": text.NewExtractor(),
		".md":  text.NewExtractor(),
	})

	lens := doclens.New(
		ingest.New(router, builder, store, adm, ingest.WithRecorder(rec)),
		query.New(store, query.NewPipeline(model), query.WithTopK(cfg.TopK), query.WithRecorder(rec)),
		adm,
		store,
		ledger,
		rec,
	)
	defer lens.Close()

	me := service.Caller{AccountID: "local"}

	res, err := lens.Upload(ctx, me, filepath.Base(cfg.File), data)
	if err != nil {
		log.Fatalf("❌ failed to load document: %v", service.Message(err))
	}
	fmt.Printf("✅ Loaded %s: %d pages, %d passages (%s)\n", filepath.Base(cfg.File), res.Pages, res.Passages, res.Method)

	fmt.Println("Ask a question about the document. An empty line exits.")

	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("Goodbye!")
			return
		}
		input = strings.TrimSpace(input)
		if len(input) == 0 {
			fmt.Println("Goodbye!")
			return
		}

		if input == "/history" {
			queries, err := lens.Queries(ctx, me, res.SessionID, "", 10)
			if err != nil {
				fmt.Println("Error reading history:", service.Message(err))
				continue
			}
			for _, q := range queries {
				fmt.Printf("- %s\n", q.Question)
			}
			continue
		}

		ans, err := lens.Ask(ctx, me, res.SessionID, input)
		if err != nil {
			fmt.Println("Error answering:", service.Message(err))
			continue
		}
		fmt.Printf("%s\n", ans.Text)
		for _, hit := range ans.Passages {
			fmt.Printf("  [passage %d, score %.3f]\n", hit.Passage.Index, hit.Score)
		}
		fmt.Println("---")
	}
}
