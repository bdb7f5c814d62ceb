package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/documents"
	"github.com/xaenox/safechat/internal/llm"
	"github.com/xaenox/safechat/internal/storage"
	"github.com/xaenox/safechat/pkg/config"
	"github.com/xaenox/safechat/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	seedPath := flag.String("seed", "", "YAML file with documents to index")
	schemaOnly := flag.Bool("schema-only", false, "only create the vector extension and data table")
	flag.Parse()

	if *seedPath == "" && !*schemaOnly {
		fmt.Fprintln(os.Stderr, "usage: ingest -seed documents.yaml [-config config.yaml] | -schema-only")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.File, cfg.App.IsProduction())
	defer log.Sync()

	if err := run(context.Background(), cfg, *seedPath, *schemaOnly, log); err != nil {
		log.Fatal("Ingest failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, seedPath string, schemaOnly bool, log *zap.Logger) error {
	store, err := storage.NewPostgresStorage(cfg.Database.DSN(), log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if schemaOnly {
		return nil
	}

	docs, err := documents.LoadSeedFile(seedPath)
	if err != nil {
		return err
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	}, log)

	indexer, err := documents.NewIndexer(client, store, log.Named("documents"))
	if err != nil {
		return err
	}

	n, err := indexer.AddAll(ctx, docs)
	log.Info("Documents indexed", zap.Int("count", n), zap.Int("total", len(docs)))
	return err
}
