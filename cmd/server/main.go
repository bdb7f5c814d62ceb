package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/safechat/internal/bot"
	"github.com/xaenox/safechat/internal/classifier"
	"github.com/xaenox/safechat/internal/composer"
	"github.com/xaenox/safechat/internal/documents"
	"github.com/xaenox/safechat/internal/llm"
	"github.com/xaenox/safechat/internal/rewriter"
	"github.com/xaenox/safechat/internal/router"
	"github.com/xaenox/safechat/internal/search"
	"github.com/xaenox/safechat/internal/server"
	"github.com/xaenox/safechat/internal/storage"
	"github.com/xaenox/safechat/pkg/config"
	"github.com/xaenox/safechat/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	seedPath := flag.String("seed", "", "optional YAML seed file indexed at startup")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		bootLogger, _ := zap.NewProduction()
		bootLogger.Fatal("Failed to load config", zap.Error(err), zap.String("path", *configPath))
	}

	// Initialize logger
	log := logger.New(cfg.Log.File, cfg.App.IsProduction())
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	store, err := storage.Open(cfg.Database.DSN(), cfg.Database.UseInMemory, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer store.Close()

	if !cfg.Database.UseInMemory && cfg.Database.DSN() != "" {
		if err := store.EnsureSchema(ctx); err != nil {
			log.Error("Failed to ensure database schema", zap.Error(err))
		}
	}

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		Model:          cfg.OpenAI.Model,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	}, log)

	if *seedPath != "" {
		seed(ctx, *seedPath, client, store, log)
	}

	searcher, err := search.NewSearcher(client, store, cfg.Search.Threshold, log.Named("search"))
	if err != nil {
		log.Fatal("Failed to create searcher", zap.Error(err))
	}

	comp, err := composer.New(cfg.Composer.Strategy, client, log.Named("composer"))
	if err != nil {
		log.Fatal("Failed to create composer", zap.Error(err))
	}

	policy, err := router.ParseUnknownPolicy(cfg.Classifier.UnknownPolicy)
	if err != nil {
		log.Fatal("Invalid classifier policy", zap.Error(err))
	}

	rt, err := router.New(
		classifier.NewGPTClassifier(client, cfg.Classifier.Inappropriate, log.Named("classifier")),
		rewriter.New(client, log.Named("rewriter")),
		searcher,
		comp,
		log.Named("router"),
		router.WithUnknownPolicy(policy),
	)
	if err != nil {
		log.Fatal("Failed to create router", zap.Error(err))
	}

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, rt, log.Named("bot"))
		if err != nil {
			log.Error("Failed to create telegram bot", zap.Error(err))
		} else {
			go func() {
				if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("Telegram bot stopped", zap.Error(err))
				}
			}()
		}
	}

	srv := server.New(cfg, rt, store, log.Named("server"))
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shut down server", zap.Error(err))
		}
	}()

	if err := srv.Run(); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
	log.Info("Server stopped")
}

func seed(ctx context.Context, path string, client *llm.Client, store storage.Store, log *zap.Logger) {
	docs, err := documents.LoadSeedFile(path)
	if err != nil {
		log.Error("Failed to load seed file", zap.Error(err), zap.String("path", path))
		return
	}
	indexer, err := documents.NewIndexer(client, store, log.Named("documents"))
	if err != nil {
		log.Error("Failed to create indexer", zap.Error(err))
		return
	}
	n, err := indexer.AddAll(ctx, docs)
	if err != nil {
		log.Error("Failed to index seed documents", zap.Error(err), zap.Int("indexed", n))
		return
	}
	log.Info("Seed documents indexed", zap.Int("count", n), zap.String("path", path))
}
