package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/skim-ai/cli/config"
	"github.com/skim-ai/cli/internal/ingest"
	"github.com/skim-ai/cli/internal/llm"
	"github.com/skim-ai/cli/internal/rag"
	"github.com/skim-ai/cli/internal/store"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *store.DB
	client   *llm.Client
	embedder *llm.Embedder
	pipeline *ingest.Pipeline
	answerer *rag.Answerer
	selector *llm.ModelSelector

	chatModel string
}

// newApp loads config, connects to the database, ensures the schema and
// collection, and wires the pipeline and answerer.
func newApp(ctx context.Context, debug bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var logger *zap.Logger
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := store.New(ctx, cfg.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := db.EnsureCollection(ctx, cfg.Database.Collection, cfg.Embeddings.Dimension); err != nil {
		db.Close()
		return nil, err
	}

	client := llm.NewClient(cfg.Ollama.BaseURL, cfg.Ollama.RequestTimeout)
	selector := llm.NewModelSelector(client)

	chatModel := cfg.Ollama.ChatModel
	if chatModel == "" {
		chatModel, err = selector.SelectBestModel(ctx)
		if err != nil {
			logger.Warn("failed to select chat model", zap.Error(err))
		}
	}

	embedder := llm.NewEmbedder(client, cfg.Embeddings.Model)
	vision := llm.NewVision(client, cfg.Ollama.VisionModel)
	sink := ingest.NewDirSink(cfg.Paths.ArtifactDir)

	pipeline := ingest.NewPipeline(
		db,
		ingest.NewTextChunker(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap, logger),
		ingest.NewTableChunker(sink, logger),
		ingest.NewVisualChunker(vision, sink, cfg.Processing.MinImageSize, logger),
		ingest.NewBatchEmbedder(embedder, cfg.Embeddings.BatchSize, cfg.Embeddings.Dimension, logger),
		cfg.Database.Collection,
		cfg.Processing.UpsertBatchSize,
		logger,
	)

	answerer := rag.NewAnswerer(
		embedder, db, client,
		cfg.Database.Collection, chatModel,
		cfg.Processing.TopK,
		logger,
	)

	return &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		client:   client,
		embedder: embedder,
		pipeline: pipeline,
		answerer: answerer,
		selector: selector,

		chatModel: chatModel,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
	_ = a.logger.Sync()
}
