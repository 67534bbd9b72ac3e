// Package main runs the background memory worker. It polls for sessions with
// unprocessed transcript and schedules a refresh for each of them.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/easeaico/project-keeper/internal/config"
	"github.com/easeaico/project-keeper/internal/memory"
	"github.com/easeaico/project-keeper/internal/models"
	"github.com/easeaico/project-keeper/internal/storage"
)

const (
	pendingBatch        = 100
	defaultPollInterval = 30 * time.Second
)

type pendingLister interface {
	ListPendingSessions(ctx context.Context, limit int) ([]string, error)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	memoryModel, err := models.New(ctx, cfg.LLMProvider, cfg.MemoryModel, cfg.ProviderAPIKey())
	if err != nil {
		log.Fatalf("failed to create memory model: %v", err)
	}

	var embedder memory.Embedder
	if cfg.GoogleAPIKey != "" {
		genaiEmbedder, err := memory.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			slog.Warn("embeddings disabled", "error", err.Error())
		} else {
			embedder = genaiEmbedder
		}
	}

	pipeline := memory.NewPipeline(memory.Deps{
		Memories:   store.Memories,
		Messages:   store.Messages,
		Characters: store.Characters,
		Commits:    store,
		Compressor: memory.NewLLMCompressor(memoryModel, models.CallOptions{
			Timeout:         cfg.ModelTimeout,
			Retries:         cfg.ModelRetries,
			MaxOutputTokens: cfg.MaxOutputTokens,
		}),
		Archiver: memory.NewArchive(embedder, store.Archive, cfg.TopK, cfg.SimilarityThreshold),
	})
	refresher := memory.NewRefresher(pipeline, cfg.RefreshWorkers, cfg.RefreshTimeout)
	defer refresher.Close()

	slog.Info("memory worker started", "interval", cfg.PollInterval.String(), "workers", cfg.RefreshWorkers)
	poll(ctx, store.Memories, refresher, cfg.PollInterval)
	slog.Info("memory worker stopped")
}

func poll(ctx context.Context, pending pendingLister, queue memory.RefreshQueue, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		sessions, err := pending.ListPendingSessions(ctx, pendingBatch)
		if err != nil {
			slog.Error("failed to list pending sessions", "error", err.Error())
		}
		queued := 0
		for _, id := range sessions {
			if queue.Enqueue(id) {
				queued++
			}
		}
		if len(sessions) > 0 {
			slog.Info("refresh scheduled", "pending", len(sessions), "queued", queued)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
