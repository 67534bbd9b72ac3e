// Package main boots the keeper platform service and wires application dependencies.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/cmd/launcher"
	"google.golang.org/adk/cmd/launcher/full"
	"google.golang.org/adk/session/database"

	"github.com/easeaico/project-keeper/internal/action"
	internalagent "github.com/easeaico/project-keeper/internal/agent"
	"github.com/easeaico/project-keeper/internal/analysis"
	"github.com/easeaico/project-keeper/internal/callback"
	"github.com/easeaico/project-keeper/internal/config"
	"github.com/easeaico/project-keeper/internal/memory"
	"github.com/easeaico/project-keeper/internal/models"
	"github.com/easeaico/project-keeper/internal/scenario"
	"github.com/easeaico/project-keeper/internal/storage"
	"github.com/easeaico/project-keeper/internal/turn"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	slog.Info("configuration loaded",
		"provider", cfg.LLMProvider,
		"chat_model", cfg.ChatModel,
		"analysis_model", cfg.AnalysisModel,
		"memory_model", cfg.MemoryModel,
		"database_driver", cfg.DatabaseDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		log.Fatalf("failed to load scenario: %v", err)
	}
	rulebook, err := scenario.LoadRulebook(cfg.RulebookPath)
	if err != nil {
		log.Fatalf("failed to load rulebook: %v", err)
	}

	store, err := storage.NewStore(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	opts := models.CallOptions{
		Timeout:         cfg.ModelTimeout,
		Retries:         cfg.ModelRetries,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	chatModel, err := models.New(ctx, cfg.LLMProvider, cfg.ChatModel, cfg.ProviderAPIKey())
	if err != nil {
		log.Fatalf("failed to create chat model: %v", err)
	}
	analysisModel, err := models.New(ctx, cfg.LLMProvider, cfg.AnalysisModel, cfg.ProviderAPIKey())
	if err != nil {
		log.Fatalf("failed to create analysis model: %v", err)
	}
	memoryModel, err := models.New(ctx, cfg.LLMProvider, cfg.MemoryModel, cfg.ProviderAPIKey())
	if err != nil {
		log.Fatalf("failed to create memory model: %v", err)
	}

	var embedder memory.Embedder
	if cfg.GoogleAPIKey != "" {
		genaiEmbedder, err := memory.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel)
		if err != nil {
			slog.Warn("embeddings disabled, recall falls back to recent rounds", "error", err.Error())
		} else {
			embedder = genaiEmbedder
		}
	}
	archive := memory.NewArchive(embedder, store.Archive, cfg.TopK, cfg.SimilarityThreshold)

	pipeline := memory.NewPipeline(memory.Deps{
		Memories:   store.Memories,
		Messages:   store.Messages,
		Characters: store.Characters,
		Commits:    store,
		Compressor: memory.NewLLMCompressor(memoryModel, opts),
		Archiver:   archive,
	})
	refresher := memory.NewRefresher(pipeline, cfg.RefreshWorkers, cfg.RefreshTimeout)
	defer refresher.Close()

	memoryService := memory.NewService(archive, store.Messages, refresher)

	dialector, err := storage.Dialector(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to create session dialector: %v", err)
	}
	sessionService, err := database.NewSessionService(dialector)
	if err != nil {
		log.Fatalf("failed to create session service: %v", err)
	}

	locale := action.ParseLocale(cfg.Locale)
	processor := turn.NewProcessor(turn.Deps{
		Analyzer:   analysis.NewAnalyzer(analysisModel, catalog, opts),
		Overrides:  store.Overrides,
		Memories:   store.Memories,
		Characters: store.Characters,
		Catalog:    catalog,
		Rulebook:   rulebook,
		Locale:     locale,
	})

	llmAgent, err := internalagent.NewKeeperAgent(ctx, internalagent.KeeperDeps{
		Config:         &cfg,
		Model:          chatModel,
		Catalog:        catalog,
		SessionService: sessionService,
		MemoryService:  memoryService,
		Turn: callback.TurnDeps{
			Turns:       processor,
			Transcript:  store.Messages,
			Characters:  store.Characters,
			CharacterID: cfg.CharacterID,
		},
		Commands: callback.CommandDeps{
			Memories:   store.Memories,
			Characters: store.Characters,
			Overrides:  store.Overrides,
			Catalog:    catalog,
			Rulebook:   rulebook,
			Locale:     locale,
		},
	})
	if err != nil {
		log.Fatalf("failed to initialize agent: %v", err)
	}

	launcherConfig := &launcher.Config{
		SessionService: sessionService,
		MemoryService:  memoryService,
		AgentLoader:    agent.NewSingleLoader(llmAgent),
	}

	l := full.NewLauncher()
	errCh := make(chan error, 1)
	go func() {
		slog.Info("launcher starting")
		errCh <- l.Execute(ctx, launcherConfig, os.Args[1:])
	}()

	var execErr error
	select {
	case execErr = <-errCh:
	case <-ctx.Done():
		fmt.Println("\n正在关闭...")
	}

	if execErr != nil && !errors.Is(execErr, context.Canceled) && !errors.Is(execErr, context.DeadlineExceeded) {
		log.Fatalf("failed to run agent: %v\n\n%s", execErr, l.CommandLineSyntax())
	}

	fmt.Println("Agent shutdown complete")
}
