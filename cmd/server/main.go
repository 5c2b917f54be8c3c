package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/genai"

	"github.com/akwn2/dnd-ai-tutorial/assets"
	"github.com/akwn2/dnd-ai-tutorial/internal/agent"
	"github.com/akwn2/dnd-ai-tutorial/internal/api"
	"github.com/akwn2/dnd-ai-tutorial/internal/capability"
	"github.com/akwn2/dnd-ai-tutorial/internal/config"
	"github.com/akwn2/dnd-ai-tutorial/internal/functions"
	"github.com/akwn2/dnd-ai-tutorial/internal/inference"
	"github.com/akwn2/dnd-ai-tutorial/internal/repository"
	"github.com/akwn2/dnd-ai-tutorial/internal/retrieval"
	"github.com/akwn2/dnd-ai-tutorial/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	backend := inference.NewGemini(client, cfg.Model, cfg.BackendTimeout)

	retriever, err := loadLore(ctx, cfg, client, logger)
	if err != nil {
		return err
	}

	tools := api.Tools{
		Characters: capability.NewCharacterGenerator(backend),
		Encounters: capability.NewEncounterGenerator(backend),
		Dice:       capability.NewDiceResolver(nil),
		Lore:       capability.NewLoreKeeper(backend, retriever, cfg.LoreTopK, logger),
	}

	orchestrator, err := newOrchestrator(cfg, backend, store, tools, logger)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.NewHandler(orchestrator, tools, logger, cfg.RequestTimeout).RegisterRoutes(e)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("server started", "port", cfg.HTTPPort, "orchestrator", cfg.Orchestrator, "store", cfg.StoreDriver)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.TranscriptStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMongoDB:
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("connect mongodb: %w", err)
		}
		store, err := repository.NewMongoStore(ctx, mongoClient, mongoClient.Database(cfg.MongoDB), "messages")
		if err != nil {
			_ = mongoClient.Disconnect(ctx)
			return nil, err
		}
		return store, nil
	default:
		store, err := repository.NewGormStore(cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// loadLore indexes the lore directory. It returns a nil Retriever when there is
// nothing to search, which the Lore Keeper answers as an unavailable knowledge base.
func loadLore(ctx context.Context, cfg *config.Config, client *genai.Client, logger *slog.Logger) (retrieval.Retriever, error) {
	var embedder retrieval.Embedder
	if cfg.EmbeddingModel != "" {
		embedder = retrieval.NewGeminiEmbedder(client, cfg.EmbeddingModel)
	}

	index := retrieval.NewIndex(embedder, logger)
	if err := index.LoadDir(ctx, cfg.LoreDir); err != nil {
		return nil, err
	}
	if index.Len() == 0 {
		return nil, nil
	}
	return index, nil
}

func newOrchestrator(cfg *config.Config, backend inference.Backend, store repository.TranscriptStore, tools api.Tools, logger *slog.Logger) (api.Orchestrator, error) {
	if cfg.Orchestrator == config.OrchestratorRouter {
		handlers := router.Handlers{
			Characters: tools.Characters,
			Encounters: tools.Encounters,
			Dice:       tools.Dice,
			Lore:       tools.Lore,
		}
		return router.NewSupervisor(router.New(backend), backend, store, handlers, logger), nil
	}

	a := agent.New(backend, store, assets.SystemInstruction,
		agent.WithLogger(logger),
		agent.WithMaxIterations(cfg.MaxIterations),
	)

	declarations := []*agent.FunctionDeclaration{
		functions.CreateNPCFunctionDeclaration(tools.Characters),
		functions.CreateEncounterFunctionDeclaration(tools.Encounters),
		functions.CreateDiceFunctionDeclaration(tools.Dice),
		functions.CreateLoreFunctionDeclaration(tools.Lore),
	}
	for _, fd := range declarations {
		if err := a.AddFunctionCall(fd); err != nil {
			return nil, fmt.Errorf("register %s: %w", fd.Name, err)
		}
	}

	return a, nil
}
