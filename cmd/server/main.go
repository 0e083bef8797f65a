package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tracko.app/finance-tracker/internal/api"
	"tracko.app/finance-tracker/internal/assistant"
	"tracko.app/finance-tracker/internal/auth"
	"tracko.app/finance-tracker/internal/config"
	"tracko.app/finance-tracker/internal/core"
	"tracko.app/finance-tracker/internal/logger"
	"tracko.app/finance-tracker/internal/store"
	"tracko.app/finance-tracker/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer dbStore.Close()

	completer, closeCompleter, err := newCompleter(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.CompletionBackend).Msg("Failed to initialize completion service")
	}
	defer closeCompleter()

	matcher, err := utils.NewCategoryMatcher()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load category catalogue")
	}

	executor := assistant.NewDefaultExecutor(dbStore,
		assistant.WithLocation(cfg.Location()),
		assistant.WithCategoryResolver(matcher),
	)
	dispatcher := assistant.NewDispatcher(completer, executor, cfg.CompletionTimeout)

	apiHandler := api.NewAPIHandler(api.Deps{
		Users:        dbStore,
		Tokens:       auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Transactions: core.NewTransactionService(dbStore, matcher),
		Budgets:      core.NewBudgetService(dbStore, matcher),
		Assistant:    dispatcher,
	})
	router := api.NewRouter(apiHandler, log, cfg.ClientURL)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a query can chain four completion calls
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("backend", cfg.CompletionBackend).Str("timezone", cfg.AssistantTimezone).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("Could not listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}
	log.Info().Msg("Server exiting gracefully")
}

// newCompleter builds the configured completion backend and its cleanup.
func newCompleter(ctx context.Context, cfg *config.Config) (core.Completer, func(), error) {
	switch cfg.CompletionBackend {
	case config.BackendGenAI:
		svc, err := core.NewGenAIService(ctx, cfg.GeminiAPIKey, cfg.CompletionModel)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() {}, nil
	default:
		svc, err := core.NewLLMService(ctx, cfg.GeminiAPIKey, cfg.CompletionModel)
		if err != nil {
			return nil, nil, err
		}
		return svc, func() { svc.Close() }, nil
	}
}
