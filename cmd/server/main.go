package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Mall/internal/adapters/http"
	"github.com/dkeye/Mall/internal/app"
	"github.com/dkeye/Mall/internal/app/orch"
	"github.com/dkeye/Mall/internal/bot"
	"github.com/dkeye/Mall/internal/config"
	"github.com/dkeye/Mall/internal/llm"
	"github.com/dkeye/Mall/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Console output until the configured logger is in place.
	logging.Init(logging.Config{Level: "info", Pretty: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	var completer bot.Completer
	model, err := llm.NewModel(cfg.LLM)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.LLM.Provider).Msg("language model unavailable, bot will answer with fallback")
		completer = llm.Unavailable{Reason: err}
	} else {
		log.Info().Str("provider", cfg.LLM.Provider).Str("model", model.Model()).Msg("language model ready")
		completer = model
	}

	var repo bot.Repository
	var memRepo *bot.MemoryRepository
	switch cfg.Bot.Store {
	case config.StoreRedis:
		redisRepo, err := bot.NewRedisRepository(cfg.Redis, cfg.Bot.IdleTTL)
		if err != nil {
			log.Fatal().Err(err).Str("address", cfg.Redis.Address).Msg("failed to connect to redis")
		}
		repo = redisRepo
	default:
		memRepo = bot.NewMemoryRepository()
		repo = memRepo
	}

	store := bot.NewStore(repo, completer, bot.Options{
		Persona:    cfg.Bot.Persona,
		Fallback:   cfg.Bot.Fallback,
		HistoryCap: cfg.Bot.HistoryCap,
		MaxPending: cfg.Bot.MaxPending,
		Timeout:    cfg.Bot.Timeout,
	})
	limiter := bot.NewRateLimiter(cfg.Bot.RateLimit, cfg.Bot.RateInterval)

	o := orch.New(app.PolicyFor(cfg.Signal.Backpressure), cfg.Signal.StrictRooms)

	r := router.SetupRouter(ctx, cfg, router.Deps{Orch: o, Bot: store, Limiter: limiter})
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Mall server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if memRepo != nil {
		g.Go(func() error {
			return memRepo.RunJanitor(gctx, time.Minute, cfg.Bot.IdleTTL)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		store.Close()
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("close conversation store")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("Server exited gracefully")
}
