package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/recipe-service/internal/adapter/chromedp_renderer"
	"github.com/user/recipe-service/internal/adapter/httpfetch"
	"github.com/user/recipe-service/internal/adapter/memory"
	"github.com/user/recipe-service/internal/adapter/postgres"
	redis_adapter "github.com/user/recipe-service/internal/adapter/redis"
	"github.com/user/recipe-service/internal/adapter/tesseract"
	"github.com/user/recipe-service/internal/delivery/http/handler"
	"github.com/user/recipe-service/internal/delivery/http/router"
	"github.com/user/recipe-service/internal/extraction"
	"github.com/user/recipe-service/internal/progress"
	"github.com/user/recipe-service/internal/repository"
	"github.com/user/recipe-service/internal/scoring"
	"github.com/user/recipe-service/internal/usecase"
	"github.com/user/recipe-service/internal/validation"
	"github.com/user/recipe-service/internal/worker"
	"github.com/user/recipe-service/pkg/config"
	"github.com/user/recipe-service/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		panic("could not load config: " + err.Error())
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("could not build logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Storage ---
	var (
		recipes  repository.RecipeRepository
		failures repository.ExtractionLogRepository
		cache    repository.PageCache
		checks   = map[string]handler.HealthCheck{}
	)
	if cfg.PostgresURL != "" {
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("Unable to connect to database", zap.Error(err))
		}
		defer dbpool.Close()
		recipes = postgres.NewRecipeRepo(dbpool)
		failures = postgres.NewExtractionLogRepo(dbpool)
		checks["postgres"] = dbpool.Ping
		log.Info("PostgreSQL connection pool established")
	} else {
		log.Warn("POSTGRES_URL not set; approved recipes will not be persisted")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("Unable to connect to Redis", zap.Error(err))
		}
		cache = redis_adapter.NewPageCache(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("Redis connection established")
	}

	// --- Fetching ---
	identity := httpfetch.NewIdentityRotator(cfg.Proxies(), nil)
	var fetcher repository.PageFetcher = httpfetch.NewFetcher(identity, cfg.FetchTimeout(), log)
	if cfg.BrowserFallback {
		renderer := chromedp_renderer.NewChromedpRenderer(cfg.BrowserConcurrency, cfg.BrowserTimeout(), log)
		defer renderer.Close()
		fetcher = httpfetch.NewFallbackFetcher(fetcher, renderer, log)
		log.Info("Headless browser fallback enabled")
	}
	if cache != nil {
		fetcher = httpfetch.NewCachingFetcher(fetcher, cache, cfg.PageCacheTTL(), log)
	}

	// --- Extraction ---
	pool := worker.NewPool(log.Named("scraper_pool"),
		worker.WithWorkers(cfg.ScraperWorkers),
		worker.WithQueueSize(cfg.ScraperQueueSize),
	)
	opts := extraction.Options{Pool: pool}
	if cfg.SiteLayoutsFile != "" {
		layouts, err := extraction.LoadLayouts(cfg.SiteLayoutsFile)
		if err != nil {
			log.Fatal("Unable to load site layouts", zap.String("path", cfg.SiteLayoutsFile), zap.Error(err))
		}
		opts.Layouts = layouts
		log.Info("Site layouts loaded", zap.Int("count", len(layouts)))
	}
	recognizer := tesseract.NewRecognizer(cfg.TesseractBin, cfg.TesseractLang, nil, log)
	extractor := extraction.NewExtractor(fetcher, recognizer, log, opts)

	// --- Use Cases ---
	scorer := scoring.NewScorer()
	pipeline := validation.NewPipeline(memory.NewPendingStore(), scorer, log, cfg.ReviewThreshold)
	sessions := progress.NewBroadcaster(log,
		progress.WithMaxEvents(cfg.SessionMaxEvents),
		progress.WithTTL(cfg.SessionTTL()),
	)
	go sessions.Run(ctx)

	extractionUC := usecase.NewExtractionUseCase(extractor, scorer, scoring.NewDetector(cfg.BlockedThreshold), pipeline, sessions, failures, log)
	reviewUC := usecase.NewReviewUseCase(pipeline, recipes, log)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(extractionUC, reviewUC, sessions, log)
	for name, check := range checks {
		apiHandler.WithHealthCheck(name, check)
	}

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router.New(apiHandler, log),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: progress streams stay open for a whole extraction.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	pool.Shutdown(shutdownCtx)
	log.Info("Server exiting")
}
