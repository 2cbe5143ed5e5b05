// server runs the HOA portal document API and translation workers.
//
// Translation events go through Redis (asynq) when QUEUE_MODE=asynq, or run
// in-process when QUEUE_MODE=inline.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hoaportal/backend/internal/api"
	"github.com/hoaportal/backend/internal/api/handlers"
	"github.com/hoaportal/backend/internal/config"
	"github.com/hoaportal/backend/internal/database"
	"github.com/hoaportal/backend/internal/metrics"
	"github.com/hoaportal/backend/internal/middleware"
	"github.com/hoaportal/backend/internal/services"
)

func main() {
	// .env is optional; real environment variables win
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	services.SetDebugLogging(cfg.Translation.Debug)

	if err := database.Initialize(cfg.Database.Path, cfg.Database.LogLevel); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document storage
	var files services.FileStore
	var localFiles *services.LocalFileStore
	switch cfg.Storage.Driver {
	case "s3":
		s3Files, err := services.NewS3FileStore(ctx, cfg.Storage.S3)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		files = s3Files
		log.Printf("Document storage: s3 (bucket=%s)", cfg.Storage.S3.Bucket)
	default:
		if cfg.IsProduction() && cfg.Storage.SigningSecret == "change-me-in-production" {
			log.Fatal("STORAGE_SIGNING_SECRET must be set in production")
		}
		localFiles = services.NewLocalFileStore(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL, cfg.Storage.SigningSecret)
		files = localFiles
		log.Printf("Document storage: local (%s)", cfg.Storage.LocalDir)
	}

	// Translation pipeline
	cache := services.NewTranslationCache(cfg.Translation.CacheCapacity, cfg.Translation.CacheTTL)
	translator := services.NewLLMTranslationService(cfg.Translation, cache)
	materializer := services.NewDocumentMaterializer(db, files, translator)
	documents := services.NewDocumentService(db, files, cfg.Storage.SignedURLTTL)
	jobs := services.NewTranslationJobService(db, cfg.Translation.MaxAttempts)
	runner := services.NewTranslationRunner(jobs, materializer)

	g, gCtx := errgroup.WithContext(ctx)

	var dispatcher services.TranslationDispatcher
	var inline *services.InlineDispatcher
	if cfg.Queue.Mode == "inline" {
		inline = services.NewInlineDispatcher(runner, cfg.Queue.Concurrency)
		dispatcher = inline
		log.Printf("Translation queue: inline (concurrency=%d)", cfg.Queue.Concurrency)
	} else {
		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}

		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis not available: %v", err)
		}
		redisClient.Close()

		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()
		dispatcher = services.NewAsynqDispatcher(asynqClient, cfg.Queue.MaxRetry)

		worker := asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues:      map[string]int{services.TranslationQueue: 1},
			LogLevel:    asynqLogLevel(cfg.Translation.Debug),
		})
		mux := asynq.NewServeMux()
		mux.HandleFunc(services.TaskTypeTranslateDocument, services.NewTranslationTaskHandler(runner).ProcessTask)

		g.Go(func() error {
			if err := worker.Start(mux); err != nil {
				return err
			}
			<-gCtx.Done()
			worker.Shutdown()
			return nil
		})
		log.Printf("Translation queue: asynq (redis=%s, concurrency=%d)", cfg.Redis.Addr, cfg.Queue.Concurrency)
	}

	sweeper := services.NewTranslationSweeper(db, jobs, dispatcher,
		cfg.Sweeper.Interval, cfg.Sweeper.StaleProcessing, cfg.Sweeper.RedispatchAfter)
	sweeper.Start()

	adminAuth := middleware.NewAdminAuth(cfg.Server.AdminKey, cfg.IsProduction())
	switch {
	case adminAuth.Enabled():
	case cfg.IsProduction():
		log.Println("Warning: ADMIN_KEY not set, admin routes are closed")
	default:
		log.Println("Warning: ADMIN_KEY not set, admin routes are open")
	}

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(metrics.HTTPMetrics("/metrics", "/health"))
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"translation": translator.IsEnabled(),
			"queue":       cfg.Queue.Mode,
			"storage":     cfg.Storage.Driver,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes := api.Routes{
		Documents:        handlers.NewDocumentHandler(documents),
		Translations:     handlers.NewTranslationHandler(documents, jobs, dispatcher),
		Admin:            handlers.NewAdminHandler(cache, sweeper),
		AdminAuth:        adminAuth,
		TranslateLimiter: middleware.PerMinute(cfg.Server.TranslateRatePerMin),
	}
	if localFiles != nil {
		routes.Files = handlers.NewFileHandler(localFiles)
	}
	api.SetupRoutes(router, routes)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server error: %v", err)
	}

	sweeper.Stop()
	if inline != nil {
		inline.Wait()
	}
	log.Println("Server stopped")
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func asynqLogLevel(debug bool) asynq.LogLevel {
	if debug {
		return asynq.DebugLevel
	}
	return asynq.WarnLevel
}
