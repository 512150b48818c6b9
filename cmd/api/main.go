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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/user/site-mirror/internal/adapter/chromedp_renderer"
	"github.com/user/site-mirror/internal/adapter/httptransport"
	"github.com/user/site-mirror/internal/adapter/memory"
	"github.com/user/site-mirror/internal/adapter/postgres"
	redis_adapter "github.com/user/site-mirror/internal/adapter/redis"
	"github.com/user/site-mirror/internal/delivery/http/handler"
	"github.com/user/site-mirror/internal/delivery/http/router"
	"github.com/user/site-mirror/internal/extractor"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/internal/usecase"
	"github.com/user/site-mirror/pkg/config"
	"github.com/user/site-mirror/pkg/logger"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Configuration ---
	fs := pflag.NewFlagSet("api", pflag.ExitOnError)
	fs.String("port", "8080", "HTTP listen port")
	fs.Int("max-jobs", 4, "maximum concurrently running mirror jobs")
	fs.StringP("output", "o", ".", "root directory for job output")
	fs.BoolP("verbose", "v", false, "debug logging")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs, "")
	if err != nil {
		zap.NewExample().Fatal("could not load config", zap.Error(err))
	}

	// --- Logger ---
	log, err := logger.New(logger.Options{JSON: true, Verbose: cfg.Verbose, Quiet: cfg.Quiet})
	if err != nil {
		zap.NewExample().Fatal("could not init logger", zap.Error(err))
	}
	defer log.Sync()

	// --- Metrics ---
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handler.HealthCheck)

	// --- Stores ---
	var (
		jobs      repository.JobRepository      = memory.NewJobs()
		manifests repository.ManifestRepository = memory.NewManifest()
	)
	if cfg.PostgresURL != "" {
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Fatal("unable to connect to database", zap.Error(err))
		}
		defer dbpool.Close()
		if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
			log.Fatal("unable to create schema", zap.Error(err))
		}
		jobs = postgres.NewJobRepo(dbpool)
		manifests = postgres.NewManifestRepo(dbpool)
		checks["postgres"] = dbpool.Ping
		log.Info("PostgreSQL connection pool established")
	}

	newState := usecase.StateFactory(memory.NewRunState)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("unable to connect to Redis", zap.Error(err))
		}
		newState = redis_adapter.RunStateFactory(rdb, 0)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info("Redis connection established")
	}

	// --- Use Cases ---
	scanner, err := extractor.NewScanner(cfg.Scanner)
	if err != nil {
		log.Fatal("invalid scanner", zap.Error(err))
	}
	policy, err := usecase.ParseSiblingPolicy(cfg.SiblingPolicy)
	if err != nil {
		log.Fatal("invalid sibling policy", zap.Error(err))
	}

	var transport repository.Transport = httptransport.New(cfg.Timeout, cfg.UserAgent)
	if cfg.Render {
		renderer := chromedp_renderer.NewRenderingTransport(transport, cfg.RenderTimeout, cfg.UserAgent, log)
		defer renderer.Close()
		transport = renderer
	}

	mirror := usecase.NewMirrorUseCase(transport, newState, manifests, scanner, policy, m, log)
	jobManager := usecase.NewJobManager(ctx, mirror, jobs, manifests, cfg.OutputDir, cfg.MaxConcurrentJobs, m, log)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(jobManager, checks, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, m, prometheus.DefaultGatherer, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		jobManager.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("server exiting")
}
