package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/user/site-mirror/internal/adapter/chromedp_renderer"
	"github.com/user/site-mirror/internal/adapter/httptransport"
	"github.com/user/site-mirror/internal/adapter/memory"
	"github.com/user/site-mirror/internal/adapter/postgres"
	redis_adapter "github.com/user/site-mirror/internal/adapter/redis"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/extractor"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/internal/usecase"
	"github.com/user/site-mirror/pkg/config"
	"github.com/user/site-mirror/pkg/logger"
	"github.com/user/site-mirror/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror [flags] URL",
		Short: "Download a website for offline browsing",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	f := cmd.Flags()
	f.StringP("output", "o", ".", "output root")
	f.IntP("depth", "d", 0, "link depth")
	f.BoolP("convert-links", "c", false, "rewrite links for offline browsing")
	f.BoolP("quiet", "q", false, "suppress per-fetch info lines")
	f.BoolP("verbose", "v", false, "resolution trace output")
	f.Bool("log-json", false, "log as JSON")
	f.Bool("render", false, "render HTML pages with headless Chrome")
	f.String("scanner", "regex", "reference scanner: regex|dom")
	f.String("sibling-policy", "revisit", "link recursion policy: revisit|once")
	f.String("user-agent", "", "request User-Agent")
	f.Duration("timeout", 30*time.Second, "transport timeout")
	f.String("redis-addr", "", "keep registry and ledger in Redis at this address")
	f.String("postgres-url", "", "record the run manifest in PostgreSQL")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load(cmd.Flags(), "")
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{JSON: cfg.LogJSON, Verbose: cfg.Verbose, Quiet: cfg.Quiet})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner, err := extractor.NewScanner(cfg.Scanner)
	if err != nil {
		return err
	}
	policy, err := usecase.ParseSiblingPolicy(cfg.SiblingPolicy)
	if err != nil {
		return err
	}

	var transport repository.Transport = httptransport.New(cfg.Timeout, cfg.UserAgent)
	if cfg.Render {
		renderer := chromedp_renderer.NewRenderingTransport(transport, cfg.RenderTimeout, cfg.UserAgent, log)
		defer renderer.Close()
		transport = renderer
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
			return fmt.Errorf("connect to redis: %w", err)
		}
		newState = redis_adapter.RunStateFactory(rdb, 0)
		log.Debug("registry and ledger kept in redis", zap.String("addr", cfg.RedisAddr))
	}

	var manifests repository.ManifestRepository
	if cfg.PostgresURL != "" {
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer dbpool.Close()
		if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
			return err
		}
		manifests = postgres.NewManifestRepo(dbpool)
	}

	mirror := usecase.NewMirrorUseCase(transport, newState, manifests, scanner, policy, nil, log)

	runID := utils.HashURL(fmt.Sprintf("%s|%d", args[0], time.Now().UnixNano()))[:16]
	result, err := mirror.Run(ctx, runID, entity.MirrorRequest{
		SeedURL:      args[0],
		OutputDir:    cfg.OutputDir,
		Depth:        cfg.Depth,
		ConvertLinks: cfg.ConvertLinks,
	})
	if err != nil {
		log.Error("mirror failed", zap.String("run_id", runID), zap.Error(err))
		return err
	}

	log.Info("done",
		zap.String("seed", result.Seed.ResolvedURL),
		zap.Int("files", len(result.Manifest)),
	)
	return nil
}
