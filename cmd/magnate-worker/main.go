package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"magnate/internal/config"
	"magnate/internal/db"
	"magnate/internal/game"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := game.NewService(pool, logger)
	if cfg.StartupSeedCatalogs {
		if err := svc.SeedCatalogs(ctx); err != nil {
			logger.Error("seed catalogs failed", "err", err)
			os.Exit(1)
		}
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("MAGNATE_WORKER_RUN_ONCE")), "true")
	if runOnce {
		turn, advanced, err := svc.TickDue(ctx)
		if err != nil {
			logger.Error("turn tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "turn", turn, "advanced", advanced)
		return
	}

	ticker := time.NewTicker(cfg.TurnCheckEvery)
	defer ticker.Stop()

	logger.Info("worker started", "check_every", cfg.TurnCheckEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			turn, advanced, err := svc.TickDue(ctx)
			if err != nil {
				logger.Error("turn tick failed", "err", err)
				continue
			}
			if advanced {
				logger.Info("turn complete", "turn", turn)
			}
		}
	}
}
