package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"valuationScope/internal/config"
	"valuationScope/internal/storage/postgres"
	"valuationScope/internal/trending"
)

func runTrending(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTrending(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	histories, err := store.LoadTokenHistory(ctx)
	if err != nil {
		return fmt.Errorf("load token history: %w", err)
	}

	scorer := trending.NewScorer(logger)
	scores := scorer.ScoreAll(histories, time.Now())

	if err := store.UpsertTrendingScores(ctx, scores); err != nil {
		return fmt.Errorf("upsert trending scores: %w", err)
	}

	logger.Info("trending complete",
		zap.Int("histories", len(histories)),
		zap.Int("scored", len(scores)),
	)

	return nil
}
