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
	"go.uber.org/zap/zapcore"

	"valuationScope/internal/chain"
	"valuationScope/internal/config"
	"valuationScope/internal/snapshot"
	"valuationScope/internal/storage"
	"valuationScope/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "valuation",
		Short:        "DEX valuation and pricing engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Materialize pair and token state from chain",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("rpc", "", "chain RPC URL")
	snapshotCmd.Flags().StringSlice("pair", nil, "pair addresses (comma-separated)")
	snapshotCmd.Flags().Int("batch-size", 50, "pairs per batch")
	snapshotCmd.Flags().Int("concurrency", 4, "concurrent RPC reads per batch")
	snapshotCmd.Flags().Uint64("block", 0, "snapshot block, 0 means latest")
	snapshotCmd.Flags().String("out", "./data/snapshot.jsonl", "output JSONL path")
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional sink)")
	snapshotCmd.Flags().String("checkpoint", "./data/snapshot_checkpoint.json", "checkpoint file path")
	snapshotCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	snapshotCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	snapshotCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	recomputeCmd := &cobra.Command{
		Use:   "recompute",
		Short: "Run one valuation pass over a snapshot",
		RunE:  runRecompute,
	}

	recomputeCmd.Flags().String("in", "", "input snapshot JSONL (alternative to pg-dsn)")
	recomputeCmd.Flags().String("out", "", "output snapshot JSONL with recomputed fields")
	recomputeCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	recomputeCmd.Flags().String("reference-token", "", "reference currency token id")
	recomputeCmd.Flags().String("stable-token", "", "fiat-anchor token id")
	recomputeCmd.Flags().StringSlice("common-token", nil, "common token ids trusted for TVL (comma-separated)")
	recomputeCmd.Flags().String("reference-fiat-price", "", "fiat price of the reference token")
	recomputeCmd.Flags().String("fiat-anchor-price", "1", "secondary fiat oracle multiplier")
	recomputeCmd.Flags().String("state-file", "", "optional local state file for pass tracking")
	recomputeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(recomputeCmd)

	trendingCmd := &cobra.Command{
		Use:   "trending",
		Short: "Score tokens by trading momentum",
		RunE:  runTrending,
	}

	trendingCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	trendingCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(trendingCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	pairs, err := snapshot.ParseAddresses(cfg.Pairs)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("pair list is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sinks := storage.MultiSink{}
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	if len(sinks) == 0 {
		return fmt.Errorf("out path or pg dsn is required")
	}

	reader := snapshot.NewReader(snapshot.ReadConfig{
		Pairs:             pairs,
		BatchSize:         cfg.BatchSize,
		Concurrency:       cfg.Concurrency,
		BlockNumber:       cfg.Block,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, chainClient, sinks, logger)

	logger.Info("snapshot start",
		zap.String("rpc", cfg.RPCURL),
		zap.Int("pairs", len(pairs)),
		zap.Uint64("block", cfg.Block),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	return reader.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
