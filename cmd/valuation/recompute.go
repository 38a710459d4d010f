package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"valuationScope/internal/config"
	"valuationScope/internal/model"
	"valuationScope/internal/storage"
	"valuationScope/internal/storage/postgres"
	"valuationScope/internal/valuation"
)

func runRecompute(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRecompute(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.ReferenceToken == "" {
		return fmt.Errorf("reference token is required")
	}
	if cfg.ReferenceFiatPrice == "" {
		return fmt.Errorf("reference fiat price is required")
	}
	referenceFiatPrice, err := decimal.NewFromString(cfg.ReferenceFiatPrice)
	if err != nil {
		return fmt.Errorf("parse reference-fiat-price: %w", err)
	}
	fiatAnchorPrice, err := decimal.NewFromString(cfg.FiatAnchorPrice)
	if err != nil {
		return fmt.Errorf("parse fiat-anchor-price: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
	}

	pairs, tokens, err := loadSnapshot(ctx, cfg, store)
	if err != nil {
		return err
	}

	common := make(map[string]struct{}, len(cfg.CommonTokens))
	for _, id := range cfg.CommonTokens {
		common[id] = struct{}{}
	}

	snap := &valuation.Snapshot{
		Pairs:              pairs,
		Tokens:             tokens,
		ReferenceFiatPrice: referenceFiatPrice,
		FiatAnchorPrice:    fiatAnchorPrice,
		CommonTokenIDs:     common,
	}

	engine := valuation.NewEngine(valuation.Config{
		ReferenceTokenID: cfg.ReferenceToken,
		StableTokenID:    cfg.StableToken,
	}, logger)

	logger.Info("recompute start",
		zap.Int("pairs", len(pairs)),
		zap.Int("tokens", len(tokens)),
		zap.Int("common_tokens", len(common)),
		zap.String("reference_token", cfg.ReferenceToken),
		zap.String("stable_token", cfg.StableToken),
	)

	result, err := engine.Recompute(snap)
	if err != nil {
		return err
	}

	if err := persistSnapshot(ctx, cfg, store, snap); err != nil {
		return err
	}

	var stateStore storage.StateStore
	if cfg.StateFile != "" {
		stateStore = &storage.FileStateStore{Path: cfg.StateFile}
	} else if store != nil {
		stateStore = &storage.DBStateStore{Store: store, Name: "recompute"}
	}
	if stateStore != nil {
		if err := stateStore.Save(ctx, uint64(time.Now().Unix())); err != nil {
			return err
		}
	}

	logger.Info("recompute done", zap.Int("changed_tokens", len(result.ChangedTokenIDs)))
	for _, id := range result.ChangedTokenIDs {
		logger.Debug("token changed", zap.String("token", id))
	}

	return nil
}

func loadSnapshot(ctx context.Context, cfg config.RecomputeConfig, store *postgres.Store) (map[string]*model.Pair, map[string]*model.Token, error) {
	if cfg.In != "" {
		records, err := storage.LoadSnapshotFile(cfg.In)
		if err != nil {
			return nil, nil, err
		}
		pairs := make(map[string]*model.Pair, len(records))
		tokens := make(map[string]*model.Token, len(records))
		for _, record := range records {
			if record.Pair != nil {
				pair := *record.Pair
				pairs[pair.Address] = &pair
			}
			if record.Token != nil {
				token := *record.Token
				tokens[token.ID] = &token
			}
		}
		return pairs, tokens, nil
	}

	if store == nil {
		return nil, nil, fmt.Errorf("input path or pg dsn is required")
	}
	pairs, err := store.LoadPairs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load pairs: %w", err)
	}
	tokens, err := store.LoadTokens(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load tokens: %w", err)
	}
	return pairs, tokens, nil
}

func persistSnapshot(ctx context.Context, cfg config.RecomputeConfig, store *postgres.Store, snap *valuation.Snapshot) error {
	if store != nil {
		tokens := make([]model.Token, 0, len(snap.Tokens))
		for _, token := range snap.Tokens {
			tokens = append(tokens, *token)
		}
		if err := store.UpsertTokens(ctx, tokens); err != nil {
			return fmt.Errorf("upsert tokens: %w", err)
		}
		pairs := make([]model.Pair, 0, len(snap.Pairs))
		for _, pair := range snap.Pairs {
			pairs = append(pairs, *pair)
		}
		if err := store.UpsertPairs(ctx, pairs); err != nil {
			return fmt.Errorf("upsert pairs: %w", err)
		}
	}

	if cfg.Out != "" {
		takenAt := time.Now().UTC().Format(time.RFC3339Nano)
		records := make([]model.SnapshotRecord, 0, len(snap.Pairs)+len(snap.Tokens))
		for _, pair := range snap.Pairs {
			records = append(records, model.SnapshotRecord{TakenAt: takenAt, Pair: pair})
		}
		for _, token := range snap.Tokens {
			records = append(records, model.SnapshotRecord{TakenAt: takenAt, Token: token})
		}
		sink := storage.NewJsonlStorage(cfg.Out)
		if err := sink.PutSnapshotBatch(ctx, records); err != nil {
			return err
		}
	}

	return nil
}
