package snapshot

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"valuationScope/internal/chain"
	"valuationScope/internal/dex"
	"valuationScope/internal/model"
	"valuationScope/internal/storage"
)

// ReadConfig holds runtime settings for a snapshot run.
type ReadConfig struct {
	Pairs             []common.Address
	BatchSize         int
	Concurrency       int
	BlockNumber       uint64 // 0 means latest
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Reader materializes a point-in-time snapshot of every configured pair:
// reserves, LP supply and token metadata, all pinned to one block. Reads fan
// out over a bounded worker pool; batches land in the sink in input order.
type Reader struct {
	cfg        ReadConfig
	chain      *chain.Client
	sink       storage.SnapshotSink
	logger     *zap.Logger
	pairMeta   *dex.PairMetaCache
	tokenMeta  *dex.TokenMetaCache
	seenTokens map[string]struct{}
	checkpoint *CheckpointStore
}

// NewReader builds a Reader with its dependencies.
func NewReader(cfg ReadConfig, chainClient *chain.Client, sink storage.SnapshotSink, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		cfg:        cfg,
		chain:      chainClient,
		sink:       sink,
		logger:     logger,
		pairMeta:   dex.NewPairMetaCache(),
		tokenMeta:  dex.NewTokenMetaCache(),
		seenTokens: make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the snapshot loop.
func (r *Reader) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Concurrency <= 0 {
		r.cfg.Concurrency = 4
	}
	if len(r.cfg.Pairs) == 0 {
		return fmt.Errorf("at least one pair address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	block := r.cfg.BlockNumber
	if block == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		block = latest
	}
	timestamp, err := r.chain.BlockTimestamp(ctx, block)
	if err != nil {
		return fmt.Errorf("block timestamp %d: %w", block, err)
	}
	takenAt := time.Now().UTC().Format(time.RFC3339Nano)

	completed := 0
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.BlockNumber == block && cp.CompletedPairs > 0 && cp.CompletedPairs <= len(r.cfg.Pairs) {
			completed = cp.CompletedPairs
			r.logger.Info("resume from checkpoint", zap.Uint64("block", block), zap.Int("completed_pairs", completed))
		}
	}

	batches, err := SplitBatches(r.cfg.Pairs[completed:], r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		records, err := r.readBatch(ctx, batch, chainIDValue, block, timestamp, takenAt)
		if err != nil {
			return err
		}
		if err := r.sink.PutSnapshotBatch(ctx, records); err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}

		completed += len(batch)
		if r.checkpoint != nil {
			if err := r.checkpoint.Save(block, completed); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete",
			zap.Int("pairs", len(batch)),
			zap.Int("records", len(records)),
			zap.Int("completed", completed),
			zap.Uint64("block", block),
		)
	}

	r.logger.Info("snapshot complete", zap.Uint64("block", block), zap.Int("pairs", completed))
	return nil
}

func (r *Reader) readBatch(ctx context.Context, batch []common.Address, chainID, block, timestamp uint64, takenAt string) ([]model.SnapshotRecord, error) {
	results := make([][]model.SnapshotRecord, len(batch))
	errs := make([]error, len(batch))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := r.cfg.Concurrency
	if workers > len(batch) {
		workers = len(batch)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = r.readPair(ctx, batch[i], chainID, block, timestamp, takenAt)
			}
		}()
	}

	for i := range batch {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	// Flatten in input order, keeping the first record per token address.
	flattened := make([]model.SnapshotRecord, 0, len(batch)*4)
	for i := range batch {
		if errs[i] != nil {
			return nil, fmt.Errorf("pair %s: %w", batch[i].Hex(), errs[i])
		}
		for _, record := range results[i] {
			if record.Token != nil {
				if _, seen := r.seenTokens[record.Token.ID]; seen {
					continue
				}
				r.seenTokens[record.Token.ID] = struct{}{}
			}
			flattened = append(flattened, record)
		}
	}
	return flattened, nil
}

// readPair reads one pair's state and emits its pair record plus token
// records for both sides and the LP token the pair mints.
func (r *Reader) readPair(ctx context.Context, pair common.Address, chainID, block, timestamp uint64, takenAt string) ([]model.SnapshotRecord, error) {
	meta, ok := r.pairMeta.Get(pair)
	if !ok {
		var err error
		if retryErr := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			meta, err = dex.FetchPairMeta(ctx, r.chain, pair)
			return err
		}); retryErr != nil {
			return nil, fmt.Errorf("pair meta: %w", retryErr)
		}
		r.pairMeta.Set(pair, meta)
	}

	var state dex.PairState
	blockPtr := new(big.Int).SetUint64(block)
	if retryErr := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		state, err = dex.FetchPairState(ctx, r.chain, pair, blockPtr)
		return err
	}); retryErr != nil {
		return nil, fmt.Errorf("pair state: %w", retryErr)
	}

	token0, err := r.tokenRecord(ctx, meta.Token0)
	if err != nil {
		return nil, err
	}
	token1, err := r.tokenRecord(ctx, meta.Token1)
	if err != nil {
		return nil, err
	}

	pairState := model.PairStateInactive
	if state.Reserve0.Sign() > 0 && state.Reserve1.Sign() > 0 {
		pairState = model.PairStateActive
	}

	lpToken := &model.Token{
		ID:          pair.Hex(),
		Symbol:      "LP",
		Decimals:    meta.Decimals,
		Kind:        model.TokenKindLiquidityPool,
		PairAddress: pair.Hex(),
	}
	if lpMeta, err := dex.FetchTokenMeta(ctx, r.chain, pair, r.logger); err == nil {
		lpToken.Symbol = lpMeta.Symbol
		lpToken.Name = lpMeta.Name
	}

	pairRecord := &model.Pair{
		Address:              pair.Hex(),
		FirstTokenID:         meta.Token0.Hex(),
		SecondTokenID:        meta.Token1.Hex(),
		Reserves0:            state.Reserve0.String(),
		Reserves1:            state.Reserve1.String(),
		TotalSupply:          state.TotalSupply.String(),
		State:                pairState,
		LiquidityPoolTokenID: pair.Hex(),
	}

	stamp := func(record model.SnapshotRecord) model.SnapshotRecord {
		record.ChainID = chainID
		record.BlockNumber = block
		record.Timestamp = timestamp
		record.TakenAt = takenAt
		return record
	}

	return []model.SnapshotRecord{
		stamp(model.SnapshotRecord{Pair: pairRecord}),
		stamp(model.SnapshotRecord{Token: token0}),
		stamp(model.SnapshotRecord{Token: token1}),
		stamp(model.SnapshotRecord{Token: lpToken}),
	}, nil
}

func (r *Reader) tokenRecord(ctx context.Context, token common.Address) (*model.Token, error) {
	meta, ok := r.tokenMeta.Get(token)
	if !ok {
		var err error
		if retryErr := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			meta, err = dex.FetchTokenMeta(ctx, r.chain, token, r.logger)
			return err
		}); retryErr != nil {
			return nil, fmt.Errorf("token meta %s: %w", token.Hex(), retryErr)
		}
		r.tokenMeta.Set(token, meta)
	}

	return &model.Token{
		ID:       token.Hex(),
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
		Kind:     model.TokenKindFungible,
	}, nil
}
