package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"valuationScope/internal/model"
)

// Store provides Postgres persistence for pairs, tokens and trending scores.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutSnapshotBatch upserts a batch of snapshot records, pairs and tokens
// alike, so the store can act as a snapshot sink.
func (s *Store) PutSnapshotBatch(ctx context.Context, records []model.SnapshotRecord) error {
	pairs := make([]model.Pair, 0, len(records))
	tokens := make([]model.Token, 0, len(records))
	for _, record := range records {
		if record.Pair != nil {
			pairs = append(pairs, *record.Pair)
		}
		if record.Token != nil {
			tokens = append(tokens, *record.Token)
		}
	}
	if err := s.UpsertTokens(ctx, tokens); err != nil {
		return err
	}
	return s.UpsertPairs(ctx, pairs)
}

// UpsertPairs inserts or updates pair rows.
func (s *Store) UpsertPairs(ctx context.Context, pairs []model.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pair := range pairs {
		batch.Queue(`
			INSERT INTO pairs (
				address, first_token_id, second_token_id, reserves0, reserves1,
				total_supply, state, lp_token_id,
				first_token_price, second_token_price,
				first_token_price_usd, second_token_price_usd,
				first_token_locked_value_usd, second_token_locked_value_usd,
				locked_value_usd, lp_token_price_usd, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (address)
			DO UPDATE SET
				first_token_id = EXCLUDED.first_token_id,
				second_token_id = EXCLUDED.second_token_id,
				reserves0 = EXCLUDED.reserves0,
				reserves1 = EXCLUDED.reserves1,
				total_supply = EXCLUDED.total_supply,
				state = EXCLUDED.state,
				lp_token_id = EXCLUDED.lp_token_id,
				first_token_price = EXCLUDED.first_token_price,
				second_token_price = EXCLUDED.second_token_price,
				first_token_price_usd = EXCLUDED.first_token_price_usd,
				second_token_price_usd = EXCLUDED.second_token_price_usd,
				first_token_locked_value_usd = EXCLUDED.first_token_locked_value_usd,
				second_token_locked_value_usd = EXCLUDED.second_token_locked_value_usd,
				locked_value_usd = EXCLUDED.locked_value_usd,
				lp_token_price_usd = EXCLUDED.lp_token_price_usd,
				updated_at = now()
		`,
			pair.Address,
			pair.FirstTokenID,
			pair.SecondTokenID,
			pair.Reserves0,
			pair.Reserves1,
			pair.TotalSupply,
			string(pair.State),
			pair.LiquidityPoolTokenID,
			pair.FirstTokenPrice,
			pair.SecondTokenPrice,
			pair.FirstTokenPriceUSD,
			pair.SecondTokenPriceUSD,
			pair.FirstTokenLockedValueUSD,
			pair.SecondTokenLockedValueUSD,
			pair.LockedValueUSD,
			pair.LiquidityPoolTokenPriceUSD,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range pairs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertTokens inserts or updates token rows.
func (s *Store) UpsertTokens(ctx context.Context, tokens []model.Token) error {
	if len(tokens) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, token := range tokens {
		batch.Queue(`
			INSERT INTO tokens (
				id, symbol, name, decimals, kind, pair_address,
				price, derived_reference, liquidity_usd, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())
			ON CONFLICT (id)
			DO UPDATE SET
				symbol = EXCLUDED.symbol,
				name = EXCLUDED.name,
				decimals = EXCLUDED.decimals,
				kind = EXCLUDED.kind,
				pair_address = EXCLUDED.pair_address,
				price = EXCLUDED.price,
				derived_reference = EXCLUDED.derived_reference,
				liquidity_usd = EXCLUDED.liquidity_usd,
				updated_at = now()
		`,
			token.ID,
			token.Symbol,
			token.Name,
			int16(token.Decimals),
			string(token.Kind),
			token.PairAddress,
			token.Price,
			token.DerivedReference,
			token.LiquidityUSD,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range tokens {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadPairs returns every pair row keyed by address.
func (s *Store) LoadPairs(ctx context.Context) (map[string]*model.Pair, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, first_token_id, second_token_id, reserves0, reserves1,
			total_supply, state, lp_token_id,
			first_token_price, second_token_price,
			first_token_price_usd, second_token_price_usd,
			first_token_locked_value_usd, second_token_locked_value_usd,
			locked_value_usd, lp_token_price_usd
		FROM pairs
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make(map[string]*model.Pair)
	for rows.Next() {
		var pair model.Pair
		var state string
		if err := rows.Scan(
			&pair.Address, &pair.FirstTokenID, &pair.SecondTokenID,
			&pair.Reserves0, &pair.Reserves1, &pair.TotalSupply, &state,
			&pair.LiquidityPoolTokenID,
			&pair.FirstTokenPrice, &pair.SecondTokenPrice,
			&pair.FirstTokenPriceUSD, &pair.SecondTokenPriceUSD,
			&pair.FirstTokenLockedValueUSD, &pair.SecondTokenLockedValueUSD,
			&pair.LockedValueUSD, &pair.LiquidityPoolTokenPriceUSD,
		); err != nil {
			return nil, err
		}
		pair.State = model.PairState(state)
		pairs[pair.Address] = &pair
	}
	return pairs, rows.Err()
}

// LoadTokens returns every token row keyed by id.
func (s *Store) LoadTokens(ctx context.Context) (map[string]*model.Token, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, name, decimals, kind, pair_address,
			price, derived_reference, liquidity_usd
		FROM tokens
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make(map[string]*model.Token)
	for rows.Next() {
		var token model.Token
		var decimals int16
		var kind string
		if err := rows.Scan(
			&token.ID, &token.Symbol, &token.Name, &decimals, &kind,
			&token.PairAddress, &token.Price, &token.DerivedReference,
			&token.LiquidityUSD,
		); err != nil {
			return nil, err
		}
		token.Decimals = uint8(decimals)
		token.Kind = model.TokenKind(kind)
		tokens[token.ID] = &token
	}
	return tokens, rows.Err()
}

// LoadTokenHistory returns the historical series rows used for trending.
func (s *Store) LoadTokenHistory(ctx context.Context) ([]model.TokenHistory, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT token_id, current_price, price_prev_24h, price_prev_7d,
			volume_current_24h, volume_prev_24h, swaps_current, swaps_prev
		FROM token_history
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	histories := make([]model.TokenHistory, 0, 256)
	for rows.Next() {
		var history model.TokenHistory
		var swapsCurrent, swapsPrev int64
		if err := rows.Scan(
			&history.TokenID, &history.CurrentPrice, &history.PricePrev24h,
			&history.PricePrev7d, &history.VolumeCurrent24h,
			&history.VolumePrev24h, &swapsCurrent, &swapsPrev,
		); err != nil {
			return nil, err
		}
		history.SwapsCurrent = uint64(swapsCurrent)
		history.SwapsPrev = uint64(swapsPrev)
		histories = append(histories, history)
	}
	return histories, rows.Err()
}

// UpsertTrendingScores inserts or updates trending scores.
func (s *Store) UpsertTrendingScores(ctx context.Context, scores []model.TrendingScore) error {
	if len(scores) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, score := range scores {
		batch.Queue(`
			INSERT INTO token_trending (
				token_id, volume_change, price_change_24h, price_change_7d,
				trade_change, score, computed_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,now())
			ON CONFLICT (token_id)
			DO UPDATE SET
				volume_change = EXCLUDED.volume_change,
				price_change_24h = EXCLUDED.price_change_24h,
				price_change_7d = EXCLUDED.price_change_7d,
				trade_change = EXCLUDED.trade_change,
				score = EXCLUDED.score,
				computed_at = EXCLUDED.computed_at,
				updated_at = now()
		`,
			score.TokenID,
			score.VolumeChange,
			score.PriceChange24h,
			score.PriceChange7d,
			score.TradeChange,
			score.Score,
			score.ComputedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range scores {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts uint64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM engine_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO engine_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, ts)
	return err
}
