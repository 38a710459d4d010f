package model

// PairState is the lifecycle state of a trading pair.
type PairState string

const (
	PairStateActive   PairState = "Active"
	PairStateInactive PairState = "Inactive"
	PairStatePaused   PairState = "Paused"
)

// Pair is one trading pair of a valuation snapshot. Reserves, supply and
// state are refreshed by the snapshot reader; every price and locked-value
// field is owned by the valuation engine.
type Pair struct {
	Address              string    `json:"address"`
	FirstTokenID         string    `json:"first_token_id"`
	SecondTokenID        string    `json:"second_token_id"`
	Reserves0            string    `json:"reserves0"`
	Reserves1            string    `json:"reserves1"`
	TotalSupply          string    `json:"total_supply"`
	State                PairState `json:"state"`
	LiquidityPoolTokenID string    `json:"liquidity_pool_token_id,omitempty"`

	FirstTokenPrice            string `json:"first_token_price"`
	SecondTokenPrice           string `json:"second_token_price"`
	FirstTokenPriceUSD         string `json:"first_token_price_usd"`
	SecondTokenPriceUSD        string `json:"second_token_price_usd"`
	FirstTokenLockedValueUSD   string `json:"first_token_locked_value_usd"`
	SecondTokenLockedValueUSD  string `json:"second_token_locked_value_usd"`
	LockedValueUSD             string `json:"locked_value_usd"`
	LiquidityPoolTokenPriceUSD string `json:"liquidity_pool_token_price_usd"`
}

// IsActive reports whether the pair is in the Active state.
func (p *Pair) IsActive() bool {
	return p.State == PairStateActive
}

// OtherTokenID returns the opposite side of the pair for tokenID. The second
// return is false when tokenID is on neither side.
func (p *Pair) OtherTokenID(tokenID string) (string, bool) {
	switch tokenID {
	case p.FirstTokenID:
		return p.SecondTokenID, true
	case p.SecondTokenID:
		return p.FirstTokenID, true
	}
	return "", false
}
