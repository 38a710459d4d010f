package model

// TokenKind distinguishes plain fungible tokens from pool-minted LP tokens.
type TokenKind string

const (
	TokenKindFungible      TokenKind = "fungible"
	TokenKindLiquidityPool TokenKind = "liquidity_pool"
)

// Token is one token row of a valuation snapshot. Price, DerivedReference
// and LiquidityUSD are owned by the valuation engine and replaced wholesale
// on every recomputation pass; everything else comes from chain metadata.
type Token struct {
	ID       string    `json:"id"`
	Symbol   string    `json:"symbol,omitempty"`
	Name     string    `json:"name,omitempty"`
	Decimals uint8     `json:"decimals"`
	Kind     TokenKind `json:"kind"`

	// PairAddress back-references the pair that minted an LP token.
	PairAddress string `json:"pair_address,omitempty"`

	Price            string `json:"price"`
	DerivedReference string `json:"derived_reference"`
	LiquidityUSD     string `json:"liquidity_usd"`
}

// IsLiquidityPool reports whether the token was minted by a pair.
func (t *Token) IsLiquidityPool() bool {
	return t.Kind == TokenKindLiquidityPool
}
