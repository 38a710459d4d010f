package valuation

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"valuationScope/internal/model"
)

// resolver derives reference-currency prices for one recomputation pass.
// The memo and the consumed-pair set live exactly as long as the pass; the
// consumed set is shared across the whole recursion tree, so once a pair has
// anchored any resolution it is out of play for every later one. That bounds
// recursion on cyclic graphs at the cost of not always finding the
// theoretically optimal path, which is an accepted trade-off.
type resolver struct {
	tokens             map[string]*model.Token
	index              PairIndex
	referenceTokenID   string
	stableTokenID      string
	referenceDecimals  uint8
	referenceFiatPrice decimal.Decimal

	memo     map[string]decimal.Decimal
	consumed map[string]struct{}
}

func newResolver(
	tokens map[string]*model.Token,
	index PairIndex,
	referenceTokenID, stableTokenID string,
	referenceDecimals uint8,
	referenceFiatPrice decimal.Decimal,
) *resolver {
	return &resolver{
		tokens:             tokens,
		index:              index,
		referenceTokenID:   referenceTokenID,
		stableTokenID:      stableTokenID,
		referenceDecimals:  referenceDecimals,
		referenceFiatPrice: referenceFiatPrice,
		memo:               make(map[string]decimal.Decimal, len(tokens)),
		consumed:           make(map[string]struct{}),
	}
}

// Resolve returns tokenID's price in the reference currency. An unpriced
// token resolves to zero; only invalid input is an error.
func (r *resolver) Resolve(tokenID string) (decimal.Decimal, error) {
	if price, ok := r.memo[tokenID]; ok {
		return price, nil
	}
	price, err := r.resolve(tokenID)
	if err != nil {
		return decimal.Zero, err
	}
	r.memo[tokenID] = price
	return price, nil
}

func (r *resolver) resolve(tokenID string) (decimal.Decimal, error) {
	if tokenID == r.referenceTokenID {
		return one, nil
	}
	if tokenID == r.stableTokenID {
		if !r.referenceFiatPrice.IsPositive() {
			return decimal.Zero, fmt.Errorf(
				"%w: reference fiat price must be positive to anchor %s",
				ErrInvalidInput, tokenID)
		}
		return one.DivRound(r.referenceFiatPrice, divPrecision), nil
	}

	candidates := r.index[tokenID]
	if len(candidates) > 1 && anyActive(candidates) {
		candidates = onlyActive(candidates)
	}

	// Claim the surviving candidates before recursing so a cycle lower in
	// the tree cannot re-enter through them.
	available := make([]*model.Pair, 0, len(candidates))
	for _, pair := range candidates {
		if _, used := r.consumed[pair.Address]; used {
			continue
		}
		available = append(available, pair)
	}
	for _, pair := range available {
		r.consumed[pair.Address] = struct{}{}
	}

	best := decimal.Zero
	var bestLiquidity *big.Int
	for _, pair := range available {
		supply, err := parseAmount(pair.TotalSupply)
		if err != nil {
			return decimal.Zero, fmt.Errorf("pair %s total supply: %w", pair.Address, err)
		}
		if supply.Sign() <= 0 {
			// An empty pool cannot anchor a price.
			continue
		}

		otherID, ok := pair.OtherTokenID(tokenID)
		if !ok {
			continue
		}
		other, ok := r.tokens[otherID]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: pair %s references %s", ErrUnknownToken, pair.Address, otherID)
		}

		otherPrice, err := r.Resolve(otherID)
		if err != nil {
			return decimal.Zero, err
		}

		quote, err := r.quoteFor(pair, tokenID)
		if err != nil {
			return decimal.Zero, err
		}
		price := quote.Mul(otherPrice)
		if !price.IsPositive() {
			continue
		}

		otherReserve, err := r.reserveFor(pair, otherID)
		if err != nil {
			return decimal.Zero, err
		}

		// Candidate liquidity in reference base units; only this comparison
		// truncates, the price quote keeps full precision.
		liquidity := adjusted(otherReserve, other.Decimals).
			Mul(otherPrice).
			Mul(pow10(int32(r.referenceDecimals))).
			Floor().BigInt()

		if bestLiquidity == nil || liquidity.Cmp(bestLiquidity) > 0 {
			bestLiquidity = liquidity
			best = price
		}
	}

	return best, nil
}

// quoteFor returns the pair's quote of tokenID in units of the other token.
func (r *resolver) quoteFor(pair *model.Pair, tokenID string) (decimal.Decimal, error) {
	var raw string
	switch tokenID {
	case pair.FirstTokenID:
		raw = pair.FirstTokenPrice
	case pair.SecondTokenID:
		raw = pair.SecondTokenPrice
	default:
		return decimal.Zero, fmt.Errorf("%w: token %s not in pair %s", ErrInvalidInput, tokenID, pair.Address)
	}
	quote, err := parseDecimal(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pair %s quote: %w", pair.Address, err)
	}
	return quote, nil
}

func (r *resolver) reserveFor(pair *model.Pair, tokenID string) (*big.Int, error) {
	var raw string
	switch tokenID {
	case pair.FirstTokenID:
		raw = pair.Reserves0
	case pair.SecondTokenID:
		raw = pair.Reserves1
	default:
		return nil, fmt.Errorf("%w: token %s not in pair %s", ErrInvalidInput, tokenID, pair.Address)
	}
	reserve, err := parseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("pair %s reserve: %w", pair.Address, err)
	}
	return reserve, nil
}

func anyActive(pairs []*model.Pair) bool {
	for _, pair := range pairs {
		if pair.IsActive() {
			return true
		}
	}
	return false
}

func onlyActive(pairs []*model.Pair) []*model.Pair {
	active := make([]*model.Pair, 0, len(pairs))
	for _, pair := range pairs {
		if pair.IsActive() {
			active = append(active, pair)
		}
	}
	return active
}
