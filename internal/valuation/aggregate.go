package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var two = decimal.New(2, 0)

// aggregateLockedValue computes per-side and per-pair locked value in fiat
// and each token's aggregate liquidity under the common-token trust rule:
// an Active or fully-common pair counts both sides; a mixed inactive pair
// counts the trusted side doubled and contributes only that side to the
// common token's liquidity; an untrusted inactive pair counts nothing.
func (e *Engine) aggregateLockedValue(snap *Snapshot) error {
	liquidity := make(map[string]decimal.Decimal, len(snap.Tokens))

	for _, address := range sortedPairAddresses(snap.Pairs) {
		pair := snap.Pairs[address]
		first := snap.Tokens[pair.FirstTokenID]
		second := snap.Tokens[pair.SecondTokenID]

		firstPrice, err := parseDecimal(first.Price)
		if err != nil {
			return fmt.Errorf("token %s price: %w", first.ID, err)
		}
		secondPrice, err := parseDecimal(second.Price)
		if err != nil {
			return fmt.Errorf("token %s price: %w", second.ID, err)
		}
		res0, err := parseAmount(pair.Reserves0)
		if err != nil {
			return fmt.Errorf("pair %s reserves0: %w", pair.Address, err)
		}
		res1, err := parseAmount(pair.Reserves1)
		if err != nil {
			return fmt.Errorf("pair %s reserves1: %w", pair.Address, err)
		}

		firstLocked := adjusted(res0, first.Decimals).Mul(firstPrice)
		secondLocked := adjusted(res1, second.Decimals).Mul(secondPrice)

		pair.FirstTokenPriceUSD = first.Price
		pair.SecondTokenPriceUSD = second.Price
		pair.FirstTokenLockedValueUSD = firstLocked.String()
		pair.SecondTokenLockedValueUSD = secondLocked.String()

		_, firstCommon := snap.CommonTokenIDs[pair.FirstTokenID]
		_, secondCommon := snap.CommonTokenIDs[pair.SecondTokenID]

		var locked decimal.Decimal
		switch {
		case pair.IsActive() || (firstCommon && secondCommon):
			locked = firstLocked.Add(secondLocked)
			liquidity[pair.FirstTokenID] = liquidity[pair.FirstTokenID].Add(firstLocked)
			liquidity[pair.SecondTokenID] = liquidity[pair.SecondTokenID].Add(secondLocked)
		case firstCommon:
			// The untrusted side cannot be independently verified; estimate
			// the pool by doubling the trusted side.
			locked = firstLocked.Mul(two)
			liquidity[pair.FirstTokenID] = liquidity[pair.FirstTokenID].Add(firstLocked)
		case secondCommon:
			locked = secondLocked.Mul(two)
			liquidity[pair.SecondTokenID] = liquidity[pair.SecondTokenID].Add(secondLocked)
		default:
			locked = decimal.Zero
		}
		pair.LockedValueUSD = locked.String()
	}

	for id, token := range snap.Tokens {
		if token.IsLiquidityPool() {
			// Pinned to zero by the LP pricing stage; never double-counted.
			continue
		}
		token.LiquidityUSD = liquidity[id].String()
	}
	return nil
}
