package valuation

import (
	"fmt"
	"math/big"
)

// priceLPTokens prices each pair's LP token from the amounts of both
// underlying tokens redeemable for one full LP unit, pro-rata to total
// supply with truncating division. The value becomes both the pair's LP
// price and the LP token's own fiat price; LP liquidity stays zero.
func (e *Engine) priceLPTokens(snap *Snapshot) error {
	for _, address := range sortedPairAddresses(snap.Pairs) {
		pair := snap.Pairs[address]
		if pair.LiquidityPoolTokenID == "" {
			continue
		}
		lp := snap.Tokens[pair.LiquidityPoolTokenID]
		first := snap.Tokens[pair.FirstTokenID]
		second := snap.Tokens[pair.SecondTokenID]

		lp.LiquidityUSD = "0"

		supply, err := parseAmount(pair.TotalSupply)
		if err != nil {
			return fmt.Errorf("pair %s total supply: %w", pair.Address, err)
		}
		if supply.Sign() <= 0 {
			pair.LiquidityPoolTokenPriceUSD = "0"
			lp.Price = "0"
			continue
		}

		res0, err := parseAmount(pair.Reserves0)
		if err != nil {
			return fmt.Errorf("pair %s reserves0: %w", pair.Address, err)
		}
		res1, err := parseAmount(pair.Reserves1)
		if err != nil {
			return fmt.Errorf("pair %s reserves1: %w", pair.Address, err)
		}
		firstPrice, err := parseDecimal(first.Price)
		if err != nil {
			return fmt.Errorf("token %s price: %w", first.ID, err)
		}
		secondPrice, err := parseDecimal(second.Price)
		if err != nil {
			return fmt.Errorf("token %s price: %w", second.ID, err)
		}

		unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(lp.Decimals)), nil)
		redeem0 := new(big.Int).Mul(unit, res0)
		redeem0.Div(redeem0, supply)
		redeem1 := new(big.Int).Mul(unit, res1)
		redeem1.Div(redeem1, supply)

		value := adjusted(redeem0, first.Decimals).Mul(firstPrice).
			Add(adjusted(redeem1, second.Decimals).Mul(secondPrice))

		pair.LiquidityPoolTokenPriceUSD = value.String()
		lp.Price = value.String()
	}
	return nil
}
