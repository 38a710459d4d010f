package valuation

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// divPrecision bounds quotient digits well above any token's decimals.
const divPrecision = 38

var one = decimal.New(1, 0)

func pow10(exp int32) decimal.Decimal {
	return decimal.New(1, exp)
}

// parseAmount parses a raw integer-string on-chain amount. Empty means zero.
func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s", value)
	}
	return parsed, nil
}

// parseDecimal parses a stored decimal string. Empty means zero.
func parseDecimal(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value)
}

// adjusted converts a raw amount into token units: raw x 10^-decimals.
func adjusted(raw *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(raw, 0).Mul(pow10(-int32(decimals)))
}

// safeDiv returns a/b at divPrecision digits, zero when b is zero.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, divPrecision)
}
