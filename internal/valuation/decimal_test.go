package valuation

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	got, err := parseAmount("12345678901234567890")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.String() != "12345678901234567890" {
		t.Fatalf("got %s", got)
	}

	zero, err := parseAmount("")
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if zero.Sign() != 0 {
		t.Fatalf("empty = %s, want 0", zero)
	}

	if _, err := parseAmount("1.5"); err == nil {
		t.Fatalf("expected error for fractional amount")
	}
	if _, err := parseAmount("abc"); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestParseDecimalEmptyMeansZero(t *testing.T) {
	got, err := parseDecimal("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("empty = %s, want 0", got)
	}
}

func TestAdjusted(t *testing.T) {
	raw, _ := parseAmount("1500000")
	got := adjusted(raw, 6)
	if !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("adjusted = %s, want 1.5", got)
	}
}

func TestSafeDivZeroDenominator(t *testing.T) {
	got := safeDiv(decimal.New(1, 0), decimal.Zero)
	if !got.IsZero() {
		t.Fatalf("safeDiv by zero = %s, want 0", got)
	}

	quotient := safeDiv(decimal.New(1, 0), decimal.New(3, 0))
	if quotient.IsZero() {
		t.Fatalf("safeDiv(1,3) = 0")
	}
}
