package model

import "testing"

func TestPairOtherTokenID(t *testing.T) {
	pair := &Pair{FirstTokenID: "t1", SecondTokenID: "t2"}

	if other, ok := pair.OtherTokenID("t1"); !ok || other != "t2" {
		t.Fatalf("OtherTokenID(t1) = %s, %v", other, ok)
	}
	if other, ok := pair.OtherTokenID("t2"); !ok || other != "t1" {
		t.Fatalf("OtherTokenID(t2) = %s, %v", other, ok)
	}
	if _, ok := pair.OtherTokenID("t3"); ok {
		t.Fatalf("OtherTokenID(t3) should miss")
	}
}

func TestPairIsActive(t *testing.T) {
	if !(&Pair{State: PairStateActive}).IsActive() {
		t.Fatalf("active pair reported inactive")
	}
	if (&Pair{State: PairStateInactive}).IsActive() {
		t.Fatalf("inactive pair reported active")
	}
	if (&Pair{State: PairStatePaused}).IsActive() {
		t.Fatalf("paused pair reported active")
	}
}

func TestTokenIsLiquidityPool(t *testing.T) {
	if !(&Token{Kind: TokenKindLiquidityPool}).IsLiquidityPool() {
		t.Fatalf("lp token not detected")
	}
	if (&Token{Kind: TokenKindFungible}).IsLiquidityPool() {
		t.Fatalf("fungible token detected as lp")
	}
}
