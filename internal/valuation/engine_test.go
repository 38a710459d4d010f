package valuation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"valuationScope/internal/model"
)

const (
	refID    = "0xref"
	stableID = "0xstable"
)

func fungible(id string, decimals uint8) *model.Token {
	return &model.Token{ID: id, Symbol: id, Decimals: decimals, Kind: model.TokenKindFungible}
}

func lpToken(id, pairAddress string) *model.Token {
	return &model.Token{ID: id, Symbol: "LP", Decimals: 18, Kind: model.TokenKindLiquidityPool, PairAddress: pairAddress}
}

func newTestEngine() *Engine {
	return NewEngine(Config{ReferenceTokenID: refID, StableTokenID: stableID}, nil)
}

func newTestSnapshot(fiatPrice string) *Snapshot {
	return &Snapshot{
		Pairs:              make(map[string]*model.Pair),
		Tokens:             make(map[string]*model.Token),
		ReferenceFiatPrice: decimal.RequireFromString(fiatPrice),
		CommonTokenIDs:     make(map[string]struct{}),
	}
}

func assertDecimal(t *testing.T, what, got, want string) {
	t.Helper()
	g, err := decimal.NewFromString(got)
	if err != nil {
		t.Fatalf("%s: parse %q: %v", what, got, err)
	}
	w := decimal.RequireFromString(want)
	if !g.Equal(w) {
		t.Fatalf("%s = %s, want %s", what, got, want)
	}
}

func TestRecomputeDirectPair(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens["0xaaa"] = fungible("0xaaa", 18)
	snap.Pairs["0xp1"] = &model.Pair{
		Address:       "0xp1",
		FirstTokenID:  refID,
		SecondTokenID: "0xaaa",
		Reserves0:     "10000000000000000000",  // 10 ref
		Reserves1:     "100000000000000000000", // 100 aaa
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateActive,
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	pair := snap.Pairs["0xp1"]
	assertDecimal(t, "first token quote", pair.FirstTokenPrice, "10")
	assertDecimal(t, "second token quote", pair.SecondTokenPrice, "0.1")

	ref := snap.Tokens[refID]
	assertDecimal(t, "reference derived", ref.DerivedReference, "1")
	assertDecimal(t, "reference price", ref.Price, "500")

	aaa := snap.Tokens["0xaaa"]
	assertDecimal(t, "aaa derived", aaa.DerivedReference, "0.1")
	assertDecimal(t, "aaa price", aaa.Price, "50")
}

func TestRecomputeStableAnchor(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens[stableID] = fungible(stableID, 6)

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	stable := snap.Tokens[stableID]
	assertDecimal(t, "stable derived", stable.DerivedReference, "0.002")
	assertDecimal(t, "stable price", stable.Price, "1")
}

func TestRecomputeStableRequiresPositiveFiatPrice(t *testing.T) {
	snap := newTestSnapshot("0")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens[stableID] = fungible(stableID, 6)

	if _, err := newTestEngine().Recompute(snap); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRecomputeTwoHop(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens[stableID] = fungible(stableID, 6)
	snap.Tokens["0xbbb"] = fungible("0xbbb", 18)
	snap.Pairs["0xp2"] = &model.Pair{
		Address:       "0xp2",
		FirstTokenID:  stableID,
		SecondTokenID: "0xbbb",
		Reserves0:     "2000000000",             // 2000 stable
		Reserves1:     "1000000000000000000000", // 1000 bbb
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateActive,
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	bbb := snap.Tokens["0xbbb"]
	assertDecimal(t, "bbb derived", bbb.DerivedReference, "0.004")
	assertDecimal(t, "bbb price", bbb.Price, "2")
}

func TestRecomputeFiatAnchorMultiplier(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.FiatAnchorPrice = decimal.RequireFromString("2")
	snap.Tokens[refID] = fungible(refID, 18)

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	ref := snap.Tokens[refID]
	assertDecimal(t, "reference derived", ref.DerivedReference, "1")
	assertDecimal(t, "reference price", ref.Price, "1000")
}

func TestRecomputeLockedValueTrustRule(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens[stableID] = fungible(stableID, 6)
	snap.Tokens["0xaaa"] = fungible("0xaaa", 18)
	snap.Tokens["0xbbb"] = fungible("0xbbb", 18)
	snap.Tokens["0xccc"] = fungible("0xccc", 18)
	snap.Tokens["0xddd"] = fungible("0xddd", 18)
	snap.CommonTokenIDs[stableID] = struct{}{}

	// Active pair, both sides count.
	snap.Pairs["0xp1"] = &model.Pair{
		Address:       "0xp1",
		FirstTokenID:  refID,
		SecondTokenID: "0xaaa",
		Reserves0:     "10000000000000000000",
		Reserves1:     "100000000000000000000",
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateActive,
	}
	// Inactive with one common side, trusted side doubled.
	snap.Pairs["0xp2"] = &model.Pair{
		Address:       "0xp2",
		FirstTokenID:  stableID,
		SecondTokenID: "0xbbb",
		Reserves0:     "2000000000",
		Reserves1:     "1000000000000000000000",
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateInactive,
	}
	// Inactive with no common side, counts nothing.
	snap.Pairs["0xp3"] = &model.Pair{
		Address:       "0xp3",
		FirstTokenID:  "0xccc",
		SecondTokenID: "0xddd",
		Reserves0:     "1000000000000000000",
		Reserves1:     "1000000000000000000",
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateInactive,
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	p1 := snap.Pairs["0xp1"]
	assertDecimal(t, "p1 first locked", p1.FirstTokenLockedValueUSD, "5000")
	assertDecimal(t, "p1 second locked", p1.SecondTokenLockedValueUSD, "5000")
	assertDecimal(t, "p1 locked", p1.LockedValueUSD, "10000")

	p2 := snap.Pairs["0xp2"]
	assertDecimal(t, "p2 first locked", p2.FirstTokenLockedValueUSD, "2000")
	assertDecimal(t, "p2 locked", p2.LockedValueUSD, "4000")

	p3 := snap.Pairs["0xp3"]
	assertDecimal(t, "p3 locked", p3.LockedValueUSD, "0")

	assertDecimal(t, "ref liquidity", snap.Tokens[refID].LiquidityUSD, "5000")
	assertDecimal(t, "aaa liquidity", snap.Tokens["0xaaa"].LiquidityUSD, "5000")
	// Only the common side of the mixed inactive pair contributes.
	assertDecimal(t, "stable liquidity", snap.Tokens[stableID].LiquidityUSD, "2000")
	assertDecimal(t, "bbb liquidity", snap.Tokens["0xbbb"].LiquidityUSD, "0")
	assertDecimal(t, "ccc liquidity", snap.Tokens["0xccc"].LiquidityUSD, "0")
}

func TestRecomputeBothCommonInactiveCountsBothSides(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens[stableID] = fungible(stableID, 6)
	snap.CommonTokenIDs[refID] = struct{}{}
	snap.CommonTokenIDs[stableID] = struct{}{}

	snap.Pairs["0xp1"] = &model.Pair{
		Address:       "0xp1",
		FirstTokenID:  refID,
		SecondTokenID: stableID,
		Reserves0:     "1000000000000000000", // 1 ref = 500 fiat
		Reserves1:     "500000000",           // 500 stable = 500 fiat
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateInactive,
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	assertDecimal(t, "locked", snap.Pairs["0xp1"].LockedValueUSD, "1000")
}

func TestRecomputeLPTokenPrice(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens["0xaaa"] = fungible("0xaaa", 18)
	snap.Tokens["0xlp1"] = lpToken("0xlp1", "0xp1")
	snap.Pairs["0xp1"] = &model.Pair{
		Address:              "0xp1",
		FirstTokenID:         refID,
		SecondTokenID:        "0xaaa",
		Reserves0:            "10000000000000000000",
		Reserves1:            "100000000000000000000",
		TotalSupply:          "1000000000000000000", // 1 LP unit outstanding
		State:                model.PairStateActive,
		LiquidityPoolTokenID: "0xlp1",
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	// One LP unit redeems the whole pool: 10 ref + 100 aaa = 10000 fiat.
	assertDecimal(t, "pair lp price", snap.Pairs["0xp1"].LiquidityPoolTokenPriceUSD, "10000")

	lp := snap.Tokens["0xlp1"]
	assertDecimal(t, "lp price", lp.Price, "10000")
	assertDecimal(t, "lp derived", lp.DerivedReference, "0")
	assertDecimal(t, "lp liquidity", lp.LiquidityUSD, "0")
}

func TestRecomputeLPTokenZeroSupply(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens["0xaaa"] = fungible("0xaaa", 18)
	snap.Tokens["0xlp1"] = lpToken("0xlp1", "0xp1")
	snap.Pairs["0xp1"] = &model.Pair{
		Address:              "0xp1",
		FirstTokenID:         refID,
		SecondTokenID:        "0xaaa",
		Reserves0:            "0",
		Reserves1:            "0",
		TotalSupply:          "0",
		State:                model.PairStateInactive,
		LiquidityPoolTokenID: "0xlp1",
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	assertDecimal(t, "pair lp price", snap.Pairs["0xp1"].LiquidityPoolTokenPriceUSD, "0")
	assertDecimal(t, "lp price", snap.Tokens["0xlp1"].Price, "0")
}

func TestRecomputeEmptyPoolCannotAnchorPrice(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens["0xeee"] = fungible("0xeee", 18)
	snap.Pairs["0xp1"] = &model.Pair{
		Address:       "0xp1",
		FirstTokenID:  refID,
		SecondTokenID: "0xeee",
		Reserves0:     "10000000000000000000",
		Reserves1:     "100000000000000000000",
		TotalSupply:   "0",
		State:         model.PairStateActive,
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	eee := snap.Tokens["0xeee"]
	assertDecimal(t, "eee derived", eee.DerivedReference, "0")
	assertDecimal(t, "eee price", eee.Price, "0")
}

func TestRecomputeCycleTerminates(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens["0xx"] = fungible("0xx", 18)
	snap.Tokens["0xy"] = fungible("0xy", 18)
	snap.Tokens["0xz"] = fungible("0xz", 18)

	cycle := func(address, a, b string) *model.Pair {
		return &model.Pair{
			Address:       address,
			FirstTokenID:  a,
			SecondTokenID: b,
			Reserves0:     "1000000000000000000",
			Reserves1:     "1000000000000000000",
			TotalSupply:   "1000000000000000000",
			State:         model.PairStateActive,
		}
	}
	snap.Pairs["0xp1"] = cycle("0xp1", "0xx", "0xy")
	snap.Pairs["0xp2"] = cycle("0xp2", "0xy", "0xz")
	snap.Pairs["0xp3"] = cycle("0xp3", "0xz", "0xx")

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	// The cycle never reaches the reference token, so everything in it is
	// unpriced but the pass still finishes.
	for _, id := range []string{"0xx", "0xy", "0xz"} {
		assertDecimal(t, id+" derived", snap.Tokens[id].DerivedReference, "0")
	}
}

func TestRecomputeActivePairPreferred(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens["0xttt"] = fungible("0xttt", 18)

	// The inactive pair has far deeper reserves but must be ignored while an
	// active candidate exists.
	snap.Pairs["0xp1"] = &model.Pair{
		Address:       "0xp1",
		FirstTokenID:  "0xttt",
		SecondTokenID: refID,
		Reserves0:     "100000000000000000000",
		Reserves1:     "200000000000000000000",
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateActive,
	}
	snap.Pairs["0xp2"] = &model.Pair{
		Address:       "0xp2",
		FirstTokenID:  "0xttt",
		SecondTokenID: refID,
		Reserves0:     "100000000000000000000",
		Reserves1:     "500000000000000000000000",
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateInactive,
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	assertDecimal(t, "ttt derived", snap.Tokens["0xttt"].DerivedReference, "2")
}

func TestRecomputeHighestLiquidityWins(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens["0xuuu"] = fungible("0xuuu", 18)

	snap.Pairs["0xp1"] = &model.Pair{
		Address:       "0xp1",
		FirstTokenID:  "0xuuu",
		SecondTokenID: refID,
		Reserves0:     "100000000000000000000", // quote 2, ref-side depth 200
		Reserves1:     "200000000000000000000",
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateActive,
	}
	snap.Pairs["0xp2"] = &model.Pair{
		Address:       "0xp2",
		FirstTokenID:  "0xuuu",
		SecondTokenID: refID,
		Reserves0:     "10000000000000000000", // quote 50, ref-side depth 500
		Reserves1:     "500000000000000000000",
		TotalSupply:   "1000000000000000000",
		State:         model.PairStateActive,
	}

	if _, err := newTestEngine().Recompute(snap); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	assertDecimal(t, "uuu derived", snap.Tokens["0xuuu"].DerivedReference, "50")
}

func TestRecomputeIdempotent(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Tokens[stableID] = fungible(stableID, 6)
	snap.Tokens["0xaaa"] = fungible("0xaaa", 18)
	snap.Tokens["0xlp1"] = lpToken("0xlp1", "0xp1")
	snap.CommonTokenIDs[stableID] = struct{}{}
	snap.Pairs["0xp1"] = &model.Pair{
		Address:              "0xp1",
		FirstTokenID:         refID,
		SecondTokenID:        "0xaaa",
		Reserves0:            "10000000000000000000",
		Reserves1:            "100000000000000000000",
		TotalSupply:          "1000000000000000000",
		State:                model.PairStateActive,
		LiquidityPoolTokenID: "0xlp1",
	}

	engine := newTestEngine()
	first, err := engine.Recompute(snap)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if len(first.ChangedTokenIDs) == 0 {
		t.Fatalf("first pass changed nothing")
	}

	second, err := engine.Recompute(snap)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(second.ChangedTokenIDs) != 0 {
		t.Fatalf("second pass changed %v, want none", second.ChangedTokenIDs)
	}
}

func TestRecomputeUnknownPairToken(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens[refID] = fungible(refID, 18)
	snap.Pairs["0xp1"] = &model.Pair{
		Address:       "0xp1",
		FirstTokenID:  refID,
		SecondTokenID: "0xmissing",
		Reserves0:     "1",
		Reserves1:     "1",
		TotalSupply:   "1",
		State:         model.PairStateActive,
	}

	if _, err := newTestEngine().Recompute(snap); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}

func TestRecomputeMissingReferenceToken(t *testing.T) {
	snap := newTestSnapshot("500")
	snap.Tokens["0xaaa"] = fungible("0xaaa", 18)

	if _, err := newTestEngine().Recompute(snap); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("err = %v, want ErrUnknownToken", err)
	}
}

func TestRecomputeNilSnapshot(t *testing.T) {
	if _, err := newTestEngine().Recompute(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
