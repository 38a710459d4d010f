package valuation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"valuationScope/internal/model"
)

// Config identifies the pricing anchors for the engine.
type Config struct {
	// ReferenceTokenID is the network's wrapped native token; every price is
	// first derived relative to it.
	ReferenceTokenID string
	// StableTokenID is the fiat-anchor token; it resolves to the inverse of
	// the reference-currency fiat price.
	StableTokenID string
}

// Snapshot is the engine-local copy of the world one pass runs over. It must
// not be shared between concurrent passes.
type Snapshot struct {
	Pairs  map[string]*model.Pair
	Tokens map[string]*model.Token

	ReferenceFiatPrice decimal.Decimal
	// FiatAnchorPrice multiplies the fiat conversion to track a secondary
	// oracle; zero is treated as 1.
	FiatAnchorPrice decimal.Decimal

	CommonTokenIDs map[string]struct{}
}

// Result reports the outcome of one recomputation pass.
type Result struct {
	ChangedTokenIDs []string
}

// Engine recomputes derived prices, locked values and LP-token prices over
// one snapshot at a time. A pass is single-threaded and has no partial or
// resumable state: any invalid input aborts the whole pass.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

type priorValue struct {
	price            string
	derivedReference string
}

// Recompute runs one full pass: quote prices from reserves, graph build,
// reference and fiat price resolution, locked-value aggregation, LP-token
// pricing. The pairs and tokens maps are mutated in place; the result lists
// every token whose price or derived reference price changed.
func (e *Engine) Recompute(snap *Snapshot) (*Result, error) {
	if err := e.validate(snap); err != nil {
		return nil, err
	}

	prior := make(map[string]priorValue, len(snap.Tokens))
	for id, token := range snap.Tokens {
		prior[id] = priorValue{price: token.Price, derivedReference: token.DerivedReference}
	}

	if err := e.computeQuotes(snap); err != nil {
		return nil, err
	}

	index := BuildPairIndex(snap.Pairs)

	if err := e.resolvePrices(snap, index); err != nil {
		return nil, err
	}
	if err := e.aggregateLockedValue(snap); err != nil {
		return nil, err
	}
	if err := e.priceLPTokens(snap); err != nil {
		return nil, err
	}

	changed := changedTokens(snap.Tokens, prior)

	e.logger.Info("recompute complete",
		zap.Int("pairs", len(snap.Pairs)),
		zap.Int("tokens", len(snap.Tokens)),
		zap.Int("changed", len(changed)),
	)

	return &Result{ChangedTokenIDs: changed}, nil
}

func (e *Engine) validate(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidInput)
	}
	if e.cfg.ReferenceTokenID == "" {
		return fmt.Errorf("%w: reference token id is required", ErrInvalidInput)
	}
	if _, ok := snap.Tokens[e.cfg.ReferenceTokenID]; !ok {
		return fmt.Errorf("%w: reference token %s not in snapshot", ErrUnknownToken, e.cfg.ReferenceTokenID)
	}
	for _, pair := range snap.Pairs {
		if _, ok := snap.Tokens[pair.FirstTokenID]; !ok {
			return fmt.Errorf("%w: pair %s references %s", ErrUnknownToken, pair.Address, pair.FirstTokenID)
		}
		if _, ok := snap.Tokens[pair.SecondTokenID]; !ok {
			return fmt.Errorf("%w: pair %s references %s", ErrUnknownToken, pair.Address, pair.SecondTokenID)
		}
		if pair.LiquidityPoolTokenID != "" {
			if _, ok := snap.Tokens[pair.LiquidityPoolTokenID]; !ok {
				return fmt.Errorf("%w: pair %s references lp token %s", ErrUnknownToken, pair.Address, pair.LiquidityPoolTokenID)
			}
		}
	}
	return nil
}

// computeQuotes refreshes each pair's side quotes from the decimal-adjusted
// reserves. A pair with an empty side quotes zero both ways.
func (e *Engine) computeQuotes(snap *Snapshot) error {
	for _, pair := range snap.Pairs {
		first := snap.Tokens[pair.FirstTokenID]
		second := snap.Tokens[pair.SecondTokenID]

		res0, err := parseAmount(pair.Reserves0)
		if err != nil {
			return fmt.Errorf("pair %s reserves0: %w", pair.Address, err)
		}
		res1, err := parseAmount(pair.Reserves1)
		if err != nil {
			return fmt.Errorf("pair %s reserves1: %w", pair.Address, err)
		}

		adj0 := adjusted(res0, first.Decimals)
		adj1 := adjusted(res1, second.Decimals)

		pair.FirstTokenPrice = safeDiv(adj1, adj0).String()
		pair.SecondTokenPrice = safeDiv(adj0, adj1).String()
	}
	return nil
}

// resolvePrices walks every token through the pass-scoped resolver and then
// converts the derived reference price to fiat. LP tokens are excluded: the
// LP pricing stage owns their fiat price.
func (e *Engine) resolvePrices(snap *Snapshot, index PairIndex) error {
	reference := snap.Tokens[e.cfg.ReferenceTokenID]

	r := newResolver(
		snap.Tokens,
		index,
		e.cfg.ReferenceTokenID,
		e.cfg.StableTokenID,
		reference.Decimals,
		snap.ReferenceFiatPrice,
	)

	anchor := snap.FiatAnchorPrice
	if anchor.IsZero() {
		anchor = one
	}

	for _, id := range sortedTokenIDs(snap.Tokens) {
		token := snap.Tokens[id]
		if token.IsLiquidityPool() {
			token.DerivedReference = decimal.Zero.String()
			token.Price = decimal.Zero.String()
			continue
		}

		derived, err := r.Resolve(id)
		if err != nil {
			return err
		}
		fiat := derived.Mul(snap.ReferenceFiatPrice).Mul(anchor)

		token.DerivedReference = derived.String()
		token.Price = fiat.String()
	}
	return nil
}

func changedTokens(tokens map[string]*model.Token, prior map[string]priorValue) []string {
	changed := make([]string, 0)
	for _, id := range sortedTokenIDs(tokens) {
		token := tokens[id]
		prev := prior[id]
		if !decimalStringsEqual(prev.price, token.Price) ||
			!decimalStringsEqual(prev.derivedReference, token.DerivedReference) {
			changed = append(changed, id)
		}
	}
	return changed
}

// decimalStringsEqual compares two stored decimal strings by value, falling
// back to literal comparison when either fails to parse.
func decimalStringsEqual(a, b string) bool {
	da, errA := parseDecimal(a)
	db, errB := parseDecimal(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return da.Equal(db)
}

func sortedTokenIDs(tokens map[string]*model.Token) []string {
	ids := make([]string, 0, len(tokens))
	for id := range tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sortedPairAddresses(pairs map[string]*model.Pair) []string {
	addresses := make([]string, 0, len(pairs))
	for address := range pairs {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}
