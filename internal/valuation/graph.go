package valuation

import (
	"sort"

	"valuationScope/internal/model"
)

// PairIndex maps a token id to every pair that contains it. A pair appears
// once per side it participates in; duplicates are resolved downstream.
type PairIndex map[string][]*model.Pair

// BuildPairIndex indexes both sides of every pair. It is rebuilt once per
// recomputation pass and never updated mid-pass. Lists are sorted by pair
// address so candidate consumption order is stable across passes.
func BuildPairIndex(pairs map[string]*model.Pair) PairIndex {
	index := make(PairIndex, len(pairs)*2)
	for _, pair := range pairs {
		index[pair.FirstTokenID] = append(index[pair.FirstTokenID], pair)
		index[pair.SecondTokenID] = append(index[pair.SecondTokenID], pair)
	}
	for _, list := range index {
		sort.Slice(list, func(i, j int) bool {
			return list[i].Address < list[j].Address
		})
	}
	return index
}
