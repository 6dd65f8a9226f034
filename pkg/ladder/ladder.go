// Package ladder implements the ordered bid/ask price ladder: apply-delta
// operations that preserve sort order and price uniqueness.
//
// A ladder is kept as a plain sorted slice rather than a balanced tree
// (cf. the teacher's treemap-backed BookArray in internal/orderbook) —
// ladders stay under a few thousand levels and are copied out wholesale on
// every revision, so a slice's cache-friendly scan and stable sort beat
// tree-node overhead at this size.
package ladder

import (
	"sort"

	"github.com/BullionBear/obsync/pkg/model"
)

// Apply applies changes to ladder in order (last write for a duplicate
// price wins), re-establishing the sort and uniqueness invariants for the
// given side. The input ladder is not mutated; a new slice is returned.
func Apply(ladder []model.PriceLevel, changes []model.PriceChange, side model.Side) []model.PriceLevel {
	if len(changes) == 0 {
		return append([]model.PriceLevel(nil), ladder...)
	}

	byPrice := make(map[string]model.PriceLevel, len(ladder))
	for _, lvl := range ladder {
		byPrice[lvl.Price.String()] = lvl
	}

	for _, ch := range changes {
		key := ch.Price.String()
		if ch.Size.Sign() <= 0 {
			delete(byPrice, key)
			continue
		}
		byPrice[key] = model.PriceLevel{Price: ch.Price, Size: ch.Size}
	}

	out := make([]model.PriceLevel, 0, len(byPrice))
	for _, lvl := range byPrice {
		out = append(out, lvl)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if side == model.SideBid {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

// IsSorted reports whether ladder is strictly sorted for side with no
// duplicate prices.
func IsSorted(ladder []model.PriceLevel, side model.Side) bool {
	for i := 1; i < len(ladder); i++ {
		prev, cur := ladder[i-1].Price, ladder[i].Price
		if side == model.SideBid {
			if !prev.GreaterThan(cur) {
				return false
			}
		} else {
			if !prev.LessThan(cur) {
				return false
			}
		}
	}
	return true
}

// Find returns the level at price and whether it was present.
func Find(ladder []model.PriceLevel, price string) (model.PriceLevel, bool) {
	for _, lvl := range ladder {
		if lvl.Price.String() == price {
			return lvl, true
		}
	}
	return model.PriceLevel{}, false
}
