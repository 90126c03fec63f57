package lm

import "sort"

// Sum returns the total of probs.
func Sum(probs []uint64) uint64 {
	var s uint64
	for _, p := range probs {
		s += p
	}
	return s
}

// Repair forces probs[0] to zero and the total to exactly norm.
//
// A deficit is spread evenly over symbols 1..N-1, remainder to the lowest
// ids. An excess is taken from the largest entries first, never taking an
// entry below 1 while any entry above 1 remains. The result depends only on
// the input. The returned delta is norm minus the original total, zero when
// no repair was needed.
func Repair(probs []uint64, norm uint64) int64 {
	if len(probs) == 0 {
		return 0
	}
	total := Sum(probs)
	delta := int64(norm) - int64(total)
	if delta == 0 && probs[0] == 0 {
		return 0
	}
	if len(probs) == 1 {
		probs[0] = 0
		return delta
	}

	have := total - probs[0]
	probs[0] = 0

	if have < norm {
		deficit := norm - have
		n := uint64(len(probs) - 1)
		each, rem := deficit/n, deficit%n
		for i := 1; i < len(probs); i++ {
			probs[i] += each
			if uint64(i) <= rem {
				probs[i]++
			}
		}
		return delta
	}

	excess := have - norm
	order := make([]int, 0, len(probs)-1)
	for i := 1; i < len(probs); i++ {
		order = append(order, i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})
	// First pass keeps every entry positive, the second only runs when the
	// excess cannot be met that way.
	for _, floor := range []uint64{1, 0} {
		for _, i := range order {
			if excess == 0 {
				return delta
			}
			if probs[i] <= floor {
				continue
			}
			take := min(probs[i]-floor, excess)
			probs[i] -= take
			excess -= take
		}
	}
	return delta
}

// Prediction is a symbol and its share of a probability vector.
type Prediction struct {
	Symbol Symbol
	Prob   uint64
}

// Ranked returns the symbols with a nonzero share, most probable first. Ties
// keep ascending symbol order.
func Ranked(probs []uint64) []Prediction {
	out := make([]Prediction, 0, len(probs))
	for i := 1; i < len(probs); i++ {
		if probs[i] == 0 {
			continue
		}
		out = append(out, Prediction{Symbol: Symbol(i), Prob: probs[i]})
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Prob > out[b].Prob
	})
	return out
}
