package ctw

import "github.com/dasher-project/DasherCore-sub000/lm"

// GetProbs splits norm over the alphabet by walking the phases: each bit
// prefix's interval is divided in the ratio of the weighted bit
// probabilities, with a floor so every leaf keeps at least its uniform share.
// Leaf mass for symbol 0 and for ids past the alphabet (the arena always has
// 2^NrPhases leaves) is spread evenly over symbols 1..N-1.
//
// Norms above 2^48 are split as 2^48 and the excess is spread with the
// leftover mass.
func (m *Model) GetProbs(ctx *Context, probs []uint64, norm uint64, uniform uint32) []uint64 {
	ctx.mustLive()
	n := m.numSyms
	probs = lm.Resize(probs, n)
	var excess uint64
	if norm > maxNorm {
		excess = norm - maxNorm
	}
	full := norm
	norm -= excess

	leaves := 1 << m.nrPhases
	interval := m.interval
	clear(interval)
	interval[0] = norm

	minProb := lm.UniformMass(norm, uniform) / uint64(n)
	if minProb == 0 && uniform > 0 && norm >= uint64(leaves) {
		minProb = 1
	}

	for phase := 0; phase < m.nrPhases; phase++ {
		stride := 1 << (m.nrPhases - phase)
		for step := 0; step < 1<<phase; step++ {
			depth := m.findPath(ctx, step*stride, phase, false)
			base := interval[(1<<phase)+step-1]
			p0, p1 := m.updatePath(0, false, depth)

			z := base * p0 / (p0 + p1)
			o := base - z

			// A floor above half the interval cannot be met on both sides.
			minInterval := min(minProb<<(m.nrPhases-1-phase), base/2)
			if z < minInterval {
				o -= minInterval - z
				z = minInterval
			} else if o < minInterval {
				z -= minInterval - o
				o = minInterval
			}

			interval[(1<<(phase+1))+2*step-1] = z
			interval[(1<<(phase+1))+2*step] = o
		}
	}

	first := len(interval) - leaves
	copy(probs, interval[first:first+n])

	left := probs[0] + excess
	probs[0] = 0
	for j := n; j < leaves; j++ {
		left += interval[first+j]
	}
	remaining := uint64(n - 1)
	for j := 1; j < n; j++ {
		p := left / remaining
		probs[j] += p
		left -= p
		remaining--
	}

	if total := lm.Sum(probs); total != full {
		delta := lm.Repair(probs, full)
		if m.log != nil {
			m.log.Infof("ctw: probabilities summed to %d not %d, repaired by %d", total, full, delta)
		}
	}
	return probs
}
