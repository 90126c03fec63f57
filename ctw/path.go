package ctw

import "math/bits"

// findPath fills m.index with the arena refs on the path for ctx at phase,
// starting from the root for sym's bit prefix. It returns the valid depth:
// index[0..depth] are usable, and index[depth] may be one of the notPlaced or
// placeFailed sentinels.
//
// With create set, missing nodes are claimed unless the arena is frozen.
func (m *Model) findPath(ctx *Context, sym, phase int, create bool) int {
	cur := uint64(m.roots[MapIndex(sym, phase, m.nrPhases)])
	m.index[0] = cur

	for i, s := range ctx.syms {
		c := byte(s)
		step := probeStep(c)
		found := false
		for tries := 1; tries < m.opts.MaxTries; tries++ {
			cur = (cur + step) & m.mask()
			t := NodeTries(m.arena, Ref(cur))
			if int(t) == tries && NodeSymbol(m.arena, Ref(cur)) == c {
				found = true
				m.index[i+1] = cur
				break
			}
			if t != 0 {
				continue
			}
			if !create {
				m.index[i+1] = m.notPlaced()
				return i + 1
			}
			if m.frozen {
				m.index[i+1] = m.placeFailed()
				m.noteFailed()
				return i + 1
			}
			nodeClaim(m.arena, Ref(cur), uint8(tries), c)
			m.totalNodes++
			if float64(m.totalNodes)/float64(m.opts.MaxNrNodes) > m.opts.MaxFill {
				m.frozen = true
				if m.log != nil {
					m.log.Infof("ctw: arena frozen at %d of %d nodes", m.totalNodes, m.opts.MaxNrNodes)
				}
			}
			found = true
			m.index[i+1] = cur
			break
		}
		if !found {
			m.index[i+1] = m.placeFailed()
			m.noteFailed()
			return i + 1
		}
	}
	return len(ctx.syms)
}

func (m *Model) noteFailed() {
	m.failed++
	// first failure, then every power of two
	if m.log != nil && m.failed&(m.failed-1) == 0 {
		m.log.Debugf("ctw: %d path lookups failed", m.failed)
	}
}

// updatePath computes the weighted (P0, P1) for the next bit along
// index[0..depth], deepest first. With update set the counts are advanced by
// bit and each ancestor's pe and pwChild take the scaled block values for bit.
func (m *Model) updatePath(bit int, update bool, depth int) (p0, p1 uint64) {
	alpha := m.opts.Alpha
	var g0, g1 uint64

	deepest := m.index[depth]
	if deepest >= m.notPlaced() {
		g0, g1 = m.maxValue, m.maxValue
	} else {
		ref := Ref(deepest)
		c0, c1 := NodeCounts(m.arena, ref)
		g0 = alpha*c0 + 1
		g1 = alpha*c1 + 1
		if update {
			c0, c1 = m.count(bit, c0, c1)
			nodeWriteCounts(m.arena, ref, c0, c1)
		}
	}

	for i := depth - 1; i >= 0; i-- {
		ref := Ref(m.index[i])
		c0, c1 := NodeCounts(m.arena, ref)
		pe, pwChild := NodeWeights(m.arena, ref)

		sum := g0 + g1
		peBlock0 := pe * (alpha*c0 + 1) * sum
		peBlock1 := pe * (alpha*c1 + 1) * sum
		pwBlock0 := pwChild * g0 * (alpha*(c0+c1) + 2)
		pwBlock1 := pwChild * g1 * (alpha*(c0+c1) + 2)

		g0 = peBlock0 + pwBlock0
		g1 = peBlock1 + pwBlock1
		g0, g1 = m.scale(g0, g1)

		if update {
			c0, c1 = m.count(bit, c0, c1)
			if bit == 1 {
				pe, pwChild = m.scale(peBlock1, pwBlock1)
			} else {
				pe, pwChild = m.scale(peBlock0, pwBlock0)
			}
			nodeWriteWeights(m.arena, ref, pe, pwChild)
			nodeWriteCounts(m.arena, ref, c0, c1)
		}
	}
	return g0, g1
}

// count advances the count for bit, halving both counts (rounding up) instead
// when that count is saturated.
func (m *Model) count(bit int, c0, c1 uint64) (uint64, uint64) {
	saturated := c0 == m.maxCount
	if bit == 1 {
		saturated = c1 == m.maxCount
	}
	switch {
	case saturated:
		return (c0 + 1) / 2, (c1 + 1) / 2
	case bit == 1:
		return c0, c1 + 1
	default:
		return c0 + 1, c1
	}
}

// scale brings a and b into NrBits keeping their ratio, and never returns a
// zero.
func (m *Model) scale(a, b uint64) (uint64, uint64) {
	return Scale(a, b, m.maxValue)
}

// Scale shifts a and b right while either exceeds maxValue and left while both
// are below half of it, then lifts zeros to 1.
func Scale(a, b, maxValue uint64) (uint64, uint64) {
	if a == 0 && b == 0 {
		return 1, 1
	}
	if hi := max(a, b); hi > maxValue {
		shift := bits.Len64(hi) - bits.Len64(maxValue)
		if hi>>shift > maxValue {
			shift++
		}
		a >>= shift
		b >>= shift
	}
	for a < maxValue>>1 && b < maxValue>>1 {
		a <<= 1
		b <<= 1
	}
	if a == 0 {
		a = 1
	}
	if b == 0 {
		b = 1
	}
	return a, b
}
