package ctw

// permSeed fixes the byte permutation. Persisted arenas are only meaningful
// with the permutation they were built with, so it must never change.
const permSeed uint64 = 0x44617368_65724354

// bytePerm is a fixed permutation of 0..255 used both to place the roots and
// to derive probe steps.
var bytePerm = newBytePerm(permSeed)

// newBytePerm returns a Fisher-Yates shuffle of 0..255 driven by splitmix64.
func newBytePerm(seed uint64) [256]uint32 {
	var p [256]uint32
	for i := range p {
		p[i] = uint32(i)
	}
	s := seed
	next := func() uint64 {
		s += 0x9e3779b97f4a7c15
		z := s
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		return z ^ (z >> 31)
	}
	for i := len(p) - 1; i > 0; i-- {
		j := next() % uint64(i+1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// hashOffset extends the byte permutation to wider values.
func hashOffset(i int) uint64 {
	return uint64(bytePerm[i&0xff]) | uint64(i>>8)<<8
}

// probeStep is the odd open addressing step for a context byte. Odd steps
// visit every slot of a power of two arena before repeating.
func probeStep(c byte) uint64 {
	return uint64(bytePerm[c])<<1 + 1
}

// MapIndex returns the root slot number for the bit prefix of sym at phase.
// Phase 0 has one root, phase f has 2^f, numbered consecutively.
func MapIndex(sym, phase, nrPhases int) int {
	return (1 << phase) - 1 + (sym >> (nrPhases - phase))
}

// placeRoots claims one arena slot per root and returns their refs. Roots
// that collide after masking move to the next free slot.
func placeRoots(arena []byte, n int, maxNrNodes uint64, rootTries uint8) []Ref {
	mask := maxNrNodes - 1
	roots := make([]Ref, n)
	for i := range roots {
		r := hashOffset(i) & mask
		for NodeTries(arena, Ref(r)) != 0 {
			r = (r + 1) & mask
		}
		nodeClaim(arena, Ref(r), rootTries, 0)
		roots[i] = Ref(r)
	}
	return roots
}
