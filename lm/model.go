package lm

// Model is an incremental context model over an alphabet of NumSymbols
// symbols (including the reserved symbol 0).
//
// C is the model's context handle. Implementations use a pointer type so
// handles can be released and cloned cheaply.
type Model[C any] interface {
	// NumSymbols is the alphabet size including symbol 0.
	NumSymbols() int

	CreateEmptyContext() C
	// CloneContext returns an independent deep copy of ctx.
	CloneContext(ctx C) C
	ReleaseContext(ctx C)

	// EnterSymbol appends sym to the context history without training.
	EnterSymbol(ctx C, sym Symbol)
	// LearnSymbol trains on the transition from ctx to sym, then enters sym.
	LearnSymbol(ctx C, sym Symbol)

	// GetProbs fills probs (resized to NumSymbols) so that it sums to norm
	// with probs[0] == 0. uniform is the share of norm, per UniformScale,
	// spread evenly over the alphabet. The filled slice is returned.
	GetProbs(ctx C, probs []uint64, norm uint64, uniform uint32) []uint64
}

// Resize returns probs with length n, reusing its storage when possible. The
// contents are zeroed.
func Resize(probs []uint64, n int) []uint64 {
	if cap(probs) < n {
		return make([]uint64, n)
	}
	probs = probs[:n]
	clear(probs)
	return probs
}

// UniformMass converts a per UniformScale uniform share into an absolute
// amount of norm.
func UniformMass(norm uint64, uniform uint32) uint64 {
	if uniform > UniformScale {
		uniform = UniformScale
	}
	// norm*uniform cannot overflow for any norm below 2^54.
	return norm * uint64(uniform) / UniformScale
}
