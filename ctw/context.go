package ctw

import "github.com/dasher-project/DasherCore-sub000/lm"

// Context is the rolling window of the most recent symbols, newest first.
type Context struct {
	syms     []lm.Symbol
	released bool
}

// Symbols returns a copy of the window, newest first.
func (c *Context) Symbols() []lm.Symbol {
	c.mustLive()
	return append([]lm.Symbol(nil), c.syms...)
}

func (c *Context) mustLive() {
	if c == nil || c.released {
		panic("ctw: use of released context")
	}
}

func (c *Context) full(maxDepth int) bool {
	return len(c.syms) == maxDepth
}

// push adds sym at the front, dropping the oldest symbol once the window is
// full.
func (c *Context) push(sym lm.Symbol, maxDepth int) {
	if maxDepth == 0 {
		return
	}
	if c.full(maxDepth) {
		c.syms = c.syms[:len(c.syms)-1]
	}
	c.syms = append(c.syms, 0)
	copy(c.syms[1:], c.syms)
	c.syms[0] = sym
}

func (m *Model) CreateEmptyContext() *Context {
	return &Context{syms: make([]lm.Symbol, 0, m.opts.MaxDepth)}
}

func (m *Model) CloneContext(ctx *Context) *Context {
	ctx.mustLive()
	c := m.CreateEmptyContext()
	c.syms = append(c.syms, ctx.syms...)
	return c
}

func (m *Model) ReleaseContext(ctx *Context) {
	ctx.mustLive()
	ctx.released = true
	ctx.syms = nil
}

// EnterSymbol moves the window without training. Symbols outside the
// alphabet are ignored.
func (m *Model) EnterSymbol(ctx *Context, sym lm.Symbol) {
	ctx.mustLive()
	if !m.inAlphabet(sym) {
		return
	}
	ctx.push(sym, m.opts.MaxDepth)
}

// LearnSymbol trains every phase of sym against the current window, once the
// window is full, and then enters sym.
func (m *Model) LearnSymbol(ctx *Context, sym lm.Symbol) {
	ctx.mustLive()
	if !m.inAlphabet(sym) {
		return
	}
	if ctx.full(m.opts.MaxDepth) {
		s := int(sym)
		for phase := 0; phase < m.nrPhases; phase++ {
			depth := m.findPath(ctx, s, phase, true)
			m.updatePath(byteBit(s, phase, m.nrPhases), true, depth)
		}
	}
	ctx.push(sym, m.opts.MaxDepth)
}

func (m *Model) inAlphabet(sym lm.Symbol) bool {
	return sym >= 0 && int(sym) < m.numSyms
}
