// Package unigram is an adaptive order-0 frequency model. It is blended with
// a context model by lm.Mixture to keep novel contexts well predicted.
package unigram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/lm"
)

const (
	// MaxTotal is the count total above which every count is halved.
	MaxTotal = 1 << 16

	LMVersion    uint16 = 1
	LMMinVersion uint16 = 1
)

var (
	ErrAlphabetTooSmall = errors.New("unigram: alphabet needs at least one symbol besides 0")
	ErrCorrupt          = errors.New("unigram: model file body invalid")
)

// Context carries no history. It exists so unigram models satisfy lm.Model
// and can be mixed with context models.
type Context struct {
	released bool
}

// Model counts symbol occurrences.
type Model struct {
	log    logger.Logger
	name   string
	counts []uint64
	total  uint64
}

var _ lm.Model[*Context] = (*Model)(nil)

// New returns a model where every symbol 1..numSyms-1 has been seen once.
func New(log logger.Logger, numSyms int, alphabetName string) (*Model, error) {
	if numSyms < 2 {
		return nil, ErrAlphabetTooSmall
	}
	m := &Model{log: log, name: alphabetName, counts: make([]uint64, numSyms)}
	for s := 1; s < numSyms; s++ {
		m.counts[s] = 1
	}
	m.total = uint64(numSyms - 1)
	return m, nil
}

func (m *Model) NumSymbols() int { return len(m.counts) }

// Count returns how often sym has been learnt, after halving, plus one.
func (m *Model) Count(sym lm.Symbol) uint64 {
	if sym < 1 || int(sym) >= len(m.counts) {
		return 0
	}
	return m.counts[sym]
}

func (m *Model) CreateEmptyContext() *Context { return &Context{} }

func (m *Model) CloneContext(ctx *Context) *Context {
	ctx.mustLive()
	return &Context{}
}

func (m *Model) ReleaseContext(ctx *Context) {
	ctx.mustLive()
	ctx.released = true
}

func (m *Model) EnterSymbol(ctx *Context, sym lm.Symbol) {
	ctx.mustLive()
}

func (m *Model) LearnSymbol(ctx *Context, sym lm.Symbol) {
	ctx.mustLive()
	if sym < 1 || int(sym) >= len(m.counts) {
		return
	}
	m.counts[sym]++
	m.total++
	if m.total <= MaxTotal {
		return
	}
	m.total = 0
	for s := 1; s < len(m.counts); s++ {
		m.counts[s] = (m.counts[s] + 1) >> 1
		m.total += m.counts[s]
	}
}

// GetProbs gives every symbol an equal floor from the uniform share and
// splits the rest in proportion to the counts.
func (m *Model) GetProbs(ctx *Context, probs []uint64, norm uint64, uniform uint32) []uint64 {
	ctx.mustLive()
	probs = lm.Resize(probs, len(m.counts))
	live := uint64(len(m.counts) - 1)

	floor := lm.UniformMass(norm, uniform) / live
	if floor == 0 && uniform > 0 && norm >= live {
		floor = 1
	}
	rest := norm - floor*live

	var cum, prev uint64
	for s := 1; s < len(m.counts); s++ {
		cum += m.counts[s]
		hi, lo := bits.Mul64(rest, cum)
		target, _ := bits.Div64(hi, lo, m.total)
		probs[s] = floor + target - prev
		prev = target
	}
	return probs
}

func (c *Context) mustLive() {
	if c == nil || c.released {
		panic("unigram: use of released context")
	}
}

// Header returns the model file header this model writes and accepts.
func (m *Model) Header() lm.Header {
	return lm.Header{
		LMID:         lm.ModelUnigram,
		LMVersion:    LMVersion,
		LMMinVersion: LMMinVersion,
		AlphabetSize: len(m.counts),
		AlphabetName: m.name,
	}
}

// WriteTo writes the header followed by the little endian uint32 counts of
// symbols 1..N-1.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	n, err := lm.WriteHeader(w, m.Header())
	if err != nil {
		return n, err
	}
	body := make([]byte, 4*(len(m.counts)-1))
	for s := 1; s < len(m.counts); s++ {
		binary.LittleEndian.PutUint32(body[4*(s-1):], uint32(m.counts[s]))
	}
	k, err := w.Write(body)
	return n + int64(k), err
}

// ReadFrom replaces the counts with those read from r. On error the model is
// unchanged.
func (m *Model) ReadFrom(r io.Reader) (int64, error) {
	h, n, err := lm.ReadHeader(r)
	if err != nil {
		return n, err
	}
	if err := h.Check(m.Header()); err != nil {
		return n, err
	}
	body := make([]byte, 4*(len(m.counts)-1))
	k, err := io.ReadFull(r, body)
	n += int64(k)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	counts := make([]uint64, len(m.counts))
	var total uint64
	for s := 1; s < len(counts); s++ {
		c := uint64(binary.LittleEndian.Uint32(body[4*(s-1):]))
		if c == 0 {
			return n, fmt.Errorf("%w: symbol %d has no count", ErrCorrupt, s)
		}
		counts[s] = c
		total += c
	}
	m.counts, m.total = counts, total
	if m.log != nil {
		m.log.Debugf("unigram: loaded %d counts, total %d", len(counts)-1, total)
	}
	return n, nil
}
