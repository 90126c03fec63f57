package ctw

import (
	"fmt"
	"math/bits"

	"github.com/datatrails/go-datatrails-common/logger"
)

// Model is a context tree weighting predictor over a fixed arena.
//
// A Model is not safe for concurrent use. Training and prediction on one
// Model must be serialised by the caller.
type Model struct {
	log  logger.Logger
	opts Options

	numSyms  int
	nrPhases int
	maxValue uint64
	maxCount uint64

	arena []byte
	roots []Ref

	totalNodes uint64
	failed     uint64
	frozen     bool

	// scratch, reused across calls
	index    []uint64
	interval []uint64
}

// New returns an empty model for an alphabet of numSyms symbols, counting the
// reserved symbol 0.
func New(log logger.Logger, numSyms int, opts ...Option) (*Model, error) {
	if numSyms < 2 {
		return nil, ErrAlphabetTooSmall
	}
	m := &Model{
		log:      log,
		numSyms:  numSyms,
		nrPhases: bits.Len(uint(numSyms - 1)),
		maxValue: 1<<DefaultNrBits - 1,
		maxCount: DefaultMaxCount,
	}
	for _, opt := range opts {
		opt(&m.opts)
	}
	m.opts.setDefaults()

	nroots := 1 << m.nrPhases
	if err := m.opts.check(nroots); err != nil {
		return nil, fmt.Errorf("%w: %d symbols", err, numSyms)
	}

	m.arena = newArena(m.opts.MaxNrNodes)
	m.roots = placeRoots(m.arena, nroots, m.opts.MaxNrNodes, m.rootTries())
	m.totalNodes = uint64(nroots)
	m.index = make([]uint64, m.opts.MaxDepth+1)
	m.interval = make([]uint64, 2*nroots-1)
	return m, nil
}

// NumSymbols is the alphabet size including symbol 0.
func (m *Model) NumSymbols() int { return m.numSyms }

// NrPhases is the number of bits predicted per symbol.
func (m *Model) NrPhases() int { return m.nrPhases }

// AlphabetName is the name recorded in model files.
func (m *Model) AlphabetName() string { return m.opts.AlphabetName }

// Options returns the effective configuration.
func (m *Model) Options() Options { return m.opts }

// Stats returns the diagnostic counters.
func (m *Model) Stats() Stats {
	return Stats{
		TotalNodes: m.totalNodes,
		Failed:     m.failed,
		Frozen:     m.frozen,
		MaxNrNodes: m.opts.MaxNrNodes,
	}
}

func (m *Model) rootTries() uint8 {
	return uint8(m.opts.MaxTries + 1)
}

func (m *Model) mask() uint64 {
	return m.opts.MaxNrNodes - 1
}

// notPlaced and placeFailed are path sentinels past the end of the arena.
func (m *Model) notPlaced() uint64   { return m.opts.MaxNrNodes }
func (m *Model) placeFailed() uint64 { return m.opts.MaxNrNodes + 1 }

func byteBit(sym, phase, nrPhases int) int {
	return (sym >> (nrPhases - 1 - phase)) & 1
}
