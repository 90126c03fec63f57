package ctw

import (
	"errors"

	"github.com/dasher-project/DasherCore-sub000/lm"
)

const (
	// NodeRecordBytes is the size of one arena record.
	NodeRecordBytes = 8

	DefaultMaxDepth   = 6
	DefaultMaxTries   = 15
	DefaultAlpha      = 14
	DefaultMaxNrNodes = 1 << 22
	DefaultMaxFill    = 0.9
	DefaultMaxCount   = 255
	DefaultNrBits     = 9

	// LMVersion is the body layout version written to model files.
	LMVersion uint16 = 1
	// LMMinVersion is the oldest body layout this package reads.
	LMMinVersion uint16 = 1

	// maxNorm bounds GetProbs norms so interval arithmetic stays in 64 bits.
	maxNorm = 1 << 48
)

// Ref is the index of a record in the arena.
type Ref uint32

var (
	ErrAlphabetTooSmall  = errors.New("ctw: alphabet needs at least one symbol besides 0")
	ErrBadMaxNrNodes     = errors.New("ctw: MaxNrNodes must be a power of two with room for the roots")
	ErrBadMaxDepth       = errors.New("ctw: MaxDepth must be positive")
	ErrBadMaxTries       = errors.New("ctw: MaxTries must be in [2, 254]")
	ErrBadMaxFill        = errors.New("ctw: MaxFill must be in (0, 1]")
	ErrNodeCountMismatch = errors.New("ctw: model file node count differs from the arena")
	ErrTruncated         = errors.New("ctw: model file truncated")
	ErrRootMismatch      = errors.New("ctw: model file roots do not match this model")
)

// Stats are the model's diagnostic counters.
type Stats struct {
	// TotalNodes counts claimed slots including roots.
	TotalNodes uint64
	// Failed counts path lookups that could not find or place a node.
	Failed uint64
	// Frozen is set once the fill ratio passed MaxFill.
	Frozen     bool
	MaxNrNodes uint64
}

var _ lm.Model[*Context] = (*Model)(nil)
