package nodetree

import (
	"errors"
	"sync"
)

const (
	// Normalization is the size of the root's interval.
	Normalization uint64 = 1 << 48

	DefaultScreenY int64 = 4096

	// DefaultNodeBudget is the default live node target.
	DefaultNodeBudget = 3000
	// DefaultMaxExpansions bounds the leaves populated per frame.
	DefaultMaxExpansions = 16
	// DefaultMinSize is the smallest on screen size, in screen units, of a
	// node that is populated or output.
	DefaultMinSize int64 = 24

	// MaxOldRoots bounds the chain of previous roots kept for backing out.
	MaxOldRoots = 10

	// maxSpan bounds the root's on screen size.
	maxSpan int64 = 1 << 50
)

var (
	ErrLocked     = errors.New("nodetree: model is locked for training")
	ErrBadScreen  = errors.New("nodetree: screen size must be positive")
	ErrBadZoom    = errors.New("nodetree: zoom must be a ratio above one")
	ErrNotInTree  = errors.New("nodetree: node is not below the root")
	ErrNotVisible = errors.New("nodetree: node is too small to zoom to")
	ErrNoLogger   = errors.New("nodetree: a logger is required")
)

type Options struct {
	// Uniform is the share of every population, per 1000, spread evenly.
	Uniform uint32
	ScreenY int64
	Policy  Policy
	// Mutex is shared with training on the same model. Frames are skipped
	// while it is held elsewhere.
	Mutex *sync.Mutex
	// TrainOnCommit learns every committed symbol.
	TrainOnCommit bool
	// ZoomNum/ZoomDen is the per frame magnification.
	ZoomNum, ZoomDen int64
	// PanDiv divides the target's distance from the crosshair to give the
	// per frame pan.
	PanDiv int64
}

type Option func(*Options)

func WithUniform(uniform uint32) Option {
	return func(o *Options) { o.Uniform = uniform }
}

func WithScreen(screenY int64) Option {
	return func(o *Options) { o.ScreenY = screenY }
}

func WithPolicy(p Policy) Option {
	return func(o *Options) { o.Policy = p }
}

func WithMutex(mu *sync.Mutex) Option {
	return func(o *Options) { o.Mutex = mu }
}

func WithTrainOnCommit() Option {
	return func(o *Options) { o.TrainOnCommit = true }
}

// WithZoom sets the per frame magnification to num/den.
func WithZoom(num, den int64) Option {
	return func(o *Options) { o.ZoomNum, o.ZoomDen = num, den }
}

func (o *Options) setDefaults() {
	if o.Uniform == 0 {
		o.Uniform = 50
	}
	if o.ScreenY == 0 {
		o.ScreenY = DefaultScreenY
	}
	if o.Policy == nil {
		o.Policy = NewAmortizedPolicy(DefaultNodeBudget, DefaultMaxExpansions, DefaultMinSize)
	}
	if o.ZoomNum == 0 && o.ZoomDen == 0 {
		o.ZoomNum, o.ZoomDen = 33, 32
	}
	if o.PanDiv == 0 {
		o.PanDiv = 8
	}
}

func (o *Options) check() error {
	if o.ScreenY <= 0 {
		return ErrBadScreen
	}
	if o.ZoomDen <= 0 || o.ZoomNum <= o.ZoomDen || o.ZoomNum > 64*o.ZoomDen {
		return ErrBadZoom
	}
	return nil
}
