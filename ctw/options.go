package ctw

// Options configures a Model. The zero value of each field selects the
// default.
type Options struct {
	MaxDepth     int
	MaxTries     int
	Alpha        uint64
	MaxNrNodes   uint64
	MaxFill      float64
	AlphabetName string
}

type Option func(*Options)

// WithMaxDepth sets the number of whole symbols of context.
func WithMaxDepth(depth int) Option {
	return func(o *Options) { o.MaxDepth = depth }
}

// WithMaxTries sets the open addressing probe limit.
func WithMaxTries(tries int) Option {
	return func(o *Options) { o.MaxTries = tries }
}

// WithAlpha sets the estimator scale. 2 is KT, 1 is Laplace.
func WithAlpha(alpha uint64) Option {
	return func(o *Options) { o.Alpha = alpha }
}

// WithMaxNrNodes sets the arena size. It must be a power of two.
func WithMaxNrNodes(n uint64) Option {
	return func(o *Options) { o.MaxNrNodes = n }
}

// WithMaxFill sets the fill ratio above which the arena freezes.
func WithMaxFill(fill float64) Option {
	return func(o *Options) { o.MaxFill = fill }
}

// WithAlphabetName sets the alphabet name recorded in, and required of, model
// files.
func WithAlphabetName(name string) Option {
	return func(o *Options) { o.AlphabetName = name }
}

func (o *Options) setDefaults() {
	if o.MaxDepth == 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.MaxTries == 0 {
		o.MaxTries = DefaultMaxTries
	}
	if o.Alpha == 0 {
		o.Alpha = DefaultAlpha
	}
	if o.MaxNrNodes == 0 {
		o.MaxNrNodes = DefaultMaxNrNodes
	}
	if o.MaxFill == 0 {
		o.MaxFill = DefaultMaxFill
	}
}

func (o *Options) check(roots int) error {
	if o.MaxDepth < 0 {
		return ErrBadMaxDepth
	}
	if o.MaxTries < 2 || o.MaxTries > 254 {
		return ErrBadMaxTries
	}
	n := o.MaxNrNodes
	if n&(n-1) != 0 || n < 2*uint64(roots) || n > 1<<30 {
		return ErrBadMaxNrNodes
	}
	if o.MaxFill <= 0 || o.MaxFill > 1 {
		return ErrBadMaxFill
	}
	return nil
}
