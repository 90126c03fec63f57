// Package trainer feeds text corpora through a model's LearnSymbol.
//
// Training is a long running, exclusive operation: it holds the shared model
// mutex for its whole duration so navigation on the same model waits or backs
// off. A pass can be cancelled between symbols through its context.Context;
// whatever was learnt before cancellation stays learnt.
//
// # Context escapes
//
// A corpus can reset the training context inline. The escape character
// followed by a delimiter starts a new context: the alphabet's default context
// is entered, then everything up to the next delimiter is entered without
// being learnt. A doubled escape character is a literal escape character.
//
//	§"I said "Hello.
//
// trains "Hello." in the context ". I said ".
package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/alphabet"
	"github.com/dasher-project/DasherCore-sub000/lm"
)

// ProgressFunc receives the bytes read so far and the total, or -1 when the
// size is unknown.
type ProgressFunc func(read, total int64)

// Result summarises a training pass.
type Result struct {
	Learnt    int64
	Skipped   int64
	Switches  int64
	BytesRead int64
}

type Options struct {
	Mutex    *sync.Mutex
	Progress ProgressFunc
	// ProgressStep is the number of bytes between progress reports when the
	// total size is unknown.
	ProgressStep int64
}

type Option func(*Options)

// WithMutex shares mu between training and navigation of the same model.
func WithMutex(mu *sync.Mutex) Option {
	return func(o *Options) { o.Mutex = mu }
}

// WithProgress reports progress whenever the completed percentage changes.
func WithProgress(f ProgressFunc) Option {
	return func(o *Options) { o.Progress = f }
}

// Trainer trains one model from text in one alphabet.
type Trainer[C any] struct {
	log   logger.Logger
	model lm.Model[C]
	alph  *alphabet.Alphabet
	opts  Options
}

// New returns a trainer for model. The model and alphabet must agree on the
// number of symbols.
func New[C any](log logger.Logger, model lm.Model[C], alph *alphabet.Alphabet, opts ...Option) (*Trainer[C], error) {
	if model.NumSymbols() != alph.NumSymbols() {
		return nil, fmt.Errorf("%w: model has %d symbols, alphabet %d", lm.ErrAlphabetMismatch, model.NumSymbols(), alph.NumSymbols())
	}
	t := &Trainer[C]{log: log, model: model, alph: alph}
	for _, opt := range opts {
		opt(&t.opts)
	}
	if t.opts.Mutex == nil {
		t.opts.Mutex = &sync.Mutex{}
	}
	if t.opts.ProgressStep == 0 {
		t.opts.ProgressStep = 1 << 20
	}
	return t, nil
}

// TrainFile trains on the file at path.
func (t *Trainer[C]) TrainFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()
	return t.Train(ctx, f)
}

// Train learns every symbol of r in order. Symbols the alphabet cannot encode
// are skipped.
func (t *Trainer[C]) Train(ctx context.Context, r io.Reader) (Result, error) {
	t.opts.Mutex.Lock()
	defer t.opts.Mutex.Unlock()

	p := newProgress(t.opts, sizeOf(r))
	s := t.alph.Stream(r)
	res := Result{}

	mctx := t.model.CreateEmptyContext()
	defer func() { t.model.ReleaseContext(mctx) }()

	for {
		if err := ctx.Err(); err != nil {
			res.BytesRead = s.BytesRead()
			if t.log != nil {
				t.log.Infof("training cancelled after %d symbols: %v", res.Learnt, err)
			}
			return res, err
		}
		sym, text, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.BytesRead = s.BytesRead()
			return res, err
		}
		p.update(s.BytesRead())

		if esc := t.alph.Escape(); esc != "" && text == esc {
			switched, err := t.readEscape(&mctx, s)
			if err != nil {
				res.BytesRead = s.BytesRead()
				return res, err
			}
			if switched {
				res.Switches++
				continue
			}
		}
		if sym == lm.SymbolUnknown {
			res.Skipped++
			continue
		}
		t.model.LearnSymbol(mctx, sym)
		res.Learnt++
	}

	res.BytesRead = s.BytesRead()
	p.done(res.BytesRead)
	if t.log != nil {
		t.log.Infof("trained %d symbols, skipped %d, %d context switches", res.Learnt, res.Skipped, res.Switches)
	}
	return res, nil
}

// readEscape handles the text after an escape character. It returns false
// for a doubled escape, which the caller learns as a literal.
func (t *Trainer[C]) readEscape(mctx *C, s *alphabet.Stream) (bool, error) {
	_, delim, err := s.Next()
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if delim == t.alph.Escape() {
		return false, nil
	}

	t.model.ReleaseContext(*mctx)
	*mctx = t.model.CreateEmptyContext()
	for _, sym := range t.alph.Symbols(t.alph.DefaultContext()) {
		t.model.EnterSymbol(*mctx, sym)
	}
	for {
		sym, text, err := s.Next()
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		if err != nil {
			return true, err
		}
		if text == delim {
			return true, nil
		}
		t.model.EnterSymbol(*mctx, sym)
	}
}

func sizeOf(r io.Reader) int64 {
	switch v := r.(type) {
	case interface{ Stat() (os.FileInfo, error) }:
		if fi, err := v.Stat(); err == nil && fi.Mode().IsRegular() {
			return fi.Size()
		}
	case interface{ Len() int }:
		return int64(v.Len())
	}
	return -1
}

type progress struct {
	f     ProgressFunc
	step  int64
	total int64
	last  int64
}

func newProgress(opts Options, total int64) *progress {
	return &progress{f: opts.Progress, step: opts.ProgressStep, total: total, last: -1}
}

// update reports when the percentage, or with an unknown total the step
// count, changes.
func (p *progress) update(read int64) {
	if p.f == nil {
		return
	}
	var mark int64
	if p.total > 0 {
		mark = min(read, p.total) * 100 / p.total
	} else {
		mark = read / p.step
	}
	if mark == p.last {
		return
	}
	p.last = mark
	p.f(read, p.total)
}

func (p *progress) done(read int64) {
	if p.f == nil {
		return
	}
	p.last = -1
	p.update(read)
}
