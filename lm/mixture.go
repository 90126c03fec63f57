package lm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// DefaultMixtureWeight is the default share of norm, in percent, given to the
// first component of a Mixture.
const DefaultMixtureWeight uint32 = 50

// maxComponentBytes bounds a component body read from a mixture file.
const maxComponentBytes = 1 << 34

// MixContext pairs one context from each component of a Mixture.
type MixContext[CA, CB any] struct {
	a        CA
	b        CB
	released bool
}

// Mixture blends two models over the same alphabet by splitting norm between
// them and summing their predictions.
type Mixture[CA, CB any] struct {
	a      Model[CA]
	b      Model[CB]
	weight uint32
	tmp    []uint64
}

// NewMixture returns a mixture giving weight percent of every prediction to a
// and the remainder to b.
func NewMixture[CA, CB any](a Model[CA], b Model[CB], weight uint32) (*Mixture[CA, CB], error) {
	if weight > 100 {
		return nil, fmt.Errorf("%w: %d", ErrBadWeight, weight)
	}
	if a.NumSymbols() != b.NumSymbols() {
		return nil, fmt.Errorf("%w: components have %d and %d symbols", ErrAlphabetMismatch, a.NumSymbols(), b.NumSymbols())
	}
	return &Mixture[CA, CB]{a: a, b: b, weight: weight}, nil
}

func (m *Mixture[CA, CB]) NumSymbols() int { return m.a.NumSymbols() }

// Weight returns the first component's share in percent.
func (m *Mixture[CA, CB]) Weight() uint32 { return m.weight }

func (m *Mixture[CA, CB]) CreateEmptyContext() *MixContext[CA, CB] {
	return &MixContext[CA, CB]{a: m.a.CreateEmptyContext(), b: m.b.CreateEmptyContext()}
}

func (m *Mixture[CA, CB]) CloneContext(ctx *MixContext[CA, CB]) *MixContext[CA, CB] {
	mustLive(ctx)
	return &MixContext[CA, CB]{a: m.a.CloneContext(ctx.a), b: m.b.CloneContext(ctx.b)}
}

func (m *Mixture[CA, CB]) ReleaseContext(ctx *MixContext[CA, CB]) {
	mustLive(ctx)
	m.a.ReleaseContext(ctx.a)
	m.b.ReleaseContext(ctx.b)
	ctx.released = true
}

func (m *Mixture[CA, CB]) EnterSymbol(ctx *MixContext[CA, CB], sym Symbol) {
	mustLive(ctx)
	m.a.EnterSymbol(ctx.a, sym)
	m.b.EnterSymbol(ctx.b, sym)
}

func (m *Mixture[CA, CB]) LearnSymbol(ctx *MixContext[CA, CB], sym Symbol) {
	mustLive(ctx)
	m.a.LearnSymbol(ctx.a, sym)
	m.b.LearnSymbol(ctx.b, sym)
}

// GetProbs gives each component its share of norm with the same uniform
// floor, so the floor holds for the sum.
func (m *Mixture[CA, CB]) GetProbs(ctx *MixContext[CA, CB], probs []uint64, norm uint64, uniform uint32) []uint64 {
	mustLive(ctx)
	normA := norm / 100 * uint64(m.weight)
	normA += norm % 100 * uint64(m.weight) / 100

	probs = m.a.GetProbs(ctx.a, probs, normA, uniform)
	m.tmp = m.b.GetProbs(ctx.b, m.tmp, norm-normA, uniform)
	for i := range probs {
		probs[i] += m.tmp[i]
	}
	return probs
}

func mustLive[CA, CB any](ctx *MixContext[CA, CB]) {
	if ctx == nil || ctx.released {
		panic("lm: use of released mixture context")
	}
}

const (
	MixtureLMVersion    uint16 = 1
	MixtureLMMinVersion uint16 = 1
)

// Persistable models can be written to and loaded from model files.
type Persistable interface {
	io.WriterTo
	io.ReaderFrom
}

// Header returns the model file header this mixture writes and accepts. The
// alphabet name is carried by the component files.
func (m *Mixture[CA, CB]) Header() Header {
	return Header{
		LMID:         ModelMixture,
		LMVersion:    MixtureLMVersion,
		LMMinVersion: MixtureLMMinVersion,
		AlphabetSize: m.NumSymbols(),
	}
}

func (m *Mixture[CA, CB]) components() (Persistable, Persistable, error) {
	a, okA := any(m.a).(Persistable)
	b, okB := any(m.b).(Persistable)
	if !okA || !okB {
		return nil, nil, ErrNotPersistable
	}
	return a, b, nil
}

// WriteTo writes the mixture header, the weight and each component's model
// file prefixed by its uint64 length.
func (m *Mixture[CA, CB]) WriteTo(w io.Writer) (int64, error) {
	a, b, err := m.components()
	if err != nil {
		return 0, err
	}
	n, err := WriteHeader(w, m.Header())
	if err != nil {
		return n, err
	}
	k, err := w.Write([]byte{byte(m.weight)})
	n += int64(k)
	if err != nil {
		return n, err
	}
	for _, c := range []Persistable{a, b} {
		var body bytes.Buffer
		if _, err := c.WriteTo(&body); err != nil {
			return n, err
		}
		var size [8]byte
		binary.LittleEndian.PutUint64(size[:], uint64(body.Len()))
		k, err = w.Write(size[:])
		n += int64(k)
		if err != nil {
			return n, err
		}
		k64, err := body.WriteTo(w)
		n += k64
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// ReadFrom loads both components. If the second component is rejected the
// first is restored, so on error the mixture is unchanged.
func (m *Mixture[CA, CB]) ReadFrom(r io.Reader) (int64, error) {
	a, b, err := m.components()
	if err != nil {
		return 0, err
	}
	h, n, err := ReadHeader(r)
	if err != nil {
		return n, err
	}
	if err := h.Check(m.Header()); err != nil {
		return n, err
	}

	var weight [1]byte
	k, err := io.ReadFull(r, weight[:])
	n += int64(k)
	if err != nil {
		return n, fmt.Errorf("%w: weight: %v", ErrBadHeaderSize, err)
	}
	if weight[0] > 100 {
		return n, fmt.Errorf("%w: %d", ErrBadWeight, weight[0])
	}

	var bodies [2][]byte
	for i := range bodies {
		var size [8]byte
		k, err = io.ReadFull(r, size[:])
		n += int64(k)
		if err != nil {
			return n, fmt.Errorf("%w: component %d: %v", ErrBadHeaderSize, i, err)
		}
		l := binary.LittleEndian.Uint64(size[:])
		if l > maxComponentBytes {
			return n, fmt.Errorf("%w: component %d is %d bytes", ErrBadHeaderSize, i, l)
		}
		bodies[i] = make([]byte, l)
		k, err = io.ReadFull(r, bodies[i])
		n += int64(k)
		if err != nil {
			return n, fmt.Errorf("%w: component %d: %v", ErrBadHeaderSize, i, err)
		}
	}

	var backup bytes.Buffer
	if _, err := a.WriteTo(&backup); err != nil {
		return n, err
	}
	if _, err := a.ReadFrom(bytes.NewReader(bodies[0])); err != nil {
		return n, err
	}
	if _, err := b.ReadFrom(bytes.NewReader(bodies[1])); err != nil {
		if _, rerr := a.ReadFrom(&backup); rerr != nil {
			return n, errors.Join(err, rerr)
		}
		return n, err
	}
	m.weight = uint32(weight[0])
	return n, nil
}
