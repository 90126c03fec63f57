package alphabet

import (
	"bufio"
	"errors"
	"io"

	"github.com/dasher-project/DasherCore-sub000/lm"
	"golang.org/x/text/unicode/norm"
)

// Stream tokenises a reader incrementally.
type Stream struct {
	a       *Alphabet
	counter *countingReader
	r       *bufio.Reader
	pending []rune
	err     error
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Stream returns a tokeniser over r. Input is NFC normalised on the fly.
func (a *Alphabet) Stream(r io.Reader) *Stream {
	c := &countingReader{r: r}
	return &Stream{a: a, counter: c, r: bufio.NewReader(norm.NFC.Reader(c))}
}

// BytesRead is the number of raw input bytes consumed so far, including
// read ahead.
func (s *Stream) BytesRead() int64 { return s.counter.n }

// Next returns the next symbol and the text it covers. At the end of input it
// returns lm.SymbolEnd and io.EOF.
func (s *Stream) Next() (lm.Symbol, string, error) {
	s.fill()
	if len(s.pending) == 0 {
		if s.err == nil || errors.Is(s.err, io.EOF) {
			return lm.SymbolEnd, "", io.EOF
		}
		return lm.SymbolEnd, "", s.err
	}
	sym, n := s.a.match(s.pending)
	text := string(s.pending[:n])
	s.pending = s.pending[n:]
	return sym, text, nil
}

// fill tops up the lookahead to the longest character length.
func (s *Stream) fill() {
	for len(s.pending) < s.a.maxRunes && s.err == nil {
		r, _, err := s.r.ReadRune()
		if err != nil {
			s.err = err
			return
		}
		s.pending = append(s.pending, r)
	}
}
