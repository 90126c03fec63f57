// Package alphabet maps text to dense symbol ids.
//
// It is the minimal alphabet the predictive core needs: an ordered list of
// characters, each a short NFC normalised string, plus the training escape
// character and the default context used to start a new training context.
package alphabet

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dasher-project/DasherCore-sub000/lm"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyCharacter     = errors.New("alphabet: empty character")
	ErrDuplicateCharacter = errors.New("alphabet: duplicate character")
	ErrNoCharacters       = errors.New("alphabet: no characters")
)

// Alphabet assigns symbol i+1 to the i'th character.
type Alphabet struct {
	name           string
	chars          []string
	index          map[string]lm.Symbol
	maxRunes       int
	escape         string
	defaultContext string
}

type Option func(*Alphabet)

// WithEscape sets the training context escape character.
func WithEscape(esc string) Option {
	return func(a *Alphabet) { a.escape = norm.NFC.String(esc) }
}

// WithDefaultContext sets the text entered at the start of every training
// context.
func WithDefaultContext(text string) Option {
	return func(a *Alphabet) { a.defaultContext = norm.NFC.String(text) }
}

// New returns an alphabet over chars. Characters are NFC normalised before
// use.
func New(name string, chars []string, opts ...Option) (*Alphabet, error) {
	if len(chars) == 0 {
		return nil, ErrNoCharacters
	}
	a := &Alphabet{
		name:  name,
		chars: make([]string, 1, len(chars)+1),
		index: make(map[string]lm.Symbol, len(chars)),
	}
	for i, c := range chars {
		c = norm.NFC.String(c)
		if c == "" {
			return nil, fmt.Errorf("%w: position %d", ErrEmptyCharacter, i)
		}
		if _, ok := a.index[c]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCharacter, c)
		}
		a.index[c] = lm.Symbol(len(a.chars))
		a.chars = append(a.chars, c)
		a.maxRunes = max(a.maxRunes, utf8.RuneCountInString(c))
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Alphabet) Name() string { return a.name }

// NumSymbols is the number of symbols including the reserved symbol 0.
func (a *Alphabet) NumSymbols() int { return len(a.chars) }

// Escape returns the training context escape character, empty if none.
func (a *Alphabet) Escape() string { return a.escape }

// DefaultContext returns the text that starts every training context.
func (a *Alphabet) DefaultContext() string { return a.defaultContext }

// Symbol returns the id of the character c, or 0 if c is not in the alphabet.
func (a *Alphabet) Symbol(c string) lm.Symbol {
	return a.index[norm.NFC.String(c)]
}

// Text returns the character for sym, empty for symbols outside 1..N.
func (a *Alphabet) Text(sym lm.Symbol) string {
	if sym < 1 || int(sym) >= len(a.chars) {
		return ""
	}
	return a.chars[sym]
}

// Symbols tokenises text, longest match first. Runes no character starts
// with map to 0.
func (a *Alphabet) Symbols(text string) []lm.Symbol {
	runes := []rune(norm.NFC.String(text))
	syms := make([]lm.Symbol, 0, len(runes))
	for len(runes) > 0 {
		sym, n := a.match(runes)
		syms = append(syms, sym)
		runes = runes[n:]
	}
	return syms
}

// String renders syms, writing nothing for symbols outside the alphabet.
func (a *Alphabet) String(syms []lm.Symbol) string {
	var b strings.Builder
	for _, s := range syms {
		b.WriteString(a.Text(s))
	}
	return b.String()
}

// match returns the symbol for the longest character prefixing runes and the
// number of runes it covers. An unknown rune is one rune of symbol 0.
func (a *Alphabet) match(runes []rune) (lm.Symbol, int) {
	for n := min(a.maxRunes, len(runes)); n > 0; n-- {
		if sym, ok := a.index[string(runes[:n])]; ok {
			return sym, n
		}
	}
	return lm.SymbolUnknown, 1
}

// English returns a Latin alphabet with digits and limited punctuation.
func English() *Alphabet {
	var chars []string
	for c := 'a'; c <= 'z'; c++ {
		chars = append(chars, string(c))
	}
	for c := 'A'; c <= 'Z'; c++ {
		chars = append(chars, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		chars = append(chars, string(c))
	}
	chars = append(chars, " ", ".", ",", "'", "?", "!", "-", "\"", "\n")
	a, err := New("English with limited punctuation", chars, WithEscape("§"), WithDefaultContext(". "))
	if err != nil {
		panic(err)
	}
	return a
}
