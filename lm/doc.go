package lm

/*

# Incremental context models

This package defines the contract shared by every next-symbol predictor and the
small amount of machinery they have in common.

## Symbols

Symbols are dense integer ids handed out by an alphabet map:

- 0 is reserved for unknown or unencodable input and never receives probability
- -1 marks the end of a symbol stream
- 1..N are the alphabet's characters

A model's NumSymbols includes the reserved symbol 0, so a four character
alphabet has NumSymbols() == 5.

## Contexts

A context is the bounded rolling history a model predicts from. Models are
generic in their context type so a context can only ever be handed back to the
kind of model that created it:

	m, err := ctw.New(log, 5)
	ctx := m.CreateEmptyContext() // *ctw.Context
	defer m.ReleaseContext(ctx)

Ownership is strictly tree shaped. Whoever creates or clones a context
releases it. Using a context after release panics.

EnterSymbol moves the window without touching statistics. LearnSymbol moves the
window and trains on the transition from the previous window to the symbol.

## Probabilities

GetProbs fills a vector indexed by symbol whose entries sum exactly to the
requested norm, with entry 0 always zero. The uniform argument is the share of
norm, in parts per 1000, spread evenly over the alphabet so no symbol is ever
unreachable.

## Model files

Persisted models start with a generic header:

	+--------+---------+---------+------+-----------+--------------+---------+---------+
	| "%DLF" | hdr ver | hdr len | lmid | lm ver    | lm min ver   | alph sz | name... |
	+--------+---------+---------+------+-----------+--------------+---------+---------+
	  4 bytes  uint16    uint16    u16    uint16      uint16         uint16    utf-8

All integers are little endian. hdr len counts the fixed 16 bytes and the
name. The model specific body follows immediately.
*/
