package ctw

/*

# Context tree weighting

Model predicts the next symbol bit by bit. A symbol of NrPhases bits is
decomposed most significant bit first, and phase p predicts bit p from the bits
already chosen for the symbol plus the preceding MaxDepth whole symbols.

Every (phase, bit prefix) pair has its own root, so the model is NrPhases
parallel binary context trees that share one arena.

## Arena

The trie lives in a flat byte slice of MaxNrNodes fixed 8 byte records,
addressed by index. Nothing holds a pointer into it.

	+---+---+--------+---------+---------+---------+
	| a | b | symbol | nrTries | pe      | pwChild |
	+---+---+--------+---------+---------+---------+
	  0   1   2        3         4..5      6..7

- a, b: saturating counts of 0 and 1 bits seen at the node. At MaxCount both
  are halved, rounding up.
- symbol: the context byte the slot is keyed on.
- nrTries: the probe attempt that claimed the slot. 0 is empty and
  MaxTries+1 marks a root.
- pe, pwChild: the local block probability and the weighted product of the
  children, little endian, scaled to NrBits.

## Addressing

From the phase root, each context symbol (most recent first) is truncated to a
byte and located by open addressing with an odd step derived from a fixed
permutation of the byte:

	step = perm[byte]<<1 + 1
	cur  = (cur + step) & (MaxNrNodes - 1)

A slot matches when its nrTries equals the attempt number and its symbol equals
the byte. When the fill ratio passes MaxFill the arena freezes: existing nodes
keep updating but no new slots are claimed. A path that cannot be found or
placed contributes the maximally uncertain estimate below the failing depth.

## Weighting

From the deepest node up:

	leaf:     G_b = alpha*count_b + 1
	ancestor: PeBlock_b  = Pe * (alpha*count_b + 1) * (G_0 + G_1)
	          PwCBlock_b = PwChild * G_b * (alpha*(count_0+count_1) + 2)
	          G_b        = PeBlock_b + PwCBlock_b

After each level both gammas are rescaled into NrBits. Training runs the same
arithmetic and stores the scaled blocks for the bit actually seen.

## File body

After the generic model header (see package lm) the body is a little endian
int32 node count, which must equal MaxNrNodes, followed by the arena records in
the layout above.
*/
