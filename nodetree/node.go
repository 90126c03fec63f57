package nodetree

import "github.com/dasher-project/DasherCore-sub000/lm"

type nodeFlags uint8

const (
	// flagSeen marks nodes on the output chain.
	flagSeen nodeFlags = 1 << iota
	flagCommitted
	flagDead
)

// Node is one symbol in the tree. Its children, when populated, tile
// [Lower, Upper) in symbol order.
type Node[C any] struct {
	lower, upper uint64
	parent       *Node[C]
	children     []*Node[C]
	ctx          C
	symbol       lm.Symbol
	offset       int
	flags        nodeFlags
}

func (n *Node[C]) Lower() uint64 { return n.lower }
func (n *Node[C]) Upper() uint64 { return n.upper }

// Range is the size of the node's interval.
func (n *Node[C]) Range() uint64 { return n.upper - n.lower }

// Parent is nil for the root.
func (n *Node[C]) Parent() *Node[C] { return n.parent }

func (n *Node[C]) Children() []*Node[C] { return n.children }

func (n *Node[C]) Populated() bool { return len(n.children) > 0 }

// Context is the model context after entering the node's symbol. It is owned
// by the tree.
func (n *Node[C]) Context() C { return n.ctx }

func (n *Node[C]) Symbol() lm.Symbol { return n.symbol }

// Offset is the position of the node's symbol in the text, the root of a
// fresh tree sitting at len(prefix)-1.
func (n *Node[C]) Offset() int { return n.offset }

// Seen reports whether the node is currently output.
func (n *Node[C]) Seen() bool { return n.flags&flagSeen != 0 }

func (n *Node[C]) Committed() bool { return n.flags&flagCommitted != 0 }

// MostProbableChild returns the child with the largest range, the first on
// ties, or nil for a leaf.
func (n *Node[C]) MostProbableChild() *Node[C] {
	var best *Node[C]
	for _, c := range n.children {
		if best == nil || c.Range() > best.Range() {
			best = c
		}
	}
	return best
}

// childAt returns the child whose interval holds v.
func (n *Node[C]) childAt(v uint64) *Node[C] {
	for _, c := range n.children {
		if v >= c.lower && v < c.upper {
			return c
		}
	}
	return nil
}
