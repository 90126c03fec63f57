package nodetree

import (
	"math"
	"sort"
)

// Policy bounds the work a frame does on the tree.
type Policy interface {
	// Budget is the live node count the tree is brought back to.
	Budget() int
	// MaxExpansions bounds the leaves populated per frame, zero for no bound.
	MaxExpansions() int
	// MinSize is the smallest on screen size of a node worth populating.
	MinSize() int64
}

// AmortizedPolicy spreads expansion over frames: a few of the largest
// visible leaves per frame, collapsing the smallest populated nodes first
// whenever the tree is over budget.
type AmortizedPolicy struct {
	budget        int
	maxExpansions int
	minSize       int64
}

var _ Policy = AmortizedPolicy{}

func NewAmortizedPolicy(budget, maxExpansions int, minSize int64) AmortizedPolicy {
	return AmortizedPolicy{budget: budget, maxExpansions: maxExpansions, minSize: max(minSize, 1)}
}

// NewBudgetPolicy expands every visible leaf the budget allows each frame.
func NewBudgetPolicy(budget int, minSize int64) AmortizedPolicy {
	return NewAmortizedPolicy(budget, 0, minSize)
}

func (p AmortizedPolicy) Budget() int        { return p.budget }
func (p AmortizedPolicy) MaxExpansions() int { return p.maxExpansions }
func (p AmortizedPolicy) MinSize() int64     { return p.minSize }

type sizedNode[C any] struct {
	n    *Node[C]
	size int64
}

// applyPolicy collapses populated nodes off the output chain, smallest on
// screen first, until the tree is within budget. It then populates the
// crosshair node and the largest visible leaves, collapsing smaller nodes to
// make room, up to the per frame bound.
func (t *Tree[C]) applyPolicy() (collapsed, expanded int) {
	pol := t.opts.Policy
	budget := pol.Budget()
	minSize := pol.MinSize()

	var populated, leaves []sizedNode[C]
	var walk func(n *Node[C])
	walk = func(n *Node[C]) {
		y1, y2 := t.extent(n)
		size := t.visible(y1, y2)
		if !n.Populated() {
			if size >= minSize {
				leaves = append(leaves, sizedNode[C]{n, size})
			}
			return
		}
		// The output chain, and so every ancestor of it, is never collapsed.
		if !n.Seen() {
			populated = append(populated, sizedNode[C]{n, size})
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)

	sort.SliceStable(populated, func(i, j int) bool {
		if populated[i].size != populated[j].size {
			return populated[i].size < populated[j].size
		}
		return populated[i].n.Range() < populated[j].n.Range()
	})
	next := 0
	// victim collapses the next smallest populated node smaller than limit,
	// reporting false when none is left.
	victim := func(limit int64) bool {
		for next < len(populated) {
			s := populated[next]
			if s.size >= limit {
				return false
			}
			next++
			if s.n.flags&flagDead != 0 || !s.n.Populated() {
				continue
			}
			t.deleteChildren(s.n)
			collapsed++
			return true
		}
		return false
	}

	for t.live > budget && victim(math.MaxInt64) {
	}

	if n := t.Crosshair(); t.Populate(n) > 0 {
		expanded++
	}

	// A leaf is only populated at the expense of nodes smaller than itself.
	sort.SliceStable(leaves, func(i, j int) bool { return leaves[i].size > leaves[j].size })
	width := t.model.NumSymbols() - 1
	for _, s := range leaves {
		if pol.MaxExpansions() > 0 && expanded >= pol.MaxExpansions() {
			break
		}
		for t.live+width > budget && victim(s.size) {
		}
		if t.live+width > budget {
			break
		}
		if t.Populate(s.n) > 0 {
			expanded++
		}
	}
	return collapsed, expanded
}
