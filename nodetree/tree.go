package nodetree

import (
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/lm"
)

// oldRoot is a previous root kept so the view can back out of the current
// one. lower and upper are the next root's interval in node's frame.
type oldRoot[C any] struct {
	node         *Node[C]
	lower, upper uint64
}

// Tree is a probability interval tree over a model. It is not safe for
// concurrent use; the model it shares with training is guarded by
// Options.Mutex.
type Tree[C any] struct {
	log   logger.Logger
	model lm.Model[C]
	opts  Options

	root     *Node[C]
	oldRoots []oldRoot[C]
	live     int
	probs    []uint64

	// rootMin and rootMax are the root's screen extent.
	rootMin, rootMax int64

	// path is the output chain from the root down.
	path   []*Node[C]
	output []lm.Symbol

	onOutput, onUndo, onCommit func(*Node[C])
	closed                     bool
}

// New creates a tree whose root holds the context after prefix and populates
// the root. log is required.
func New[C any](log logger.Logger, model lm.Model[C], prefix []lm.Symbol, opts ...Option) (*Tree[C], error) {
	if log == nil {
		return nil, ErrNoLogger
	}
	o := Options{}
	for _, opt := range opts {
		opt(&o)
	}
	o.setDefaults()
	if err := o.check(); err != nil {
		return nil, err
	}

	t := &Tree[C]{
		log:     log,
		model:   model,
		opts:    o,
		rootMin: 0,
		rootMax: o.ScreenY,
	}

	root := &Node[C]{
		lower:  0,
		upper:  Normalization,
		ctx:    model.CreateEmptyContext(),
		offset: len(prefix) - 1,
		flags:  flagSeen | flagCommitted,
	}
	for _, sym := range prefix {
		model.EnterSymbol(root.ctx, sym)
	}
	if len(prefix) > 0 {
		root.symbol = prefix[len(prefix)-1]
	}

	t.root = root
	t.live = 1
	t.path = []*Node[C]{root}
	t.Populate(root)

	log.Debugf("tree: symbols %d, prefix %d, screen %d, budget %d",
		model.NumSymbols(), len(prefix), o.ScreenY, o.Policy.Budget())
	return t, nil
}

// OnOutput registers f to be called when a node joins the output chain.
func (t *Tree[C]) OnOutput(f func(*Node[C])) { t.onOutput = f }

// OnUndo registers f to be called when a node leaves the output chain.
func (t *Tree[C]) OnUndo(f func(*Node[C])) { t.onUndo = f }

// OnCommit registers f to be called once for each node that becomes the
// root.
func (t *Tree[C]) OnCommit(f func(*Node[C])) { t.onCommit = f }

func (t *Tree[C]) Root() *Node[C] { return t.root }

// NodeCount is the number of live nodes, previous roots included.
func (t *Tree[C]) NodeCount() int { return t.live }

func (t *Tree[C]) Options() Options { return t.opts }

// Text returns the symbols output since the tree was created.
func (t *Tree[C]) Text() []lm.Symbol {
	return append([]lm.Symbol(nil), t.output...)
}

// RootText returns Text up to and including the root's symbol, leaving out
// the output chain below the root.
func (t *Tree[C]) RootText() []lm.Symbol {
	return append([]lm.Symbol(nil), t.output[:len(t.output)-len(t.path)+1]...)
}

// Crosshair returns the deepest node of the output chain.
func (t *Tree[C]) Crosshair() *Node[C] { return t.path[len(t.path)-1] }

// Populate creates n's children from the model's probabilities over n's
// range. It reports the number of children created, zero if n was already
// populated.
func (t *Tree[C]) Populate(n *Node[C]) int {
	if n.Populated() || n.flags&flagDead != 0 {
		return 0
	}
	rng := n.Range()
	t.probs = t.model.GetProbs(n.ctx, t.probs, rng, t.opts.Uniform)
	if sum := lm.Sum(t.probs); sum != rng {
		t.log.Infof("tree: probabilities sum to %d, not %d", sum, rng)
		t.probs[0] = 0
		lm.Repair(t.probs, rng)
	}

	lower := n.lower
	for s := 1; s < len(t.probs); s++ {
		p := t.probs[s]
		if p == 0 {
			continue
		}
		child := &Node[C]{
			lower:  lower,
			upper:  lower + p,
			parent: n,
			ctx:    t.model.CloneContext(n.ctx),
			symbol: lm.Symbol(s),
			offset: n.offset + 1,
		}
		t.model.EnterSymbol(child.ctx, child.symbol)
		n.children = append(n.children, child)
		lower += p
	}
	t.live += len(n.children)
	return len(n.children)
}

// Collapse deletes n's descendants, undoing any output among them.
func (t *Tree[C]) Collapse(n *Node[C]) {
	if n.Seen() {
		t.undoBelow(n)
	}
	t.deleteChildren(n)
}

// DeleteNephews collapses every sibling of n.
func (t *Tree[C]) DeleteNephews(n *Node[C]) {
	if n.parent == nil {
		return
	}
	for _, s := range n.parent.children {
		if s != n {
			t.Collapse(s)
		}
	}
}

// MakeRoot makes child, a child of the root, the new root. The child is
// output and committed, its siblings are collapsed, and its subtree is
// rescaled to [0, Normalization). The old root is kept for ZoomOut.
func (t *Tree[C]) MakeRoot(child *Node[C]) error {
	old := t.root
	if child.parent != old || child.flags&flagDead != 0 {
		return ErrNotInTree
	}
	if !child.Seen() {
		t.undoBelow(old)
		t.outputNode(child)
		t.path = append(t.path, child)
	}

	t.DeleteNephews(child)

	y1, y2 := t.extent(child)
	lower, upper := child.lower, child.upper
	t.rescale(child, lower, upper)

	t.oldRoots = append(t.oldRoots, oldRoot[C]{node: old, lower: lower, upper: upper})
	child.parent = nil
	t.root = child
	t.rootMin, t.rootMax = y1, y2
	t.path = append([]*Node[C](nil), t.path[1:]...)

	t.commit(child, old)
	if len(t.oldRoots) > MaxOldRoots {
		t.dropOldest()
	}
	t.log.Debugf("tree: root now symbol %d at offset %d, %d live", child.symbol, child.offset, t.live)
	return nil
}

// back makes the previous root the root again. The current root loses its
// descendants, since they were rescaled when it became the root.
func (t *Tree[C]) back() bool {
	if len(t.oldRoots) == 0 {
		return false
	}
	e := t.oldRoots[len(t.oldRoots)-1]
	t.oldRoots = t.oldRoots[:len(t.oldRoots)-1]

	k := t.root
	t.undoBelow(k)
	t.deleteChildren(k)

	span := uint64(t.rootMax - t.rootMin)
	parentSpan, ok := mulDiv(span, Normalization, e.upper-e.lower)
	if !ok || parentSpan > uint64(maxSpan) {
		parentSpan = uint64(maxSpan)
	}
	off, _ := mulDiv(parentSpan, e.lower, Normalization)

	k.lower, k.upper = e.lower, e.upper
	k.parent = e.node
	t.root = e.node
	t.rootMin -= int64(off)
	t.rootMax = t.rootMin + int64(parentSpan)
	t.path = append([]*Node[C]{e.node}, t.path...)

	t.log.Debugf("tree: backed out to symbol %d at offset %d", e.node.symbol, e.node.offset)
	return true
}

// dropOldest releases the oldest kept root and its other children.
func (t *Tree[C]) dropOldest() {
	e := t.oldRoots[0]
	t.oldRoots = append(t.oldRoots[:0], t.oldRoots[1:]...)

	next := t.root
	if len(t.oldRoots) > 0 {
		next = t.oldRoots[0].node
	}
	for _, c := range e.node.children {
		if c == next {
			continue
		}
		t.deleteChildren(c)
		t.release(c)
	}
	e.node.children = nil
	next.parent = nil
	t.release(e.node)
}

// rescale maps every bound in n's subtree from [lower, upper) onto
// [0, Normalization). The map is monotone and shared bounds map together, so
// tiling is kept.
func (t *Tree[C]) rescale(n *Node[C], lower, upper uint64) {
	w := upper - lower
	n.lower, _ = mulDiv(n.lower-lower, Normalization, w)
	n.upper, _ = mulDiv(n.upper-lower, Normalization, w)
	for _, c := range n.children {
		t.rescale(c, lower, upper)
	}
}

// commit marks n committed. With TrainOnCommit the model learns n's symbol
// after parent's context, so only the text written down the tree is learnt.
func (t *Tree[C]) commit(n, parent *Node[C]) {
	if n.Committed() {
		return
	}
	n.flags |= flagCommitted
	if t.opts.TrainOnCommit {
		ctx := t.model.CloneContext(parent.ctx)
		t.model.LearnSymbol(ctx, n.symbol)
		t.model.ReleaseContext(ctx)
	}
	if t.onCommit != nil {
		t.onCommit(n)
	}
}

func (t *Tree[C]) deleteChildren(n *Node[C]) {
	for _, c := range n.children {
		t.deleteChildren(c)
		t.release(c)
	}
	n.children = nil
}

func (t *Tree[C]) release(n *Node[C]) {
	t.model.ReleaseContext(n.ctx)
	n.flags |= flagDead
	t.live--
}

// Close releases every context the tree holds.
func (t *Tree[C]) Close() {
	if t.closed {
		return
	}
	t.closed = true
	top := t.root
	if len(t.oldRoots) > 0 {
		top = t.oldRoots[0].node
	}
	t.deleteChildren(top)
	t.release(top)
	t.oldRoots = nil
}
