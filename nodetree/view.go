package nodetree

import "math/bits"

// FrameStats describes the work done by one frame.
type FrameStats struct {
	Live      int
	Expanded  int
	Collapsed int
	Rerooted  int
	Output    int
	Undone    int
}

// mulDiv returns a*b/c, reporting false when the quotient does not fit in 64
// bits.
func mulDiv(a, b, c uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, true
}

func (t *Tree[C]) crosshairY() int64 { return t.opts.ScreenY / 2 }

// screen maps v in the root's frame to a screen coordinate.
func (t *Tree[C]) screen(v uint64) int64 {
	q, _ := mulDiv(uint64(t.rootMax-t.rootMin), v, Normalization)
	return t.rootMin + int64(q)
}

func (t *Tree[C]) extent(n *Node[C]) (int64, int64) {
	return t.screen(n.lower), t.screen(n.upper)
}

// Extent returns the screen coordinates of n, which must be in the root's
// subtree.
func (t *Tree[C]) Extent(n *Node[C]) (y1, y2 int64, err error) {
	if !t.inTree(n) {
		return 0, 0, ErrNotInTree
	}
	y1, y2 = t.extent(n)
	return y1, y2, nil
}

// visible is the part of [y1, y2) on screen.
func (t *Tree[C]) visible(y1, y2 int64) int64 {
	return max(0, min(y2, t.opts.ScreenY)-max(y1, 0))
}

func (t *Tree[C]) coversScreen(n *Node[C]) bool {
	y1, y2 := t.extent(n)
	return y1 <= 0 && y2 >= t.opts.ScreenY
}

func (t *Tree[C]) inTree(n *Node[C]) bool {
	if n == nil || n.flags&flagDead != 0 {
		return false
	}
	for ; n != nil; n = n.parent {
		if n == t.root {
			return true
		}
	}
	return false
}

// step magnifies the view about target and pans target towards the
// crosshair.
func (t *Tree[C]) step(target int64) {
	p := min(max(target, 0), t.opts.ScreenY-1)
	if t.rootMax-t.rootMin < maxSpan {
		num, den := t.opts.ZoomNum, t.opts.ZoomDen
		t.rootMin = p - (p-t.rootMin)*num/den
		t.rootMax = p + (t.rootMax-p)*num/den
	}
	shift := (t.crosshairY() - p) / t.opts.PanDiv
	t.rootMin += shift
	t.rootMax += shift
}

// clampView keeps the crosshair inside the root.
func (t *Tree[C]) clampView() {
	c := t.crosshairY()
	if t.rootMin > c {
		t.rootMax -= t.rootMin - c
		t.rootMin = c
	}
	if t.rootMax <= c {
		t.rootMin += c + 1 - t.rootMax
		t.rootMax = c + 1
	}
}

// crosshairPath returns the chain of nodes under the crosshair, from the
// root down to the smallest node still MinSize on screen.
func (t *Tree[C]) crosshairPath() []*Node[C] {
	minSize := t.opts.Policy.MinSize()
	c := t.crosshairY()
	v, _ := mulDiv(uint64(c-t.rootMin), Normalization, uint64(t.rootMax-t.rootMin))

	path := []*Node[C]{t.root}
	for n := t.root; ; {
		child := n.childAt(v)
		if child == nil {
			break
		}
		if y1, y2 := t.extent(child); y2-y1 < minSize {
			break
		}
		path = append(path, child)
		n = child
	}
	return path
}

// updatePath moves the output chain to the nodes under the crosshair,
// undoing the nodes it leaves deepest first and outputting the nodes it
// joins shallowest first.
func (t *Tree[C]) updatePath(stats *FrameStats) {
	next := t.crosshairPath()
	k := 0
	for k < len(next) && k < len(t.path) && next[k] == t.path[k] {
		k++
	}
	for i := len(t.path) - 1; i >= k; i-- {
		t.undoNode(t.path[i])
		stats.Undone++
	}
	for _, n := range next[k:] {
		t.outputNode(n)
		stats.Output++
	}
	t.path = next
}

func (t *Tree[C]) outputNode(n *Node[C]) {
	n.flags |= flagSeen
	t.output = append(t.output, n.symbol)
	if t.onOutput != nil {
		t.onOutput(n)
	}
}

func (t *Tree[C]) undoNode(n *Node[C]) {
	n.flags &^= flagSeen
	t.output = t.output[:len(t.output)-1]
	if t.onUndo != nil {
		t.onUndo(n)
	}
}

// undoBelow undoes the output chain beneath n.
func (t *Tree[C]) undoBelow(n *Node[C]) {
	for len(t.path) > 0 && t.path[len(t.path)-1] != n {
		t.undoNode(t.path[len(t.path)-1])
		t.path = t.path[:len(t.path)-1]
	}
}

func (t *Tree[C]) lock() (func(), error) {
	mu := t.opts.Mutex
	if mu == nil {
		return func() {}, nil
	}
	if !mu.TryLock() {
		return nil, ErrLocked
	}
	return mu.Unlock, nil
}

// Frame advances the view one step towards targetY, then reroots, collapses
// and expands under the policy and updates the output chain. It returns
// ErrLocked without doing anything while training holds the model.
func (t *Tree[C]) Frame(targetY int64) (FrameStats, error) {
	unlock, err := t.lock()
	if err != nil {
		return FrameStats{}, err
	}
	defer unlock()

	t.step(targetY)
	return t.settle(), nil
}

// ZoomTo sets the view so that n, a node below the root, exactly fills the
// screen, then settles the tree as Frame does.
func (t *Tree[C]) ZoomTo(n *Node[C]) (FrameStats, error) {
	unlock, err := t.lock()
	if err != nil {
		return FrameStats{}, err
	}
	defer unlock()

	if !t.inTree(n) {
		return FrameStats{}, ErrNotInTree
	}
	// Rounding the span up makes n cover the screen.
	hi, lo := bits.Mul64(uint64(t.opts.ScreenY), Normalization)
	w := n.Range()
	if hi >= w {
		return FrameStats{}, ErrNotVisible
	}
	span, rem := bits.Div64(hi, lo, w)
	if rem != 0 {
		span++
	}
	if span > uint64(maxSpan) {
		return FrameStats{}, ErrNotVisible
	}
	off, _ := mulDiv(span, n.lower, Normalization)
	t.rootMin = -int64(off)
	t.rootMax = t.rootMin + int64(span)
	return t.settle(), nil
}

// ZoomOut makes the previous root fill the screen again. It reports false
// when no previous root is kept.
func (t *Tree[C]) ZoomOut() (bool, FrameStats, error) {
	unlock, err := t.lock()
	if err != nil {
		return false, FrameStats{}, err
	}
	defer unlock()

	if !t.back() {
		return false, FrameStats{}, nil
	}
	t.rootMin, t.rootMax = 0, t.opts.ScreenY
	return true, t.settle(), nil
}

func (t *Tree[C]) settle() FrameStats {
	var stats FrameStats

	for t.rootMin > 0 || t.rootMax < t.opts.ScreenY {
		if !t.back() {
			break
		}
	}
	t.clampView()

	t.updatePath(&stats)
	for len(t.path) > 1 && t.coversScreen(t.path[1]) {
		if err := t.MakeRoot(t.path[1]); err != nil {
			break
		}
		stats.Rerooted++
		t.updatePath(&stats)
	}

	stats.Collapsed, stats.Expanded = t.applyPolicy()
	t.updatePath(&stats)
	stats.Live = t.live
	return stats
}
