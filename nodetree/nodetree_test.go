package nodetree

import (
	"sync"
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/dasher-project/DasherCore-sub000/unigram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog(t *testing.T) logger.Logger {
	logger.New("NOOP")
	t.Cleanup(logger.OnExit)
	return logger.Sugar.WithServiceName("nodetree-test")
}

type fakeCtx struct {
	syms     []lm.Symbol
	released bool
}

// fakeModel splits every range evenly, optionally giving one symbol nothing,
// and counts live contexts.
type fakeModel struct {
	numSyms int
	zero    lm.Symbol
	live    int
	clones  int
	learnt  []lm.Symbol
	// learntAfter holds the context each learnt symbol followed.
	learntAfter [][]lm.Symbol
}

func (m *fakeModel) NumSymbols() int { return m.numSyms }

func (m *fakeModel) CreateEmptyContext() *fakeCtx {
	m.live++
	return &fakeCtx{}
}

func (m *fakeModel) CloneContext(ctx *fakeCtx) *fakeCtx {
	if ctx.released {
		panic("clone of released context")
	}
	m.live++
	m.clones++
	return &fakeCtx{syms: append([]lm.Symbol(nil), ctx.syms...)}
}

func (m *fakeModel) ReleaseContext(ctx *fakeCtx) {
	if ctx.released {
		panic("double release")
	}
	ctx.released = true
	m.live--
}

func (m *fakeModel) EnterSymbol(ctx *fakeCtx, sym lm.Symbol) {
	ctx.syms = append(ctx.syms, sym)
}

func (m *fakeModel) LearnSymbol(ctx *fakeCtx, sym lm.Symbol) {
	m.learnt = append(m.learnt, sym)
	m.learntAfter = append(m.learntAfter, append([]lm.Symbol(nil), ctx.syms...))
	ctx.syms = append(ctx.syms, sym)
}

func (m *fakeModel) GetProbs(ctx *fakeCtx, probs []uint64, norm uint64, uniform uint32) []uint64 {
	probs = lm.Resize(probs, m.numSyms)
	n := uint64(m.numSyms - 1)
	if m.zero != 0 {
		n--
	}
	each, rem := norm/n, norm%n
	for s := 1; s < m.numSyms; s++ {
		if lm.Symbol(s) == m.zero {
			continue
		}
		probs[s] = each
		if rem > 0 {
			probs[s]++
			rem--
		}
	}
	return probs
}

// requireTiled checks that every populated node's children exactly tile its
// interval and returns the number of nodes below and including n.
func requireTiled[C any](t *testing.T, n *Node[C]) int {
	count := 1
	if !n.Populated() {
		return count
	}
	kids := n.Children()
	require.Equal(t, n.Lower(), kids[0].Lower())
	require.Equal(t, n.Upper(), kids[len(kids)-1].Upper())
	for i, c := range kids {
		require.Same(t, n, c.Parent())
		require.Less(t, c.Lower(), c.Upper())
		if i > 0 {
			require.Equal(t, kids[i-1].Upper(), c.Lower())
			require.Greater(t, c.Symbol(), kids[i-1].Symbol())
		}
		count += requireTiled(t, c)
	}
	return count
}

func TestNew(t *testing.T) {
	log := testLog(t)

	tests := []struct {
		name    string
		opts    []Option
		noLog   bool
		wantErr error
	}{
		{name: "defaults"},
		{name: "no logger", noLog: true, wantErr: ErrNoLogger},
		{name: "negative screen", opts: []Option{WithScreen(-1)}, wantErr: ErrBadScreen},
		{name: "zoom out", opts: []Option{WithZoom(1, 2)}, wantErr: ErrBadZoom},
		{name: "zoom of one", opts: []Option{WithZoom(4, 4)}, wantErr: ErrBadZoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeModel{numSyms: 5}
			l := log
			if tt.noLog {
				l = nil
			}
			tree, err := New[*fakeCtx](l, m, nil, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer tree.Close()

			assert.Equal(t, DefaultScreenY, tree.Options().ScreenY)
			assert.Equal(t, DefaultNodeBudget, tree.Options().Policy.Budget())
			assert.Equal(t, 5, tree.NodeCount())
			assert.Equal(t, Normalization, tree.Root().Range())
			assert.Nil(t, tree.Root().Parent())
			assert.Empty(t, tree.Text())
		})
	}
}

func TestPopulate(t *testing.T) {
	log := testLog(t)
	m := &fakeModel{numSyms: 6, zero: 3}
	tree, err := New[*fakeCtx](log, m, []lm.Symbol{2, 4})
	require.NoError(t, err)
	defer tree.Close()

	root := tree.Root()
	assert.Equal(t, 1, root.Offset())
	assert.Equal(t, lm.Symbol(4), root.Symbol())

	kids := root.Children()
	require.Len(t, kids, 4, "the symbol with no probability gets no child")
	var syms []lm.Symbol
	for _, c := range kids {
		syms = append(syms, c.Symbol())
		assert.Equal(t, 2, c.Offset())
		assert.Equal(t, []lm.Symbol{2, 4, c.Symbol()}, c.Context().syms)
	}
	assert.Equal(t, []lm.Symbol{1, 2, 4, 5}, syms)
	assert.Equal(t, 5, requireTiled(t, root))
	assert.Equal(t, 4, m.clones)

	assert.Zero(t, tree.Populate(root), "populating twice does nothing")
	assert.Equal(t, 4, tree.Populate(kids[0]))
	assert.Equal(t, 9, tree.NodeCount())
	assert.Equal(t, 9, m.live)
	requireTiled(t, root)
}

func TestCollapseReleasesContexts(t *testing.T) {
	log := testLog(t)
	m := &fakeModel{numSyms: 4}
	tree, err := New[*fakeCtx](log, m, nil)
	require.NoError(t, err)

	root := tree.Root()
	a, b := root.Children()[0], root.Children()[1]
	tree.Populate(a)
	tree.Populate(a.Children()[0])
	tree.Populate(b)
	require.Equal(t, 13, tree.NodeCount())
	require.Equal(t, 13, m.live)

	tree.Collapse(a)
	assert.False(t, a.Populated())
	assert.Equal(t, 7, tree.NodeCount())
	assert.Equal(t, 7, m.live)

	tree.Populate(a)
	tree.DeleteNephews(a)
	assert.True(t, a.Populated())
	assert.False(t, b.Populated())
	assert.Equal(t, 7, tree.NodeCount())
	assert.Equal(t, 7, m.live)

	tree.Close()
	assert.Zero(t, m.live)
	tree.Close()
	assert.Zero(t, m.live)
}

func TestMakeRootAndZoomOut(t *testing.T) {
	log := testLog(t)
	m := &fakeModel{numSyms: 5}
	tree, err := New[*fakeCtx](log, m, nil, WithTrainOnCommit())
	require.NoError(t, err)
	defer func() {
		tree.Close()
		assert.Zero(t, m.live)
	}()

	var commits []lm.Symbol
	tree.OnCommit(func(n *Node[*fakeCtx]) { commits = append(commits, n.Symbol()) })

	old := tree.Root()
	child := old.Children()[0]
	tree.Populate(child)
	tree.Populate(old.Children()[1])
	lower, upper := child.Lower(), child.Upper()

	stats, err := tree.ZoomTo(child)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rerooted)
	assert.Same(t, child, tree.Root())
	assert.Nil(t, child.Parent())
	assert.True(t, child.Committed())
	assert.Equal(t, uint64(0), child.Lower())
	assert.Equal(t, Normalization, child.Upper())
	requireTiled(t, child)
	assert.False(t, old.Children()[1].Populated(), "siblings of the new root lose their children")
	assert.Equal(t, []lm.Symbol{1}, commits)
	assert.Equal(t, []lm.Symbol{1}, m.learnt)
	assert.Equal(t, lm.Symbol(1), tree.Text()[0])

	y1, y2, err := tree.Extent(child)
	require.NoError(t, err)
	assert.LessOrEqual(t, y1, int64(0))
	assert.GreaterOrEqual(t, y2, DefaultScreenY)

	ok, _, err := tree.ZoomOut()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, old, tree.Root())
	assert.Same(t, old, child.Parent())
	assert.Equal(t, lower, child.Lower())
	assert.Equal(t, upper, child.Upper())
	requireTiled(t, old)
	assert.False(t, child.Seen(), "backing out undoes the old root")
	assert.Equal(t, lm.Symbol(3), tree.Text()[0])

	ok, _, err = tree.ZoomOut()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = tree.ZoomTo(child)
	require.NoError(t, err)
	assert.Equal(t, []lm.Symbol{1}, commits, "a node commits once")
	assert.Equal(t, []lm.Symbol{1}, m.learnt)

	assert.ErrorIs(t, tree.MakeRoot(old), ErrNotInTree)
}

func TestTrainOnCommitLearnsWrittenText(t *testing.T) {
	log := testLog(t)
	m := &fakeModel{numSyms: 5}
	tree, err := New[*fakeCtx](log, m, []lm.Symbol{3}, WithTrainOnCommit())
	require.NoError(t, err)
	defer func() {
		tree.Close()
		assert.Zero(t, m.live)
	}()

	old := tree.Root()
	_, err = tree.ZoomTo(old.Children()[0])
	require.NoError(t, err)
	ok, _, err := tree.ZoomOut()
	require.NoError(t, err)
	require.True(t, ok)

	second := old.Children()[1]
	_, err = tree.ZoomTo(second)
	require.NoError(t, err)
	require.Same(t, second, tree.Root())
	assert.Equal(t, []lm.Symbol{2}, tree.RootText())

	tree.Populate(second)
	require.NoError(t, tree.MakeRoot(second.Children()[3]))

	assert.Equal(t, []lm.Symbol{1, 2, 4}, m.learnt)
	assert.Equal(t, [][]lm.Symbol{{3}, {3}, {3, 2}}, m.learntAfter,
		"a symbol backed out of is not part of later contexts")
}

func TestOldRootsAreBounded(t *testing.T) {
	log := testLog(t)
	m := &fakeModel{numSyms: 3}
	tree, err := New[*fakeCtx](log, m, nil)
	require.NoError(t, err)

	for i := 0; i < MaxOldRoots+5; i++ {
		root := tree.Root()
		tree.Populate(root)
		require.NoError(t, tree.MakeRoot(root.Children()[0]))
		assert.Equal(t, m.live, tree.NodeCount())
	}
	assert.Len(t, tree.oldRoots, MaxOldRoots)
	// Each kept root holds itself and its two children, one of which is the
	// next root.
	assert.Equal(t, MaxOldRoots*2+1+len(tree.Root().Children()), tree.NodeCount())

	tree.Close()
	assert.Zero(t, m.live)
}

func TestFrameLocked(t *testing.T) {
	log := testLog(t)
	var mu sync.Mutex
	m := &fakeModel{numSyms: 5}
	tree, err := New[*fakeCtx](log, m, nil, WithMutex(&mu))
	require.NoError(t, err)
	defer tree.Close()

	mu.Lock()
	_, err = tree.Frame(0)
	assert.ErrorIs(t, err, ErrLocked)
	_, err = tree.ZoomTo(tree.Root().Children()[0])
	assert.ErrorIs(t, err, ErrLocked)
	mu.Unlock()

	_, err = tree.Frame(0)
	require.NoError(t, err)
	assert.True(t, mu.TryLock(), "frames release the mutex")
	mu.Unlock()
}

// navigate steers every frame towards the middle of the node under the
// crosshair.
func navigate[C any](t *testing.T, tree *Tree[C], frames int, each func(FrameStats)) {
	for i := 0; i < frames; i++ {
		y1, y2, err := tree.Extent(tree.Crosshair())
		require.NoError(t, err)
		stats, err := tree.Frame((y1 + y2) / 2)
		require.NoError(t, err)
		each(stats)
	}
}

func TestFrameBudget(t *testing.T) {
	log := testLog(t)
	const numSyms = 28
	model, err := unigram.New(log, numSyms, "test")
	require.NoError(t, err)
	budget := 3000
	tree, err := New[*unigram.Context](log, model, nil,
		WithPolicy(NewAmortizedPolicy(budget, DefaultMaxExpansions, DefaultMinSize)))
	require.NoError(t, err)
	defer tree.Close()

	commits := map[*Node[*unigram.Context]]int{}
	tree.OnCommit(func(n *Node[*unigram.Context]) { commits[n]++ })
	var depth int
	tree.OnOutput(func(*Node[*unigram.Context]) { depth++ })
	tree.OnUndo(func(*Node[*unigram.Context]) { depth-- })

	maxLive, rerooted, collapsed := 0, 0, 0
	navigate(t, tree, 10000, func(s FrameStats) {
		maxLive = max(maxLive, s.Live)
		rerooted += s.Rerooted
		collapsed += s.Collapsed
	})

	assert.LessOrEqual(t, maxLive, budget+numSyms-1)
	assert.Greater(t, maxLive, budget/2)
	assert.Greater(t, rerooted, 50)
	assert.Greater(t, collapsed, 0)
	assert.Len(t, commits, rerooted)
	for _, n := range commits {
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, depth, len(tree.Text()))
	requireTiled(t, tree.Root())
}

func TestOutputFollowsCrosshair(t *testing.T) {
	log := testLog(t)
	model, err := unigram.New(log, 5, "test")
	require.NoError(t, err)
	tree, err := New[*unigram.Context](log, model, nil)
	require.NoError(t, err)
	defer tree.Close()

	navigate(t, tree, 500, func(FrameStats) {
		path := tree.path
		text := tree.Text()
		require.GreaterOrEqual(t, len(text), len(path)-1)
		for i, n := range path[1:] {
			require.True(t, n.Seen())
			require.Equal(t, n.Symbol(), text[len(text)-len(path)+1+i])
		}
	})
	assert.NotEmpty(t, tree.Text())
}

func TestRootText(t *testing.T) {
	log := testLog(t)
	m := &fakeModel{numSyms: 5}
	tree, err := New[*fakeCtx](log, m, nil)
	require.NoError(t, err)
	defer tree.Close()

	child := tree.Root().Children()[3]
	_, err = tree.ZoomTo(child)
	require.NoError(t, err)
	assert.Equal(t, []lm.Symbol{4}, tree.RootText())
	assert.Greater(t, len(tree.Text()), 1, "the crosshair chain continues below the root")
}
