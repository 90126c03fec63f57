package ctw

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog(t *testing.T) logger.Logger {
	logger.New("NOOP")
	t.Cleanup(logger.OnExit)
	return logger.Sugar.WithServiceName("ctw-test")
}

func newTestModel(t *testing.T, numSyms int, opts ...Option) *Model {
	opts = append([]Option{WithMaxNrNodes(1 << 12), WithAlphabetName("test")}, opts...)
	m, err := New(testLog(t), numSyms, opts...)
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	log := testLog(t)

	tests := []struct {
		name    string
		numSyms int
		opts    []Option
		wantErr error
	}{
		{name: "only symbol 0", numSyms: 1, wantErr: ErrAlphabetTooSmall},
		{name: "arena not a power of two", numSyms: 5, opts: []Option{WithMaxNrNodes(1000)}, wantErr: ErrBadMaxNrNodes},
		{name: "arena smaller than roots", numSyms: 300, opts: []Option{WithMaxNrNodes(512)}, wantErr: ErrBadMaxNrNodes},
		{name: "too few tries", numSyms: 5, opts: []Option{WithMaxTries(1)}, wantErr: ErrBadMaxTries},
		{name: "fill out of range", numSyms: 5, opts: []Option{WithMaxFill(1.5)}, wantErr: ErrBadMaxFill},
		{name: "defaults", numSyms: 5, opts: []Option{WithMaxNrNodes(1 << 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(log, tt.numSyms, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3, m.NrPhases())
			assert.Equal(t, DefaultMaxDepth, m.Options().MaxDepth)
			assert.Equal(t, uint64(DefaultAlpha), m.Options().Alpha)
			assert.Equal(t, uint64(8), m.Stats().TotalNodes)
		})
	}
}

func TestRootsAreDistinctAndClaimed(t *testing.T) {
	// 600 symbols needs 1024 roots, beyond the 256 entry permutation.
	m := newTestModel(t, 600)
	seen := map[Ref]bool{}
	for _, r := range m.roots {
		require.False(t, seen[r], "root %d placed twice", r)
		seen[r] = true
		require.Equal(t, m.rootTries(), NodeTries(m.arena, r))
	}
	require.Len(t, seen, 1024)
}

func TestBytePermIsStablePermutation(t *testing.T) {
	p := newBytePerm(permSeed)
	require.Equal(t, bytePerm, p)

	seen := [256]bool{}
	for _, v := range p {
		require.Less(t, v, uint32(256))
		require.False(t, seen[v])
		seen[v] = true
	}
	for c := 0; c < 256; c++ {
		require.Equal(t, uint64(1), probeStep(byte(c))&1)
	}
}

func TestMapIndex(t *testing.T) {
	tests := []struct {
		sym, phase, want int
	}{
		{sym: 7, phase: 0, want: 0},
		{sym: 0, phase: 1, want: 1},
		{sym: 4, phase: 1, want: 2},
		{sym: 0, phase: 2, want: 3},
		{sym: 6, phase: 2, want: 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapIndex(tt.sym, tt.phase, 3), "sym %d phase %d", tt.sym, tt.phase)
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name         string
		a, b         uint64
		wantA, wantB uint64
	}{
		{name: "both zero", a: 0, b: 0, wantA: 1, wantB: 1},
		{name: "small equal", a: 1, b: 1, wantA: 256, wantB: 256},
		{name: "one zero", a: 0, b: 7, wantA: 1, wantB: 448},
		{name: "above range", a: 1000, b: 10, wantA: 500, wantB: 5},
		{name: "far above range", a: 600000, b: 3, wantA: 292, wantB: 1},
		{name: "in range", a: 300, b: 511, wantA: 300, wantB: 511},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := Scale(tt.a, tt.b, 511)
			assert.Equal(t, tt.wantA, a)
			assert.Equal(t, tt.wantB, b)
		})
	}
}

func TestCountHalving(t *testing.T) {
	m := newTestModel(t, 5)
	c0, c1 := m.count(1, 3, 255)
	assert.Equal(t, uint64(2), c0)
	assert.Equal(t, uint64(128), c1)
	c0, c1 = m.count(0, 254, 9)
	assert.Equal(t, uint64(255), c0)
	assert.Equal(t, uint64(9), c1)
}

func TestFindPathCreatesOnlyWhenAsked(t *testing.T) {
	m := newTestModel(t, 5)
	ctx := m.CreateEmptyContext()
	for _, s := range []lm.Symbol{1, 2, 3} {
		m.EnterSymbol(ctx, s)
	}
	before := m.Stats().TotalNodes

	depth := m.findPath(ctx, 2, 0, false)
	require.Equal(t, 1, depth)
	require.Equal(t, m.notPlaced(), m.index[1])
	require.Equal(t, before, m.Stats().TotalNodes)

	depth = m.findPath(ctx, 2, 0, true)
	require.Equal(t, 3, depth)
	require.Equal(t, before+3, m.Stats().TotalNodes)

	// the same path is found again without claiming more slots
	depth = m.findPath(ctx, 2, 0, false)
	require.Equal(t, 3, depth)
	require.Equal(t, before+3, m.Stats().TotalNodes)
	for i := 1; i <= depth; i++ {
		require.Less(t, m.index[i], m.notPlaced())
	}
}

func TestFreezeStopsGrowth(t *testing.T) {
	m := newTestModel(t, 30, WithMaxNrNodes(1<<8), WithMaxFill(0.5))
	ctx := m.CreateEmptyContext()
	for i := 0; i < 3000; i++ {
		m.LearnSymbol(ctx, lm.Symbol(i*7%29+1))
	}
	st := m.Stats()
	require.True(t, st.Frozen)
	require.Greater(t, st.Failed, uint64(0))
	require.LessOrEqual(t, st.TotalNodes, uint64(129))

	for i := 0; i < 500; i++ {
		m.LearnSymbol(ctx, lm.Symbol(i%13+1))
	}
	require.Equal(t, st.TotalNodes, m.Stats().TotalNodes)

	probs := m.GetProbs(ctx, nil, 1000, 50)
	require.Equal(t, uint64(1000), lm.Sum(probs))
}

func TestReleasedContextPanics(t *testing.T) {
	m := newTestModel(t, 5)
	ctx := m.CreateEmptyContext()
	m.ReleaseContext(ctx)
	require.Panics(t, func() { m.EnterSymbol(ctx, 1) })
	require.Panics(t, func() { m.CloneContext(ctx) })
	require.Panics(t, func() { m.GetProbs(ctx, nil, 1000, 50) })
}

func TestEnterSymbolWindow(t *testing.T) {
	m := newTestModel(t, 10, WithMaxDepth(3))
	ctx := m.CreateEmptyContext()
	for _, s := range []lm.Symbol{1, 2, 3, 4, 5} {
		m.EnterSymbol(ctx, s)
	}
	require.Equal(t, []lm.Symbol{5, 4, 3}, ctx.Symbols())

	m.EnterSymbol(ctx, lm.SymbolEnd)
	m.EnterSymbol(ctx, 10)
	require.Equal(t, []lm.Symbol{5, 4, 3}, ctx.Symbols())
}
