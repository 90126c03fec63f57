package ctw

import (
	"testing"

	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProbsFreshModel(t *testing.T) {
	m := newTestModel(t, 5)
	ctx := m.CreateEmptyContext()
	defer m.ReleaseContext(ctx)

	probs := m.GetProbs(ctx, nil, 1000, 50)
	require.Equal(t, []uint64{0, 250, 250, 250, 250}, probs)
}

func TestGetProbsLearnsRepeatedSymbol(t *testing.T) {
	m := newTestModel(t, 5)
	root := m.CreateEmptyContext()
	ctx := m.CloneContext(root)

	for i := 0; i < 20; i++ {
		m.LearnSymbol(ctx, 2)
	}
	probs := m.GetProbs(ctx, nil, 1000, 50)
	require.Equal(t, uint64(1000), lm.Sum(probs))
	for _, s := range []int{1, 3, 4} {
		assert.Greater(t, probs[2], probs[s])
		assert.Greater(t, probs[s], uint64(0))
	}
}

func TestGetProbsShareGrowsWithRepetition(t *testing.T) {
	m := newTestModel(t, 5)
	ctx := m.CreateEmptyContext()

	untrained := m.GetProbs(ctx, nil, 1000, 50)[3]
	prev := untrained
	for i := 0; i < 40; i++ {
		m.LearnSymbol(ctx, 3)
		p := m.GetProbs(ctx, nil, 1000, 50)[3]
		require.GreaterOrEqual(t, p, prev, "after %d repetitions", i+1)
		prev = p
	}
	require.Greater(t, prev, untrained)
}

func TestGetProbsSumAndFloor(t *testing.T) {
	m := newTestModel(t, 30, WithMaxNrNodes(1<<8), WithMaxFill(0.5))
	trained := m.CreateEmptyContext()
	for i := 0; i < 3000; i++ {
		s := lm.Symbol(i%7 + 1)
		if i%2 == 0 {
			s = lm.Symbol((i*31)%29 + 1)
		}
		m.LearnSymbol(trained, s)
	}
	short := m.CreateEmptyContext()
	m.EnterSymbol(short, 3)

	contexts := []*Context{m.CreateEmptyContext(), trained, short}
	norms := []uint64{7, 32, 1000, 12345, 1 << 16, 1 << 32}

	var probs []uint64
	for _, norm := range norms {
		for i, ctx := range contexts {
			probs = m.GetProbs(ctx, probs, norm, 50)
			require.Len(t, probs, 30)
			require.Equal(t, norm, lm.Sum(probs), "norm %d context %d", norm, i)
			require.Zero(t, probs[0])
			if norm < 32 {
				continue
			}
			for s := 1; s < len(probs); s++ {
				require.NotZero(t, probs[s], "norm %d context %d symbol %d", norm, i, s)
			}
		}
	}
}

func TestGetProbsNormAboveSplitLimit(t *testing.T) {
	m := newTestModel(t, 5)
	trained := m.CreateEmptyContext()
	for i := 0; i < 50; i++ {
		m.LearnSymbol(trained, 2)
	}

	for _, norm := range []uint64{maxNorm + 1, 1 << 50, 1<<63 + 12345} {
		for _, ctx := range []*Context{m.CreateEmptyContext(), trained} {
			probs := m.GetProbs(ctx, nil, norm, 50)
			require.Equal(t, norm, lm.Sum(probs), "norm %d", norm)
			require.Zero(t, probs[0])
			for s := 1; s < len(probs); s++ {
				require.NotZero(t, probs[s])
			}
		}
	}

	probs := m.GetProbs(trained, nil, 1<<50, 50)
	for _, s := range []int{1, 3, 4} {
		assert.Greater(t, probs[2], probs[s])
	}
}

func TestGetProbsZeroUniformStillSums(t *testing.T) {
	m := newTestModel(t, 12)
	ctx := m.CreateEmptyContext()
	for i := 0; i < 200; i++ {
		m.LearnSymbol(ctx, 4)
	}
	probs := m.GetProbs(ctx, nil, 1<<20, 0)
	require.Equal(t, uint64(1<<20), lm.Sum(probs))
	require.Zero(t, probs[0])

	probs = m.GetProbs(ctx, probs, 0, 50)
	require.Equal(t, uint64(0), lm.Sum(probs))
}

func TestCloneIndependence(t *testing.T) {
	m := newTestModel(t, 8)
	ctx := m.CreateEmptyContext()
	for i := 0; i < 50; i++ {
		m.LearnSymbol(ctx, lm.Symbol(i%4+1))
	}
	clone := m.CloneContext(ctx)

	before := m.GetProbs(ctx, nil, 1<<16, 50)
	for _, s := range []lm.Symbol{7, 7, 6, 5} {
		m.EnterSymbol(clone, s)
	}
	after := m.GetProbs(ctx, nil, 1<<16, 50)
	require.Equal(t, before, after)
	require.NotEqual(t, ctx.Symbols(), clone.Symbols())

	m.ReleaseContext(clone)
	require.Equal(t, before, m.GetProbs(ctx, nil, 1<<16, 50))
}
