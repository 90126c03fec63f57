package ctw

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/dasher-project/DasherCore-sub000/lm"
	"github.com/stretchr/testify/require"
)

func trainedModel(t *testing.T, numSyms int, opts ...Option) (*Model, *Context) {
	m := newTestModel(t, numSyms, opts...)
	ctx := m.CreateEmptyContext()
	for i := 0; i < 400; i++ {
		m.LearnSymbol(ctx, lm.Symbol((i*i)%(numSyms-1)+1))
	}
	return m, ctx
}

func TestRoundTrip(t *testing.T) {
	m, ctx := trainedModel(t, 9)

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Equal(t, lm.HeaderFixedBytes+len("test")+4+(1<<12)*NodeRecordBytes, buf.Len())
	require.Equal(t, []byte("%DLF"), buf.Bytes()[0:4])

	loaded := newTestModel(t, 9)
	_, err = loaded.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, m.arena, loaded.arena)
	require.Equal(t, m.Stats().TotalNodes, loaded.Stats().TotalNodes)

	probe := loaded.CreateEmptyContext()
	syms := ctx.Symbols()
	for i := len(syms) - 1; i >= 0; i-- {
		loaded.EnterSymbol(probe, syms[i])
	}
	require.Equal(t, ctx.Symbols(), probe.Symbols())
	require.Equal(t, m.GetProbs(ctx, nil, 1<<16, 50), loaded.GetProbs(probe, nil, 1<<16, 50))
}

func TestRoundTripFile(t *testing.T) {
	m, _ := trainedModel(t, 9)
	path := filepath.Join(t.TempDir(), "model.dlf")
	require.NoError(t, m.WriteToFile(path))

	loaded := newTestModel(t, 9)
	require.NoError(t, loaded.ReadFromFile(path))
	require.Equal(t, m.arena, loaded.arena)
}

func TestReadFromRejects(t *testing.T) {
	m, _ := trainedModel(t, 9)
	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	good := buf.Bytes()
	hdrSize := lm.HeaderFixedBytes + len("test")

	corrupt := func(f func(b []byte) []byte) []byte {
		b := append([]byte(nil), good...)
		return f(b)
	}
	putU16 := func(off int, v uint16) []byte {
		return corrupt(func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[off:], v)
			return b
		})
	}

	tests := []struct {
		name    string
		data    []byte
		opts    []Option
		numSyms int
		wantErr error
	}{
		{name: "magic", data: corrupt(func(b []byte) []byte { b[1] = 'X'; return b }), wantErr: lm.ErrBadMagic},
		{name: "header version", data: putU16(4, 2), wantErr: lm.ErrBadHeaderVersion},
		{name: "model kind", data: putU16(8, uint16(lm.ModelPPM)), wantErr: lm.ErrWrongModel},
		{name: "newer min version", data: putU16(12, LMVersion+1), wantErr: lm.ErrIncompatibleVersion},
		{name: "alphabet size", data: good, numSyms: 10, wantErr: lm.ErrAlphabetMismatch},
		{name: "alphabet name", data: good, opts: []Option{WithAlphabetName("other")}, wantErr: lm.ErrAlphabetMismatch},
		{name: "node count", data: good, opts: []Option{WithMaxNrNodes(1 << 13)}, wantErr: ErrNodeCountMismatch},
		{name: "truncated body", data: good[:len(good)-3], wantErr: ErrTruncated},
		{name: "truncated header", data: good[:10], wantErr: lm.ErrBadHeaderSize},
		{name: "root missing", data: corrupt(func(b []byte) []byte {
			off := hdrSize + 4 + int(NodeRecordOffset(m.roots[0]))
			b[off+3] = 0
			return b
		}), wantErr: ErrRootMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			numSyms := tt.numSyms
			if numSyms == 0 {
				numSyms = 9
			}
			target, tctx := trainedModel(t, numSyms, tt.opts...)
			before := append([]byte(nil), target.arena...)
			probsBefore := target.GetProbs(tctx, nil, 1000, 50)

			_, err := target.ReadFrom(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, before, target.arena)
			require.Equal(t, probsBefore, target.GetProbs(tctx, nil, 1000, 50))
		})
	}
}
