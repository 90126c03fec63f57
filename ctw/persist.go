package ctw

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/dasher-project/DasherCore-sub000/lm"
)

// Header returns the model file header this model writes and accepts.
func (m *Model) Header() lm.Header {
	return lm.Header{
		LMID:         lm.ModelCTW,
		LMVersion:    LMVersion,
		LMMinVersion: LMMinVersion,
		AlphabetSize: m.numSyms,
		AlphabetName: m.opts.AlphabetName,
	}
}

// WriteTo writes the header, the node count and the whole arena.
func (m *Model) WriteTo(w io.Writer) (int64, error) {
	n, err := lm.WriteHeader(w, m.Header())
	if err != nil {
		return n, err
	}
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(m.opts.MaxNrNodes))
	k, err := w.Write(count[:])
	n += int64(k)
	if err != nil {
		return n, err
	}
	k, err = w.Write(m.arena)
	n += int64(k)
	return n, err
}

// ReadFrom replaces the arena with one read from r. The header must match
// this model exactly (see lm.Header.Check) and the node count must equal
// MaxNrNodes. On any error the model is left unchanged.
func (m *Model) ReadFrom(r io.Reader) (int64, error) {
	h, n, err := lm.ReadHeader(r)
	if err != nil {
		return n, m.rejected(err)
	}
	if err := h.Check(m.Header()); err != nil {
		return n, m.rejected(err)
	}

	var count [4]byte
	k, err := io.ReadFull(r, count[:])
	n += int64(k)
	if err != nil {
		return n, m.rejected(fmt.Errorf("%w: node count: %v", ErrTruncated, err))
	}
	if got := int32(binary.LittleEndian.Uint32(count[:])); int64(got) != int64(m.opts.MaxNrNodes) {
		return n, m.rejected(fmt.Errorf("%w: file %d, arena %d", ErrNodeCountMismatch, got, m.opts.MaxNrNodes))
	}

	arena := make([]byte, len(m.arena))
	k, err = io.ReadFull(r, arena)
	n += int64(k)
	if err != nil {
		return n, m.rejected(fmt.Errorf("%w: %v", ErrTruncated, err))
	}

	var total uint64
	for ref := Ref(0); uint64(ref) < m.opts.MaxNrNodes; ref++ {
		if NodeTries(arena, ref) != 0 {
			total++
		}
	}
	for _, root := range m.roots {
		if NodeTries(arena, root) != m.rootTries() {
			return n, m.rejected(fmt.Errorf("%w: slot %d", ErrRootMismatch, root))
		}
	}

	m.arena = arena
	m.totalNodes = total
	m.frozen = float64(total)/float64(m.opts.MaxNrNodes) > m.opts.MaxFill
	m.failed = 0
	return n, nil
}

func (m *Model) rejected(err error) error {
	if m.log != nil {
		m.log.Infof("ctw: model file rejected: %v", err)
	}
	return err
}

// WriteToFile writes the model to path, replacing any existing file.
func (m *Model) WriteToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if _, err := m.WriteTo(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFromFile loads the model from path.
func (m *Model) ReadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = m.ReadFrom(bufio.NewReader(f))
	return err
}
