package lm

import (
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Header is the generic model file header.
type Header struct {
	LMID         ModelID
	LMVersion    uint16
	LMMinVersion uint16
	AlphabetSize int
	AlphabetName string
}

// Size returns the encoded header size including the alphabet name.
func (h Header) Size() int {
	return HeaderFixedBytes + len(h.AlphabetName)
}

// EncodeHeader returns the encoded header.
func EncodeHeader(h Header) ([]byte, error) {
	if h.AlphabetSize < 0 || h.AlphabetSize > 0xffff {
		return nil, ErrAlphabetTooLarge
	}
	if h.Size() > 0xffff || !utf8.ValidString(h.AlphabetName) {
		return nil, fmt.Errorf("%w: alphabet name", ErrBadHeaderSize)
	}
	b := make([]byte, h.Size())
	copy(b[0:4], Magic)
	le := binary.LittleEndian
	le.PutUint16(b[4:6], HeaderVersion)
	le.PutUint16(b[6:8], uint16(h.Size()))
	le.PutUint16(b[8:10], uint16(h.LMID))
	le.PutUint16(b[10:12], h.LMVersion)
	le.PutUint16(b[12:14], h.LMMinVersion)
	le.PutUint16(b[14:16], uint16(h.AlphabetSize))
	copy(b[HeaderFixedBytes:], h.AlphabetName)
	return b, nil
}

// WriteHeader encodes h to w.
func WriteHeader(w io.Writer, h Header) (int64, error) {
	b, err := EncodeHeader(h)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// ReadHeader decodes a header from r, consuming exactly the header bytes.
//
// Only the layout is checked here. Use Check to compare the header against
// the model that is loading.
func ReadHeader(r io.Reader) (Header, int64, error) {
	var fixed [HeaderFixedBytes]byte
	n, err := io.ReadFull(r, fixed[:])
	if err != nil {
		return Header{}, int64(n), fmt.Errorf("%w: %v", ErrBadHeaderSize, err)
	}
	if string(fixed[0:4]) != Magic {
		return Header{}, int64(n), ErrBadMagic
	}
	le := binary.LittleEndian
	if v := le.Uint16(fixed[4:6]); v != HeaderVersion {
		return Header{}, int64(n), fmt.Errorf("%w: %d", ErrBadHeaderVersion, v)
	}
	size := int(le.Uint16(fixed[6:8]))
	if size < HeaderFixedBytes {
		return Header{}, int64(n), fmt.Errorf("%w: %d", ErrBadHeaderSize, size)
	}
	h := Header{
		LMID:         ModelID(le.Uint16(fixed[8:10])),
		LMVersion:    le.Uint16(fixed[10:12]),
		LMMinVersion: le.Uint16(fixed[12:14]),
		AlphabetSize: int(le.Uint16(fixed[14:16])),
	}
	name := make([]byte, size-HeaderFixedBytes)
	m, err := io.ReadFull(r, name)
	if err != nil {
		return Header{}, int64(n + m), fmt.Errorf("%w: alphabet name: %v", ErrBadHeaderSize, err)
	}
	h.AlphabetName = string(name)
	return h, int64(n + m), nil
}

// Check reports whether a file with header h can be loaded by a model
// described by want. want.LMVersion is the loader's version and
// want.LMMinVersion the oldest file version it accepts.
func (h Header) Check(want Header) error {
	if h.LMID != want.LMID {
		return fmt.Errorf("%w: file %s, model %s", ErrWrongModel, h.LMID, want.LMID)
	}
	if h.LMVersion < want.LMMinVersion {
		return fmt.Errorf("%w: file version %d older than %d", ErrIncompatibleVersion, h.LMVersion, want.LMMinVersion)
	}
	if h.LMMinVersion > want.LMVersion {
		return fmt.Errorf("%w: file requires version %d, have %d", ErrIncompatibleVersion, h.LMMinVersion, want.LMVersion)
	}
	if h.AlphabetSize != want.AlphabetSize {
		return fmt.Errorf("%w: size %d, want %d", ErrAlphabetMismatch, h.AlphabetSize, want.AlphabetSize)
	}
	if h.AlphabetName != want.AlphabetName {
		return fmt.Errorf("%w: name %q, want %q", ErrAlphabetMismatch, h.AlphabetName, want.AlphabetName)
	}
	return nil
}
