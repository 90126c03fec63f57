package ctw

import "encoding/binary"

// Records are initialised with pe = pwChild = 1 so an untouched node weighs
// its own estimate and its children equally.
var emptyRecord = [NodeRecordBytes]byte{0, 0, 0, 0, 1, 0, 1, 0}

// NodeRecordOffset returns the byte offset of ref in the arena.
func NodeRecordOffset(ref Ref) uint64 {
	return uint64(ref) * NodeRecordBytes
}

func nodeRec(arena []byte, ref Ref) []byte {
	off := NodeRecordOffset(ref)
	return arena[off : off+NodeRecordBytes]
}

func newArena(maxNrNodes uint64) []byte {
	arena := make([]byte, maxNrNodes*NodeRecordBytes)
	for off := 0; off < len(arena); off += NodeRecordBytes {
		copy(arena[off:], emptyRecord[:])
	}
	return arena
}

// NodeCounts returns the zero and one bit counts.
func NodeCounts(arena []byte, ref Ref) (a, b uint64) {
	rec := nodeRec(arena, ref)
	return uint64(rec[0]), uint64(rec[1])
}

// NodeSymbol returns the context byte the slot is keyed on.
func NodeSymbol(arena []byte, ref Ref) byte {
	return nodeRec(arena, ref)[2]
}

// NodeTries returns the probe attempt that claimed the slot, 0 when empty.
func NodeTries(arena []byte, ref Ref) uint8 {
	return nodeRec(arena, ref)[3]
}

// NodeWeights returns pe and pwChild.
func NodeWeights(arena []byte, ref Ref) (pe, pwChild uint64) {
	rec := nodeRec(arena, ref)
	return uint64(binary.LittleEndian.Uint16(rec[4:6])), uint64(binary.LittleEndian.Uint16(rec[6:8]))
}

func nodeClaim(arena []byte, ref Ref, tries uint8, sym byte) {
	rec := nodeRec(arena, ref)
	rec[2] = sym
	rec[3] = tries
}

func nodeWriteCounts(arena []byte, ref Ref, a, b uint64) {
	rec := nodeRec(arena, ref)
	rec[0] = byte(a)
	rec[1] = byte(b)
}

func nodeWriteWeights(arena []byte, ref Ref, pe, pwChild uint64) {
	rec := nodeRec(arena, ref)
	binary.LittleEndian.PutUint16(rec[4:6], uint16(pe))
	binary.LittleEndian.PutUint16(rec[6:8], uint16(pwChild))
}
