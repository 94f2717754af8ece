package iso9660

import (
	"encoding/binary"
)

// ECMA-119 9.1.2/9.1.3 requires several integer fields to be stored
// "both-byte-order": the little-endian encoding, immediately followed by
// the big-endian encoding, of the same value. This file is the single
// place that invariant lives, so no call site can encode one half without
// the other.

// putBothEndianUint16 appends the both-byte-order encoding of v to buf,
// returning the extended slice. The result is always 4 bytes longer.
func putBothEndianUint16(buf []byte, v uint16) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint16(tmp[0:2], v)
	binary.BigEndian.PutUint16(tmp[2:4], v)
	return append(buf, tmp[:]...)
}

// putBothEndianUint32 appends the both-byte-order encoding of v to buf,
// returning the extended slice. The result is always 8 bytes longer.
func putBothEndianUint32(buf []byte, v uint32) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint32(tmp[0:4], v)
	binary.BigEndian.PutUint32(tmp[4:8], v)
	return append(buf, tmp[:]...)
}

// bothEndianUint16 decodes a 4-byte both-byte-order field, returning
// KindNotConformant if the two halves disagree.
func bothEndianUint16(b []byte) (uint16, error) {
	if len(b) < 4 {
		return 0, newError(KindNotConformant, "both-byte-order uint16 field truncated", nil)
	}
	lo := binary.LittleEndian.Uint16(b[0:2])
	hi := binary.BigEndian.Uint16(b[2:4])
	if lo != hi {
		return 0, newError(KindNotConformant, "both-byte-order uint16 halves disagree", nil)
	}
	return lo, nil
}

// bothEndianUint32 decodes an 8-byte both-byte-order field, returning
// KindNotConformant if the two halves disagree.
func bothEndianUint32(b []byte) (uint32, error) {
	if len(b) < 8 {
		return 0, newError(KindNotConformant, "both-byte-order uint32 field truncated", nil)
	}
	lo := binary.LittleEndian.Uint32(b[0:4])
	hi := binary.BigEndian.Uint32(b[4:8])
	if lo != hi {
		return 0, newError(KindNotConformant, "both-byte-order uint32 halves disagree", nil)
	}
	return lo, nil
}
