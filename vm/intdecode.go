package vm

import "encoding/binary"

// ReadNByteInt decodes n buffered bytes at the read position as a
// little-endian unsigned integer widened to 64 bits, and advances the
// position by n. Byte i contributes byte[i] << (8*i); the byte order
// is a convention of the format being decoded and is independent of
// the host.
//
// The caller must have buffered at least n bytes first (pair with
// BufferN). A width outside 1..8, or fewer than n buffered bytes,
// panics: failing fast beats silently decoding junk.
func (s *Stream) ReadNByteInt(n int) uint64 {
	if n < 1 || n > 8 {
		panic("Stream.ReadNByteInt: width out of range")
	}
	w := s.window()
	if len(w) < n {
		panic("Stream.ReadNByteInt: fewer than n bytes buffered")
	}
	var x uint64
	switch n {
	case 1:
		x = uint64(w[0])
	case 2:
		x = uint64(binary.LittleEndian.Uint16(w))
	case 4:
		x = uint64(binary.LittleEndian.Uint32(w))
	case 8:
		x = binary.LittleEndian.Uint64(w)
	default:
		for i := 0; i < n; i++ {
			x |= uint64(w[i]) << (8 * i)
		}
	}
	s.bpos += n
	return x
}
