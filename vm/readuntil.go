package vm

import (
	"bytes"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Delimited reads
// ---------------------------------------------------------------------------

// ChompMode selects how the trailing delimiter of a delimited read is
// trimmed.
type ChompMode uint8

const (
	// ChompKeep returns the bytes unchanged, delimiter included.
	ChompKeep ChompMode = iota
	// ChompDelim drops exactly one trailing delimiter byte.
	ChompDelim
	// ChompCRLF drops the delimiter byte and, if the byte before it is
	// '\r', that byte too. Handles "\n" and "\r\n" endings uniformly.
	ChompCRLF
)

// defaultScratchCapacity is the capacity of the scratch buffer the
// slow read path starts with before the copy loop may grow it.
const defaultScratchCapacity = 80

// SetScratchCapacity overrides the slow-path scratch capacity for this
// stream. Zero or negative restores the default.
func (s *Stream) SetScratchCapacity(n int) {
	s.scratchCap = n
}

// chompLen returns how many trailing bytes of a delimiter-terminated
// range of length n should be dropped. The byte at n-1 is known to be
// the delimiter.
func chompLen(mode ChompMode, b []byte, n int) int {
	switch mode {
	case ChompDelim:
		return 1
	case ChompCRLF:
		if n >= 2 && b[n-2] == '\r' {
			return 2
		}
		return 1
	}
	return 0
}

// ReadUntil reads bytes up to and including the first occurrence of
// delim, applies the chomp mode to the tail, advances the read
// position past the delimiter, and returns the bytes as a freshly
// owned slice that never aliases stream storage.
//
// If the delimiter is already buffered, the read completes against the
// buffered window directly. Otherwise the stream's incremental
// copy-until loop runs against a scratch buffer; if that loop had to
// grow past the scratch, the grown storage is adopted rather than
// copied again.
//
// Reaching end of stream without a delimiter returns whatever was
// collected, possibly empty. Absence of a delimiter is not an error.
func (s *Stream) ReadUntil(delim byte, mode ChompMode) []byte {
	// Fast path: delimiter within the buffered window.
	w := s.window()
	if idx := bytes.IndexByte(w, delim); idx >= 0 {
		n := idx + 1
		keep := n - chompLen(mode, w, n)
		out := make([]byte, keep)
		copy(out, w[:keep])
		s.bpos += n
		return out
	}

	// Slow path: drive the copy-until loop into scratch storage.
	sc := s.scratchCap
	if sc <= 0 {
		sc = defaultScratchCapacity
	}
	scratch := make([]byte, sc+1) // +1 terminator headroom
	var dest Stream
	dest.bindScratch(scratch)

	n := s.CopyUntil(&dest, delim)
	if mode != ChompKeep && n > 0 && dest.buf[n-1] == delim {
		n--
		if mode == ChompCRLF && n > 0 && dest.buf[n-1] == '\r' {
			n--
		}
		dest.Trunc(n)
	}
	if dest.Grown() {
		// The copy loop outgrew the scratch; take ownership of the
		// storage it produced instead of copying it a second time.
		return TakeBuffer(&dest).Bytes
	}
	return scratch[:n:n]
}

// ReadUntilString is ReadUntil with the collected bytes returned as a
// string. Both paths produce a freshly owned buffer that nothing else
// references, so the conversion reuses that storage rather than
// copying once more.
func (s *Stream) ReadUntilString(delim byte, mode ChompMode) string {
	b := s.ReadUntil(delim, mode)
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// ---------------------------------------------------------------------------
// Buffer ownership transfer
// ---------------------------------------------------------------------------

// TakenBuffer is the result of TakeBuffer. Adopted distinguishes the
// zero-copy branch (grown storage handed over directly) from the
// defensive-copy branch (inline storage duplicated), so callers and
// tests can verify which one ran.
type TakenBuffer struct {
	Bytes   []byte
	Adopted bool
}

// TakeBuffer converts a stream's accumulated bytes into a caller-owned
// byte sequence and leaves the stream valid, empty and reusable.
//
// While the stream still sits in its inline buffer the bytes must be
// copied out, since the inline storage lives and dies with the Stream.
// Once the stream has grown, its heap storage is adopted outright; the
// result's length is the owned storage length minus the terminating
// NUL the stream maintains.
func TakeBuffer(s *Stream) TakenBuffer {
	if !s.Grown() {
		out := make([]byte, s.Readable())
		copy(out, s.window())
		s.Trunc(0)
		return TakenBuffer{Bytes: out}
	}
	b, n := s.TakeOwnedStorage()
	return TakenBuffer{Bytes: b[:n-1], Adopted: true}
}
