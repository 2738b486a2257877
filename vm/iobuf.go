package vm

import (
	"bytes"
	"io"
)

// ---------------------------------------------------------------------------
// Stream: buffered byte stream with inline and grown storage
// ---------------------------------------------------------------------------

// inlineBufSize is the capacity of the fixed buffer embedded in every
// Stream. Small streams never touch the heap; one byte is always held
// back as terminator headroom, so the inline data capacity is one less.
const inlineBufSize = 54

// Stream is a growable byte buffer with a read position and an
// optional refill source. Storage starts as a fixed inline buffer
// whose lifetime is tied to the Stream itself; once the data outgrows
// it, the Stream switches to an independently-owned heap buffer whose
// ownership can later be transferred out with TakeOwnedStorage.
//
// The readable region is buf[bpos:size]. The storage invariant is
// len(buf) >= size+1: one spare byte is always available so that
// transferring ownership can place the terminating NUL the buffer
// convention calls for without reallocating.
//
// Stream is a single-writer structure with no internal locking.
type Stream struct {
	inline [inlineBufSize]byte

	buf   []byte    // current storage; aliases inline[:] until first growth
	owned bool      // buf is heap storage owned by this Stream
	bpos  int       // read position
	size  int       // end of valid data
	src   io.Reader // refill source; nil for pure in-memory streams
	eof   bool      // src has reported EOF

	scratchCap int // slow-path scratch capacity; 0 means the default
}

// NewStream creates an empty stream that refills from src. A nil src
// gives a pure in-memory stream.
func NewStream(src io.Reader) *Stream {
	s := &Stream{src: src}
	s.buf = s.inline[:]
	return s
}

// NewMemStream creates a stream pre-loaded with data and no refill
// source. Data small enough for the inline buffer stays there; larger
// data lands in grown storage.
func NewMemStream(data []byte) *Stream {
	s := NewStream(nil)
	s.Write(data)
	return s
}

// Readable returns the number of buffered bytes between the read
// position and the end of valid data.
func (s *Stream) Readable() int {
	return s.size - s.bpos
}

// Grown reports whether the stream's storage is an independently-owned
// heap buffer rather than the inline buffer (or caller-bound scratch).
func (s *Stream) Grown() bool {
	return s.owned
}

// window returns the readable region. The slice aliases stream
// storage; it is invalidated by any write, fill or transfer.
func (s *Stream) window() []byte {
	return s.buf[s.bpos:s.size]
}

// ---------------------------------------------------------------------------
// Growth and writing
// ---------------------------------------------------------------------------

// grow reallocates storage so at least need more data bytes fit, plus
// the terminator headroom byte.
func (s *Stream) grow(need int) {
	want := s.size + need + 1
	newcap := len(s.buf) * 2
	if newcap < 128 {
		newcap = 128
	}
	if newcap < want {
		newcap = want
	}
	nb := make([]byte, newcap)
	copy(nb, s.buf[:s.size])
	s.buf = nb
	s.owned = true
}

// Write appends p to the buffered data, growing storage as needed.
// It never fails; the error is for io.Writer conformance.
func (s *Stream) Write(p []byte) (int, error) {
	if len(s.buf)-s.size < len(p)+1 {
		s.grow(len(p))
	}
	copy(s.buf[s.size:], p)
	s.size += len(p)
	return len(p), nil
}

// bindScratch points the stream at caller-provided scratch storage.
// The scratch is not owned by the stream: growing past it switches to
// owned storage, and Grown distinguishes the two afterwards.
func (s *Stream) bindScratch(scratch []byte) {
	s.buf = scratch
	s.owned = false
	s.bpos = 0
	s.size = 0
}

// resetToInline returns the stream to its empty initial state. The
// refill source is kept.
func (s *Stream) resetToInline() {
	s.buf = s.inline[:]
	s.owned = false
	s.bpos = 0
	s.size = 0
}

// ---------------------------------------------------------------------------
// Refill
// ---------------------------------------------------------------------------

// readPrep tries to make want bytes readable by pulling once from the
// refill source, compacting or growing storage as needed. It returns
// the readable count afterwards, which equals the prior count when no
// progress could be made.
func (s *Stream) readPrep(want int) int {
	avail := s.size - s.bpos
	if avail >= want || s.src == nil || s.eof {
		return avail
	}
	short := want - avail
	if s.bpos > 0 && len(s.buf)-s.size < short+1 {
		// Slide unread data to the front to reclaim consumed space.
		copy(s.buf, s.buf[s.bpos:s.size])
		s.size -= s.bpos
		s.bpos = 0
	}
	if len(s.buf)-s.size < short+1 {
		s.grow(short)
	}
	n, err := s.src.Read(s.buf[s.size : len(s.buf)-1])
	s.size += n
	if err != nil {
		// EOF or a read failure both mean no more refills. Absence of
		// further data is not an error at this layer.
		s.eof = true
	}
	return s.size - s.bpos
}

// BufferN blocks (through the refill source) until at least n bytes
// are readable. It returns false if the source is exhausted first.
func (s *Stream) BufferN(n int) bool {
	for {
		avail := s.size - s.bpos
		if avail >= n {
			return true
		}
		got := s.readPrep(n)
		if got >= n {
			return true
		}
		if got == avail {
			return false // no progress
		}
	}
}

// ---------------------------------------------------------------------------
// Copy-until, truncate, ownership transfer
// ---------------------------------------------------------------------------

// CopyUntil streams bytes from s into dest up to and including the
// first occurrence of delim, refilling from the source as needed. It
// returns the number of bytes written to dest. If the source runs out
// before a delimiter appears, everything buffered is copied and the
// count reflects that; no delimiter is not an error.
func (s *Stream) CopyUntil(dest *Stream, delim byte) int {
	total := 0
	for {
		w := s.window()
		if idx := bytes.IndexByte(w, delim); idx >= 0 {
			dest.Write(w[:idx+1])
			s.bpos += idx + 1
			return total + idx + 1
		}
		dest.Write(w)
		total += len(w)
		s.bpos = s.size
		if s.readPrep(1) == 0 {
			return total
		}
	}
}

// Trunc cuts the valid data back to n bytes. The read position is
// clamped to the new end. Panics if n is negative or past the end.
func (s *Stream) Trunc(n int) {
	if n < 0 || n > s.size {
		panic("Stream.Trunc: length out of range")
	}
	s.size = n
	if s.bpos > n {
		s.bpos = n
	}
}

// TakeOwnedStorage hands the stream's storage to the caller and leaves
// the stream empty and reusable. The returned length includes the
// terminating NUL the buffer convention maintains, so the data length
// is one less. When the storage is grown the transfer is zero-copy;
// inline or scratch storage is copied out instead, since its lifetime
// is tied to the stream.
func (s *Stream) TakeOwnedStorage() ([]byte, int) {
	n := s.size + 1
	var b []byte
	if s.owned {
		b = s.buf[:n]
		b[s.size] = 0
	} else {
		b = make([]byte, n)
		copy(b, s.buf[:s.size])
	}
	s.resetToInline()
	return b, n
}
