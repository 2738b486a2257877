package vm

import "fmt"

// ---------------------------------------------------------------------------
// SVec: immutable fixed-length vectors
// ---------------------------------------------------------------------------

// SVec is an immutable fixed-length vector of Values. The length is
// fixed at allocation and there is no resize operation. Slots hold
// shared references; the vector does not own what its slots point to.
//
// The one permitted mutation is Set, which exists so the allocating
// code can populate an uninitialized vector before anything else can
// see it. Once a vector has been published, calling Set on it breaks
// the immutability contract; that discipline is the caller's.
//
// SVec is a single-writer structure: concurrent use of the same vector
// requires external synchronization, and a vector must be fully
// initialized before being handed to another goroutine.
type SVec struct {
	slots []Value
}

// EmptySVec is the shared zero-length vector. Every allocation path
// returns it for n == 0; a zero-length vector is never separately
// allocated.
var EmptySVec = &SVec{}

// UnassignedSlotError is returned by Ref when the requested slot was
// never stored to. Reading an unassigned slot is a contract violation
// on the caller's part, but a recoverable one: the error is typed so
// callers can detect it, and it is never silently converted to Nil.
type UnassignedSlotError struct {
	Index int
}

func (e *UnassignedSlotError) Error() string {
	return fmt.Sprintf("vector slot %d is unassigned", e.Index)
}

// ---------------------------------------------------------------------------
// Allocation
// ---------------------------------------------------------------------------

// AllocSVecUninit allocates a transient vector of length n whose slots
// must all be assigned by the caller before the vector is published.
// Go's zero value for Value is the float 0.0, not the unassigned
// sentinel, so the slots are stamped with Unassigned here; the
// distinction from AllocSVec is contractual, not representational.
func AllocSVecUninit(n int) *SVec {
	if n == 0 {
		return EmptySVec
	}
	sv := &SVec{slots: make([]Value, n)}
	for i := range sv.slots {
		sv.slots[i] = Unassigned
	}
	return sv
}

// AllocSVec allocates a transient vector of length n with every slot
// explicitly set to the unassigned sentinel. Slots may be filled later
// with Set, or left unassigned and probed with IsAssigned.
func AllocSVec(n int) *SVec {
	return AllocSVecUninit(n)
}

// NewSVec allocates a transient vector whose length is fixed at the
// number of arguments, with slots assigned left to right.
func NewSVec(values ...Value) *SVec {
	if len(values) == 0 {
		return EmptySVec
	}
	sv := &SVec{slots: make([]Value, len(values))}
	copy(sv.slots, values)
	return sv
}

// SVecFill allocates a transient vector of length n with every slot
// set to v. The reference is shared, not copied.
func SVecFill(n int, v Value) *SVec {
	if n == 0 {
		return EmptySVec
	}
	sv := &SVec{slots: make([]Value, n)}
	for i := range sv.slots {
		sv.slots[i] = v
	}
	return sv
}

// Copy returns a new transient vector of the same length with slots
// copied by reference. The copy is shallow: referenced values are
// shared with the original. Mutating the copy's slots does not affect
// the original.
func (sv *SVec) Copy() *SVec {
	n := len(sv.slots)
	if n == 0 {
		return EmptySVec
	}
	c := &SVec{slots: make([]Value, n)}
	copy(c.slots, sv.slots)
	return c
}

// ---------------------------------------------------------------------------
// Slot access
// ---------------------------------------------------------------------------

// Len returns the vector's length.
func (sv *SVec) Len() int {
	return len(sv.slots)
}

// Ref returns the value in slot i. It fails with *UnassignedSlotError
// when the slot was never stored to. Out-of-range indices panic via
// the slice bounds check; indices are expected to come from Len.
func (sv *SVec) Ref(i int) (Value, error) {
	v := sv.slots[i]
	if v == Unassigned {
		return Nil, &UnassignedSlotError{Index: i}
	}
	return v, nil
}

// IsAssigned reports whether slot i holds a real value. It never
// fails; it is the non-erroring probe companion to Ref.
func (sv *SVec) IsAssigned(i int) bool {
	return sv.slots[i] != Unassigned
}

// Set stores v into slot i. This is the initialization escape hatch
// described on SVec; storing the Unassigned sentinel itself is not
// permitted.
func (sv *SVec) Set(i int, v Value) {
	if v == Unassigned {
		panic("SVec.Set: cannot store the unassigned sentinel")
	}
	sv.slots[i] = v
}
