package vm

import (
	"math"
	"sync"
	"unsafe"
)

// Value represents an Opal value using NaN-boxing.
//
// All values fit in 64 bits. Anything that is not one of our tagged
// quiet NaNs is an IEEE 754 double. Non-float values live in the quiet
// NaN space, with three tag bits selecting the kind and a 48-bit
// payload carrying the pointer, integer or ID.
//
// Encoding scheme:
//   - Float: native IEEE 754 double (any non-tagged bit pattern)
//   - SmallInt: quiet NaN + tagInt + 48-bit signed payload
//   - Vector: quiet NaN + tagVector + 48-bit *SVec pointer
//   - Symbol: quiet NaN + tagSymbol + interned symbol ID
//   - Special: quiet NaN + tagSpecial + special ID
//
// The specials are nil, true, false and unassigned. Unassigned is the
// slot sentinel for vectors whose slots were never stored to; keeping
// it distinct from Nil means a legitimately stored nil can never be
// confused with a slot that was never written.
type Value uint64

const (
	// Quiet NaN prefix: exponent all ones, quiet bit set, sign clear.
	qnanBits uint64 = 0x7FF8000000000000

	// Three tag bits inside the NaN mantissa space.
	kindMask uint64 = 0x0007000000000000

	// 48 bits of payload: pointer, integer or ID.
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagVector  uint64 = 0x0001000000000000 // *SVec pointer
	tagInt     uint64 = 0x0002000000000000 // 48-bit signed integer
	tagSpecial uint64 = 0x0003000000000000 // nil, true, false, unassigned
	tagSymbol  uint64 = 0x0004000000000000 // interned symbol ID

	// Sign bit and extension mask for the 48-bit integer payload.
	intSignBit    uint64 = 0x0000800000000000
	intSignExtend uint64 = 0xFFFF000000000000
)

const (
	specialNil        uint64 = 0
	specialTrue       uint64 = 1
	specialFalse      uint64 = 2
	specialUnassigned uint64 = 3
)

// Pre-defined special values.
const (
	Nil   Value = Value(qnanBits | tagSpecial | specialNil)
	True  Value = Value(qnanBits | tagSpecial | specialTrue)
	False Value = Value(qnanBits | tagSpecial | specialFalse)

	// Unassigned marks a vector slot that has never been stored to.
	// It is never a legal value for user code to store explicitly.
	Unassigned Value = Value(qnanBits | tagSpecial | specialUnassigned)
)

// SmallInt range (48-bit signed).
const (
	MaxSmallInt int64 = (1 << 47) - 1
	MinSmallInt int64 = -(1 << 47)
)

// ---------------------------------------------------------------------------
// Kind checks
// ---------------------------------------------------------------------------

// IsFloat returns true if v represents a float64. Real quiet NaNs,
// signaling NaNs and infinities all count as floats; only our tagged
// NaN patterns do not.
func (v Value) IsFloat() bool {
	bits := uint64(v)
	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		return true // exponent not all ones: ordinary float
	}
	if bits&0x000FFFFFFFFFFFFF == 0 {
		return true // +Inf or -Inf
	}
	if (bits & qnanBits) != qnanBits {
		return true // signaling NaN
	}
	// Quiet NaN: a float unless one of our tags is present.
	return bits&kindMask == 0
}

// IsSmallInt returns true if v represents a small integer.
func (v Value) IsSmallInt() bool {
	return uint64(v)&(qnanBits|kindMask) == qnanBits|tagInt
}

// IsVector returns true if v represents a fixed vector.
func (v Value) IsVector() bool {
	return uint64(v)&(qnanBits|kindMask) == qnanBits|tagVector
}

// IsSymbol returns true if v represents an interned symbol.
func (v Value) IsSymbol() bool {
	return uint64(v)&(qnanBits|kindMask) == qnanBits|tagSymbol
}

// IsSpecial returns true if v is nil, true, false or unassigned.
func (v Value) IsSpecial() bool {
	return uint64(v)&(qnanBits|kindMask) == qnanBits|tagSpecial
}

// IsNil returns true if v is the nil value.
func (v Value) IsNil() bool { return v == Nil }

// IsUnassigned returns true if v is the unassigned-slot sentinel.
func (v Value) IsUnassigned() bool { return v == Unassigned }

// IsBool returns true if v is true or false.
func (v Value) IsBool() bool { return v == True || v == False }

// ---------------------------------------------------------------------------
// Floats
// ---------------------------------------------------------------------------

// Float64 returns v as a float64. Panics if v is not a float.
func (v Value) Float64() float64 {
	if !v.IsFloat() {
		panic("Value.Float64: not a float")
	}
	return math.Float64frombits(uint64(v))
}

// FromFloat64 creates a Value from a float64.
func FromFloat64(f float64) Value {
	return Value(math.Float64bits(f))
}

// ---------------------------------------------------------------------------
// Small integers
// ---------------------------------------------------------------------------

// SmallInt returns v as an int64. Panics if v is not a small integer.
func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("Value.SmallInt: not a small integer")
	}
	payload := uint64(v) & payloadMask
	if payload&intSignBit != 0 {
		payload |= intSignExtend
	}
	return int64(payload)
}

// FromSmallInt creates a Value from an int64.
// Panics if n is outside the 48-bit SmallInt range.
func FromSmallInt(n int64) Value {
	if n > MaxSmallInt || n < MinSmallInt {
		panic("FromSmallInt: value out of range")
	}
	return Value(qnanBits | tagInt | (uint64(n) & payloadMask))
}

// ---------------------------------------------------------------------------
// Symbols
// ---------------------------------------------------------------------------

// SymbolID returns the symbol ID encoded in v.
// Panics if v is not a symbol.
func (v Value) SymbolID() uint32 {
	if !v.IsSymbol() {
		panic("Value.SymbolID: not a symbol")
	}
	return uint32(uint64(v) & payloadMask)
}

// FromSymbolID creates a Value from a symbol ID.
func FromSymbolID(id uint32) Value {
	return Value(qnanBits | tagSymbol | uint64(id))
}

// ---------------------------------------------------------------------------
// Vectors
// ---------------------------------------------------------------------------

// vecKeepAlive holds a Go-visible reference for every *SVec that has
// been NaN-boxed. Once the pointer is folded into a Value's integer
// payload the Go collector can no longer see it, so boxing without
// registering here would let a reachable vector be freed out from
// under us.
var (
	vecKeepAliveMu sync.Mutex
	vecKeepAlive   = make(map[*SVec]struct{})
)

// FromVec creates a Value referencing the given vector.
// The pointer must fit in 48 bits (true for all supported platforms).
func FromVec(sv *SVec) Value {
	vecKeepAliveMu.Lock()
	vecKeepAlive[sv] = struct{}{}
	vecKeepAliveMu.Unlock()
	return Value(qnanBits | tagVector | (uint64(uintptr(unsafe.Pointer(sv))) & payloadMask))
}

// Vec returns the vector referenced by v. Panics if v is not a vector.
func (v Value) Vec() *SVec {
	if !v.IsVector() {
		panic("Value.Vec: not a vector")
	}
	return (*SVec)(unsafe.Pointer(uintptr(uint64(v) & payloadMask)))
}

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

// Bool returns v as a bool. Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}
