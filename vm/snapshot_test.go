package vm

import (
	"errors"
	"testing"
)

func TestSnapshotScalarRoundTrip(t *testing.T) {
	st := NewSymbolTable()
	sv := NewSVec(
		FromSmallInt(-42),
		FromFloat64(2.25),
		Nil,
		True,
		False,
		st.SymbolValue("greet"),
	)

	data, err := EncodeSnapshot(st, sv)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}

	// Decode into a fresh table; symbol names survive, IDs need not.
	st2 := NewSymbolTable()
	roots, err := DecodeSnapshot(data, st2)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("len(roots) = %d, want 1", len(roots))
	}
	got := roots[0]
	if got.Len() != sv.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), sv.Len())
	}

	for i, check := range []func(Value) bool{
		func(v Value) bool { return v.IsSmallInt() && v.SmallInt() == -42 },
		func(v Value) bool { return v.IsFloat() && v.Float64() == 2.25 },
		func(v Value) bool { return v == Nil },
		func(v Value) bool { return v == True },
		func(v Value) bool { return v == False },
		func(v Value) bool { return v.IsSymbol() && st2.Name(v.SymbolID()) == "greet" },
	} {
		v, err := got.Ref(i)
		if err != nil {
			t.Fatalf("Ref(%d): %v", i, err)
		}
		if !check(v) {
			t.Errorf("slot %d did not round-trip: %v", i, v)
		}
	}
}

func TestSnapshotPreservesUnassigned(t *testing.T) {
	st := NewSymbolTable()
	sv := AllocSVecUninit(3)
	sv.Set(1, FromSmallInt(5))

	data, err := EncodeSnapshot(st, sv)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	roots, err := DecodeSnapshot(data, st)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	got := roots[0]
	if got.IsAssigned(0) || !got.IsAssigned(1) || got.IsAssigned(2) {
		t.Error("assigned/unassigned pattern did not survive the round trip")
	}
}

func TestSnapshotSharedStructure(t *testing.T) {
	st := NewSymbolTable()
	shared := NewSVec(FromSmallInt(1))
	root := NewSVec(FromVec(shared), FromVec(shared))

	data, err := EncodeSnapshot(st, root)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	roots, err := DecodeSnapshot(data, st)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	a, _ := roots[0].Ref(0)
	b, _ := roots[0].Ref(1)
	if a.Vec() != b.Vec() {
		t.Error("shared child decoded as two distinct vectors")
	}
}

func TestSnapshotCycle(t *testing.T) {
	st := NewSymbolTable()
	sv := AllocSVecUninit(1)
	sv.Set(0, FromVec(sv))

	data, err := EncodeSnapshot(st, sv)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	roots, err := DecodeSnapshot(data, st)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	v, err := roots[0].Ref(0)
	if err != nil {
		t.Fatalf("Ref(0): %v", err)
	}
	if v.Vec() != roots[0] {
		t.Error("self-referencing slot does not point back at its vector")
	}
}

func TestSnapshotEmptyVectorDecodesToSingleton(t *testing.T) {
	st := NewSymbolTable()
	data, err := EncodeSnapshot(st, EmptySVec)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	roots, err := DecodeSnapshot(data, st)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}
	if roots[0] != EmptySVec {
		t.Error("empty vector did not decode to the shared singleton")
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	st := NewSymbolTable()
	sv := NewSVec(st.SymbolValue("a"), st.SymbolValue("b"), FromSmallInt(3))
	first, err := EncodeSnapshot(st, sv)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	second, err := EncodeSnapshot(st, sv)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	if string(first) != string(second) {
		t.Error("encoding the same graph twice gave different bytes")
	}
}

func TestEncodeUnknownSymbolFails(t *testing.T) {
	st := NewSymbolTable()
	sv := NewSVec(FromSymbolID(999)) // never interned
	if _, err := EncodeSnapshot(st, sv); err == nil {
		t.Error("encoding an uninterned symbol should fail")
	}
}

func TestDecodeCorruptSnapshot(t *testing.T) {
	st := NewSymbolTable()

	if _, err := DecodeSnapshot([]byte{0xFF, 0x00, 0x13}, st); err == nil {
		t.Error("decoding garbage bytes should fail")
	}

	// Structurally valid CBOR with a dangling vector reference.
	bad := Snapshot{
		Vectors: []snapVec{{Slots: []snapSlot{{Kind: snapKindVector, Ref: 7}}}},
		Roots:   []uint32{0},
	}
	data, err := cborEncMode.Marshal(&bad)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	_, err = DecodeSnapshot(data, st)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("dangling reference error = %v, want ErrCorruptSnapshot", err)
	}

	// Root index past the vector list.
	bad = Snapshot{Roots: []uint32{3}}
	data, err = cborEncMode.Marshal(&bad)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	_, err = DecodeSnapshot(data, st)
	if !errors.Is(err, ErrCorruptSnapshot) {
		t.Errorf("bad root error = %v, want ErrCorruptSnapshot", err)
	}
}
