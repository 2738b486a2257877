package vm

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Allocation tests
// ---------------------------------------------------------------------------

func TestAllocSVecUninitLength(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7, 100} {
		sv := AllocSVecUninit(n)
		if sv.Len() != n {
			t.Errorf("AllocSVecUninit(%d).Len() = %d", n, sv.Len())
		}
	}
}

func TestEmptySingleton(t *testing.T) {
	// Every zero-length allocation path must return the same instance.
	if AllocSVecUninit(0) != EmptySVec {
		t.Error("AllocSVecUninit(0) did not return EmptySVec")
	}
	if AllocSVec(0) != EmptySVec {
		t.Error("AllocSVec(0) did not return EmptySVec")
	}
	if NewSVec() != EmptySVec {
		t.Error("NewSVec() did not return EmptySVec")
	}
	if SVecFill(0, True) != EmptySVec {
		t.Error("SVecFill(0, v) did not return EmptySVec")
	}
	if EmptySVec.Copy() != EmptySVec {
		t.Error("EmptySVec.Copy() did not return EmptySVec")
	}
}

func TestSVecFill(t *testing.T) {
	v := FromSmallInt(99)
	sv := SVecFill(5, v)
	for i := 0; i < 5; i++ {
		if !sv.IsAssigned(i) {
			t.Errorf("slot %d should be assigned", i)
		}
		got, err := sv.Ref(i)
		if err != nil {
			t.Fatalf("Ref(%d): %v", i, err)
		}
		if got != v {
			t.Errorf("Ref(%d) = %v, want %v", i, got, v)
		}
	}
}

func TestNewSVecVariadic(t *testing.T) {
	a, b, c := FromSmallInt(1), FromSmallInt(2), Nil
	sv := NewSVec(a, b, c)
	if sv.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", sv.Len())
	}
	want := []Value{a, b, c}
	for i, w := range want {
		got, err := sv.Ref(i)
		if err != nil {
			t.Fatalf("Ref(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("Ref(%d) = %v, want %v", i, got, w)
		}
	}
}

// ---------------------------------------------------------------------------
// Unassigned-slot tests
// ---------------------------------------------------------------------------

func TestRefUnassignedFails(t *testing.T) {
	sv := AllocSVecUninit(3)
	for i := 0; i < 3; i++ {
		if sv.IsAssigned(i) {
			t.Errorf("fresh slot %d claims to be assigned", i)
		}
		_, err := sv.Ref(i)
		if err == nil {
			t.Fatalf("Ref(%d) on unassigned slot should fail", i)
		}
		var use *UnassignedSlotError
		if !errors.As(err, &use) {
			t.Fatalf("Ref(%d) error is %T, want *UnassignedSlotError", i, err)
		}
		if use.Index != i {
			t.Errorf("error index = %d, want %d", use.Index, i)
		}
	}
}

func TestSetThenRef(t *testing.T) {
	sv := AllocSVecUninit(2)
	v := FromFloat64(3.5)
	sv.Set(1, v)

	if sv.IsAssigned(0) {
		t.Error("slot 0 should still be unassigned")
	}
	if !sv.IsAssigned(1) {
		t.Error("slot 1 should be assigned")
	}
	got, err := sv.Ref(1)
	if err != nil {
		t.Fatalf("Ref(1): %v", err)
	}
	if got != v {
		t.Errorf("Ref(1) = %v, want %v", got, v)
	}
}

func TestStoredNilIsAssigned(t *testing.T) {
	// A legitimately stored nil must not look like an unassigned slot.
	sv := AllocSVecUninit(1)
	sv.Set(0, Nil)
	if !sv.IsAssigned(0) {
		t.Error("stored Nil reported as unassigned")
	}
	got, err := sv.Ref(0)
	if err != nil {
		t.Fatalf("Ref(0): %v", err)
	}
	if got != Nil {
		t.Errorf("Ref(0) = %v, want Nil", got)
	}
}

func TestSetUnassignedSentinelPanics(t *testing.T) {
	sv := AllocSVecUninit(1)
	defer func() {
		if recover() == nil {
			t.Error("Set with the Unassigned sentinel should panic")
		}
	}()
	sv.Set(0, Unassigned)
}

func TestOutOfRangePanics(t *testing.T) {
	sv := AllocSVecUninit(2)
	defer func() {
		if recover() == nil {
			t.Error("Ref out of range should panic")
		}
	}()
	sv.Ref(2)
}

// ---------------------------------------------------------------------------
// Copy tests
// ---------------------------------------------------------------------------

func TestCopyIsIndependent(t *testing.T) {
	orig := NewSVec(FromSmallInt(1), FromSmallInt(2), FromSmallInt(3))
	dup := orig.Copy()

	if dup == orig {
		t.Fatal("Copy returned the same vector")
	}
	if dup.Len() != orig.Len() {
		t.Fatalf("copy length = %d, want %d", dup.Len(), orig.Len())
	}
	for i := 0; i < orig.Len(); i++ {
		a, _ := orig.Ref(i)
		b, _ := dup.Ref(i)
		if a != b {
			t.Errorf("slot %d differs after copy", i)
		}
	}

	// Mutating the copy must not affect the original.
	dup.Set(0, FromSmallInt(42))
	a, _ := orig.Ref(0)
	if a != FromSmallInt(1) {
		t.Error("mutating the copy changed the original")
	}
}

func TestCopyPreservesUnassigned(t *testing.T) {
	sv := AllocSVecUninit(3)
	sv.Set(1, True)
	dup := sv.Copy()
	if dup.IsAssigned(0) || !dup.IsAssigned(1) || dup.IsAssigned(2) {
		t.Error("copy did not preserve the assigned/unassigned pattern")
	}
}
