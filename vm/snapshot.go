package vm

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ---------------------------------------------------------------------------
// Snapshot: CBOR externalization of vector graphs
// ---------------------------------------------------------------------------

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ErrCorruptSnapshot indicates snapshot data that fails structural
// validation: dangling references, unknown slot kinds, bad indices.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Slot kinds in the snapshot encoding.
const (
	snapKindUnassigned uint8 = iota
	snapKindNil
	snapKindTrue
	snapKindFalse
	snapKindInt
	snapKindFloat
	snapKindSymbol // Ref indexes Snapshot.Symbols
	snapKindVector // Ref indexes Snapshot.Vectors
)

// snapSlot is one encoded vector slot.
type snapSlot struct {
	Kind  uint8   `cbor:"k"`
	Int   int64   `cbor:"i,omitempty"`
	Float float64 `cbor:"f,omitempty"`
	Ref   uint32  `cbor:"r,omitempty"`
}

// snapVec is one encoded vector.
type snapVec struct {
	Slots []snapSlot `cbor:"s"`
}

// Snapshot is the wire form of a set of vectors and the symbols they
// reference. Vector identity is positional: slot references index into
// Vectors, which lets shared structure and cycles round-trip intact.
type Snapshot struct {
	Symbols []string  `cbor:"symbols"`
	Vectors []snapVec `cbor:"vectors"`
	Roots   []uint32  `cbor:"roots"`
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

type snapshotEncoder struct {
	st       *SymbolTable
	snap     Snapshot
	vecIndex map[*SVec]uint32
	symIndex map[uint32]uint32 // symbol ID -> Symbols index
}

// EncodeSnapshot serializes the given root vectors, everything they
// transitively reference, and the names of every symbol they mention,
// to canonical CBOR. Unassigned slots are preserved as such.
func EncodeSnapshot(st *SymbolTable, roots ...*SVec) ([]byte, error) {
	enc := &snapshotEncoder{
		st:       st,
		vecIndex: make(map[*SVec]uint32),
		symIndex: make(map[uint32]uint32),
	}
	for _, root := range roots {
		idx, err := enc.addVec(root)
		if err != nil {
			return nil, err
		}
		enc.snap.Roots = append(enc.snap.Roots, idx)
	}
	return cborEncMode.Marshal(&enc.snap)
}

// addVec assigns sv an index, then encodes its slots. The index is
// assigned before the slots are walked so self-references terminate.
func (enc *snapshotEncoder) addVec(sv *SVec) (uint32, error) {
	if idx, ok := enc.vecIndex[sv]; ok {
		return idx, nil
	}
	idx := uint32(len(enc.snap.Vectors))
	enc.vecIndex[sv] = idx
	enc.snap.Vectors = append(enc.snap.Vectors, snapVec{})

	slots := make([]snapSlot, sv.Len())
	for i := range slots {
		s, err := enc.encodeSlot(sv.slots[i])
		if err != nil {
			return 0, fmt.Errorf("vector %d slot %d: %w", idx, i, err)
		}
		slots[i] = s
	}
	enc.snap.Vectors[idx].Slots = slots
	return idx, nil
}

func (enc *snapshotEncoder) encodeSlot(v Value) (snapSlot, error) {
	switch {
	case v == Unassigned:
		return snapSlot{Kind: snapKindUnassigned}, nil
	case v == Nil:
		return snapSlot{Kind: snapKindNil}, nil
	case v == True:
		return snapSlot{Kind: snapKindTrue}, nil
	case v == False:
		return snapSlot{Kind: snapKindFalse}, nil
	case v.IsSmallInt():
		return snapSlot{Kind: snapKindInt, Int: v.SmallInt()}, nil
	case v.IsSymbol():
		idx, err := enc.addSymbol(v.SymbolID())
		if err != nil {
			return snapSlot{}, err
		}
		return snapSlot{Kind: snapKindSymbol, Ref: idx}, nil
	case v.IsVector():
		idx, err := enc.addVec(v.Vec())
		if err != nil {
			return snapSlot{}, err
		}
		return snapSlot{Kind: snapKindVector, Ref: idx}, nil
	case v.IsFloat():
		return snapSlot{Kind: snapKindFloat, Float: v.Float64()}, nil
	}
	return snapSlot{}, fmt.Errorf("unencodable value %#x", uint64(v))
}

func (enc *snapshotEncoder) addSymbol(id uint32) (uint32, error) {
	if idx, ok := enc.symIndex[id]; ok {
		return idx, nil
	}
	name := enc.st.Name(id)
	if name == "" {
		return 0, fmt.Errorf("symbol ID %d not in table", id)
	}
	idx := uint32(len(enc.snap.Symbols))
	enc.symIndex[id] = idx
	enc.snap.Symbols = append(enc.snap.Symbols, name)
	return idx, nil
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// DecodeSnapshot rebuilds the root vectors of a snapshot, re-interning
// symbol names through st (IDs are not stable across processes, names
// are). Vectors are allocated first and slots filled second so shared
// structure and cycles reconnect correctly.
func DecodeSnapshot(data []byte, st *SymbolTable) ([]*SVec, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}

	vecs := make([]*SVec, len(snap.Vectors))
	for i, rec := range snap.Vectors {
		vecs[i] = AllocSVecUninit(len(rec.Slots))
	}
	for i, rec := range snap.Vectors {
		for j, slot := range rec.Slots {
			v, assigned, err := decodeSlot(slot, &snap, vecs, st)
			if err != nil {
				return nil, fmt.Errorf("%w: vector %d slot %d: %v", ErrCorruptSnapshot, i, j, err)
			}
			if assigned {
				vecs[i].Set(j, v)
			}
		}
	}

	roots := make([]*SVec, len(snap.Roots))
	for i, r := range snap.Roots {
		if int(r) >= len(vecs) {
			return nil, fmt.Errorf("%w: root %d out of range", ErrCorruptSnapshot, r)
		}
		roots[i] = vecs[r]
	}
	return roots, nil
}

func decodeSlot(s snapSlot, snap *Snapshot, vecs []*SVec, st *SymbolTable) (Value, bool, error) {
	switch s.Kind {
	case snapKindUnassigned:
		return Nil, false, nil
	case snapKindNil:
		return Nil, true, nil
	case snapKindTrue:
		return True, true, nil
	case snapKindFalse:
		return False, true, nil
	case snapKindInt:
		if s.Int > MaxSmallInt || s.Int < MinSmallInt {
			return Nil, false, fmt.Errorf("integer %d outside small-int range", s.Int)
		}
		return FromSmallInt(s.Int), true, nil
	case snapKindFloat:
		return FromFloat64(s.Float), true, nil
	case snapKindSymbol:
		if int(s.Ref) >= len(snap.Symbols) {
			return Nil, false, fmt.Errorf("symbol ref %d out of range", s.Ref)
		}
		return st.SymbolValue(snap.Symbols[s.Ref]), true, nil
	case snapKindVector:
		if int(s.Ref) >= len(vecs) {
			return Nil, false, fmt.Errorf("vector ref %d out of range", s.Ref)
		}
		return FromVec(vecs[s.Ref]), true, nil
	}
	return Nil, false, fmt.Errorf("unknown slot kind %d", s.Kind)
}
