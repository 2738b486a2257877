package vm

import "sync"

// ---------------------------------------------------------------------------
// PermArena: permanent allocation
// ---------------------------------------------------------------------------

// DefaultPermBlockSlots is the slot count of each arena block when no
// explicit size is configured.
const DefaultPermBlockSlots = 4096

// PermArena allocates vectors with process lifetime. Slot storage is
// carved from large retained blocks and vector headers are pinned by
// the arena itself, so nothing allocated here is ever reclaimed.
//
// Permanent allocation is for data referenced for the remainder of the
// process — interned symbol tuples, bootstrap structures. Callers must
// not use it for data with transient identity; there is no free.
//
// A PermArena is a single explicit instance, created at startup and
// passed to whatever needs it, rather than ambient global state. It is
// safe for concurrent use: a mutex serializes allocation, which is the
// only shared mutable state in the kernel.
type PermArena struct {
	mu         sync.Mutex
	blockSlots int
	blocks     [][]Value // every block ever allocated, retained forever
	tail       []Value   // unused remainder of the newest block
	used       int       // slots carved out so far
	hold       []*SVec   // pins vector headers against collection
}

// NewPermArena creates an arena whose blocks hold blockSlots slots
// each. A non-positive blockSlots selects DefaultPermBlockSlots.
func NewPermArena(blockSlots int) *PermArena {
	if blockSlots <= 0 {
		blockSlots = DefaultPermBlockSlots
	}
	return &PermArena{blockSlots: blockSlots}
}

// carve returns n slots of fresh arena storage. When the current block
// cannot satisfy the request, its remainder is abandoned and a new
// block is started; requests larger than the block size get a block of
// their own. Caller holds a.mu.
func (a *PermArena) carve(n int) []Value {
	if n > len(a.tail) {
		bs := a.blockSlots
		if n > bs {
			bs = n
		}
		blk := make([]Value, bs)
		a.blocks = append(a.blocks, blk)
		a.tail = blk
	}
	s := a.tail[:n:n]
	a.tail = a.tail[n:]
	a.used += n
	return s
}

// AllocVec allocates a permanent vector of length n with every slot
// marked unassigned. n == 0 returns the shared empty singleton.
func (a *PermArena) AllocVec(n int) *SVec {
	if n == 0 {
		return EmptySVec
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	slots := a.carve(n)
	for i := range slots {
		slots[i] = Unassigned
	}
	sv := &SVec{slots: slots}
	a.hold = append(a.hold, sv)
	return sv
}

// SymbolVec allocates a permanent vector whose slots are the given
// names interned through st, in order. This is the allocation path for
// fixed identifier tuples that live for the whole process.
func (a *PermArena) SymbolVec(st *SymbolTable, names ...string) *SVec {
	if len(names) == 0 {
		return EmptySVec
	}
	sv := a.AllocVec(len(names))
	for i, name := range names {
		sv.Set(i, st.SymbolValue(name))
	}
	return sv
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Blocks returns the number of storage blocks the arena has allocated.
func (a *PermArena) Blocks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.blocks)
}

// SlotsUsed returns the number of slots carved out of the arena.
func (a *PermArena) SlotsUsed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// Vectors returns the number of permanent vectors allocated.
func (a *PermArena) Vectors() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.hold)
}
