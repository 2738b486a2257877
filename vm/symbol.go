package vm

import "sync"

// ---------------------------------------------------------------------------
// SymbolTable: interned symbols
// ---------------------------------------------------------------------------

// SymbolTable interns symbol strings to stable uint32 IDs. Symbols are
// immutable identifiers; two interns of the same string always yield
// the same ID for the lifetime of the table.
//
// ID 0 is reserved and never handed out, so it can serve as a "no
// symbol" marker in serialized forms.
//
// SymbolTable is safe for concurrent use.
type SymbolTable struct {
	mu     sync.RWMutex
	byName map[string]uint32
	names  []string // index = ID; names[0] is the reserved empty entry
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]uint32),
		names:  make([]string, 1, 256),
	}
}

// Intern returns the ID for name, assigning a fresh one if the symbol
// has not been seen before.
func (st *SymbolTable) Intern(name string) uint32 {
	st.mu.RLock()
	id, ok := st.byName[name]
	st.mu.RUnlock()
	if ok {
		return id
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	// Re-check: another goroutine may have interned it between locks.
	if id, ok := st.byName[name]; ok {
		return id
	}
	id = uint32(len(st.names))
	st.byName[name] = id
	st.names = append(st.names, name)
	return id
}

// Lookup returns the ID for name without interning.
// The second result is false if the symbol is unknown.
func (st *SymbolTable) Lookup(name string) (uint32, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.byName[name]
	return id, ok
}

// Name returns the symbol string for id, or "" for the reserved ID 0
// and for IDs never handed out.
func (st *SymbolTable) Name(id uint32) string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if id == 0 || int(id) >= len(st.names) {
		return ""
	}
	return st.names[id]
}

// Len returns the number of interned symbols.
func (st *SymbolTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.names) - 1
}

// All returns the interned symbol names in ID order, starting at ID 1.
func (st *SymbolTable) All() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]string, len(st.names)-1)
	copy(out, st.names[1:])
	return out
}

// SymbolValue interns name and returns it as a symbol Value.
func (st *SymbolTable) SymbolValue(name string) Value {
	return FromSymbolID(st.Intern(name))
}
