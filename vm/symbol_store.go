package vm

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var symlog = commonlog.GetLogger("opal.symbols")

// ---------------------------------------------------------------------------
// SymbolStore: SQLite persistence for interned symbols
// ---------------------------------------------------------------------------

// SymbolStore persists a symbol table's names between runs. Row IDs in
// the store are not runtime symbol IDs; only names are durable, and
// Load re-interns them in stored order so a table loaded at startup
// gets stable IDs as long as the store only ever grows.
//
// SymbolStore is safe for concurrent use; a mutex serializes writes.
type SymbolStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// OpenSymbolStore opens (creating if needed) a symbol store at path.
func OpenSymbolStore(path string) (*SymbolStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening symbol store: %w", err)
	}

	// Busy timeout for concurrent access from multiple processes.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS symbols (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating symbols table: %w", err)
	}

	return &SymbolStore{db: db, path: path}, nil
}

// Save writes every symbol in st to the store. Already-stored names
// are left untouched, so stored order (and therefore reload order)
// never changes for existing symbols.
func (ss *SymbolStore) Save(st *SymbolTable) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	tx, err := ss.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	stmt, err := tx.Prepare("INSERT OR IGNORE INTO symbols (name) VALUES (?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	names := st.All()
	for _, name := range names {
		if _, err := stmt.Exec(name); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting symbol %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save: %w", err)
	}

	symlog.Infof("saved %d symbols to %s", len(names), ss.path)
	return nil
}

// Load interns every stored name into st, in stored order, and returns
// how many it read.
func (ss *SymbolStore) Load(st *SymbolTable) (int, error) {
	rows, err := ss.db.Query("SELECT name FROM symbols ORDER BY id")
	if err != nil {
		return 0, fmt.Errorf("querying symbols: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return n, fmt.Errorf("scanning symbol row: %w", err)
		}
		st.Intern(name)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, fmt.Errorf("reading symbol rows: %w", err)
	}

	symlog.Infof("loaded %d symbols from %s", n, ss.path)
	return n, nil
}

// Close releases the underlying database handle.
func (ss *SymbolStore) Close() error {
	return ss.db.Close()
}
