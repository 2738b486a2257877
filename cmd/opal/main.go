// Opal CLI - inspect delimited data and manage the runtime's symbol store.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/calder/opal/config"
	"github.com/calder/opal/vm"
)

func main() {
	verbosity := flag.Int("verbosity", 0, "Log verbosity (higher is chattier)")
	delim := flag.String("delim", "\n", "Record delimiter (first byte is used)")
	chomp := flag.String("chomp", "crlf", "Chomp mode: keep, delim, crlf")
	configDir := flag.String("config", ".", "Directory containing opal.toml")
	saveSymbols := flag.Bool("save-symbols", false, "Intern each record and save it to the configured symbol store")
	snapshotPath := flag.String("snapshot", "", "Intern each record and write a snapshot of the symbol vector to this file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: opal [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Reads each file as delimiter-separated records and reports record\n")
		fmt.Fprintf(os.Stderr, "and byte counts. With -save-symbols, records are interned and\n")
		fmt.Fprintf(os.Stderr, "persisted to the symbol store named in opal.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  opal access.log                # Count lines\n")
		fmt.Fprintf(os.Stderr, "  opal -delim ';' -chomp delim x # Semicolon-separated records\n")
		fmt.Fprintf(os.Stderr, "  opal -save-symbols names.txt   # Intern and persist each line\n")
		fmt.Fprintf(os.Stderr, "  opal -snapshot out.cbor x.txt  # Snapshot the interned symbols\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	cfg, err := config.Load(*configDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "opal: %v\n", err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	mode, err := parseChomp(*chomp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opal: %v\n", err)
		os.Exit(1)
	}
	if *delim == "" {
		fmt.Fprintln(os.Stderr, "opal: -delim must not be empty")
		os.Exit(1)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	interning := *saveSymbols || *snapshotPath != ""
	symbols := vm.NewSymbolTable()

	var store *vm.SymbolStore
	if *saveSymbols {
		storePath := cfg.StorePath()
		if storePath == "" {
			fmt.Fprintln(os.Stderr, "opal: -save-symbols requires symbols.store-path in opal.toml")
			os.Exit(1)
		}
		store, err = vm.OpenSymbolStore(storePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opal: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		// Preload so symbols seen on earlier runs keep their IDs.
		if _, err := store.Load(symbols); err != nil {
			fmt.Fprintf(os.Stderr, "opal: %v\n", err)
			os.Exit(1)
		}
	}

	for _, path := range flag.Args() {
		records, total, err := scanFile(path, (*delim)[0], mode, cfg.Stream.ScratchCapacity, symbols, interning)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opal: %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("%s: %d records, %d bytes\n", path, records, total)
	}

	if *snapshotPath != "" {
		// Pin the symbol vector permanently, then externalize it.
		arena := vm.NewPermArena(cfg.Arena.BlockSlots)
		pinned := arena.SymbolVec(symbols, symbols.All()...)
		data, err := vm.EncodeSnapshot(symbols, pinned)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opal: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*snapshotPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "opal: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote snapshot of %d symbols to %s (%d arena slots in %d blocks)\n",
			pinned.Len(), *snapshotPath, arena.SlotsUsed(), arena.Blocks())
	}

	if store != nil {
		if err := store.Save(symbols); err != nil {
			fmt.Fprintf(os.Stderr, "opal: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("saved %d symbols to %s\n", symbols.Len(), cfg.StorePath())
	}
}

func parseChomp(name string) (vm.ChompMode, error) {
	switch name {
	case "keep":
		return vm.ChompKeep, nil
	case "delim":
		return vm.ChompDelim, nil
	case "crlf":
		return vm.ChompCRLF, nil
	}
	return 0, fmt.Errorf("unknown chomp mode %q (want keep, delim or crlf)", name)
}

// scanFile reads path as delimiter-separated records, returning the
// record count and the total byte count after chomping.
func scanFile(path string, delim byte, mode vm.ChompMode, scratch int, symbols *vm.SymbolTable, intern bool) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	s := vm.NewStream(f)
	s.SetScratchCapacity(scratch)

	records, total := 0, 0
	for {
		if !s.BufferN(1) {
			break
		}
		rec := s.ReadUntil(delim, mode)
		records++
		total += len(rec)
		if intern {
			symbols.Intern(string(rec))
		}
	}
	return records, total, nil
}
