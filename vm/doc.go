// Package vm implements the Opal runtime kernel: the tagged value
// representation, immutable fixed-length vectors with transient and
// permanent lifetimes, symbol interning, and the buffered byte-stream
// primitives (delimited reads, buffer ownership transfer, little-endian
// integer decoding) that the rest of the runtime is built on.
//
// Nothing in this package is internally locked unless its doc comment
// says so. SVec and Stream are single-writer structures; PermArena,
// SymbolTable and SymbolStore serialize access themselves.
package vm
