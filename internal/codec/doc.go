// Package codec owns the primitives every wire payload is built from.
//
// Ownership boundary:
// - field ranges over a byte view
// - length checks performed by validating buffer constructors
// - the encode contract (BufferLength/ToBytes) shared by all payload kinds
// - decode error context chains
//
// Validation happens once, when a buffer view is built with its checked
// constructor. Unchecked views are for buffers the caller just sized itself;
// reading fields through an unchecked view of a short buffer panics.
package codec
