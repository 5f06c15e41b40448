// Package message owns the PET wire contract.
//
// Ownership boundary:
// - envelope header (signature, keys, length, tag, flags)
// - sum, update and sum2 payload layouts
// - local seed dictionary layout
//
// Every layout comes in three parts: a buffer view with a validating and an
// unchecked constructor, an owned value implementing codec.ToBytes, and a
// FromBytes decoder that validates once through the view and then copies the
// fields out. Decoders never return partial values.
package message
