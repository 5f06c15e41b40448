package codec

// Range is a half-open byte range [Start, End) of a field inside a buffer.
type Range struct {
	Start int
	End   int
}

// Field returns the range of a fixed-length field starting at start.
func Field(start, length int) Range {
	return Range{Start: start, End: start + length}
}

// After returns the range of a fixed-length field immediately following r.
func (r Range) After(length int) Range {
	return Field(r.End, length)
}

// Len is the field width in bytes.
func (r Range) Len() int {
	return r.End - r.Start
}

// Of slices b to the range. It panics when b is too short.
func (r Range) Of(b []byte) []byte {
	return b[r.Start:r.End]
}

// Rest slices b from the end of the range to the end of the buffer.
func (r Range) Rest(b []byte) []byte {
	return b[r.End:]
}

// ToBytes is the encode contract shared by every payload kind.
type ToBytes interface {
	// BufferLength is the exact number of bytes ToBytes writes.
	BufferLength() int
	// ToBytes writes the value into buf, which holds at least BufferLength bytes.
	ToBytes(buf []byte)
}

// Encode allocates exactly BufferLength bytes and encodes v into them.
func Encode(v ToBytes) []byte {
	buf := make([]byte, v.BufferLength())
	v.ToBytes(buf)
	return buf
}
