package message

import (
	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/mask"
)

var sum2SignatureField = codec.Field(0, crypto.SignatureLength)

// Sum2Buffer is a view over an encoded Sum2 payload:
// sum_signature[64] || mask object (self-describing, no length prefix).
type Sum2Buffer struct {
	inner []byte
}

// NewSum2Buffer bounds-checks b as a Sum2 payload. A buffer shorter than the
// signature fails before the mask region is looked at.
func NewSum2Buffer(b []byte) (Sum2Buffer, error) {
	buf := Sum2Buffer{inner: b}
	if err := buf.checkBufferLength(); err != nil {
		return Sum2Buffer{}, codec.Context(err, "not a valid Sum2Buffer")
	}
	return buf, nil
}

// NewSum2BufferUnchecked wraps a buffer the caller sized itself.
func NewSum2BufferUnchecked(b []byte) Sum2Buffer {
	return Sum2Buffer{inner: b}
}

func (b Sum2Buffer) checkBufferLength() error {
	if err := codec.CheckMinLength(len(b.inner), sum2SignatureField.End); err != nil {
		return err
	}
	if _, err := mask.NewObjectBuffer(sum2SignatureField.Rest(b.inner)); err != nil {
		return codec.Context(err, "invalid mask field")
	}
	return nil
}

// SumSignature returns the signature field.
func (b Sum2Buffer) SumSignature() []byte {
	return sum2SignatureField.Of(b.inner)
}

// Mask returns the mask object bytes following the signature.
func (b Sum2Buffer) Mask() []byte {
	return sum2SignatureField.Rest(b.inner)
}

// Sum2 is sent by sum participants in the sum2 phase.
type Sum2 struct {
	// SumSignature is the participant's signature of the round seed and "sum".
	SumSignature crypto.ParticipantTaskSignature
	// Mask is the aggregate of the update participants' masks.
	Mask mask.Object
}

func (s Sum2) Tag() Tag {
	return TagSum2
}

func (s Sum2) BufferLength() int {
	return sum2SignatureField.End + s.Mask.BufferLength()
}

func (s Sum2) ToBytes(buf []byte) {
	w := NewSum2BufferUnchecked(buf)
	copy(w.SumSignature(), s.SumSignature[:])
	s.Mask.ToBytes(w.Mask())
}

func (s Sum2) Equal(other Sum2) bool {
	return s.SumSignature == other.SumSignature && s.Mask.Equal(other.Mask)
}

// Sum2FromBytes decodes an owned Sum2 payload.
func Sum2FromBytes(b []byte) (Sum2, error) {
	r, err := NewSum2Buffer(b)
	if err != nil {
		return Sum2{}, err
	}
	sig, err := crypto.SignatureFromSlice(r.SumSignature())
	if err != nil {
		return Sum2{}, codec.Context(err, "invalid sum signature")
	}
	m, err := mask.ObjectFromBytes(r.Mask())
	if err != nil {
		return Sum2{}, codec.Context(err, "invalid mask")
	}
	return Sum2{SumSignature: sig, Mask: m}, nil
}
