package message

import (
	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/crypto"
)

var (
	sumSignatureField = codec.Field(0, crypto.SignatureLength)
	ephmPKField       = sumSignatureField.After(crypto.PublicKeyLength)
)

// SumLength is the fixed size of a Sum payload.
const SumLength = crypto.SignatureLength + crypto.PublicKeyLength

// SumBuffer is a view over an encoded Sum payload: sum_signature[64] || ephm_pk[32].
type SumBuffer struct {
	inner []byte
}

// NewSumBuffer checks that b holds a complete sum payload.
func NewSumBuffer(b []byte) (SumBuffer, error) {
	if err := codec.CheckMinLength(len(b), ephmPKField.End); err != nil {
		return SumBuffer{}, codec.Context(err, "not a valid SumBuffer")
	}
	return SumBuffer{inner: b}, nil
}

// NewSumBufferUnchecked wraps b without checking its length.
func NewSumBufferUnchecked(b []byte) SumBuffer {
	return SumBuffer{inner: b}
}

// SumSignature returns the signature field.
func (b SumBuffer) SumSignature() []byte {
	return sumSignatureField.Of(b.inner)
}

// EphmPK returns the ephemeral public key field.
func (b SumBuffer) EphmPK() []byte {
	return ephmPKField.Of(b.inner)
}

// Sum is sent by participants selected for the sum task in the sum phase.
type Sum struct {
	SumSignature crypto.ParticipantTaskSignature
	// EphmPK is the ephemeral key update participants seal mask seeds to.
	EphmPK crypto.PublicKey
}

func (s Sum) Tag() Tag {
	return TagSum
}

func (s Sum) BufferLength() int {
	return SumLength
}

func (s Sum) ToBytes(buf []byte) {
	w := NewSumBufferUnchecked(buf)
	copy(w.SumSignature(), s.SumSignature[:])
	copy(w.EphmPK(), s.EphmPK[:])
}

// SumFromBytes decodes a sum payload.
func SumFromBytes(b []byte) (Sum, error) {
	r, err := NewSumBuffer(b)
	if err != nil {
		return Sum{}, err
	}
	sig, err := crypto.SignatureFromSlice(r.SumSignature())
	if err != nil {
		return Sum{}, codec.Context(err, "invalid sum signature")
	}
	pk, err := crypto.PublicKeyFromSlice(r.EphmPK())
	if err != nil {
		return Sum{}, codec.Context(err, "invalid ephemeral public key")
	}
	return Sum{SumSignature: sig, EphmPK: pk}, nil
}
