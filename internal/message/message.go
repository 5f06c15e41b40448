package message

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/crypto"
)

var (
	signatureField     = codec.Field(0, crypto.SignatureLength)
	participantPKField = signatureField.After(crypto.PublicKeyLength)
	coordinatorPKField = participantPKField.After(crypto.PublicKeyLength)
	lengthField        = coordinatorPKField.After(4)
	tagField           = lengthField.After(1)
	flagsField         = tagField.After(1)
	reservedField      = flagsField.After(2)
)

// HeaderLength is the fixed envelope header size preceding the payload.
const HeaderLength = crypto.SignatureLength + 2*crypto.PublicKeyLength + 4 + 1 + 1 + 2

// Flags carried in the envelope header.
const (
	FlagMultipart uint8 = 0x01
)

var ErrShortHeader = errors.New("message: short envelope header")

// Limits constrains message decode memory use.
type Limits struct {
	MaxMessageBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxMessageBytes: 8 * 1024 * 1024,
	}
}

// Payload is the per-kind encode contract. Sum, Update and Sum2 implement it.
type Payload interface {
	codec.ToBytes
	Tag() Tag
}

// Buffer is a view over a whole encoded message:
// signature[64] || participant_pk[32] || coordinator_pk[32] || length u32 BE ||
// tag u8 || flags u8 || reserved[2] || payload.
type Buffer struct {
	inner []byte
}

// NewBuffer bounds-checks the envelope. The payload itself is validated by
// the payload decoders.
func NewBuffer(b []byte) (Buffer, error) {
	buf := Buffer{inner: b}
	if err := buf.checkBufferLength(); err != nil {
		return Buffer{}, codec.Context(err, "not a valid message buffer")
	}
	return buf, nil
}

// NewBufferUnchecked wraps b without checking the header.
func NewBufferUnchecked(b []byte) Buffer {
	return Buffer{inner: b}
}

func (b Buffer) checkBufferLength() error {
	if err := codec.CheckMinLength(len(b.inner), HeaderLength); err != nil {
		return err
	}
	if n := b.Length(); uint64(n) != uint64(len(b.inner)) {
		return codec.Contextf(codec.ErrInvalidLength, "length field %d does not match buffer length %d", n, len(b.inner))
	}
	if tag := b.Tag(); !tag.Valid() {
		return codec.Contextf(codec.ErrUnknownTag, "invalid tag %d", uint8(tag))
	}
	return nil
}

func (b Buffer) Signature() []byte {
	return signatureField.Of(b.inner)
}

func (b Buffer) ParticipantPK() []byte {
	return participantPKField.Of(b.inner)
}

func (b Buffer) CoordinatorPK() []byte {
	return coordinatorPKField.Of(b.inner)
}

func (b Buffer) Length() uint32 {
	return binary.BigEndian.Uint32(lengthField.Of(b.inner))
}

func (b Buffer) Tag() Tag {
	return Tag(tagField.Of(b.inner)[0])
}

func (b Buffer) Flags() uint8 {
	return flagsField.Of(b.inner)[0]
}

func (b Buffer) Payload() []byte {
	return reservedField.Rest(b.inner)
}

// SignedData is the part of the message the participant signature covers.
func (b Buffer) SignedData() []byte {
	return signatureField.Rest(b.inner)
}

// VerifySignature checks the envelope signature against the participant key.
func (b Buffer) VerifySignature() bool {
	pk, err := crypto.PublicKeyFromSlice(b.ParticipantPK())
	if err != nil {
		return false
	}
	sig, err := crypto.SignatureFromSlice(b.Signature())
	if err != nil {
		return false
	}
	return pk.Verify(b.SignedData(), sig)
}

// Message is an owned envelope with its decoded payload.
type Message struct {
	Signature     crypto.Signature
	ParticipantPK crypto.PublicKey
	CoordinatorPK crypto.PublicKey
	Flags         uint8
	Payload       Payload
}

func (m Message) Tag() Tag {
	if m.Payload == nil {
		return TagNone
	}
	return m.Payload.Tag()
}

func (m Message) BufferLength() int {
	return HeaderLength + m.Payload.BufferLength()
}

// ToBytes writes the message with its current signature field.
func (m Message) ToBytes(buf []byte) {
	w := NewBufferUnchecked(buf)
	copy(w.Signature(), m.Signature[:])
	copy(w.ParticipantPK(), m.ParticipantPK[:])
	copy(w.CoordinatorPK(), m.CoordinatorPK[:])
	binary.BigEndian.PutUint32(lengthField.Of(buf), uint32(m.BufferLength()))
	tagField.Of(buf)[0] = byte(m.Payload.Tag())
	flagsField.Of(buf)[0] = m.Flags
	clear(reservedField.Of(buf))
	m.Payload.ToBytes(w.Payload())
}

// Seal encodes the message and signs it with sk, which must belong to ParticipantPK.
func (m Message) Seal(sk crypto.SecretKey) []byte {
	m.Signature = crypto.Signature{}
	buf := codec.Encode(m)
	w := NewBufferUnchecked(buf)
	sig := sk.Sign(w.SignedData())
	copy(w.Signature(), sig[:])
	return buf
}

// FromBytes decodes an owned message. It does not verify the signature.
func FromBytes(b []byte) (Message, error) {
	r, err := NewBuffer(b)
	if err != nil {
		return Message{}, err
	}
	sig, err := crypto.SignatureFromSlice(r.Signature())
	if err != nil {
		return Message{}, codec.Context(err, "invalid message signature")
	}
	participant, err := crypto.PublicKeyFromSlice(r.ParticipantPK())
	if err != nil {
		return Message{}, codec.Context(err, "invalid participant public key")
	}
	coordinator, err := crypto.PublicKeyFromSlice(r.CoordinatorPK())
	if err != nil {
		return Message{}, codec.Context(err, "invalid coordinator public key")
	}
	payload, err := decodePayload(r.Tag(), r.Payload())
	if err != nil {
		return Message{}, err
	}
	return Message{
		Signature:     sig,
		ParticipantPK: participant,
		CoordinatorPK: coordinator,
		Flags:         r.Flags(),
		Payload:       payload,
	}, nil
}

func decodePayload(tag Tag, b []byte) (Payload, error) {
	switch tag {
	case TagSum:
		p, err := SumFromBytes(b)
		if err != nil {
			return nil, codec.Context(err, "invalid sum payload")
		}
		return p, nil
	case TagUpdate:
		p, err := UpdateFromBytes(b)
		if err != nil {
			return nil, codec.Context(err, "invalid update payload")
		}
		return p, nil
	case TagSum2:
		p, err := Sum2FromBytes(b)
		if err != nil {
			return nil, codec.Context(err, "invalid sum2 payload")
		}
		return p, nil
	default:
		return nil, codec.Contextf(codec.ErrUnknownTag, "invalid tag %d", uint8(tag))
	}
}

// Read reads one whole message from r, using the header's length field to
// know how many bytes follow. The result still has to go through NewBuffer.
func Read(r io.Reader, limits Limits) ([]byte, error) {
	head := make([]byte, HeaderLength)
	if _, err := io.ReadFull(r, head); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(lengthField.Of(head))
	if n < HeaderLength {
		return nil, codec.Contextf(codec.ErrInvalidLength, "length field %d < %d", n, HeaderLength)
	}
	if n > limits.MaxMessageBytes {
		return nil, codec.Contextf(codec.ErrPayloadTooLarge, "length field %d > %d", n, limits.MaxMessageBytes)
	}
	out := make([]byte, n)
	copy(out, head)
	if _, err := io.ReadFull(r, out[HeaderLength:]); err != nil {
		return nil, codec.Context(codec.ErrShortBuffer, "message body truncated")
	}
	return out, nil
}
