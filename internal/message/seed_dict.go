package message

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/crypto"
)

const seedDictEntryLength = crypto.PublicKeyLength + crypto.EncryptedMaskSeedLength

var seedDictLengthField = codec.Field(0, 4)

// LocalSeedDict maps each sum participant to the update participant's mask
// seed sealed for it.
type LocalSeedDict map[crypto.PublicKey]crypto.EncryptedMaskSeed

// LocalSeedDictBuffer is a view over an encoded LocalSeedDict:
// length u32 BE (whole dict, length field included) || (sum_pk[32] || seed[80])*.
type LocalSeedDictBuffer struct {
	inner []byte
}

// NewLocalSeedDictBuffer checks the entry count against the length of b.
func NewLocalSeedDictBuffer(b []byte) (LocalSeedDictBuffer, error) {
	buf := LocalSeedDictBuffer{inner: b}
	if err := buf.checkBufferLength(); err != nil {
		return LocalSeedDictBuffer{}, codec.Context(err, "not a valid LocalSeedDictBuffer")
	}
	return buf, nil
}

// NewLocalSeedDictBufferUnchecked wraps b without checking its length.
func NewLocalSeedDictBufferUnchecked(b []byte) LocalSeedDictBuffer {
	return LocalSeedDictBuffer{inner: b}
}

func (b LocalSeedDictBuffer) checkBufferLength() error {
	if err := codec.CheckMinLength(len(b.inner), seedDictLengthField.End); err != nil {
		return err
	}
	n := b.Length()
	if n < uint32(seedDictLengthField.End) || (n-uint32(seedDictLengthField.End))%seedDictEntryLength != 0 {
		return codec.Contextf(codec.ErrInvalidLength, "invalid seed dictionary length %d", n)
	}
	if uint64(len(b.inner)) < uint64(n) {
		return codec.Contextf(codec.ErrShortBuffer, "invalid buffer length: %d < %d", len(b.inner), n)
	}
	return nil
}

// Length is the encoded length field.
func (b LocalSeedDictBuffer) Length() uint32 {
	return binary.BigEndian.Uint32(seedDictLengthField.Of(b.inner))
}

// Entries returns the raw entry bytes.
func (b LocalSeedDictBuffer) Entries() []byte {
	return b.inner[seedDictLengthField.End:b.Length()]
}

func (d LocalSeedDict) BufferLength() int {
	return seedDictLengthField.End + len(d)*seedDictEntryLength
}

// ToBytes writes entries ordered by sum participant key.
func (d LocalSeedDict) ToBytes(buf []byte) {
	binary.BigEndian.PutUint32(seedDictLengthField.Of(buf), uint32(d.BufferLength()))
	keys := make([]crypto.PublicKey, 0, len(d))
	for pk := range d {
		keys = append(keys, pk)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	off := seedDictLengthField.End
	for _, pk := range keys {
		seed := d[pk]
		off += copy(buf[off:], pk[:])
		off += copy(buf[off:], seed[:])
	}
}

// LocalSeedDictFromBytes decodes a seed dictionary, rejecting duplicate keys.
func LocalSeedDictFromBytes(b []byte) (LocalSeedDict, error) {
	r, err := NewLocalSeedDictBuffer(b)
	if err != nil {
		return nil, err
	}
	raw := r.Entries()
	out := make(LocalSeedDict, len(raw)/seedDictEntryLength)
	for off := 0; off < len(raw); off += seedDictEntryLength {
		pkField := codec.Field(off, crypto.PublicKeyLength)
		pk, _ := crypto.PublicKeyFromSlice(pkField.Of(raw))
		seed, _ := crypto.EncryptedMaskSeedFromSlice(pkField.After(crypto.EncryptedMaskSeedLength).Of(raw))
		if _, dup := out[pk]; dup {
			return nil, codec.Contextf(codec.ErrInvalidValue, "duplicate sum participant %s", pk)
		}
		out[pk] = seed
	}
	return out, nil
}
