package message

import (
	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/mask"
)

var (
	updateSumSignatureField = codec.Field(0, crypto.SignatureLength)
	updateSignatureField    = updateSumSignatureField.After(crypto.SignatureLength)
)

// UpdateBuffer is a view over an encoded Update payload:
// sum_signature[64] || update_signature[64] || masked model || local seed dict.
type UpdateBuffer struct {
	inner []byte
}

// NewUpdateBuffer checks that b holds a complete update payload.
func NewUpdateBuffer(b []byte) (UpdateBuffer, error) {
	buf := UpdateBuffer{inner: b}
	if err := buf.checkBufferLength(); err != nil {
		return UpdateBuffer{}, codec.Context(err, "not a valid UpdateBuffer")
	}
	return buf, nil
}

// NewUpdateBufferUnchecked wraps b without checking its length.
func NewUpdateBufferUnchecked(b []byte) UpdateBuffer {
	return UpdateBuffer{inner: b}
}

func (b UpdateBuffer) checkBufferLength() error {
	if err := codec.CheckMinLength(len(b.inner), updateSignatureField.End); err != nil {
		return err
	}
	model, err := mask.NewObjectBuffer(updateSignatureField.Rest(b.inner))
	if err != nil {
		return codec.Context(err, "invalid masked model field")
	}
	rest := b.inner[updateSignatureField.End+model.Len():]
	if _, err := NewLocalSeedDictBuffer(rest); err != nil {
		return codec.Context(err, "invalid local seed dictionary field")
	}
	return nil
}

func (b UpdateBuffer) SumSignature() []byte {
	return updateSumSignatureField.Of(b.inner)
}

func (b UpdateBuffer) UpdateSignature() []byte {
	return updateSignatureField.Of(b.inner)
}

func (b UpdateBuffer) MaskedModel() []byte {
	rest := updateSignatureField.Rest(b.inner)
	return rest[:mask.NewObjectBufferUnchecked(rest).Len()]
}

func (b UpdateBuffer) LocalSeedDict() []byte {
	return b.inner[updateSignatureField.End+len(b.MaskedModel()):]
}

// Update is sent by participants selected for the update task.
type Update struct {
	SumSignature    crypto.ParticipantTaskSignature
	UpdateSignature crypto.ParticipantTaskSignature
	MaskedModel     mask.Object
	LocalSeedDict   LocalSeedDict
}

func (u Update) Tag() Tag {
	return TagUpdate
}

func (u Update) BufferLength() int {
	return updateSignatureField.End + u.MaskedModel.BufferLength() + u.LocalSeedDict.BufferLength()
}

func (u Update) ToBytes(buf []byte) {
	copy(updateSumSignatureField.Of(buf), u.SumSignature[:])
	copy(updateSignatureField.Of(buf), u.UpdateSignature[:])
	off := updateSignatureField.End
	model := u.MaskedModel.BufferLength()
	u.MaskedModel.ToBytes(buf[off : off+model])
	u.LocalSeedDict.ToBytes(buf[off+model:])
}

func (u Update) Equal(other Update) bool {
	if u.SumSignature != other.SumSignature || u.UpdateSignature != other.UpdateSignature {
		return false
	}
	if !u.MaskedModel.Equal(other.MaskedModel) || len(u.LocalSeedDict) != len(other.LocalSeedDict) {
		return false
	}
	for pk, seed := range u.LocalSeedDict {
		if got, ok := other.LocalSeedDict[pk]; !ok || got != seed {
			return false
		}
	}
	return true
}

// UpdateFromBytes decodes an update payload.
func UpdateFromBytes(b []byte) (Update, error) {
	r, err := NewUpdateBuffer(b)
	if err != nil {
		return Update{}, err
	}
	sumSig, err := crypto.SignatureFromSlice(r.SumSignature())
	if err != nil {
		return Update{}, codec.Context(err, "invalid sum signature")
	}
	updateSig, err := crypto.SignatureFromSlice(r.UpdateSignature())
	if err != nil {
		return Update{}, codec.Context(err, "invalid update signature")
	}
	model, err := mask.ObjectFromBytes(r.MaskedModel())
	if err != nil {
		return Update{}, codec.Context(err, "invalid masked model")
	}
	dict, err := LocalSeedDictFromBytes(r.LocalSeedDict())
	if err != nil {
		return Update{}, codec.Context(err, "invalid local seed dictionary")
	}
	return Update{
		SumSignature:    sumSig,
		UpdateSignature: updateSig,
		MaskedModel:     model,
		LocalSeedDict:   dict,
	}, nil
}
