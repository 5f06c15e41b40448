package message

import (
	"bytes"
	"testing"

	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/mask"
	"github.com/danmuck/petctl/internal/testutil/masktest"
	"github.com/danmuck/petctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func sum2Signature() (crypto.Signature, []byte) {
	raw := bytes.Repeat([]byte{0x99}, crypto.SignatureLength)
	sig, _ := crypto.SignatureFromSlice(raw)
	return sig, raw
}

func sum2Fixture() (Sum2, []byte) {
	sig, raw := sum2Signature()
	out := append([]byte{}, raw...)
	out = append(out, masktest.Bytes()...)
	return Sum2{SumSignature: sig, Mask: masktest.Object()}, out
}

func TestSum2BufferRead(t *testing.T) {
	testlog.Start(t)
	_, raw := sum2Fixture()
	buf, err := NewSum2Buffer(raw)
	require.NoError(t, err)

	_, sigBytes := sum2Signature()
	require.Equal(t, sigBytes, buf.SumSignature())
	require.Equal(t, masktest.Bytes(), buf.Mask())
}

func TestSum2BufferWrite(t *testing.T) {
	testlog.Start(t)
	_, want := sum2Fixture()
	out := bytes.Repeat([]byte{0xff}, len(want))

	w := NewSum2BufferUnchecked(out)
	_, sigBytes := sum2Signature()
	copy(w.SumSignature(), sigBytes)
	copy(w.Mask(), masktest.Bytes())
	require.Equal(t, want, out)
}

func TestSum2Encode(t *testing.T) {
	testlog.Start(t)
	sum2, want := sum2Fixture()
	require.Equal(t, crypto.SignatureLength+len(masktest.Bytes()), len(want))
	require.Equal(t, len(want), sum2.BufferLength())

	out := bytes.Repeat([]byte{0xff}, sum2.BufferLength())
	sum2.ToBytes(out)
	require.Equal(t, want, out)
}

func TestSum2Decode(t *testing.T) {
	testlog.Start(t)
	sum2, raw := sum2Fixture()
	parsed, err := Sum2FromBytes(raw)
	require.NoError(t, err)
	require.True(t, parsed.Equal(sum2))
	require.Equal(t, raw, codec.Encode(parsed))
}

func TestSum2RoundTripVariousMasks(t *testing.T) {
	testlog.Start(t)
	sig, _ := sum2Signature()
	masks := []mask.Object{
		masktest.ObjectWith(),
		masktest.ObjectWith(0),
		masktest.ObjectWith(20000000000000, 5, 17),
	}
	for _, m := range masks {
		in := Sum2{SumSignature: sig, Mask: m}
		raw := codec.Encode(in)
		require.Len(t, raw, in.BufferLength())
		out, err := Sum2FromBytes(raw)
		require.NoError(t, err)
		require.True(t, out.Equal(in))
	}
}

func TestSum2DecodeShortBufferFailsBeforeMask(t *testing.T) {
	testlog.Start(t)
	_, err := Sum2FromBytes(make([]byte, crypto.SignatureLength-1))
	require.ErrorIs(t, err, codec.ErrShortBuffer)
	require.Contains(t, err.Error(), "invalid buffer length: 63 < 64")
	require.NotContains(t, err.Error(), "mask")
}

func TestSum2DecodeSignatureOnly(t *testing.T) {
	testlog.Start(t)
	_, raw := sum2Signature()
	_, err := Sum2FromBytes(raw)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid mask")
}

func TestSum2DecodeInvalidMask(t *testing.T) {
	testlog.Start(t)
	_, raw := sum2Fixture()
	raw[crypto.SignatureLength] = 7 // unknown group type
	_, err := Sum2FromBytes(raw)
	require.ErrorIs(t, err, codec.ErrInvalidValue)
	require.Contains(t, err.Error(), "invalid mask")
}

func TestSum2DecodeTruncatedMask(t *testing.T) {
	testlog.Start(t)
	_, raw := sum2Fixture()
	_, err := Sum2FromBytes(raw[:len(raw)-3])
	require.ErrorIs(t, err, codec.ErrShortBuffer)
	require.Contains(t, err.Error(), "invalid mask")
}

func TestSum2DecodeMaskNumberOutOfRange(t *testing.T) {
	testlog.Start(t)
	_, raw := sum2Fixture()
	off := crypto.SignatureLength + 8
	for i := off; i < off+6; i++ {
		raw[i] = 0xff
	}
	_, err := Sum2FromBytes(raw)
	require.ErrorIs(t, err, mask.ErrNumberOutOfRange)
	require.Contains(t, err.Error(), "invalid mask: invalid vector part")
}
