package mask_test

import (
	"math/big"
	"testing"

	"github.com/danmuck/petctl/internal/codec"
	"github.com/danmuck/petctl/internal/mask"
	"github.com/danmuck/petctl/internal/testutil/masktest"
	"github.com/danmuck/petctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func TestConfigOrderWidths(t *testing.T) {
	testlog.Start(t)
	cfg := masktest.Config()
	require.Equal(t, "20000000000001", cfg.Order().String())
	require.Equal(t, 6, cfg.BytesPerNumber())

	prime := cfg
	prime.GroupType = mask.GroupPrime
	require.True(t, prime.Order().ProbablyPrime(20))
	require.True(t, prime.Order().Cmp(cfg.Order()) >= 0)
	require.Equal(t, 6, prime.BytesPerNumber())

	pow2 := cfg
	pow2.GroupType = mask.GroupPower2
	require.Equal(t, new(big.Int).Lsh(big.NewInt(1), 45), pow2.Order())
}

func TestConfigFromBytesRejectsUnknownTypes(t *testing.T) {
	testlog.Start(t)
	_, err := mask.ConfigFromBytes([]byte{9, 0, 0, 3})
	require.ErrorIs(t, err, codec.ErrInvalidValue)
	require.Contains(t, err.Error(), "invalid group type 9")

	_, err = mask.ConfigFromBytes([]byte{0, 0})
	require.ErrorIs(t, err, codec.ErrShortBuffer)
}

func TestVectBufferRead(t *testing.T) {
	testlog.Start(t)
	buf, err := mask.NewVectBuffer(masktest.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint32(4), buf.Count())
	require.Equal(t, len(masktest.VectBytes()), buf.Len())
	require.Equal(t, masktest.VectBytes()[8:], buf.Numbers())
}

func TestObjectBufferSplitsParts(t *testing.T) {
	testlog.Start(t)
	buf, err := mask.NewObjectBuffer(masktest.Bytes())
	require.NoError(t, err)
	require.Equal(t, masktest.VectBytes(), buf.Vect())
	require.Equal(t, masktest.UnitBytes(), buf.Unit())
	require.Equal(t, len(masktest.Bytes()), buf.Len())
}

func TestObjectEncode(t *testing.T) {
	testlog.Start(t)
	obj := masktest.Object()
	require.Equal(t, len(masktest.Bytes()), obj.BufferLength())
	require.Equal(t, masktest.Bytes(), codec.Encode(obj))
}

func TestObjectDecodeIgnoresTrailingBytes(t *testing.T) {
	testlog.Start(t)
	raw := append(masktest.Bytes(), 0xff, 0xff)
	obj, err := mask.ObjectFromBytes(raw)
	require.NoError(t, err)
	require.True(t, obj.Equal(masktest.Object()))
}

func TestObjectDecodeTruncatedVect(t *testing.T) {
	testlog.Start(t)
	raw := masktest.Bytes()[:20]
	_, err := mask.ObjectFromBytes(raw)
	require.ErrorIs(t, err, codec.ErrShortBuffer)
	require.Contains(t, err.Error(), "invalid vector part")
}

func TestObjectDecodeTruncatedUnit(t *testing.T) {
	testlog.Start(t)
	raw := masktest.Bytes()
	raw = raw[:len(raw)-1]
	_, err := mask.ObjectFromBytes(raw)
	require.ErrorIs(t, err, codec.ErrShortBuffer)
	require.Contains(t, err.Error(), "invalid unit part")
}

func TestObjectDecodeInconsistentCount(t *testing.T) {
	testlog.Start(t)
	raw := masktest.Bytes()
	raw[7] = 200 // count far beyond the available numbers
	_, err := mask.ObjectFromBytes(raw)
	require.ErrorIs(t, err, codec.ErrShortBuffer)
}

func TestVectDecodeRejectsNumberAboveOrder(t *testing.T) {
	testlog.Start(t)
	raw := masktest.VectBytes()
	for i := 8; i < 14; i++ {
		raw[i] = 0xff
	}
	_, err := mask.VectFromBytes(raw)
	require.ErrorIs(t, err, mask.ErrNumberOutOfRange)
	require.Contains(t, err.Error(), "invalid number 0")
}

func TestNewVectValidates(t *testing.T) {
	testlog.Start(t)
	cfg := masktest.Config()
	_, err := mask.NewVect(cfg, []*big.Int{cfg.Order()})
	require.ErrorIs(t, err, mask.ErrNumberOutOfRange)

	v, err := mask.NewVect(cfg, []*big.Int{big.NewInt(7)})
	require.NoError(t, err)
	require.Equal(t, 1, v.Len())
}

func TestDigestDistinguishesMasks(t *testing.T) {
	testlog.Start(t)
	require.Equal(t, masktest.Object().Digest(), masktest.ObjectWith(1, 2, 3, 4).Digest())
	require.NotEqual(t, masktest.Object().Digest(), masktest.ObjectWith(4, 3, 2, 1).Digest())
}
