package store

import (
	"path/filepath"
	"testing"

	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id uint64) coordinator.RoundRecord {
	r := coordinator.RoundRecord{
		RoundID:     id,
		Sums:        3,
		Updates:     7,
		Sum2s:       2,
		MaskVotes:   2,
		ModelLength: 128,
		CompletedAt: 1700000000 + int64(id),
	}
	r.Seed[0] = byte(id)
	r.MaskDigest[31] = 0xee
	return r
}

func TestRoundStorePutGet(t *testing.T) {
	testlog.Start(t)
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetRound(1)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.LatestRound()
	require.ErrorIs(t, err, ErrNotFound)

	for _, id := range []uint64{2, 1, 300} {
		require.NoError(t, s.PutRound(sampleRecord(id)))
	}
	got, err := s.GetRound(2)
	require.NoError(t, err)
	require.Equal(t, sampleRecord(2), got)

	latest, err := s.LatestRound()
	require.NoError(t, err)
	require.Equal(t, uint64(300), latest.RoundID)
}

func TestRoundStoreReopen(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "rounds")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutRound(sampleRecord(9)))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.PutRound(sampleRecord(10)), ErrClosed)

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetRound(9)
	require.NoError(t, err)
	require.Equal(t, sampleRecord(9), got)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	testlog.Start(t)
	_, err := Open("")
	require.Error(t, err)
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	_, err := decodeRecord([]byte{1, 2})
	require.Error(t, err)
}
