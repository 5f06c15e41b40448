package store

import (
	"fmt"

	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/crypto"
	"github.com/near/borsh-go"
)

// roundRecord is the borsh encoding of coordinator.RoundRecord.
type roundRecord struct {
	RoundID     uint64
	Seed        []byte
	Sums        uint32
	Updates     uint32
	Sum2s       uint32
	MaskVotes   uint32
	MaskDigest  []byte
	ModelLength uint32
	CompletedAt int64
}

func encodeRecord(r coordinator.RoundRecord) ([]byte, error) {
	return borsh.Serialize(roundRecord{
		RoundID:     r.RoundID,
		Seed:        r.Seed[:],
		Sums:        uint32(r.Sums),
		Updates:     uint32(r.Updates),
		Sum2s:       uint32(r.Sum2s),
		MaskVotes:   uint32(r.MaskVotes),
		MaskDigest:  r.MaskDigest[:],
		ModelLength: uint32(r.ModelLength),
		CompletedAt: r.CompletedAt,
	})
}

func decodeRecord(b []byte) (coordinator.RoundRecord, error) {
	var raw roundRecord
	if err := borsh.Deserialize(&raw, b); err != nil {
		return coordinator.RoundRecord{}, fmt.Errorf("store: decode round record: %w", err)
	}
	seed, err := crypto.RoundSeedFromSlice(raw.Seed)
	if err != nil {
		return coordinator.RoundRecord{}, fmt.Errorf("store: round seed: %w", err)
	}
	out := coordinator.RoundRecord{
		RoundID:     raw.RoundID,
		Seed:        seed,
		Sums:        int(raw.Sums),
		Updates:     int(raw.Updates),
		Sum2s:       int(raw.Sum2s),
		MaskVotes:   int(raw.MaskVotes),
		ModelLength: int(raw.ModelLength),
		CompletedAt: raw.CompletedAt,
	}
	if len(raw.MaskDigest) != len(out.MaskDigest) {
		return coordinator.RoundRecord{}, fmt.Errorf("store: mask digest length %d", len(raw.MaskDigest))
	}
	copy(out.MaskDigest[:], raw.MaskDigest)
	return out, nil
}
