package coordinator

import (
	"github.com/danmuck/petctl/internal/crypto"
)

// Event is a state change the coordinator publishes for the round snapshot.
type Event interface {
	eventKind() string
}

// RoundParameters is what participants need to compute their task signatures.
type RoundParameters struct {
	RoundID       uint64
	Seed          crypto.RoundSeed
	CoordinatorPK crypto.PublicKey
	Sum           float64
	Update        float64
}

// SumDict maps each sum participant to its ephemeral public key.
type SumDict map[crypto.PublicKey]crypto.PublicKey

// UpdateSeedDict maps update participants to the mask seed they sealed for
// one sum participant.
type UpdateSeedDict map[crypto.PublicKey]crypto.EncryptedMaskSeed

// SeedDict holds one UpdateSeedDict per sum participant.
type SeedDict map[crypto.PublicKey]UpdateSeedDict

// RoundRecord summarizes a completed round.
type RoundRecord struct {
	RoundID     uint64
	Seed        crypto.RoundSeed
	Sums        int
	Updates     int
	Sum2s       int
	MaskVotes   int
	MaskDigest  [32]byte
	ModelLength int
	CompletedAt int64
}

type PhaseEvent struct {
	Phase Phase
}

type RoundParametersEvent struct {
	Params RoundParameters
}

// SumDictEvent publishes the sum dictionary. A nil Dict clears it.
type SumDictEvent struct {
	Dict SumDict
}

// SeedDictEvent publishes the seed dictionary. A nil Dict clears it.
type SeedDictEvent struct {
	Dict SeedDict
}

// ScalarEvent publishes the aggregation scalar; Valid is false when cleared.
type ScalarEvent struct {
	Scalar float64
	Valid  bool
}

// MaskLengthEvent publishes the model length; Valid is false when cleared.
type MaskLengthEvent struct {
	Length int
	Valid  bool
}

type RoundCompletedEvent struct {
	Record RoundRecord
}

func (PhaseEvent) eventKind() string { return "phase" }
func (RoundParametersEvent) eventKind() string { return "round_parameters" }
func (SumDictEvent) eventKind() string { return "sum_dict" }
func (SeedDictEvent) eventKind() string { return "seed_dict" }
func (ScalarEvent) eventKind() string { return "scalar" }
func (MaskLengthEvent) eventKind() string { return "mask_length" }
func (RoundCompletedEvent) eventKind() string { return "round_completed" }

// EventKind names an event for logs and metrics.
func EventKind(ev Event) string {
	if ev == nil {
		return "none"
	}
	return ev.eventKind()
}
