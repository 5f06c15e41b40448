package service

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/observability"
)

var (
	ErrNoSeedDict            = errors.New("service: seed dictionary not available")
	ErrUnknownSumParticipant = errors.New("service: unknown sum participant")
	ErrInvalidEvent          = errors.New("service: invalid protocol event")
)

// RoundRecorder persists completed rounds.
type RoundRecorder interface {
	PutRound(coordinator.RoundRecord) error
}

// Data is the round snapshot queries are answered from. Published
// dictionaries are replaced by events, never mutated in place, so answers
// may share them with callers.
type Data struct {
	phase     coordinator.Phase
	params    coordinator.RoundParameters
	sumDict   coordinator.SumDict
	seedDict  coordinator.SeedDict
	scalar    float64
	hasScalar bool
	length    int
	hasLength bool
	rounds    RoundRecorder
}

// NewData returns an empty snapshot. rounds may be nil.
func NewData(rounds RoundRecorder) *Data {
	return &Data{rounds: rounds}
}

func (d *Data) Phase() coordinator.Phase {
	return d.phase
}

func (d *Data) RoundParameters() coordinator.RoundParameters {
	return d.params
}

func (d *Data) SumDict() coordinator.SumDict {
	return d.sumDict
}

func (d *Data) Scalar() (float64, bool) {
	return d.scalar, d.hasScalar
}

func (d *Data) Length() (int, bool) {
	return d.length, d.hasLength
}

func (d *Data) SeedDict(pk crypto.PublicKey) (coordinator.UpdateSeedDict, error) {
	if d.seedDict == nil {
		return nil, ErrNoSeedDict
	}
	dict, ok := d.seedDict[pk]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSumParticipant, pk)
	}
	return dict, nil
}

// Update applies one protocol event to the snapshot. An error leaves the
// snapshot unchanged.
func (d *Data) Update(ev coordinator.Event) error {
	switch ev := ev.(type) {
	case coordinator.PhaseEvent:
		d.phase = ev.Phase
		observability.RecordPhase(int(ev.Phase))
	case coordinator.RoundParametersEvent:
		d.params = ev.Params
	case coordinator.SumDictEvent:
		d.sumDict = ev.Dict
	case coordinator.SeedDictEvent:
		d.seedDict = ev.Dict
	case coordinator.ScalarEvent:
		if ev.Valid && (math.IsNaN(ev.Scalar) || math.IsInf(ev.Scalar, 0) || ev.Scalar <= 0) {
			return fmt.Errorf("%w: scalar %v", ErrInvalidEvent, ev.Scalar)
		}
		d.scalar, d.hasScalar = ev.Scalar, ev.Valid
	case coordinator.MaskLengthEvent:
		if ev.Valid && ev.Length < 0 {
			return fmt.Errorf("%w: mask length %d", ErrInvalidEvent, ev.Length)
		}
		d.length, d.hasLength = ev.Length, ev.Valid
	case coordinator.RoundCompletedEvent:
		if d.rounds != nil {
			if err := d.rounds.PutRound(ev.Record); err != nil {
				return fmt.Errorf("service: persist round %d: %w", ev.Record.RoundID, err)
			}
		}
		observability.RecordRoundCompleted()
	default:
		return fmt.Errorf("%w: %T", ErrInvalidEvent, ev)
	}
	return nil
}
