package coordinator

import (
	"errors"
	"fmt"
	"math"

	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/mask"
)

var ErrInvalidSettings = errors.New("coordinator: invalid settings")

// Settings configures round selection and thresholds.
type Settings struct {
	// Sum and Update are the fractions of participants selected per task.
	Sum    float64
	Update float64

	MinSum    int
	MinUpdate int
	MinSum2   int

	Mask mask.Config

	// LastRound is the highest round id already used, typically the latest
	// round on disk. The first round started is LastRound+1.
	LastRound uint64

	// Keys is the coordinator identity. A zero value is replaced by a fresh key pair.
	Keys crypto.SigningKeyPair
}

func DefaultSettings() Settings {
	return Settings{
		Sum:       0.01,
		Update:    0.1,
		MinSum:    1,
		MinUpdate: 3,
		MinSum2:   1,
		Mask: mask.Config{
			GroupType: mask.GroupPrime,
			DataType:  mask.DataF32,
			BoundType: mask.Bound0,
			ModelType: mask.Model3,
		},
	}
}

func (s Settings) Validate() error {
	if !(s.Sum > 0 && s.Sum < 1) {
		return fmt.Errorf("%w: sum probability %v not in (0, 1)", ErrInvalidSettings, s.Sum)
	}
	if !(s.Update > 0 && s.Update < 1) {
		return fmt.Errorf("%w: update probability %v not in (0, 1)", ErrInvalidSettings, s.Update)
	}
	if s.MinSum < 1 || s.MinUpdate < 1 || s.MinSum2 < 1 {
		return fmt.Errorf("%w: participant minimums must be positive", ErrInvalidSettings)
	}
	if s.MinSum2 > s.MinSum {
		return fmt.Errorf("%w: min_sum2 %d exceeds min_sum %d", ErrInvalidSettings, s.MinSum2, s.MinSum)
	}
	if s.LastRound == math.MaxUint64 {
		return fmt.Errorf("%w: round ids exhausted", ErrInvalidSettings)
	}
	if err := s.Mask.Validate(); err != nil {
		return fmt.Errorf("%w: mask: %v", ErrInvalidSettings, err)
	}
	return nil
}
