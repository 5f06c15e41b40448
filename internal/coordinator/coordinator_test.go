package coordinator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/message"
	"github.com/danmuck/petctl/internal/testutil/masktest"
	"github.com/danmuck/petctl/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

func testSettings() Settings {
	s := DefaultSettings()
	s.Sum = 0.5
	s.Update = 0.9
	s.MinSum = 2
	s.MinUpdate = 2
	s.MinSum2 = 2
	s.Mask = masktest.Config()
	return s
}

type participant struct {
	keys   crypto.SigningKeyPair
	sumSig crypto.Signature
	updSig crypto.Signature
}

// newParticipant draws identities until one is selected for the wanted task.
func newParticipant(t *testing.T, c *Coordinator, sum bool) participant {
	t.Helper()
	seed := c.RoundParameters().Seed
	for i := 0; i < 1000; i++ {
		kp, err := crypto.GenerateSigningKeyPair(nil)
		require.NoError(t, err)
		p := participant{
			keys:   kp,
			sumSig: kp.Secret.Sign(crypto.SumTaskMessage(seed)),
			updSig: kp.Secret.Sign(crypto.UpdateTaskMessage(seed)),
		}
		isSum := p.sumSig.IsEligible(c.settings.Sum)
		isUpdate := !isSum && p.updSig.IsEligible(c.settings.Update)
		if (sum && isSum) || (!sum && isUpdate) {
			return p
		}
	}
	t.Fatalf("no eligible participant found (sum=%v)", sum)
	return participant{}
}

func (p participant) seal(c *Coordinator, payload message.Payload) []byte {
	return message.Message{
		ParticipantPK: p.keys.Public,
		CoordinatorPK: c.PublicKey(),
		Payload:       payload,
	}.Seal(p.keys.Secret)
}

func (p participant) sumMessage(c *Coordinator) []byte {
	return p.seal(c, message.Sum{SumSignature: p.sumSig, EphmPK: p.keys.Public})
}

func (p participant) updateMessage(c *Coordinator, sums []participant, values ...int64) []byte {
	dict := message.LocalSeedDict{}
	for i, s := range sums {
		var seed crypto.EncryptedMaskSeed
		seed[0] = byte(i + 1)
		copy(seed[1:], p.keys.Public[:])
		dict[s.keys.Public] = seed
	}
	return p.seal(c, message.Update{
		SumSignature:    p.sumSig,
		UpdateSignature: p.updSig,
		MaskedModel:     masktest.ObjectWith(values...),
		LocalSeedDict:   dict,
	})
}

func (p participant) sum2Message(c *Coordinator, values ...int64) []byte {
	return p.seal(c, message.Sum2{SumSignature: p.sumSig, Mask: masktest.ObjectWith(values...)})
}

func drain(c *Coordinator) []Event {
	var out []Event
	for {
		ev, ok := c.NextEvent()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func newStarted(t *testing.T) *Coordinator {
	t.Helper()
	c, err := New(testSettings())
	require.NoError(t, err)
	c.TryPhaseTransition()
	require.Equal(t, PhaseSum, c.Phase())
	drain(c)
	return c
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	testlog.Start(t)
	cases := map[string]func(*Settings){
		"sum zero":       func(s *Settings) { s.Sum = 0 },
		"update one":     func(s *Settings) { s.Update = 1 },
		"min sum":        func(s *Settings) { s.MinSum = 0 },
		"min sum2 > sum": func(s *Settings) { s.MinSum2 = s.MinSum + 1 },
		"mask":           func(s *Settings) { s.Mask.ModelType = 4 },
	}
	for name, mutate := range cases {
		s := testSettings()
		mutate(&s)
		_, err := New(s)
		require.ErrorIs(t, err, ErrInvalidSettings, name)
	}
}

func TestTryPhaseTransitionStartsRound(t *testing.T) {
	testlog.Start(t)
	c, err := New(testSettings())
	require.NoError(t, err)
	require.Equal(t, PhaseIdle, c.Phase())
	require.Empty(t, drain(c))

	c.TryPhaseTransition()
	events := drain(c)
	require.Len(t, events, 2)
	require.Equal(t, PhaseEvent{Phase: PhaseSum}, events[0])
	params := events[1].(RoundParametersEvent).Params
	require.Equal(t, uint64(1), params.RoundID)
	require.NotEqual(t, crypto.RoundSeed{}, params.Seed)
	require.Equal(t, c.PublicKey(), params.CoordinatorPK)

	// Below threshold the nudge is a no-op.
	c.TryPhaseTransition()
	require.Empty(t, drain(c))
	require.Equal(t, PhaseSum, c.Phase())
}

func TestFullRound(t *testing.T) {
	testlog.Start(t)
	c := newStarted(t)
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	sums := []participant{newParticipant(t, c, true), newParticipant(t, c, true)}
	require.NoError(t, c.HandleMessage(sums[0].sumMessage(c)))
	require.Empty(t, drain(c))
	require.NoError(t, c.HandleMessage(sums[1].sumMessage(c)))
	require.Equal(t, PhaseUpdate, c.Phase())

	events := drain(c)
	require.Len(t, events, 2)
	require.Equal(t, PhaseEvent{Phase: PhaseUpdate}, events[0])
	sumDict := events[1].(SumDictEvent).Dict
	require.Len(t, sumDict, 2)
	require.Equal(t, sums[0].keys.Public, sumDict[sums[0].keys.Public])

	updates := []participant{newParticipant(t, c, false), newParticipant(t, c, false)}
	require.NoError(t, c.HandleMessage(updates[0].updateMessage(c, sums, 1, 2, 3)))
	require.NoError(t, c.HandleMessage(updates[1].updateMessage(c, sums, 4, 5, 6)))
	require.Equal(t, PhaseSum2, c.Phase())

	events = drain(c)
	require.Len(t, events, 4)
	require.Equal(t, PhaseEvent{Phase: PhaseSum2}, events[0])
	seedDict := events[1].(SeedDictEvent).Dict
	require.Len(t, seedDict, 2)
	require.Len(t, seedDict[sums[0].keys.Public], 2)
	require.Equal(t, byte(1), seedDict[sums[0].keys.Public][updates[1].keys.Public][0])
	require.Equal(t, ScalarEvent{Scalar: 0.5, Valid: true}, events[2])
	require.Equal(t, MaskLengthEvent{Length: 3, Valid: true}, events[3])

	require.NoError(t, c.HandleMessage(sums[0].sum2Message(c, 5, 7, 9)))
	require.NoError(t, c.HandleMessage(sums[1].sum2Message(c, 5, 7, 9)))
	require.Equal(t, PhaseIdle, c.Phase())

	events = drain(c)
	require.Equal(t, PhaseEvent{Phase: PhaseUnmask}, events[0])
	record := events[1].(RoundCompletedEvent).Record
	require.Equal(t, uint64(1), record.RoundID)
	require.Equal(t, 2, record.Sums)
	require.Equal(t, 2, record.Updates)
	require.Equal(t, 2, record.Sum2s)
	require.Equal(t, 2, record.MaskVotes)
	require.Equal(t, 3, record.ModelLength)
	require.Equal(t, masktest.ObjectWith(5, 7, 9).Digest(), record.MaskDigest)
	require.Equal(t, int64(1700000000), record.CompletedAt)
	require.Equal(t, PhaseEvent{Phase: PhaseIdle}, events[2])
	require.Contains(t, events, Event(SumDictEvent{}))
	require.Contains(t, events, Event(ScalarEvent{}))

	c.TryPhaseTransition()
	require.Equal(t, uint64(2), c.RoundParameters().RoundID)
}

func TestHandleMessageRejections(t *testing.T) {
	testlog.Start(t)
	c, err := New(testSettings())
	require.NoError(t, err)

	p := newParticipant(t, c, true)
	err = c.HandleMessage(p.sumMessage(c))
	require.ErrorIs(t, err, ErrUnexpectedMessage)

	c.TryPhaseTransition()
	drain(c)
	p = newParticipant(t, c, true)

	err = c.HandleMessage([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidMessage)

	raw := p.sumMessage(c)
	raw[len(raw)-1] ^= 0xff
	require.ErrorIs(t, c.HandleMessage(raw), ErrInvalidSignature)

	other, err := crypto.GenerateSigningKeyPair(nil)
	require.NoError(t, err)
	misrouted := message.Message{
		ParticipantPK: p.keys.Public,
		CoordinatorPK: other.Public,
		Payload:       message.Sum{SumSignature: p.sumSig, EphmPK: p.keys.Public},
	}.Seal(p.keys.Secret)
	require.ErrorIs(t, c.HandleMessage(misrouted), ErrWrongCoordinator)

	forged := p
	forged.sumSig[0] ^= 0xff
	require.ErrorIs(t, c.HandleMessage(forged.sumMessage(c)), ErrInvalidTaskSignature)

	u := newParticipant(t, c, false)
	require.ErrorIs(t, c.HandleMessage(u.sumMessage(c)), ErrNotEligible)

	require.NoError(t, c.HandleMessage(p.sumMessage(c)))
	require.ErrorIs(t, c.HandleMessage(p.sumMessage(c)), ErrDuplicateParticipant)
	require.Equal(t, PhaseSum, c.Phase())
}

func TestUpdateRejectsMismatchedInputs(t *testing.T) {
	testlog.Start(t)
	c := newStarted(t)
	sums := []participant{newParticipant(t, c, true), newParticipant(t, c, true)}
	require.NoError(t, c.HandleMessage(sums[0].sumMessage(c)))
	require.NoError(t, c.HandleMessage(sums[1].sumMessage(c)))
	drain(c)

	u := newParticipant(t, c, false)
	err := c.HandleMessage(u.updateMessage(c, sums[:1], 1, 2))
	require.ErrorIs(t, err, ErrInvalidSeedDict)

	require.NoError(t, c.HandleMessage(u.updateMessage(c, sums, 1, 2)))
	v := newParticipant(t, c, false)
	err = c.HandleMessage(v.updateMessage(c, sums, 1, 2, 3))
	require.ErrorIs(t, err, ErrMaskMismatch)
	require.ErrorIs(t, c.HandleMessage(u.updateMessage(c, sums, 1, 2)), ErrDuplicateParticipant)

	err = c.HandleMessage(sums[0].sum2Message(c, 1, 2))
	require.True(t, errors.Is(err, ErrUnexpectedMessage))
	require.Equal(t, PhaseUpdate, c.Phase())
}

func TestResetReturnsToIdle(t *testing.T) {
	testlog.Start(t)
	c := newStarted(t)
	p := newParticipant(t, c, true)
	require.NoError(t, c.HandleMessage(p.sumMessage(c)))
	c.emit(ScalarEvent{Scalar: 1, Valid: true})

	c.Reset()
	require.Equal(t, PhaseIdle, c.Phase())
	events := drain(c)
	require.Equal(t, PhaseEvent{Phase: PhaseIdle}, events[0])
	require.NotContains(t, events, Event(ScalarEvent{Scalar: 1, Valid: true}))
	require.Contains(t, events, Event(SeedDictEvent{}))
	require.Contains(t, events, Event(MaskLengthEvent{}))
	require.Equal(t, crypto.RoundSeed{}, c.RoundParameters().Seed)

	c.TryPhaseTransition()
	require.Equal(t, uint64(2), c.RoundParameters().RoundID)
	require.NoError(t, c.HandleMessage(newParticipant(t, c, true).sumMessage(c)))
}

func TestLastRoundContinuesNumbering(t *testing.T) {
	testlog.Start(t)
	s := testSettings()
	s.LastRound = 41
	c, err := New(s)
	require.NoError(t, err)
	require.Equal(t, uint64(41), c.RoundParameters().RoundID)

	c.TryPhaseTransition()
	require.Equal(t, uint64(42), c.RoundParameters().RoundID)
	c.Reset()
	c.TryPhaseTransition()
	require.Equal(t, uint64(43), c.RoundParameters().RoundID)

	s.LastRound = math.MaxUint64
	_, err = New(s)
	require.ErrorIs(t, err, ErrInvalidSettings)
}
