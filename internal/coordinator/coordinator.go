package coordinator

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/petctl/internal/crypto"
	"github.com/danmuck/petctl/internal/mask"
	"github.com/danmuck/petctl/internal/message"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidMessage       = errors.New("coordinator: invalid message")
	ErrInvalidSignature     = errors.New("coordinator: invalid message signature")
	ErrWrongCoordinator     = errors.New("coordinator: message addressed to another coordinator")
	ErrUnexpectedMessage    = errors.New("coordinator: message not accepted in current phase")
	ErrInvalidTaskSignature = errors.New("coordinator: invalid task signature")
	ErrNotEligible          = errors.New("coordinator: participant not eligible")
	ErrDuplicateParticipant = errors.New("coordinator: duplicate participant")
	ErrUnknownParticipant   = errors.New("coordinator: unknown sum participant")
	ErrInvalidSeedDict      = errors.New("coordinator: local seed dictionary does not match sum dictionary")
	ErrMaskMismatch         = errors.New("coordinator: mask does not match round configuration")
)

type maskVote struct {
	mask  mask.Object
	count int
}

// Coordinator is the PET protocol state machine. It is not safe for
// concurrent use; a single driver owns it.
type Coordinator struct {
	settings Settings
	phase    Phase
	round    uint64
	seed     crypto.RoundSeed

	sumDict     SumDict
	seedDict    SeedDict
	updates     map[crypto.PublicKey]struct{}
	modelLength int
	sum2s       map[crypto.PublicKey]struct{}
	votes       map[[32]byte]*maskVote

	events []Event
	now    func() time.Time
}

// New validates settings and returns a coordinator in the idle phase.
func New(settings Settings) (*Coordinator, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if settings.Keys == (crypto.SigningKeyPair{}) {
		kp, err := crypto.GenerateSigningKeyPair(nil)
		if err != nil {
			return nil, fmt.Errorf("coordinator: generate keys: %w", err)
		}
		settings.Keys = kp
	}
	c := &Coordinator{
		settings: settings,
		round:    settings.LastRound,
		now:      time.Now,
	}
	c.clearRound()
	return c, nil
}

func (c *Coordinator) Phase() Phase {
	return c.phase
}

func (c *Coordinator) PublicKey() crypto.PublicKey {
	return c.settings.Keys.Public
}

// RoundParameters returns the parameters of the current round.
func (c *Coordinator) RoundParameters() RoundParameters {
	return RoundParameters{
		RoundID:       c.round,
		Seed:          c.seed,
		CoordinatorPK: c.settings.Keys.Public,
		Sum:           c.settings.Sum,
		Update:        c.settings.Update,
	}
}

// NextEvent pops the oldest pending event.
func (c *Coordinator) NextEvent() (Event, bool) {
	if len(c.events) == 0 {
		return nil, false
	}
	ev := c.events[0]
	c.events[0] = nil
	c.events = c.events[1:]
	return ev, true
}

func (c *Coordinator) emit(ev Event) {
	c.events = append(c.events, ev)
}

// HandleMessage authenticates, decodes and applies one encoded message.
func (c *Coordinator) HandleMessage(raw []byte) error {
	buf, err := message.NewBuffer(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if !buf.VerifySignature() {
		return ErrInvalidSignature
	}
	msg, err := message.FromBytes(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.CoordinatorPK != c.settings.Keys.Public {
		return ErrWrongCoordinator
	}

	switch payload := msg.Payload.(type) {
	case message.Sum:
		err = c.handleSum(msg.ParticipantPK, payload)
	case message.Update:
		err = c.handleUpdate(msg.ParticipantPK, payload)
	case message.Sum2:
		err = c.handleSum2(msg.ParticipantPK, payload)
	default:
		err = fmt.Errorf("%w: tag %s", ErrInvalidMessage, msg.Tag())
	}
	if err != nil {
		return err
	}
	c.advance()
	return nil
}

func (c *Coordinator) expectPhase(want Phase, tag message.Tag) error {
	if c.phase != want {
		return fmt.Errorf("%w: %s message in %s phase", ErrUnexpectedMessage, tag, c.phase)
	}
	return nil
}

func (c *Coordinator) handleSum(pk crypto.PublicKey, sum message.Sum) error {
	if err := c.expectPhase(PhaseSum, message.TagSum); err != nil {
		return err
	}
	if !pk.Verify(crypto.SumTaskMessage(c.seed), sum.SumSignature) {
		return ErrInvalidTaskSignature
	}
	if !sum.SumSignature.IsEligible(c.settings.Sum) {
		return fmt.Errorf("%w: sum task", ErrNotEligible)
	}
	if _, ok := c.sumDict[pk]; ok {
		return ErrDuplicateParticipant
	}
	c.sumDict[pk] = sum.EphmPK
	log.Debug().Uint64("round", c.round).Str("participant", pk.String()).Int("sums", len(c.sumDict)).Msg("coordinator: sum accepted")
	return nil
}

func (c *Coordinator) handleUpdate(pk crypto.PublicKey, upd message.Update) error {
	if err := c.expectPhase(PhaseUpdate, message.TagUpdate); err != nil {
		return err
	}
	if !pk.Verify(crypto.SumTaskMessage(c.seed), upd.SumSignature) ||
		!pk.Verify(crypto.UpdateTaskMessage(c.seed), upd.UpdateSignature) {
		return ErrInvalidTaskSignature
	}
	if upd.SumSignature.IsEligible(c.settings.Sum) || !upd.UpdateSignature.IsEligible(c.settings.Update) {
		return fmt.Errorf("%w: update task", ErrNotEligible)
	}
	if _, ok := c.sumDict[pk]; ok {
		return fmt.Errorf("%w: sum participant sent update", ErrNotEligible)
	}
	if _, ok := c.updates[pk]; ok {
		return ErrDuplicateParticipant
	}
	if err := c.checkMask(upd.MaskedModel); err != nil {
		return err
	}
	if len(upd.LocalSeedDict) != len(c.sumDict) {
		return ErrInvalidSeedDict
	}
	for sumPK := range upd.LocalSeedDict {
		if _, ok := c.sumDict[sumPK]; !ok {
			return ErrInvalidSeedDict
		}
	}

	if c.modelLength < 0 {
		c.modelLength = upd.MaskedModel.Vect.Len()
	}
	for sumPK, seed := range upd.LocalSeedDict {
		c.seedDict[sumPK][pk] = seed
	}
	c.updates[pk] = struct{}{}
	log.Debug().Uint64("round", c.round).Str("participant", pk.String()).Int("updates", len(c.updates)).Msg("coordinator: update accepted")
	return nil
}

func (c *Coordinator) handleSum2(pk crypto.PublicKey, sum2 message.Sum2) error {
	if err := c.expectPhase(PhaseSum2, message.TagSum2); err != nil {
		return err
	}
	if _, ok := c.sumDict[pk]; !ok {
		return ErrUnknownParticipant
	}
	if !pk.Verify(crypto.SumTaskMessage(c.seed), sum2.SumSignature) {
		return ErrInvalidTaskSignature
	}
	if _, ok := c.sum2s[pk]; ok {
		return ErrDuplicateParticipant
	}
	if err := c.checkMask(sum2.Mask); err != nil {
		return err
	}

	digest := sum2.Mask.Digest()
	vote, ok := c.votes[digest]
	if !ok {
		vote = &maskVote{mask: sum2.Mask}
		c.votes[digest] = vote
	}
	vote.count++
	c.sum2s[pk] = struct{}{}
	log.Debug().Uint64("round", c.round).Str("participant", pk.String()).Int("sum2s", len(c.sum2s)).Msg("coordinator: sum2 accepted")
	return nil
}

func (c *Coordinator) checkMask(obj mask.Object) error {
	if obj.Vect.Config != c.settings.Mask || obj.Unit.Config != c.settings.Mask {
		return fmt.Errorf("%w: config", ErrMaskMismatch)
	}
	if c.modelLength >= 0 && obj.Vect.Len() != c.modelLength {
		return fmt.Errorf("%w: length %d, want %d", ErrMaskMismatch, obj.Vect.Len(), c.modelLength)
	}
	return nil
}

// TryPhaseTransition starts a round when idle and otherwise advances only
// once the current phase's threshold is met. Repeated calls are harmless.
func (c *Coordinator) TryPhaseTransition() {
	if c.phase == PhaseIdle {
		c.startRound()
		return
	}
	c.advance()
}

func (c *Coordinator) advance() {
	switch c.phase {
	case PhaseSum:
		if len(c.sumDict) >= c.settings.MinSum {
			c.enterUpdate()
		}
	case PhaseUpdate:
		if len(c.updates) >= c.settings.MinUpdate {
			c.enterSum2()
		}
	case PhaseSum2:
		if len(c.sum2s) >= c.settings.MinSum2 {
			c.unmask()
		}
	}
}

func (c *Coordinator) setPhase(p Phase) {
	c.phase = p
	log.Info().Uint64("round", c.round).Str("phase", p.String()).Msg("coordinator: phase")
	c.emit(PhaseEvent{Phase: p})
}

func (c *Coordinator) startRound() {
	seed, err := crypto.GenerateRoundSeed()
	if err != nil {
		log.Error().Err(err).Msg("coordinator: round seed")
		return
	}
	c.clearRound()
	c.round++
	c.seed = seed
	c.setPhase(PhaseSum)
	c.emit(RoundParametersEvent{Params: c.RoundParameters()})
}

func (c *Coordinator) enterUpdate() {
	for sumPK := range c.sumDict {
		c.seedDict[sumPK] = UpdateSeedDict{}
	}
	c.setPhase(PhaseUpdate)
	c.emit(SumDictEvent{Dict: copySumDict(c.sumDict)})
}

func (c *Coordinator) enterSum2() {
	c.setPhase(PhaseSum2)
	c.emit(SeedDictEvent{Dict: copySeedDict(c.seedDict)})
	c.emit(ScalarEvent{Scalar: 1 / float64(len(c.updates)), Valid: true})
	c.emit(MaskLengthEvent{Length: c.modelLength, Valid: true})
}

// unmask settles on the mask most sum participants agree on and closes the round.
func (c *Coordinator) unmask() {
	c.setPhase(PhaseUnmask)

	var (
		best       *maskVote
		bestDigest [32]byte
	)
	for digest, vote := range c.votes {
		if best == nil || vote.count > best.count ||
			(vote.count == best.count && bytes.Compare(digest[:], bestDigest[:]) < 0) {
			best, bestDigest = vote, digest
		}
	}
	record := RoundRecord{
		RoundID:     c.round,
		Seed:        c.seed,
		Sums:        len(c.sumDict),
		Updates:     len(c.updates),
		Sum2s:       len(c.sum2s),
		MaskVotes:   best.count,
		MaskDigest:  bestDigest,
		ModelLength: c.modelLength,
		CompletedAt: c.now().Unix(),
	}
	log.Info().Uint64("round", c.round).Int("votes", best.count).Int("masks", len(c.votes)).Msg("coordinator: round completed")
	c.emit(RoundCompletedEvent{Record: record})
	c.toIdle()
}

// Reset abandons the current round and returns to idle. Pending events are dropped.
func (c *Coordinator) Reset() {
	for i := range c.events {
		c.events[i] = nil
	}
	c.events = c.events[:0]
	c.toIdle()
}

func (c *Coordinator) toIdle() {
	c.clearRound()
	c.setPhase(PhaseIdle)
	c.emit(RoundParametersEvent{Params: c.RoundParameters()})
	c.emit(SumDictEvent{})
	c.emit(SeedDictEvent{})
	c.emit(ScalarEvent{})
	c.emit(MaskLengthEvent{})
}

func (c *Coordinator) clearRound() {
	c.seed = crypto.RoundSeed{}
	c.sumDict = SumDict{}
	c.seedDict = SeedDict{}
	c.updates = map[crypto.PublicKey]struct{}{}
	c.modelLength = -1
	c.sum2s = map[crypto.PublicKey]struct{}{}
	c.votes = map[[32]byte]*maskVote{}
}

func copySumDict(in SumDict) SumDict {
	out := make(SumDict, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copySeedDict(in SeedDict) SeedDict {
	out := make(SeedDict, len(in))
	for sumPK, dict := range in {
		inner := make(UpdateSeedDict, len(dict))
		for k, v := range dict {
			inner[k] = v
		}
		out[sumPK] = inner
	}
	return out
}
