package service

import (
	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/observability"
	"github.com/rs/zerolog/log"
)

// StateMachine is the protocol the driver advances. It is only ever called
// from the driver goroutine.
type StateMachine interface {
	HandleMessage(raw []byte) error
	NextEvent() (coordinator.Event, bool)
	TryPhaseTransition()
	Reset()
}

// Options configures a Service.
type Options struct {
	// Rounds receives completed rounds. Optional.
	Rounds RoundRecorder
}

// Service owns the state machine and the round snapshot.
type Service struct {
	protocol StateMachine
	data     *Data
	events   <-chan Event
}

// New builds a service around protocol and returns the first handle to it.
func New(protocol StateMachine, opts Options) (*Service, *Handle) {
	in := newInputs()
	s := &Service{
		protocol: protocol,
		data:     NewData(opts.Rounds),
		events:   in.merge(),
	}
	return s, newHandle(in)
}

// Run processes events one at a time until every handle is closed.
// Processing errors never stop it.
func (s *Service) Run() {
	log.Info().Msg("service: running")
	for ev := range s.events {
		s.dispatch(ev)
		s.processProtocolEvents()
	}
	log.Info().Msg("service: event stream closed")
}

func (s *Service) dispatch(ev Event) {
	observability.RecordServiceEvent(ev.Kind())
	switch ev := ev.(type) {
	case MessageEvent:
		// A bad message is the sender's problem, not the round's.
		if err := s.protocol.HandleMessage(ev.Data); err != nil {
			observability.RecordRejectedMessage()
			log.Debug().Err(err).Int("bytes", len(ev.Data)).Msg("service: message rejected")
		}
	case RoundParametersRequest:
		// Polling for parameters is what moves an idle protocol forward.
		s.protocol.TryPhaseTransition()
		s.processProtocolEvents()
		respond(ev.reply, s.data.RoundParameters())
	case SumDictRequest:
		respond(ev.reply, s.data.SumDict())
	case ScalarRequest:
		scalar, ok := s.data.Scalar()
		respond(ev.reply, ScalarReply{Scalar: scalar, Ok: ok})
	case SeedDictRequest:
		dict, err := s.data.SeedDict(ev.Key)
		respond(ev.reply, SeedDictReply{Dict: dict, Err: err})
	case LengthRequest:
		length, ok := s.data.Length()
		respond(ev.reply, LengthReply{Length: length, Ok: ok})
	default:
		log.Warn().Str("kind", ev.Kind()).Msg("service: unknown event")
	}
}

// processProtocolEvents drains pending protocol events into the snapshot.
// A failed update abandons the round; draining continues with whatever the
// reset queued.
func (s *Service) processProtocolEvents() {
	for {
		ev, ok := s.protocol.NextEvent()
		if !ok {
			return
		}
		if err := s.data.Update(ev); err != nil {
			log.Error().Err(err).Str("event", coordinator.EventKind(ev)).Msg("service: failed to apply protocol event, resetting round")
			observability.RecordRoundReset()
			s.protocol.Reset()
		}
	}
}
