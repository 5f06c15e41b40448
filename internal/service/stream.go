package service

import (
	"golang.org/x/sync/errgroup"
)

// inputs are the producer side of the event stream: one channel for inbound
// messages and one per query kind.
type inputs struct {
	messages chan MessageEvent
	params   chan RoundParametersRequest
	sumDict  chan SumDictRequest
	scalar   chan ScalarRequest
	seedDict chan SeedDictRequest
	length   chan LengthRequest
}

func newInputs() inputs {
	return inputs{
		messages: make(chan MessageEvent),
		params:   make(chan RoundParametersRequest),
		sumDict:  make(chan SumDictRequest),
		scalar:   make(chan ScalarRequest),
		seedDict: make(chan SeedDictRequest),
		length:   make(chan LengthRequest),
	}
}

func (in inputs) close() {
	close(in.messages)
	close(in.params)
	close(in.sumDict)
	close(in.scalar)
	close(in.seedDict)
	close(in.length)
}

// merge fans every input into one stream. Each input keeps its own order;
// inputs interleave by arrival. The stream closes once every input is closed.
func (in inputs) merge() <-chan Event {
	out := make(chan Event)
	var g errgroup.Group
	g.Go(func() error { return forward[MessageEvent](in.messages, out) })
	g.Go(func() error { return forward[RoundParametersRequest](in.params, out) })
	g.Go(func() error { return forward[SumDictRequest](in.sumDict, out) })
	g.Go(func() error { return forward[ScalarRequest](in.scalar, out) })
	g.Go(func() error { return forward[SeedDictRequest](in.seedDict, out) })
	g.Go(func() error { return forward[LengthRequest](in.length, out) })
	go func() {
		_ = g.Wait()
		close(out)
	}()
	return out
}

func forward[T Event](in <-chan T, out chan<- Event) error {
	for ev := range in {
		out <- ev
	}
	return nil
}
