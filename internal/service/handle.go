package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/crypto"
)

var ErrHandleClosed = errors.New("service: handle closed")

type handleState struct {
	mu     sync.RWMutex
	refs   int
	closed bool
	in     inputs
}

// Handle submits messages and queries to a running Service. Clones share the
// same stream; the stream closes when the last clone is closed.
type Handle struct {
	state  *handleState
	closed atomic.Bool
}

func newHandle(in inputs) *Handle {
	return &Handle{state: &handleState{refs: 1, in: in}}
}

// Clone returns a new handle on the same stream that must be closed separately.
// Cloning a closed handle yields a closed handle.
func (h *Handle) Clone() *Handle {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	clone := &Handle{state: h.state}
	if h.closed.Load() || h.state.closed {
		clone.closed.Store(true)
		return clone
	}
	h.state.refs++
	return clone
}

// Close releases this handle. Closing twice is a no-op.
func (h *Handle) Close() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.refs--
	if h.state.refs == 0 && !h.state.closed {
		h.state.closed = true
		h.state.in.close()
	}
}

func send[T any](ctx context.Context, h *Handle, ch chan<- T, v T) error {
	if h.closed.Load() {
		return ErrHandleClosed
	}
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	if h.state.closed {
		return ErrHandleClosed
	}
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func receive[T any](ctx context.Context, ch <-chan T) (T, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// SendMessage queues an encoded message. A nil error means the driver took
// it, not that the message was valid.
func (h *Handle) SendMessage(ctx context.Context, data []byte) error {
	return send(ctx, h, h.state.in.messages, MessageEvent{Data: data})
}

// RoundParameters nudges the protocol toward its next phase and returns the
// current round parameters.
func (h *Handle) RoundParameters(ctx context.Context) (coordinator.RoundParameters, error) {
	reply := make(chan coordinator.RoundParameters, 1)
	if err := send(ctx, h, h.state.in.params, RoundParametersRequest{reply: reply}); err != nil {
		return coordinator.RoundParameters{}, err
	}
	return receive(ctx, reply)
}

// SumDict returns the published sum dictionary, or nil outside the update phase.
func (h *Handle) SumDict(ctx context.Context) (coordinator.SumDict, error) {
	reply := make(chan coordinator.SumDict, 1)
	if err := send(ctx, h, h.state.in.sumDict, SumDictRequest{reply: reply}); err != nil {
		return nil, err
	}
	return receive(ctx, reply)
}

func (h *Handle) Scalar(ctx context.Context) (float64, bool, error) {
	reply := make(chan ScalarReply, 1)
	if err := send(ctx, h, h.state.in.scalar, ScalarRequest{reply: reply}); err != nil {
		return 0, false, err
	}
	r, err := receive(ctx, reply)
	return r.Scalar, r.Ok, err
}

// SeedDict returns the seeds update participants sealed for the sum participant pk.
func (h *Handle) SeedDict(ctx context.Context, pk crypto.PublicKey) (coordinator.UpdateSeedDict, error) {
	reply := make(chan SeedDictReply, 1)
	if err := send(ctx, h, h.state.in.seedDict, SeedDictRequest{Key: pk, reply: reply}); err != nil {
		return nil, err
	}
	r, err := receive(ctx, reply)
	if err != nil {
		return nil, err
	}
	return r.Dict, r.Err
}

// Length returns the model length of the current round.
func (h *Handle) Length(ctx context.Context) (int, bool, error) {
	reply := make(chan LengthReply, 1)
	if err := send(ctx, h, h.state.in.length, LengthRequest{reply: reply}); err != nil {
		return 0, false, err
	}
	r, err := receive(ctx, reply)
	return r.Length, r.Ok, err
}
