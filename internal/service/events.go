package service

import (
	"github.com/danmuck/petctl/internal/coordinator"
	"github.com/danmuck/petctl/internal/crypto"
)

// Event is one unit of work for the driver loop.
type Event interface {
	Kind() string
}

// MessageEvent carries one encoded participant message.
type MessageEvent struct {
	Data []byte
}

type RoundParametersRequest struct {
	reply chan<- coordinator.RoundParameters
}

type SumDictRequest struct {
	reply chan<- coordinator.SumDict
}

type ScalarRequest struct {
	reply chan<- ScalarReply
}

type SeedDictRequest struct {
	Key   crypto.PublicKey
	reply chan<- SeedDictReply
}

type LengthRequest struct {
	reply chan<- LengthReply
}

type ScalarReply struct {
	Scalar float64
	Ok     bool
}

type SeedDictReply struct {
	Dict coordinator.UpdateSeedDict
	Err  error
}

type LengthReply struct {
	Length int
	Ok     bool
}

func (MessageEvent) Kind() string { return "message" }
func (RoundParametersRequest) Kind() string { return "round_parameters" }
func (SumDictRequest) Kind() string { return "sum_dict" }
func (ScalarRequest) Kind() string { return "scalar" }
func (SeedDictRequest) Kind() string { return "seed_dict" }
func (LengthRequest) Kind() string { return "length" }

// respond delivers v if the caller is still waiting. Reply channels have room
// for exactly one value, so the send never blocks the driver.
func respond[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
