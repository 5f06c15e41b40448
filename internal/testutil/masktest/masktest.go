// Package masktest provides canonical mask fixtures with their exact encodings.
package masktest

import (
	"math/big"

	"github.com/danmuck/petctl/internal/mask"
)

// Config is an integer group over f32 weights bounded by 1 for up to 10^3
// models. Its order 2*10^13+1 needs 45 bits, so every number is 6 bytes wide.
func Config() mask.Config {
	return mask.Config{
		GroupType: mask.GroupInteger,
		DataType:  mask.DataF32,
		BoundType: mask.Bound0,
		ModelType: mask.Model3,
	}
}

// Object returns the canonical mask object: numbers 1..4 and unit 1.
func Object() mask.Object {
	cfg := Config()
	return mask.Object{
		Vect: mask.Vect{
			Config: cfg,
			Data:   []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4)},
		},
		Unit: mask.Unit{Config: cfg, Data: big.NewInt(1)},
	}
}

// VectBytes is the encoding of Object().Vect (32 bytes).
func VectBytes() []byte {
	return []byte{
		2, 0, 0, 3, // config
		0, 0, 0, 4, // count
		1, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0,
		3, 0, 0, 0, 0, 0,
		4, 0, 0, 0, 0, 0,
	}
}

// UnitBytes is the encoding of Object().Unit (10 bytes).
func UnitBytes() []byte {
	return []byte{
		2, 0, 0, 3, // config
		1, 0, 0, 0, 0, 0,
	}
}

// Bytes is the encoding of Object() (42 bytes).
func Bytes() []byte {
	out := VectBytes()
	return append(out, UnitBytes()...)
}

// ObjectWith returns a mask object whose vector holds the given values.
func ObjectWith(values ...int64) mask.Object {
	obj := Object()
	data := make([]*big.Int, 0, len(values))
	for _, v := range values {
		data = append(data, big.NewInt(v))
	}
	obj.Vect.Data = data
	return obj
}
