package mask

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/danmuck/petctl/internal/codec"
)

// ConfigLength is the encoded size of a MaskConfig.
const ConfigLength = 4

// GroupType selects the finite group masked numbers live in.
type GroupType uint8

const (
	GroupPrime   GroupType = 0
	GroupPower2  GroupType = 1
	GroupInteger GroupType = 2
)

// DataType is the numeric type of the unmasked model weights.
type DataType uint8

const (
	DataF32 DataType = 0
	DataF64 DataType = 1
	DataI32 DataType = 2
	DataI64 DataType = 3
)

// BoundType bounds the absolute value of model weights.
type BoundType uint8

const (
	Bound0   BoundType = 0
	Bound2   BoundType = 2
	Bound4   BoundType = 4
	Bound6   BoundType = 6
	BoundMax BoundType = 255
)

// ModelType bounds the number of models aggregated in one round (10^n).
type ModelType uint8

const (
	Model3  ModelType = 3
	Model6  ModelType = 6
	Model9  ModelType = 9
	Model12 ModelType = 12
)

// Config describes the group a mask's numbers are drawn from.
type Config struct {
	GroupType GroupType
	DataType  DataType
	BoundType BoundType
	ModelType ModelType
}

var orders sync.Map // Config -> *big.Int

func (c Config) Validate() error {
	switch c.GroupType {
	case GroupPrime, GroupPower2, GroupInteger:
	default:
		return fmt.Errorf("invalid group type %d", c.GroupType)
	}
	switch c.DataType {
	case DataF32, DataF64, DataI32, DataI64:
	default:
		return fmt.Errorf("invalid data type %d", c.DataType)
	}
	switch c.BoundType {
	case Bound0, Bound2, Bound4, Bound6, BoundMax:
	default:
		return fmt.Errorf("invalid bound type %d", c.BoundType)
	}
	switch c.ModelType {
	case Model3, Model6, Model9, Model12:
	default:
		return fmt.Errorf("invalid model type %d", c.ModelType)
	}
	return nil
}

// Order returns the group order. Every masked number is strictly below it.
// The config must be valid.
func (c Config) Order() *big.Int {
	if v, ok := orders.Load(c); ok {
		return new(big.Int).Set(v.(*big.Int))
	}
	order := c.computeOrder()
	orders.Store(c, order)
	return new(big.Int).Set(order)
}

// BytesPerNumber is the fixed width of one encoded number.
func (c Config) BytesPerNumber() int {
	return (c.Order().BitLen() + 7) / 8
}

// ToBytes writes the four config bytes into buf.
func (c Config) ToBytes(buf []byte) {
	buf[0] = byte(c.GroupType)
	buf[1] = byte(c.DataType)
	buf[2] = byte(c.BoundType)
	buf[3] = byte(c.ModelType)
}

// ConfigFromBytes parses and validates four config bytes.
func ConfigFromBytes(b []byte) (Config, error) {
	if err := codec.CheckMinLength(len(b), ConfigLength); err != nil {
		return Config{}, err
	}
	c := Config{
		GroupType: GroupType(b[0]),
		DataType:  DataType(b[1]),
		BoundType: BoundType(b[2]),
		ModelType: ModelType(b[3]),
	}
	if err := c.Validate(); err != nil {
		return Config{}, codec.Context(codec.ErrInvalidValue, err.Error())
	}
	return c, nil
}

// The order covers 2 * bound * scale * models distinct values so a full
// round of shifted, scaled weights can be summed without wrapping.
func (c Config) computeOrder() *big.Int {
	n := new(big.Int).Mul(c.bound(), c.scale())
	n.Mul(n, pow10(int(c.ModelType)))
	n.Lsh(n, 1)
	n.Add(n, big.NewInt(1))

	switch c.GroupType {
	case GroupPower2:
		if n.BitLen() > 0 && new(big.Int).Lsh(big.NewInt(1), uint(n.BitLen()-1)).Cmp(n) == 0 {
			return n
		}
		return new(big.Int).Lsh(big.NewInt(1), uint(n.BitLen()))
	case GroupPrime:
		return nextPrime(n)
	default:
		return n
	}
}

func (c Config) scale() *big.Int {
	switch c.DataType {
	case DataF32:
		return pow10(10)
	case DataF64:
		return pow10(20)
	default:
		return big.NewInt(1)
	}
}

func (c Config) bound() *big.Int {
	switch c.BoundType {
	case Bound0:
		return big.NewInt(1)
	case Bound2:
		return pow10(2)
	case Bound4:
		return pow10(4)
	case Bound6:
		return pow10(6)
	}
	switch c.DataType {
	case DataF32:
		return new(big.Int).Lsh(big.NewInt(1), 128)
	case DataF64:
		return new(big.Int).Lsh(big.NewInt(1), 1024)
	case DataI32:
		return new(big.Int).Lsh(big.NewInt(1), 31)
	default:
		return new(big.Int).Lsh(big.NewInt(1), 63)
	}
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func nextPrime(n *big.Int) *big.Int {
	p := new(big.Int).Set(n)
	if p.Bit(0) == 0 {
		p.Add(p, big.NewInt(1))
	}
	two := big.NewInt(2)
	for !p.ProbablyPrime(20) {
		p.Add(p, two)
	}
	return p
}
