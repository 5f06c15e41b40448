package mask

import (
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

var ErrNumberOutOfRange = errors.New("mask: number not below group order")

// Vect is a vector of masked numbers sharing one config.
type Vect struct {
	Config Config
	Data   []*big.Int
}

// Unit is the masked scalar that accompanies a masked model.
type Unit struct {
	Config Config
	Data   *big.Int
}

// Object is a masked model together with its masked scalar.
type Object struct {
	Vect Vect
	Unit Unit
}

func NewVect(cfg Config, data []*big.Int) (Vect, error) {
	v := Vect{Config: cfg, Data: data}
	if err := v.Validate(); err != nil {
		return Vect{}, err
	}
	return v, nil
}

func NewUnit(cfg Config, data *big.Int) (Unit, error) {
	u := Unit{Config: cfg, Data: data}
	if err := u.Validate(); err != nil {
		return Unit{}, err
	}
	return u, nil
}

func NewObject(vect Vect, unit Unit) Object {
	return Object{Vect: vect, Unit: unit}
}

// Validate checks the config and that every number lies in [0, order).
func (v Vect) Validate() error {
	if err := v.Config.Validate(); err != nil {
		return err
	}
	order := v.Config.Order()
	for i, n := range v.Data {
		if err := checkNumber(n, order); err != nil {
			return fmt.Errorf("number %d: %w", i, err)
		}
	}
	return nil
}

func (u Unit) Validate() error {
	if err := u.Config.Validate(); err != nil {
		return err
	}
	return checkNumber(u.Data, u.Config.Order())
}

func (o Object) Validate() error {
	if err := o.Vect.Validate(); err != nil {
		return fmt.Errorf("vect: %w", err)
	}
	if err := o.Unit.Validate(); err != nil {
		return fmt.Errorf("unit: %w", err)
	}
	return nil
}

func (v Vect) Len() int {
	return len(v.Data)
}

func (v Vect) Equal(other Vect) bool {
	if v.Config != other.Config || len(v.Data) != len(other.Data) {
		return false
	}
	for i := range v.Data {
		if v.Data[i].Cmp(other.Data[i]) != 0 {
			return false
		}
	}
	return true
}

func (u Unit) Equal(other Unit) bool {
	return u.Config == other.Config && u.Data.Cmp(other.Data) == 0
}

func (o Object) Equal(other Object) bool {
	return o.Vect.Equal(other.Vect) && o.Unit.Equal(other.Unit)
}

// Digest identifies a mask object by the hash of its encoding.
func (o Object) Digest() [32]byte {
	buf := make([]byte, o.BufferLength())
	o.ToBytes(buf)
	return sha3.Sum256(buf)
}

func checkNumber(n *big.Int, order *big.Int) error {
	if n == nil || n.Sign() < 0 || n.Cmp(order) >= 0 {
		return ErrNumberOutOfRange
	}
	return nil
}
