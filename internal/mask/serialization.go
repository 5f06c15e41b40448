package mask

import (
	"encoding/binary"
	"math/big"

	"github.com/danmuck/petctl/internal/codec"
)

var (
	configField = codec.Field(0, ConfigLength)
	countField  = configField.After(4)
)

// VectBuffer is a view over an encoded Vect:
// config[4] || count u32 BE || count numbers, each BytesPerNumber wide, little-endian.
type VectBuffer struct {
	inner []byte
}

// NewVectBuffer bounds-checks b as an encoded Vect.
func NewVectBuffer(b []byte) (VectBuffer, error) {
	buf := VectBuffer{inner: b}
	if err := buf.checkBufferLength(); err != nil {
		return VectBuffer{}, codec.Context(err, "not a valid mask vector buffer")
	}
	return buf, nil
}

// NewVectBufferUnchecked wraps b without bounds checks.
func NewVectBufferUnchecked(b []byte) VectBuffer {
	return VectBuffer{inner: b}
}

func (b VectBuffer) checkBufferLength() error {
	if err := codec.CheckMinLength(len(b.inner), countField.End); err != nil {
		return err
	}
	cfg, err := ConfigFromBytes(b.ConfigField())
	if err != nil {
		return codec.Context(err, "invalid config field")
	}
	need := uint64(countField.End) + uint64(b.Count())*uint64(cfg.BytesPerNumber())
	if uint64(len(b.inner)) < need {
		return codec.Contextf(codec.ErrShortBuffer, "invalid buffer length: %d < %d", len(b.inner), need)
	}
	return nil
}

func (b VectBuffer) ConfigField() []byte {
	return configField.Of(b.inner)
}

func (b VectBuffer) CountField() []byte {
	return countField.Of(b.inner)
}

// Count is the number of encoded numbers.
func (b VectBuffer) Count() uint32 {
	return binary.BigEndian.Uint32(b.CountField())
}

// Numbers returns the encoded numbers. The config field must already be valid.
func (b VectBuffer) Numbers() []byte {
	cfg, _ := ConfigFromBytes(b.ConfigField())
	end := countField.End + int(b.Count())*cfg.BytesPerNumber()
	return b.inner[countField.End:end]
}

// Len is the number of bytes the vector occupies, which may be less than the view.
func (b VectBuffer) Len() int {
	return countField.End + len(b.Numbers())
}

// UnitBuffer is a view over an encoded Unit: config[4] || one number.
type UnitBuffer struct {
	inner []byte
}

// NewUnitBuffer checks that b holds a config and one number.
func NewUnitBuffer(b []byte) (UnitBuffer, error) {
	buf := UnitBuffer{inner: b}
	if err := buf.checkBufferLength(); err != nil {
		return UnitBuffer{}, codec.Context(err, "not a valid mask unit buffer")
	}
	return buf, nil
}

// NewUnitBufferUnchecked wraps b without checking its length.
func NewUnitBufferUnchecked(b []byte) UnitBuffer {
	return UnitBuffer{inner: b}
}

func (b UnitBuffer) checkBufferLength() error {
	if err := codec.CheckMinLength(len(b.inner), configField.End); err != nil {
		return err
	}
	cfg, err := ConfigFromBytes(b.ConfigField())
	if err != nil {
		return codec.Context(err, "invalid config field")
	}
	return codec.CheckMinLength(len(b.inner), configField.End+cfg.BytesPerNumber())
}

func (b UnitBuffer) ConfigField() []byte {
	return configField.Of(b.inner)
}

func (b UnitBuffer) Number() []byte {
	cfg, _ := ConfigFromBytes(b.ConfigField())
	return configField.After(cfg.BytesPerNumber()).Of(b.inner)
}

func (b UnitBuffer) Len() int {
	return configField.End + len(b.Number())
}

// ObjectBuffer is a view over an encoded Object: vect || unit.
// The vector's count field decides where the unit starts.
type ObjectBuffer struct {
	inner []byte
}

// NewObjectBuffer checks that b holds a complete vect followed by a unit.
func NewObjectBuffer(b []byte) (ObjectBuffer, error) {
	buf := ObjectBuffer{inner: b}
	if err := buf.checkBufferLength(); err != nil {
		return ObjectBuffer{}, err
	}
	return buf, nil
}

// NewObjectBufferUnchecked wraps b without checking its length.
func NewObjectBufferUnchecked(b []byte) ObjectBuffer {
	return ObjectBuffer{inner: b}
}

func (b ObjectBuffer) checkBufferLength() error {
	vect, err := NewVectBuffer(b.inner)
	if err != nil {
		return codec.Context(err, "invalid vector part")
	}
	if _, err := NewUnitBuffer(b.inner[vect.Len():]); err != nil {
		return codec.Context(err, "invalid unit part")
	}
	return nil
}

// Vect returns the vect part.
func (b ObjectBuffer) Vect() []byte {
	vect := NewVectBufferUnchecked(b.inner)
	return b.inner[:vect.Len()]
}

// Unit returns the unit part following the vect.
func (b ObjectBuffer) Unit() []byte {
	rest := b.inner[len(b.Vect()):]
	unit := NewUnitBufferUnchecked(rest)
	return rest[:unit.Len()]
}

func (b ObjectBuffer) Len() int {
	return len(b.Vect()) + len(b.Unit())
}

func (v Vect) BufferLength() int {
	return countField.End + len(v.Data)*v.Config.BytesPerNumber()
}

func (v Vect) ToBytes(buf []byte) {
	v.Config.ToBytes(configField.Of(buf))
	binary.BigEndian.PutUint32(countField.Of(buf), uint32(len(v.Data)))
	bpn := v.Config.BytesPerNumber()
	for i, n := range v.Data {
		putNumber(codec.Field(countField.End+i*bpn, bpn).Of(buf), n)
	}
}

// VectFromBytes decodes an owned Vect from the front of b.
func VectFromBytes(b []byte) (Vect, error) {
	buf, err := NewVectBuffer(b)
	if err != nil {
		return Vect{}, err
	}
	cfg, _ := ConfigFromBytes(buf.ConfigField())
	order := cfg.Order()
	bpn := cfg.BytesPerNumber()
	raw := buf.Numbers()
	data := make([]*big.Int, 0, buf.Count())
	for i := 0; i < int(buf.Count()); i++ {
		n := readNumber(codec.Field(i*bpn, bpn).Of(raw))
		if err := checkNumber(n, order); err != nil {
			return Vect{}, codec.Contextf(err, "invalid number %d", i)
		}
		data = append(data, n)
	}
	return Vect{Config: cfg, Data: data}, nil
}

func (u Unit) BufferLength() int {
	return configField.End + u.Config.BytesPerNumber()
}

func (u Unit) ToBytes(buf []byte) {
	u.Config.ToBytes(configField.Of(buf))
	putNumber(configField.After(u.Config.BytesPerNumber()).Of(buf), u.Data)
}

// UnitFromBytes decodes an owned Unit from the front of b.
func UnitFromBytes(b []byte) (Unit, error) {
	buf, err := NewUnitBuffer(b)
	if err != nil {
		return Unit{}, err
	}
	cfg, _ := ConfigFromBytes(buf.ConfigField())
	n := readNumber(buf.Number())
	if err := checkNumber(n, cfg.Order()); err != nil {
		return Unit{}, codec.Context(err, "invalid number")
	}
	return Unit{Config: cfg, Data: n}, nil
}

func (o Object) BufferLength() int {
	return o.Vect.BufferLength() + o.Unit.BufferLength()
}

func (o Object) ToBytes(buf []byte) {
	split := o.Vect.BufferLength()
	o.Vect.ToBytes(buf[:split])
	o.Unit.ToBytes(buf[split:])
}

// ObjectFromBytes decodes an owned Object from the front of b. Bytes past the
// object's own length are not read.
func ObjectFromBytes(b []byte) (Object, error) {
	buf, err := NewObjectBuffer(b)
	if err != nil {
		return Object{}, err
	}
	vect, err := VectFromBytes(buf.Vect())
	if err != nil {
		return Object{}, codec.Context(err, "invalid vector part")
	}
	unit, err := UnitFromBytes(buf.Unit())
	if err != nil {
		return Object{}, codec.Context(err, "invalid unit part")
	}
	return Object{Vect: vect, Unit: unit}, nil
}

func putNumber(dst []byte, n *big.Int) {
	n.FillBytes(dst)
	reverse(dst)
}

func readNumber(src []byte) *big.Int {
	be := make([]byte, len(src))
	copy(be, src)
	reverse(be)
	return new(big.Int).SetBytes(be)
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
