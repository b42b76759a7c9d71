package model

import (
	"math/bits"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
)

// E8Scale is the number of decimal places carried by every scaled integer.
const E8Scale = 8

// E8 is the fixed-point unit: 1.0 == 100,000,000.
const E8 = 100_000_000

var ErrValueOutOfRange = errors.New("value out of range for E8 fixed point")

// Price is an E8 scaled integer.
type Price int64

func (p Price) AppendString(buf []byte) []byte {
	return appendScaledInt(buf, int64(p), E8Scale)
}

func (p Price) String() string {
	return string(p.AppendString(nil))
}

// Quantity is an E8 scaled integer.
type Quantity int64

func (q Quantity) AppendString(buf []byte) []byte {
	return appendScaledInt(buf, int64(q), E8Scale)
}

func (q Quantity) String() string {
	return string(q.AppendString(nil))
}

// Notional is an E8 scaled integer (price * quantity / E8).
type Notional int64

func (n Notional) AppendString(buf []byte) []byte {
	return appendScaledInt(buf, int64(n), E8Scale)
}

func (n Notional) String() string {
	return string(n.AppendString(nil))
}

// ParseE8 converts decimal text into an E8 scaled integer.
// Exact for inputs with at most eight decimal places; anything beyond
// the scale is truncated toward zero.
func ParseE8(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.Wrap(err, "parse decimal")
	}
	shifted := d.Shift(E8Scale)
	if shifted.Abs().Cmp(decimal.NewFromInt(maxInt64)) > 0 {
		return 0, ErrValueOutOfRange
	}
	return shifted.IntPart(), nil
}

// AppendE8 formats an E8 scaled integer as decimal text.
func AppendE8(buf []byte, value int64) []byte {
	return appendScaledInt(buf, value, E8Scale)
}

const maxInt64 = int64(^uint64(0) >> 1)

func appendScaledInt(buf []byte, value int64, scale int) []byte {
	if scale <= 0 {
		return strconv.AppendInt(buf, value, 10)
	}

	neg := value < 0
	u := uint64(value)
	if neg {
		u = uint64(^value) + 1
	}

	var tmp [32]byte
	digits := strconv.AppendUint(tmp[:0], u, 10)

	if neg {
		buf = append(buf, '-')
	}

	if len(digits) <= scale {
		buf = append(buf, '0', '.')
		for i := 0; i < scale-len(digits); i++ {
			buf = append(buf, '0')
		}
		buf = append(buf, digits...)
		return buf
	}

	idx := len(digits) - scale
	buf = append(buf, digits[:idx]...)
	buf = append(buf, '.')
	buf = append(buf, digits[idx:]...)
	return buf
}

// MulDiv computes a*b/den with a 128-bit intermediate product so that
// E8-scaled multiplications never overflow int64. den must be positive
// and the true quotient must fit in int64.
func MulDiv(a, b, den int64) int64 {
	if a == 0 || b == 0 || den <= 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	ua := absU64(a)
	ub := absU64(b)
	hi, lo := bits.Mul64(ua, ub)
	q, _ := bits.Div64(hi, lo, uint64(den))
	if neg {
		return -int64(q)
	}
	return int64(q)
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(^v) + 1
	}
	return uint64(v)
}
