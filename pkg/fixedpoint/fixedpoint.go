// Package fixedpoint implements exact fixed-point arithmetic for money
// amounts: a signed integer at a fixed base-10 scale, with no floating
// point anywhere on the money path. Conversions to/from float64 exist
// only for diagnostics and are named accordingly.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/finledger/finledger/pkg/ledgererr"
)

// Scale is the number of fractional digits represented, fixed at 8.
const Scale = 8

// scaleFactor is 10^Scale.
const scaleFactor int64 = 100_000_000

var (
	ErrOverflow        = errors.New("fixedpoint: overflow")
	ErrDivisionByZero  = errors.New("fixedpoint: division by zero")
	ErrInvalidSyntax   = errors.New("fixedpoint: invalid numeric string")
	ErrFractionTooLong = errors.New("fixedpoint: more than 8 fractional digits")
)

// FixedPoint is an exact rational number at scale 10^-8, stored as a
// signed 64-bit integer v where the represented value is v / 10^8.
type FixedPoint struct {
	v int64
}

// FromInteger builds a FixedPoint representing the whole number n.
func FromInteger(n int64) (FixedPoint, error) {
	scaled, ok := mulOverflow(n, scaleFactor)
	if !ok {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, fmt.Sprintf("from_integer(%d)", n))
	}
	return FixedPoint{v: scaled}, nil
}

// FromRaw wraps an already-scaled internal value directly; used when a
// caller already has a smallest-unit integer (e.g. a Transaction amount)
// and wants a FixedPoint view of it for diagnostics.
func FromRaw(raw int64) FixedPoint { return FixedPoint{v: raw} }

// Raw returns the internal scaled integer.
func (f FixedPoint) Raw() int64 { return f.v }

// FromString parses a decimal string: optional leading '-', digits,
// optional '.' followed by up to 8 fractional digits. Fewer than 8
// fractional digits are zero-padded on the right; more than 8 are
// truncated (not rounded) per the reference text round-trip behavior.
func FromString(s string) (FixedPoint, error) {
	orig := s
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrInvalidSyntax, orig)
	}

	intPart := s
	fracPart := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart = s[:idx]
		fracPart = s[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrInvalidSyntax, orig)
	}
	if len(fracPart) > Scale {
		fracPart = fracPart[:Scale] // truncate, do not round
	}
	for len(fracPart) < Scale {
		fracPart += "0"
	}

	intVal, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrInvalidSyntax, orig)
	}
	fracVal, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return FixedPoint{}, fmt.Errorf("%w: %q", ErrInvalidSyntax, orig)
	}

	scaledInt, ok := mulOverflow(intVal, scaleFactor)
	if !ok {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, orig)
	}
	total, ok := addOverflow(scaledInt, fracVal)
	if !ok {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, orig)
	}
	if neg {
		total = -total
	}
	return FixedPoint{v: total}, nil
}

// String renders the value with trailing fractional zeros trimmed; a
// purely integral value renders with no decimal point.
func (f FixedPoint) String() string {
	v := f.v
	neg := v < 0
	if neg {
		v = -v
	}
	intPart := v / scaleFactor
	fracPart := v % scaleFactor

	if fracPart == 0 {
		if neg {
			return fmt.Sprintf("-%d", intPart)
		}
		return strconv.FormatInt(intPart, 10)
	}

	frac := fmt.Sprintf("%08d", fracPart)
	frac = strings.TrimRight(frac, "0")
	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("%s%d.%s", sign, intPart, frac)
}

// Cents interprets a raw i64 amount as hundredths (2 decimal digits) and
// rescales it into a FixedPoint at the full 8-digit scale.
func Cents(cents int64) (FixedPoint, error) {
	scaled, ok := mulOverflow(cents, scaleFactor/100)
	if !ok {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, fmt.Sprintf("cents(%d)", cents))
	}
	return FixedPoint{v: scaled}, nil
}

// Add returns f+g; overflow is reported as a typed error, never a panic.
func (f FixedPoint) Add(g FixedPoint) (FixedPoint, error) {
	sum, ok := addOverflow(f.v, g.v)
	if !ok {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, "add")
	}
	return FixedPoint{v: sum}, nil
}

// Sub returns f-g; overflow is reported as a typed error.
func (f FixedPoint) Sub(g FixedPoint) (FixedPoint, error) {
	diff, ok := subOverflow(f.v, g.v)
	if !ok {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, "sub")
	}
	return FixedPoint{v: diff}, nil
}

// Mul returns round-toward-zero(f*g), widening the product to 128 bits
// before dividing back down by the scale factor.
func (f FixedPoint) Mul(g FixedPoint) (FixedPoint, error) {
	a := big.NewInt(f.v)
	b := big.NewInt(g.v)
	product := new(big.Int).Mul(a, b)
	scale := big.NewInt(scaleFactor)
	quotient := new(big.Int).Quo(product, scale) // big.Int.Quo truncates toward zero

	if !quotient.IsInt64() {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, "mul")
	}
	return FixedPoint{v: quotient.Int64()}, nil
}

// Div returns round-toward-zero((f*10^8)/g); fails with DivisionByZero
// when g is zero.
func (f FixedPoint) Div(g FixedPoint) (FixedPoint, error) {
	if g.v == 0 {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrDivisionByZero, "div")
	}
	a := new(big.Int).Mul(big.NewInt(f.v), big.NewInt(scaleFactor))
	quotient := new(big.Int).Quo(a, big.NewInt(g.v))

	if !quotient.IsInt64() {
		return FixedPoint{}, ledgererr.Wrap(ledgererr.KindNumeric, ErrOverflow, "div")
	}
	return FixedPoint{v: quotient.Int64()}, nil
}

// Abs returns the absolute value.
func (f FixedPoint) Abs() FixedPoint {
	if f.v < 0 {
		return FixedPoint{v: -f.v}
	}
	return f
}

// Neg returns the additive inverse.
func (f FixedPoint) Neg() FixedPoint { return FixedPoint{v: -f.v} }

// IsZero reports whether the value is exactly zero.
func (f FixedPoint) IsZero() bool { return f.v == 0 }

// Sign returns -1, 0, or 1.
func (f FixedPoint) Sign() int {
	switch {
	case f.v < 0:
		return -1
	case f.v > 0:
		return 1
	default:
		return 0
	}
}

// Cmp orders f against other: -1, 0, or 1.
func (f FixedPoint) Cmp(other FixedPoint) int {
	switch {
	case f.v < other.v:
		return -1
	case f.v > other.v:
		return 1
	default:
		return 0
	}
}

// Equal reports whether f and other represent the same value.
func (f FixedPoint) Equal(other FixedPoint) bool { return f.v == other.v }

// Round rounds to k fractional digits, half-away-from-zero. k >= 8 is the
// identity; k < 0 is treated as 0.
func (f FixedPoint) Round(k int) FixedPoint {
	if k >= Scale {
		return f
	}
	if k < 0 {
		k = 0
	}

	place := int64(1)
	for i := 0; i < Scale-k; i++ {
		place *= 10
	}

	v := f.v
	neg := v < 0
	if neg {
		v = -v
	}

	remainder := v % place
	truncated := v - remainder
	half := place / 2
	if remainder >= half {
		truncated += place
	}
	if neg {
		truncated = -truncated
	}
	return FixedPoint{v: truncated}
}

// MarshalJSON encodes the FixedPoint as its canonical decimal string.
func (f FixedPoint) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON parses the canonical decimal string form.
func (f *FixedPoint) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func addOverflow(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func subOverflow(a, b int64) (int64, bool) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, false
	}
	return diff, true
}

func mulOverflow(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}
