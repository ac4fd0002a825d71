// Package tick converts between wire decimal strings and integer tick counts.
//
// A Tick is the smallest increment an exchange accepts for a price or a size.
// Every price and size inside tradewire is an int64 count of ticks; the
// conversion is exact decimal arithmetic and never goes through float64.
package tick

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrConversion is matched by every error returned from Ticked and New.
var ErrConversion = errors.New("tick conversion error")

// ConversionError describes a decimal that cannot be expressed in ticks.
type ConversionError struct {
	Input  string
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %q: %s", e.Input, e.Reason)
}

// Is reports whether target is ErrConversion.
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

// Tick is a positive decimal step. The zero value is not usable.
type Tick struct {
	step decimal.Decimal
}

// New parses a tick step such as "0.01" or "0.00000001".
func New(step string) (Tick, error) {
	d, err := decimal.NewFromString(step)
	if err != nil {
		return Tick{}, &ConversionError{Input: step, Reason: "not a decimal"}
	}
	if !d.IsPositive() {
		return Tick{}, &ConversionError{Input: step, Reason: "tick must be positive"}
	}
	return Tick{step: d}, nil
}

// MustNew is New that panics. Intended for constants and tests.
func MustNew(step string) Tick {
	t, err := New(step)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the canonical decimal form of the step.
func (t Tick) String() string {
	return t.step.String()
}

// IsZero reports whether t was never initialized.
func (t Tick) IsZero() bool {
	return t.step.IsZero()
}

// Ticked converts a decimal string into a number of ticks.
// It fails when s is not a decimal, has more precision than the tick,
// or the tick count does not fit in an int64.
func (t Tick) Ticked(s string) (int64, error) {
	if t.IsZero() {
		return 0, &ConversionError{Input: s, Reason: "uninitialized tick"}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, &ConversionError{Input: s, Reason: "not a decimal"}
	}

	q, r := d.QuoRem(t.step, 0)
	if !r.IsZero() {
		return 0, &ConversionError{
			Input:  s,
			Reason: fmt.Sprintf("precision exceeds tick %s", t.step.String()),
		}
	}

	n := q.BigInt()
	if !n.IsInt64() {
		return 0, &ConversionError{Input: s, Reason: "overflows int64"}
	}
	return n.Int64(), nil
}

// ToDecimal converts a tick count back into its canonical decimal string.
func (t Tick) ToDecimal(n int64) string {
	return decimal.NewFromInt(n).Mul(t.step).String()
}

// Canonical returns the canonical form of a decimal string: no exponent,
// no trailing fractional zeros. Ticked followed by ToDecimal yields it.
func Canonical(s string) (string, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", &ConversionError{Input: s, Reason: "not a decimal"}
	}
	return d.String(), nil
}
