package tokens

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	MaxAmount = Amount(uint256.Int{0: ^uint64(0), 1: ^uint64(0), 2: ^uint64(0), 3: ^uint64(0)})
	Zero      = FromUint64(0)
)

// Amount is a typed token quantity, expressed in the smallest unit of the token.
// Like the ETH type it is modeled after, it is used as a flat value,
// and all arithmetic returns a new value instead of mutating in-place.
type Amount uint256.Int

// String prints the amount with thousands comma-separators.
func (a Amount) String() string {
	return (*uint256.Int)(&a).PrettyDec(',')
}

// Decimal returns the amount in decimal form, without separators.
func (a Amount) Decimal() string {
	return (*uint256.Int)(&a).Dec()
}

// Hex returns the amount in hexadecimal form with 0x prefix.
func (a Amount) Hex() string {
	return (*uint256.Int)(&a).Hex()
}

// Format implements fmt.Formatter
func (a Amount) Format(s fmt.State, ch rune) {
	(*uint256.Int)(&a).Format(s, ch)
}

// Float returns the amount as floating point number (approximate).
// Warning: precision loss. Only meant for metrics.
func (a Amount) Float() float64 {
	return (*uint256.Int)(&a).Float64()
}

func (a Amount) ToBig() *big.Int {
	return (*uint256.Int)(&a).ToBig()
}

// ToU256 returns a clone of the underlying uint256.Int.
func (a Amount) ToU256() *uint256.Int {
	return (*uint256.Int)(&a).Clone()
}

// Add adds v and returns the result. No value is mutated.
// Add panics if the computation overflows uint256.
func (a Amount) Add(v Amount) (out Amount) {
	var overflow bool
	out, overflow = a.AddOverflow(v)
	if overflow {
		panic(fmt.Errorf("add overflow: %s + %s != %s", a, v, out))
	}
	return
}

// AddOverflow adds v and returns the result, and if the computation overflowed.
func (a Amount) AddOverflow(v Amount) (out Amount, overflow bool) {
	_, overflow = (*uint256.Int)(&out).AddOverflow((*uint256.Int)(&a), (*uint256.Int)(&v))
	return
}

// Sub subtracts v and returns the result. No value is mutated.
// Sub panics if the computation underflows.
func (a Amount) Sub(v Amount) (out Amount) {
	var underflow bool
	out, underflow = a.SubUnderflow(v)
	if underflow {
		panic(fmt.Errorf("sub underflow: %s - %s != %s", a, v, out))
	}
	return
}

// SubUnderflow subtracts v and returns the result, and if the computation underflowed.
func (a Amount) SubUnderflow(v Amount) (out Amount, underflow bool) {
	_, underflow = (*uint256.Int)(&out).SubOverflow((*uint256.Int)(&a), (*uint256.Int)(&v))
	return
}

// Mul multiplies by the given scalar. Mul panics on overflow.
func (a Amount) Mul(scalar uint64) (out Amount) {
	_, overflow := (*uint256.Int)(&out).MulOverflow((*uint256.Int)(&a), uint256.NewInt(scalar))
	if overflow {
		panic(fmt.Errorf("overflow on amount mul: %s * %d != %s", a, scalar, out))
	}
	return
}

func (a Amount) Lt(v Amount) bool {
	return (*uint256.Int)(&a).Lt((*uint256.Int)(&v))
}

func (a Amount) Gt(v Amount) bool {
	return (*uint256.Int)(&a).Gt((*uint256.Int)(&v))
}

func (a Amount) IsZero() bool {
	return (*uint256.Int)(&a).IsZero()
}

// UnmarshalText supports hexadecimal (0x prefix) and decimal.
func (a *Amount) UnmarshalText(data []byte) error {
	return (*uint256.Int)(a).UnmarshalText(data)
}

// UnmarshalJSON accepts either a quoted hexadecimal or decimal string, or an unquoted decimal number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return (*uint256.Int)(a).UnmarshalJSON(data)
}

// MarshalText marshals as decimal number, without separators.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.Decimal()), nil
}

// FromUint64 turns the given uint64 into an Amount.
func FromUint64(v uint64) (out Amount) {
	(*uint256.Int)(&out).SetUint64(v)
	return
}

// FromBig turns the given big.Int into an Amount.
// This panics if the value is negative or does not fit in 256 bits.
func FromBig(v *big.Int) (out Amount) {
	if v == nil {
		panic("nil *big.Int input to Amount constructor")
	}
	if v.Sign() < 0 {
		panic("negative amounts are not supported")
	}
	if overflow := (*uint256.Int)(&out).SetFromBig(v); overflow {
		panic("*big.Int input does not fit in uint256")
	}
	return
}

// ParseAmount parses a decimal or 0x-prefixed hexadecimal amount.
func ParseAmount(s string) (out Amount, err error) {
	err = out.UnmarshalText([]byte(s))
	return
}
