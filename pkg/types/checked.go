package types

import (
	"errors"
	"math/big"
)

// ErrOverflow is returned by the checked arithmetic helpers when an
// operation would over- or under-flow the destination width.
var ErrOverflow = errors.New("types: checked arithmetic overflow")

// AddUint64Checked adds a and b, returning ErrOverflow instead of wrapping.
func AddUint64Checked(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// SubUint64Checked subtracts b from a, returning ErrOverflow on underflow.
func SubUint64Checked(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// MulUint64Checked multiplies a and b, returning ErrOverflow on overflow.
func MulUint64Checked(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	product := a * b
	if product/a != b {
		return 0, ErrOverflow
	}
	return product, nil
}

// U128Max is the maximum value representable by the protocol's 128-bit
// unsigned weight type. Weight accounting uses math/big.Int directly since
// Go has no native 128-bit integer; the bound is not carried in the type,
// and CheckU128 tests a value against it.
var U128Max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// CheckU128 reports whether v fits in an unsigned 128-bit integer.
func CheckU128(v *big.Int) bool {
	return v.Sign() >= 0 && v.Cmp(U128Max) <= 0
}
