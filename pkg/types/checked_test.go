package types

import (
	"math"
	"math/big"
	"testing"
)

func TestAddUint64CheckedOverflow(t *testing.T) {
	if _, err := AddUint64Checked(math.MaxUint64, 1); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	sum, err := AddUint64Checked(2, 3)
	if err != nil || sum != 5 {
		t.Fatalf("expected 5, got %d err %v", sum, err)
	}
}

func TestSubUint64CheckedUnderflow(t *testing.T) {
	if _, err := SubUint64Checked(1, 2); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	diff, err := SubUint64Checked(5, 3)
	if err != nil || diff != 2 {
		t.Fatalf("expected 2, got %d err %v", diff, err)
	}
}

func TestMulUint64Checked(t *testing.T) {
	if _, err := MulUint64Checked(math.MaxUint64, 2); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	product, err := MulUint64Checked(6, 7)
	if err != nil || product != 42 {
		t.Fatalf("expected 42, got %d err %v", product, err)
	}
}

func TestCheckU128(t *testing.T) {
	if !CheckU128(big.NewInt(100)) {
		t.Fatalf("expected 100 to fit in u128")
	}
	if CheckU128(big.NewInt(-1)) {
		t.Fatalf("expected negative value to be rejected")
	}
	tooBig := new(big.Int).Add(U128Max, big.NewInt(1))
	if CheckU128(tooBig) {
		t.Fatalf("expected overflowing value to be rejected")
	}
}
