package types

import "testing"

func TestBytesToHashPadsLeft(t *testing.T) {
	h := BytesToHash([]byte{1, 2, 3})
	if h[HashLength-1] != 3 || h[HashLength-2] != 2 || h[HashLength-3] != 1 {
		t.Fatalf("expected left-padded hash, got %x", h)
	}
	for i := 0; i < HashLength-3; i++ {
		if h[i] != 0 {
			t.Fatalf("expected leading zero padding, got %x", h)
		}
	}
}

func TestHexRoundTrip(t *testing.T) {
	h := Keccak256Hash([]byte("weight proof"))
	if got := HexToHash(h.Hex()); got != h {
		t.Fatalf("hex round trip mismatch: %x != %x", got, h)
	}
}

func TestKeccak256Deterministic(t *testing.T) {
	a := Keccak256Hash([]byte("a"), []byte("b"))
	b := Keccak256Hash([]byte("a"), []byte("b"))
	if a != b {
		t.Fatalf("expected deterministic hash")
	}
	c := Keccak256Hash([]byte("ab"))
	if a != c {
		t.Fatalf("expected hashing the parts to equal hashing their concatenation")
	}
}

func TestIsZero(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Fatalf("expected zero value hash to be zero")
	}
	h[0] = 1
	if h.IsZero() {
		t.Fatalf("expected non-zero hash")
	}
}
