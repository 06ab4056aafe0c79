package weightproof

import (
	"bytes"
	"testing"
)

func ptrU64(v uint64) *uint64 { return &v }

func TestSubEpochDataRoundTrip(t *testing.T) {
	cases := []SubEpochData{
		{RewardChainHash: Hash{1, 2, 3}, NumBlocksOverflow: 4},
		{RewardChainHash: Hash{9}, NumBlocksOverflow: 1, NewSubSlotIters: ptrU64(1 << 20)},
		{RewardChainHash: Hash{}, NumBlocksOverflow: 0, NewDifficulty: ptrU64(7)},
		{RewardChainHash: Hash{5, 5, 5}, NumBlocksOverflow: 2, NewSubSlotIters: ptrU64(1), NewDifficulty: ptrU64(2)},
	}
	for i, c := range cases {
		encoded := MarshalSubEpochData(c)
		decoded, err := UnmarshalSubEpochData(encoded)
		if err != nil {
			t.Fatalf("case %d: unmarshal error: %v", i, err)
		}
		if decoded.RewardChainHash != c.RewardChainHash || decoded.NumBlocksOverflow != c.NumBlocksOverflow {
			t.Fatalf("case %d: round trip mismatch on scalar fields: got %+v, want %+v", i, decoded, c)
		}
		if (decoded.NewSubSlotIters == nil) != (c.NewSubSlotIters == nil) {
			t.Fatalf("case %d: NewSubSlotIters presence mismatch", i)
		}
		if c.NewSubSlotIters != nil && *decoded.NewSubSlotIters != *c.NewSubSlotIters {
			t.Fatalf("case %d: NewSubSlotIters value mismatch: got %d want %d", i, *decoded.NewSubSlotIters, *c.NewSubSlotIters)
		}
		if (decoded.NewDifficulty == nil) != (c.NewDifficulty == nil) {
			t.Fatalf("case %d: NewDifficulty presence mismatch", i)
		}
		if c.NewDifficulty != nil && *decoded.NewDifficulty != *c.NewDifficulty {
			t.Fatalf("case %d: NewDifficulty value mismatch: got %d want %d", i, *decoded.NewDifficulty, *c.NewDifficulty)
		}
	}
}

func TestSubEpochsSequenceRoundTrip(t *testing.T) {
	data := []SubEpochData{
		{RewardChainHash: Hash{1}, NumBlocksOverflow: 0},
		{RewardChainHash: Hash{2}, NumBlocksOverflow: 1, NewDifficulty: ptrU64(42)},
		{RewardChainHash: Hash{3}, NumBlocksOverflow: 2, NewSubSlotIters: ptrU64(99), NewDifficulty: ptrU64(1)},
	}
	encoded := MarshalSubEpochs(data)
	decoded, err := UnmarshalSubEpochs(encoded)
	if err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(decoded) != len(data) {
		t.Fatalf("got %d entries, want %d", len(decoded), len(data))
	}
	for i := range data {
		if decoded[i].RewardChainHash != data[i].RewardChainHash {
			t.Fatalf("entry %d: reward chain hash mismatch", i)
		}
	}
}

func TestReaderShortBufferError(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if _, err := r.ReadHash(); err == nil {
		t.Fatalf("expected short-buffer error reading a 32-byte hash from 3 bytes")
	}
}

func TestWriterBytesRoundTrip(t *testing.T) {
	var w Writer
	w.WriteBytes([]byte("hello"))
	r := NewReader(w.Bytes())
	got, err := r.ReadBytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}
