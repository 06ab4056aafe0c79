package weightproof

import "testing"

func TestSubSlotDataV2TaggedVariantInvariant(t *testing.T) {
	block := NewBlockSubSlotData(BlockSubSlotData{IpIters: 10})
	if err := block.Validate(); err != nil {
		t.Fatalf("valid block variant rejected: %v", err)
	}
	if block.IsEndOfSlot() {
		t.Fatalf("block variant reported as end-of-slot")
	}

	eos := NewEndOfSlotSubSlotData(EndOfSlotSubSlotData{})
	if err := eos.Validate(); err != nil {
		t.Fatalf("valid end-of-slot variant rejected: %v", err)
	}
	if !eos.IsEndOfSlot() {
		t.Fatalf("end-of-slot variant not reported as end-of-slot")
	}

	malformed := SubSlotDataV2{Kind: SubSlotKindBlock, Block: &BlockSubSlotData{}, EndOfSlot: &EndOfSlotSubSlotData{}}
	if err := malformed.Validate(); err != ErrMalformedSegment {
		t.Fatalf("expected ErrMalformedSegment for a variant carrying both field sets, got %v", err)
	}
}

func TestSubSlotDataV2IsChallenge(t *testing.T) {
	plain := NewBlockSubSlotData(BlockSubSlotData{IpIters: 5})
	if plain.IsChallenge() {
		t.Fatalf("plain block without proof of space reported as challenge")
	}
	challenge := NewBlockSubSlotData(BlockSubSlotData{ProofOfSpace: &ProofOfSpace{Proof: []byte("x")}, IpIters: 5})
	if !challenge.IsChallenge() {
		t.Fatalf("block with proof of space not reported as challenge")
	}
}

func TestSubEpochSummaryHashChains(t *testing.T) {
	first := SubEpochSummary{PrevSummaryHash: Hash{}, RewardChainHash: Hash{1}}
	second := SubEpochSummary{PrevSummaryHash: first.Hash(), RewardChainHash: Hash{2}}
	if second.PrevSummaryHash != first.Hash() {
		t.Fatalf("chained summary does not link to predecessor's hash")
	}
	third := SubEpochSummary{PrevSummaryHash: Hash{}, RewardChainHash: Hash{1}}
	if first.Hash() != third.Hash() {
		t.Fatalf("identical summaries produced different hashes")
	}
}

func TestNewSubEpochDataProjection(t *testing.T) {
	diff := uint64(5)
	s := SubEpochSummary{RewardChainHash: Hash{7}, NumBlocksOverflow: 3, NewDifficulty: &diff}
	d := NewSubEpochData(s)
	if d.RewardChainHash != s.RewardChainHash || d.NumBlocksOverflow != s.NumBlocksOverflow {
		t.Fatalf("projection dropped scalar fields")
	}
	if d.NewDifficulty == nil || *d.NewDifficulty != diff {
		t.Fatalf("projection dropped NewDifficulty")
	}
}
