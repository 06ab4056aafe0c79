package weightproof

import (
	"math/big"
	"testing"
)

func TestWeightsForSamplingInsufficientChain(t *testing.T) {
	rng := NewRand([32]byte{1})
	_, err := weightsForSampling(rng, big.NewInt(0), big.NewInt(0))
	if err != ErrInsufficientChain {
		t.Fatalf("expected ErrInsufficientChain for zero total weight, got %v", err)
	}
}

func TestWeightsForSamplingSortedAscending(t *testing.T) {
	rng := NewRand([32]byte{42})
	weights, err := weightsForSampling(rng, big.NewInt(1_000_000), big.NewInt(10_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(weights) == 0 {
		t.Fatalf("expected at least one sample weight")
	}
	for i := 1; i < len(weights); i++ {
		if weights[i].Cmp(weights[i-1]) < 0 {
			t.Fatalf("weights not sorted ascending at index %d: %v < %v", i, weights[i], weights[i-1])
		}
	}
	for _, w := range weights {
		if w.Sign() < 0 || w.Cmp(big.NewInt(1_000_000)) > 0 {
			t.Fatalf("weight %v out of [0, total] range", w)
		}
	}
}

func TestSampleSubEpochInterval(t *testing.T) {
	weights := []*big.Int{big.NewInt(5), big.NewInt(15), big.NewInt(25)}
	if !sampleSubEpoch(big.NewInt(0), big.NewInt(10), weights) {
		t.Fatalf("expected [0,10) to contain sample weight 5")
	}
	if sampleSubEpoch(big.NewInt(16), big.NewInt(20), weights) {
		t.Fatalf("did not expect [16,20) to contain any sample weight")
	}
}

func TestSampledSubEpochsCapsAtMaxSamples(t *testing.T) {
	weightList := make([]*big.Int, 0, MaxSamples+10)
	for i := 0; i <= MaxSamples+5; i++ {
		weightList = append(weightList, big.NewInt(int64(i)))
	}
	weightsToCheck := make([]*big.Int, 0, MaxSamples+5)
	for i := 0; i <= MaxSamples+5; i++ {
		weightsToCheck = append(weightsToCheck, big.NewInt(int64(i)))
	}
	sampled := sampledSubEpochs(weightsToCheck, weightList)
	if len(sampled) > MaxSamples {
		t.Fatalf("sampledSubEpochs returned %d entries, want <= %d", len(sampled), MaxSamples)
	}
}
