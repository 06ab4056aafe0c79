package weightproof

import (
	"math"
	"math/big"
	"sort"
)

// weightsForSampling draws the sample-weight set used by both the builder
// and the validator to decide which sub-epochs require full VDF evidence.
//
// delta = last_l_weight / total_weight
// p = 1 - log_delta(C)
// queries = -LambdaL * log_p(2)
//
// Go's math.Log has a single argument (natural log); Python's math.log(x,
// base) computes ln(x)/ln(base), so log_delta(C) == math.Log(C)/math.Log(delta)
// and log_p(2) == math.Log(2)/math.Log(p). See DESIGN.md Open Question 1.
//
// Returns ErrInsufficientChain when p <= 0 (the chain is too short for the
// sampling argument to bind).
func weightsForSampling(rng *Rand, totalWeight, lastLWeight *big.Int) ([]*big.Int, error) {
	totalF := bigToFloat(totalWeight)
	lastLF := bigToFloat(lastLWeight)
	if totalF <= 0 {
		return nil, ErrInsufficientChain
	}
	delta := lastLF / totalF
	probAdvSucceeding := 1 - math.Log(SamplingC)/math.Log(delta)
	if probAdvSucceeding <= 0 {
		return nil, ErrInsufficientChain
	}
	queries := -float64(LambdaL) * (math.Log(2) / math.Log(probAdvSucceeding))

	n := int(queries) + 1
	weights := make([]*big.Int, 0, n)
	for i := 0; i < n; i++ {
		u := rng.Float64()
		q := 1 - math.Pow(delta, u)
		w := q * totalF
		weights = append(weights, floatToBig(w))
	}
	sort.Slice(weights, func(i, j int) bool { return weights[i].Cmp(weights[j]) < 0 })
	return weights, nil
}

func bigToFloat(v *big.Int) float64 {
	f := new(big.Float).SetInt(v)
	out, _ := f.Float64()
	return out
}

func floatToBig(f float64) *big.Int {
	if f < 0 {
		f = 0
	}
	bf := big.NewFloat(f)
	out, _ := bf.Int(nil)
	return out
}

// sampleSubEpoch reports whether the half-open weight interval
// [prevWeight, curWeight) contains any of the sorted sample weights. Since
// weightsToCheck is sorted ascending, callers scanning sub-epochs in order
// should use a two-pointer cursor (see sampledSubEpochs) rather than
// re-scanning the full slice per sub-epoch.
func sampleSubEpoch(prevWeight, curWeight *big.Int, weightsToCheck []*big.Int) bool {
	for _, w := range weightsToCheck {
		if w.Cmp(prevWeight) >= 0 && w.Cmp(curWeight) < 0 {
			return true
		}
		if w.Cmp(curWeight) >= 0 {
			break
		}
	}
	return false
}

// sampledSubEpochs returns the set of sub-epoch indices (0-based, indexing
// into subEpochWeightList adjacent pairs) that the oracle selects, capped
// at MaxSamples. subEpochWeightList has len(sub_epochs)+1 entries: the
// start weight of each sub-epoch plus the final cumulative weight.
func sampledSubEpochs(weightsToCheck []*big.Int, subEpochWeightList []*big.Int) map[uint32]bool {
	sampled := make(map[uint32]bool)
	for i := 0; i+1 < len(subEpochWeightList); i++ {
		if len(sampled) >= MaxSamples {
			break
		}
		if sampleSubEpoch(subEpochWeightList[i], subEpochWeightList[i+1], weightsToCheck) {
			sampled[uint32(i)] = true
		}
	}
	return sampled
}
