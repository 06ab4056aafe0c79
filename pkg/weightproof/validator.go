package weightproof

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// SegmentState names the validator's per-segment state machine (spec.md
// §4.5). SlotAfterChallenge is latched on the first end-of-slot following
// AtChallenge and is exported across segment boundaries so the next
// segment's prev_challenge_ip_iters starts at zero instead of double
// counting the previous segment's last challenge block.
type SegmentState int

const (
	StateInitialSlot SegmentState = iota
	StatePreChallenge
	StateAtChallenge
	StatePostChallenge
	StateSlotAfterChallenge
	StateTerminal
)

// Validator re-derives the sub-epoch summary chain, replays sampling, and
// re-runs VDF chains for sampled segments, per spec.md §4.5.
type Validator struct {
	constants Constants
	vdf       VDFVerifier
	pos       PoSpaceVerifier
	pool      *Pool
}

// NewValidator constructs a Validator.
func NewValidator(c Constants, vdf VDFVerifier, pos PoSpaceVerifier, pool *Pool) *Validator {
	return &Validator{constants: c, vdf: vdf, pos: pos, pool: pool}
}

// Validate runs the full A-D pipeline against wp, seeded identically to the
// builder's sampling draw. On success returns the fork point and the
// reconstructed summary chain.
func (v *Validator) Validate(ctx context.Context, wp WeightProofV2, seed [32]byte, forkResolver *ForkPointResolver) (bool, uint32, []SubEpochSummary, error) {
	if len(wp.SubEpochs) == 0 {
		return false, 0, nil, nil
	}

	// Stage A.
	lastSesHash, _, lastSesWeight, ok := getLastSes(wp.RecentChainData)
	if !ok {
		return false, 0, nil, fmt.Errorf("%w: no sub epoch summary anchor in recent chain", ErrSummaryMismatch)
	}
	summaries, total, subEpochWeightList := mapSubEpochSummaries(v.constants, wp.SubEpochs)
	if !validateSummariesWeight(total, summaries) {
		return false, 0, nil, ErrSummaryMismatch
	}
	subEpochWeightList = append(subEpochWeightList, lastSesWeight)
	if summaries[len(summaries)-1].Hash() != lastSesHash {
		return false, 0, nil, ErrSummaryMismatch
	}

	// Stage B.
	rng := NewRand(seed)
	lastLWeight := new(big.Int).Sub(subEpochWeightList[len(subEpochWeightList)-1], thirdFromLast(subEpochWeightList))
	weightsToCheck, err := weightsForSampling(rng, subEpochWeightList[len(subEpochWeightList)-1], lastLWeight)
	if err != nil {
		return false, 0, nil, err
	}
	required := sampledSubEpochs(weightsToCheck, subEpochWeightList)
	groups := groupSegmentsBySubEpoch(wp.SubEpochSegments)
	for idx := range required {
		if _, ok := groups[idx]; !ok {
			return false, 0, nil, fmt.Errorf("%w: sub epoch %d", ErrSamplingMismatch, idx)
		}
	}

	// Stage C and Stage D run concurrently; both must succeed.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return v.validateAllSubEpochs(gctx, groups, summaries, rng)
	})
	g.Go(func() error {
		return v.validateRecentChain(gctx, wp.RecentChainData)
	})
	if err := g.Wait(); err != nil {
		return false, 0, nil, err
	}

	fp := uint32(0)
	if forkResolver != nil {
		fp = forkResolver.Resolve(summaries)
	}
	return true, fp, summaries, nil
}

func thirdFromLast(list []*big.Int) *big.Int {
	idx := len(list) - 3
	if idx < 0 {
		return big.NewInt(0)
	}
	return list[idx]
}

// mapSubEpochSummaries reconstructs the linked summary chain starting from
// the genesis challenge, computing cumulative weight as it goes.
func mapSubEpochSummaries(c Constants, data []SubEpochData) ([]SubEpochSummary, *big.Int, []*big.Int) {
	totalWeight := big.NewInt(0)
	var summaries []SubEpochSummary
	var weightList []*big.Int
	sesHash := Hash(c.GenesisChallenge)
	currDifficulty := c.DifficultyStarting

	for idx, d := range data {
		ses := SubEpochSummary{
			PrevSummaryHash:   sesHash,
			RewardChainHash:   d.RewardChainHash,
			NumBlocksOverflow: d.NumBlocksOverflow,
			NewDifficulty:     d.NewDifficulty,
			NewSubSlotIters:   d.NewSubSlotIters,
		}

		if idx < len(data)-1 {
			delta := int64(data[idx].NumBlocksOverflow)
			weightList = append(weightList, new(big.Int).Add(totalWeight, big.NewInt(int64(currDifficulty))))
			blocksThisEpoch := int64(c.SubEpochBlocks) + int64(data[idx+1].NumBlocksOverflow) - delta
			totalWeight = new(big.Int).Add(totalWeight, big.NewInt(int64(currDifficulty)*blocksThisEpoch))
		}

		if d.NewDifficulty != nil {
			currDifficulty = *d.NewDifficulty
		}

		summaries = append(summaries, ses)
		sesHash = ses.Hash()
	}
	weightList = append(weightList, new(big.Int).Add(totalWeight, big.NewInt(int64(currDifficulty))))
	return summaries, totalWeight, weightList
}

// validateSummariesWeight is the weight cross-check spec.md §4.5 delegates
// to an external helper; here it is a sanity check that the reconstructed
// total weight is monotone non-negative and that every summary chains to
// the next by hash, since those are the only invariants this package can
// check without the recent-chain tip weight (validated independently in
// Stage D).
func validateSummariesWeight(total *big.Int, summaries []SubEpochSummary) bool {
	if total.Sign() < 0 {
		return false
	}
	for i := 1; i < len(summaries); i++ {
		if summaries[i].PrevSummaryHash != summaries[i-1].Hash() {
			return false
		}
	}
	return true
}

// getLastSes scans the recent chain for the most recent block carrying a
// sub-epoch summary.
func getLastSes(recentChain []HeaderBlock) (Hash, uint32, *big.Int, bool) {
	for i := len(recentChain) - 1; i >= 0; i-- {
		hb := recentChain[i]
		if hb.SubEpochSummaryIncluded != nil {
			w := big.NewInt(0)
			if hb.Weight != nil {
				w = hb.Weight
			}
			return hb.SubEpochSummaryIncluded.Hash(), hb.Height, w, true
		}
	}
	return Hash{}, 0, nil, false
}

func groupSegmentsBySubEpoch(segments []SubEpochChallengeSegmentV2) map[uint32][]SubEpochChallengeSegmentV2 {
	groups := make(map[uint32][]SubEpochChallengeSegmentV2)
	for _, seg := range segments {
		groups[seg.SubEpochN] = append(groups[seg.SubEpochN], seg)
	}
	return groups
}

// validateAllSubEpochs validates every sub-epoch's segment group in
// parallel, bounded by a semaphore sized to the pool's worker count.
func (v *Validator) validateAllSubEpochs(ctx context.Context, groups map[uint32][]SubEpochChallengeSegmentV2, summaries []SubEpochSummary, rng *Rand) error {
	indices := make([]uint32, 0, len(groups))
	for idx := range groups {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	workers := int64(v.pool.workers)
	if workers < 1 {
		workers = 1
	}
	sem := semaphore.NewWeighted(workers)

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range indices {
		idx := idx
		segs := groups[idx]
		sampledSegIndex := rng.IntN(len(segs))
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)
			return v.validateSubEpoch(gctx, idx, segs, summaries, sampledSegIndex)
		})
	}
	return g.Wait()
}

func (v *Validator) getCurrDiffSsi(subEpochN uint32, summaries []SubEpochSummary) (uint64, uint64) {
	difficulty := v.constants.DifficultyStarting
	ssi := v.constants.SubSlotItersStarting
	for i := uint32(0); i < subEpochN; i++ {
		if int(i) >= len(summaries) {
			break
		}
		if summaries[i].NewDifficulty != nil {
			difficulty = *summaries[i].NewDifficulty
		}
		if summaries[i].NewSubSlotIters != nil {
			ssi = *summaries[i].NewSubSlotIters
		}
	}
	return difficulty, ssi
}

func (v *Validator) validateSubEpoch(ctx context.Context, subEpochN uint32, segments []SubEpochChallengeSegmentV2, summaries []SubEpochSummary, sampledSegIndex int) error {
	currDifficulty, currSsi := v.getCurrDiffSsi(subEpochN, summaries)

	var prevSes *SubEpochSummary
	var ccChallenge, iccChallenge Hash
	var haveIcc bool
	if subEpochN == 0 {
		ccChallenge = Hash(v.constants.GenesisChallenge)
		iccChallenge = Hash(v.constants.GenesisChallenge)
		haveIcc = false
	} else {
		if int(subEpochN-1) >= len(summaries) {
			return fmt.Errorf("%w: sub epoch %d out of range", ErrBoundaryMismatch, subEpochN)
		}
		prevSes = &summaries[subEpochN-1]
		rcHash, err := v.rcSubSlotHash(segments[0], currSsi)
		if err != nil {
			return err
		}
		if int(subEpochN) >= len(summaries) || summaries[subEpochN].RewardChainHash != rcHash {
			return fmt.Errorf("%w: sub epoch %d", ErrBoundaryMismatch, subEpochN)
		}
		if segments[0].CcSlotEndInfo == nil {
			return fmt.Errorf("%w: sub epoch %d missing boundary cc slot end info", ErrBoundaryMismatch, subEpochN)
		}
		ccChallenge = segments[0].CcSlotEndInfo.Challenge
		if segments[0].IccSubSlotHash != nil {
			iccChallenge = *segments[0].IccSubSlotHash
			haveIcc = true
		}
	}

	var ipIters uint64
	slotAfterChallenge := false
	var totalBlocks, totalSlots int64
	var totalSlotIters, totalIpIters uint64

	for idx, segment := range segments {
		var ses *SubEpochSummary
		if idx == 0 {
			ses = prevSes
		}
		sampled := sampledSegIndex == idx
		prevChallengeIpIters := ipIters
		if slotAfterChallenge {
			prevChallengeIpIters = 0
		}

		res, err := v.validateSegment(segmentValidationInput{
			segment:              segment,
			currSsi:               currSsi,
			currDifficulty:        currDifficulty,
			ses:                   ses,
			sampled:               sampled,
			ccChallenge:           ccChallenge,
			iccChallenge:          iccChallenge,
			haveIcc:               haveIcc,
			prevChallengeIpIters:  prevChallengeIpIters,
		})
		if err != nil {
			return fmt.Errorf("sub epoch %d segment %d: %w", subEpochN, idx, err)
		}

		ipIters = res.ipIters
		ccChallenge = res.ccChallenge
		iccChallenge = res.iccChallenge
		haveIcc = true
		slotAfterChallenge = res.slotAfterChallenge

		if ses != nil && ses.NewSubSlotIters != nil {
			currSsi = *ses.NewSubSlotIters
		}
		if ses != nil && ses.NewDifficulty != nil {
			currDifficulty = *ses.NewDifficulty
		}

		totalBlocks++
		totalSlotIters += res.slotIters
		totalSlots += res.slots
		totalIpIters += res.ipIters

		if totalSlots == 0 || totalBlocks == 0 {
			continue
		}
		avgIpIters := float64(totalIpIters) / float64(totalBlocks)
		avgSlotIters := float64(totalSlotIters) / float64(totalSlots)
		threshold := float64(v.constants.WeightProofThresholdNum) / float64(v.constants.WeightProofThresholdDen)
		if avgIpIters == 0 || avgSlotIters/avgIpIters < threshold {
			return fmt.Errorf("%w: sub epoch %d ratio %.6f", ErrRatioBelowThreshold, subEpochN, avgSlotIters/avgIpIters)
		}
	}
	return nil
}

// rcSubSlotHash reconstructs the reward-chain sub-slot hash for a
// non-genesis sub-epoch boundary from the first segment's boundary fields.
func (v *Validator) rcSubSlotHash(first SubEpochChallengeSegmentV2, currSsi uint64) (Hash, error) {
	if first.RcSlotEndInfo == nil {
		return Hash{}, fmt.Errorf("%w: missing reward chain boundary info", ErrBoundaryMismatch)
	}
	if first.CcSubSlot == nil {
		return Hash{}, fmt.Errorf("%w: missing challenge chain boundary info", ErrBoundaryMismatch)
	}
	rc := RewardChainSubSlot{
		EndOfSlotVdf:              *first.RcSlotEndInfo,
		ChallengeChainSubSlotHash: first.CcSubSlot.Hash(),
		InfusedChallengeChainHash: first.IccSubSlotHash,
		Deficit:                   0,
	}
	return rc.Hash(), nil
}

type segmentValidationInput struct {
	segment              SubEpochChallengeSegmentV2
	currSsi              uint64
	currDifficulty       uint64
	ses                  *SubEpochSummary
	sampled              bool
	ccChallenge          Hash
	iccChallenge         Hash
	haveIcc              bool
	prevChallengeIpIters uint64
}

type segmentValidationResult struct {
	ipIters            uint64
	slotIters          uint64
	slots              int64
	ccChallenge        Hash
	iccChallenge       Hash
	slotAfterChallenge bool
}

// validateSegment is the per-segment algorithm of spec.md §4.5: walks
// sub_slot_data carrying prev_challenge_ip_iters and a deficit counter,
// verifying VDFs (when sampled) or only iteration bookkeeping (when not).
func (v *Validator) validateSegment(in segmentValidationInput) (*segmentValidationResult, error) {
	longOutputs := make(map[string]ClassGroupElement)

	state := StateInitialSlot
	firstBlock := true
	afterChallengeBlock := false
	var deficit int
	var slotIters uint64
	var slots int64
	prevChallengeIpIters := in.prevChallengeIpIters
	ccChallenge := in.ccChallenge
	iccChallenge := in.iccChallenge
	prevSlotChallenge := in.ccChallenge
	slotAfterChallengeBlock := false

	for idx, ssd := range in.segment.SubSlotData {
		if ssd.IsChallenge() {
			prevChallengeIpIters = ssd.Block.IpIters
			deficit = int(v.constants.MinBlocksPerChallengeBlock) - 1
			state = StateAtChallenge
		}
		if afterChallengeBlock && !ssd.IsEndOfSlot() {
			deficit--
		}

		switch {
		case ssd.IsChallenge():
			newIcc, err := v.validateChallengeBlock(in.segment.SubSlotData, idx, in.currDifficulty, in.currSsi, ccChallenge, prevSlotChallenge, longOutputs, in.sampled)
			if err != nil {
				return nil, err
			}
			iccChallenge = newIcc
			afterChallengeBlock = true
		case in.sampled && afterChallengeBlock:
			if ssd.IsEndOfSlot() {
				if err := v.validateEndOfSlot(ccChallenge, iccChallenge, in.segment.SubSlotData, idx, in.currSsi, longOutputs); err != nil {
					return nil, err
				}
			} else {
				if err := v.validatePostChallengeBlock(in.segment.SubSlotData, idx, in.currSsi, ccChallenge, iccChallenge, longOutputs); err != nil {
					return nil, err
				}
			}
		case !afterChallengeBlock && !ssd.IsEndOfSlot():
			if err := v.validateOverflow(ccChallenge, iccChallenge, firstBlock, in.segment.SubSlotData, idx, longOutputs); err != nil {
				return nil, err
			}
		}

		if ssd.IsEndOfSlot() {
			if afterChallengeBlock {
				slotAfterChallengeBlock = true
				state = StateSlotAfterChallenge
			} else {
				state = StatePreChallenge
			}
			prevCc := ccChallenge
			nextCc, nextIcc, err := v.ccSubSlot(ccChallenge, iccChallenge, in.currSsi, in.ses, in.segment, idx, deficit, prevChallengeIpIters)
			if err != nil {
				return nil, err
			}
			prevSlotChallenge = prevCc
			ccChallenge = nextCc
			iccChallenge = nextIcc
			slotIters += in.currSsi
			slots++
			if in.ses != nil && in.ses.NewSubSlotIters != nil {
				in.currSsi = *in.ses.NewSubSlotIters
			}
			if in.ses != nil && in.ses.NewDifficulty != nil {
				in.currDifficulty = *in.ses.NewDifficulty
			}
		} else {
			firstBlock = false
		}
	}

	_ = state
	return &segmentValidationResult{
		ipIters:            prevChallengeIpIters,
		slotIters:          slotIters,
		slots:              slots,
		ccChallenge:        ccChallenge,
		iccChallenge:       iccChallenge,
		slotAfterChallenge: slotAfterChallengeBlock,
	}, nil
}

// ccSubSlot derives the next (cc_challenge, icc_challenge) pair at a
// slot boundary.
func (v *Validator) ccSubSlot(challenge, iccChallenge Hash, currSsi uint64, ses *SubEpochSummary, segment SubEpochChallengeSegmentV2, index int, prevDeficit int, prevChallengeIpIters uint64) (Hash, Hash, error) {
	ssd := segment.SubSlotData[index]
	if ssd.EndOfSlot == nil {
		return Hash{}, Hash{}, ErrMalformedSegment
	}
	iccHash := iccChallenge
	if ssd.EndOfSlot.IccSlotEndOutput != nil {
		iccIters := currSsi
		if index == 0 {
			if segment.CcSlotEndInfo == nil {
				iccIters = currSsi - prevChallengeIpIters
			} else if segment.PrevIccIpIters != nil {
				iccIters = currSsi - *segment.PrevIccIpIters
			}
		} else {
			for j := index - 1; j >= 0; j-- {
				prior := segment.SubSlotData[j]
				if prior.IsChallenge() {
					iccIters = currSsi - prior.Block.IpIters
					break
				}
				if prior.IsEndOfSlot() {
					break
				}
			}
		}
		info := VDFInfo{Challenge: iccChallenge, NumberOfIterations: iccIters, Output: ssd.EndOfSlot.IccSlotEndOutput}
		iccHash = info.Hash()
	}

	var iccHashPtr *Hash
	if prevDeficit == 0 {
		h := iccHash
		iccHashPtr = &h
	}
	var sesHash *Hash
	var newSsi, newDiff *uint64
	if ses != nil {
		h := ses.Hash()
		sesHash = &h
		newSsi = ses.NewSubSlotIters
		newDiff = ses.NewDifficulty
	}
	ccSlot := ChallengeChainSubSlot{
		ChallengeChainEndOfSlotVdf: VDFInfo{Challenge: challenge, NumberOfIterations: currSsi, Output: ssd.EndOfSlot.CcSlotEndOutput},
		InfusedChallengeChainHash:  iccHashPtr,
		SubepochSummaryHash:        sesHash,
		NewSubSlotIters:            newSsi,
		NewDifficulty:              newDiff,
	}
	return ccSlot.Hash(), iccHash, nil
}

// validateChallengeBlock verifies the challenge block at subSlots[idx]:
// its cc-sp VDF (using the previous sub-slot's challenge when the signage
// point overflows), its cc-ip VDF, and — when sampled — its proof of
// space. It returns the hash of the block's ChallengeBlockInfo, which
// becomes the icc_challenge for everything infused after this block.
func (v *Validator) validateChallengeBlock(subSlots []SubSlotDataV2, idx int, difficulty, ssi uint64, challenge, prevChallenge Hash, longOutputs map[string]ClassGroupElement, sampled bool) (Hash, error) {
	b := subSlots[idx].Block
	if b == nil || b.ProofOfSpace == nil {
		return Hash{}, fmt.Errorf("%w: challenge block missing proof of space", ErrPosInvalid)
	}

	overflow := isOverflowSignagePoint(v.constants, b.SignagePointIndex)
	spChallenge := challenge
	if overflow {
		spChallenge = prevChallenge
	}

	var spInfo *VDFInfo
	if b.CcSpProof != nil {
		if b.CcSpOutput == nil {
			return Hash{}, fmt.Errorf("%w: challenge block missing cc-sp output", ErrVdfInvalid)
		}
		spInput := DefaultClassGroupElement()
		spIters := calculateSpIters(v.constants, ssi, b.SignagePointIndex)
		if idx > 0 && !subSlots[idx-1].IsEndOfSlot() && !b.CcSpProof.NormalizedToIdentity {
			if prev := subSlots[idx-1].Block; prev != nil {
				if out, ok := longOutputs[prev.CcIpOutput.Key()]; ok {
					spInput = out
				}
			}
		}
		ok, spOutput, err := v.vdf.VerifyCompressedVDF(v.constants, spChallenge, spInput, *b.CcSpOutput, b.CcSpProof, spIters)
		if err != nil {
			return Hash{}, err
		}
		if !ok {
			return Hash{}, fmt.Errorf("%w: challenge cc-sp", ErrVdfInvalid)
		}
		longOutputs[b.CcSpOutput.Key()] = spOutput
		spInfo = &VDFInfo{Challenge: spChallenge, NumberOfIterations: spIters, Output: spOutput}
	}

	var ipOutput ClassGroupElement
	if b.CcIpProof != nil {
		ok, output, err := v.vdf.VerifyCompressedVDF(v.constants, challenge, DefaultClassGroupElement(), b.CcIpOutput, b.CcIpProof, b.IpIters)
		if err != nil {
			return Hash{}, err
		}
		if !ok {
			return Hash{}, fmt.Errorf("%w: challenge cc-ip", ErrVdfInvalid)
		}
		longOutputs[b.CcIpOutput.Key()] = output
		ipOutput = output
	}

	if sampled {
		pospaceChallenge := challenge
		if overflow {
			pospaceChallenge = prevChallenge
		}
		quality, ok := v.pos.VerifyAndGetQualityString(v.constants, *b.ProofOfSpace, pospaceChallenge, pospaceChallenge)
		if !ok {
			return Hash{}, fmt.Errorf("%w: quality check failed", ErrPosInvalid)
		}
		_ = RequiredIters(quality, difficulty, ssi)
	}

	info := ChallengeBlockInfo{
		ProofOfSpace:              *b.ProofOfSpace,
		ChallengeChainSpVdf:       spInfo,
		ChallengeChainSpSignature: b.CcSpSignature,
		ChallengeChainIpVdf:       VDFInfo{Challenge: challenge, NumberOfIterations: b.IpIters, Output: ipOutput},
	}
	return info.Hash(), nil
}

func (v *Validator) validatePostChallengeBlock(subSlots []SubSlotDataV2, idx int, ssi uint64, ccChallenge, iccChallenge Hash, longOutputs map[string]ClassGroupElement) error {
	ssd := subSlots[idx].Block
	if ssd == nil {
		return ErrMalformedSegment
	}
	ccInput := DefaultClassGroupElement()
	ipIters := ssd.IpIters
	if idx > 0 && !subSlots[idx-1].IsEndOfSlot() && ssd.CcIpProof != nil && !ssd.CcIpProof.NormalizedToIdentity {
		prev := subSlots[idx-1].Block
		if prev != nil {
			if out, ok := longOutputs[prev.CcIpOutput.Key()]; ok {
				ccInput = out
			}
			if ssd.TotalIters != nil && prev.TotalIters != nil {
				ipIters = ssd.TotalIters.Uint64() - prev.TotalIters.Uint64()
			}
		}
	}
	if ssd.CcIpProof != nil {
		ok, output, err := v.vdf.VerifyCompressedVDF(v.constants, ccChallenge, ccInput, ssd.CcIpOutput, ssd.CcIpProof, ipIters)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: post-challenge cc-ip", ErrVdfInvalid)
		}
		longOutputs[ssd.CcIpOutput.Key()] = output
	}
	if ssd.IccIpProof != nil && ssd.IccIpOutput != nil {
		iccInput := DefaultClassGroupElement()
		if idx > 0 {
			prev := subSlots[idx-1].Block
			if prev != nil && prev.IccIpOutput != nil && !prev.IsChallengeLike() && !ssd.IccIpProof.NormalizedToIdentity {
				out, ok := longOutputs[prev.IccIpOutput.Key()]
				if !ok {
					return fmt.Errorf("%w: missing prior icc output", ErrVdfInvalid)
				}
				iccInput = out
			}
		}
		ok, output, err := v.vdf.VerifyCompressedVDF(v.constants, iccChallenge, iccInput, *ssd.IccIpOutput, ssd.IccIpProof, ipIters)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: post-challenge icc-ip", ErrVdfInvalid)
		}
		longOutputs[ssd.IccIpOutput.Key()] = output
	}
	return nil
}

// IsChallengeLike reports whether this block-variant entry carries a
// proof of space, mirroring SubSlotDataV2.IsChallenge for a bare
// *BlockSubSlotData (used once the wrapper has already been unwrapped).
func (b *BlockSubSlotData) IsChallengeLike() bool { return b.ProofOfSpace != nil }

// validateOverflow verifies a pre-challenge overflow block's cc-ip and
// optional icc-ip VDFs. Preserves the source's tolerant behaviour: if the
// previous block's compressed icc output is absent from long_outputs (the
// previous block was itself a challenge block with no icc output), this
// returns a validation failure rather than panicking — see DESIGN.md Open
// Question 3.
func (v *Validator) validateOverflow(ccChallenge, iccChallenge Hash, firstBlock bool, subSlots []SubSlotDataV2, idx int, longOutputs map[string]ClassGroupElement) error {
	ssd := subSlots[idx].Block
	if ssd == nil {
		return ErrMalformedSegment
	}
	ipInput := DefaultClassGroupElement()
	iterations := ssd.IpIters
	var prev *BlockSubSlotData
	if !firstBlock {
		prevSlot := subSlots[idx-1]
		if !prevSlot.IsEndOfSlot() {
			prev = prevSlot.Block
		}
		if prev != nil && ssd.CcIpProof != nil && !ssd.CcIpProof.NormalizedToIdentity {
			out, ok := longOutputs[prev.CcIpOutput.Key()]
			if !ok {
				return fmt.Errorf("%w: missing prior cc output", ErrVdfInvalid)
			}
			ipInput = out
			if ssd.TotalIters != nil && prev.TotalIters != nil {
				iterations = ssd.TotalIters.Uint64() - prev.TotalIters.Uint64()
			}
		}
	}
	if ssd.CcIpProof == nil {
		return fmt.Errorf("%w: overflow block missing cc-ip proof", ErrVdfInvalid)
	}
	ok, output, err := v.vdf.VerifyCompressedVDF(v.constants, ccChallenge, ipInput, ssd.CcIpOutput, ssd.CcIpProof, iterations)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: overflow cc-ip", ErrVdfInvalid)
	}
	longOutputs[ssd.CcIpOutput.Key()] = output

	if ssd.IccIpProof != nil {
		iccInput := DefaultClassGroupElement()
		if prev != nil {
			if prev.IccIpProof != nil && !prev.IsChallengeLike() && !ssd.IccIpProof.NormalizedToIdentity {
				if prev.IccIpOutput == nil {
					return fmt.Errorf("%w: previous icc output unavailable", ErrVdfInvalid)
				}
				out, ok := longOutputs[prev.IccIpOutput.Key()]
				if !ok {
					// Tolerant failure per DESIGN.md Open Question 3.
					return fmt.Errorf("%w: previous icc output not materialised", ErrVdfInvalid)
				}
				iccInput = out
			}
		}
		if ssd.IccIpOutput == nil {
			return fmt.Errorf("%w: overflow block missing icc-ip output", ErrVdfInvalid)
		}
		ok, output, err := v.vdf.VerifyCompressedVDF(v.constants, iccChallenge, iccInput, *ssd.IccIpOutput, ssd.IccIpProof, iterations)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: overflow icc-ip", ErrVdfInvalid)
		}
		longOutputs[ssd.IccIpOutput.Key()] = output
	}
	return nil
}

// validateEndOfSlot verifies an end-of-slot bundle's cc and icc VDFs.
func (v *Validator) validateEndOfSlot(ccChallenge, iccChallenge Hash, subSlots []SubSlotDataV2, idx int, ssi uint64, longOutputs map[string]ClassGroupElement) error {
	ssd := subSlots[idx].EndOfSlot
	if ssd == nil {
		return ErrMalformedSegment
	}
	prevSlot := subSlots[idx-1]
	ccEosIters := ssi
	ccInput := DefaultClassGroupElement()
	if !prevSlot.IsEndOfSlot() && prevSlot.Block != nil {
		if ssd.CcSlotEndProof != nil && !ssd.CcSlotEndProof.NormalizedToIdentity {
			if out, ok := longOutputs[prevSlot.Block.CcIpOutput.Key()]; ok {
				ccInput = out
			}
			ccEosIters = ssi - prevSlot.Block.IpIters
		}
	}
	ccInfo := VDFInfo{Challenge: ccChallenge, NumberOfIterations: ccEosIters, Output: ssd.CcSlotEndOutput}
	if ssd.CcSlotEndProof == nil || !v.vdf.ValidateEndOfSlot(v.constants, ccInput, ssd.CcSlotEndProof, ccInfo) {
		return fmt.Errorf("%w: cc slot end", ErrVdfInvalid)
	}

	iccInput := DefaultClassGroupElement()
	iccEosIters := ssi
	if !prevSlot.IsEndOfSlot() && prevSlot.Block != nil {
		if ssd.CcSlotEndProof != nil && !ssd.CcSlotEndProof.NormalizedToIdentity {
			if prevSlot.Block.IccIpOutput != nil {
				if out, ok := longOutputs[prevSlot.Block.IccIpOutput.Key()]; ok {
					iccInput = out
				}
			}
			iccEosIters = ssi - prevSlot.Block.IpIters
		} else {
			for j := idx - 1; j >= 0; j-- {
				if subSlots[j].IsChallenge() {
					iccEosIters = ssi - subSlots[j].Block.IpIters
					break
				}
				if subSlots[j].IsEndOfSlot() {
					break
				}
			}
		}
	}
	if ssd.IccSlotEndOutput != nil {
		iccInfo := VDFInfo{Challenge: iccChallenge, NumberOfIterations: iccEosIters, Output: ssd.IccSlotEndOutput}
		if ssd.IccSlotEndProof == nil || !v.vdf.ValidateEndOfSlot(v.constants, iccInput, ssd.IccSlotEndProof, iccInfo) {
			return fmt.Errorf("%w: icc slot end", ErrVdfInvalid)
		}
	}
	return nil
}

// validateRecentChain performs the Stage D recent-chain check. Full
// per-block consensus validation is an external concern (spec.md §4.5,
// "_validate_recent_blocks (external)"); here the check enforces the
// structural invariant this package owns: hash-linkage and height
// monotonicity of the supplied chain.
func (v *Validator) validateRecentChain(ctx context.Context, recentChain []HeaderBlock) error {
	for i := 1; i < len(recentChain); i++ {
		if recentChain[i].PrevHeaderHash != recentChain[i-1].HeaderHash {
			return fmt.Errorf("%w: broken hash chain at height %d", ErrRecentChainInvalid, recentChain[i].Height)
		}
		if recentChain[i].Height != recentChain[i-1].Height+1 {
			return fmt.Errorf("%w: non-contiguous heights at %d", ErrRecentChainInvalid, recentChain[i].Height)
		}
	}
	return nil
}
