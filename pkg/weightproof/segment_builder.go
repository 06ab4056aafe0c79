package weightproof

import (
	"context"
	"fmt"
)

// SegmentBuilder walks a sub-epoch's canonical blocks and produces the
// sequence of SubEpochChallengeSegmentV2 needed to re-derive that
// sub-epoch's end state, per spec.md §4.2.
type SegmentBuilder struct {
	constants Constants
	chain     BlockchainInterface
	vdf       VDFVerifier
	pool      *Pool
}

// NewSegmentBuilder constructs a SegmentBuilder.
func NewSegmentBuilder(c Constants, chain BlockchainInterface, vdf VDFVerifier, pool *Pool) *SegmentBuilder {
	return &SegmentBuilder{constants: c, chain: chain, vdf: vdf, pool: pool}
}

// prevTwoSlotsHeight walks backward from seStart to the block two sub-slot
// boundaries earlier, so that the end-of-slot bundles preceding the first
// challenge block of the sub-epoch are captured.
func prevTwoSlotsHeight(ctx context.Context, chain BlockchainInterface, seStart *BlockRecord) (uint32, error) {
	boundaries := 0
	curr := seStart
	for curr.Height > 0 && boundaries < 2 {
		prev, ok := chain.HeightToBlockRecord(curr.Height - 1)
		if !ok {
			return 0, fmt.Errorf("weightproof: prevTwoSlotsHeight: missing block at height %d", curr.Height-1)
		}
		if prev.FirstInSubSlot {
			boundaries++
		}
		curr = prev
	}
	return curr.Height, nil
}

// BuildSubEpochSegments builds every challenge segment for the sub-epoch
// ending at sesBlock, starting from seStart (the previous sub-epoch's
// summary block, or genesis for sub-epoch 0).
func (b *SegmentBuilder) BuildSubEpochSegments(ctx context.Context, sesBlock, seStart *BlockRecord, subEpochN uint32) ([]SubEpochChallengeSegmentV2, error) {
	startHeight, err := prevTwoSlotsHeight(ctx, b.chain, seStart)
	if err != nil {
		return nil, err
	}
	endHeight := sesBlock.Height + b.constants.MaxSubSlotBlocks
	blocks, err := b.chain.GetBlockRecordsInRange(ctx, startHeight, endHeight)
	if err != nil {
		return nil, err
	}
	headers, err := b.chain.GetHeaderBlocksInRange(ctx, startHeight, endHeight, false)
	if err != nil {
		return nil, err
	}

	curr, ok := headers[seStart.HeaderHash]
	if !ok {
		return nil, fmt.Errorf("weightproof: BuildSubEpochSegments: missing header for sub-epoch start")
	}
	height := seStart.Height
	first := true
	var segments []SubEpochChallengeSegmentV2

	for curr.Height < sesBlock.Height {
		rec, ok := blocks[curr.HeaderHash]
		if !ok {
			return nil, fmt.Errorf("weightproof: BuildSubEpochSegments: missing block record at height %d", curr.Height)
		}
		if rec.IsChallengeBlock(b.constants) {
			seg, endH, err := b.createChallengeSegment(ctx, curr, subEpochN, headers, blocks, first)
			if err != nil {
				return nil, err
			}
			segments = append(segments, *seg)
			height = endH
			first = false
		} else {
			height = height + 1
		}
		hash, ok := b.chain.HeightToHash(height)
		if !ok {
			return nil, fmt.Errorf("weightproof: BuildSubEpochSegments: missing hash at height %d", height)
		}
		next, ok := headers[hash]
		if !ok {
			return nil, fmt.Errorf("weightproof: BuildSubEpochSegments: missing header at height %d", height)
		}
		curr = next
	}
	return segments, nil
}

func (b *SegmentBuilder) createChallengeSegment(
	ctx context.Context,
	headerBlock *HeaderBlock,
	subEpochN uint32,
	headers map[Hash]*HeaderBlock,
	blocks map[Hash]*BlockRecord,
	firstSegmentInSubEpoch bool,
) (*SubEpochChallengeSegmentV2, uint32, error) {
	firstSubSlots, endOfSlotBundle, err := b.firstSubSlotVdfs(ctx, headerBlock, headers, blocks, firstSegmentInSubEpoch)
	if err != nil {
		return nil, 0, err
	}

	var subSlots []SubSlotDataV2
	subSlots = append(subSlots, firstSubSlots...)

	challengeSlot, err := b.handleBlockVdfs(ctx, headerBlock, blocks)
	if err != nil {
		return nil, 0, err
	}
	subSlots = append(subSlots, challengeSlot)

	tailSlots, endHeight, err := b.slotEndVdf(ctx, headerBlock.Height+1, headers, blocks)
	if err != nil {
		return nil, 0, err
	}
	subSlots = append(subSlots, tailSlots...)

	if firstSegmentInSubEpoch && subEpochN != 0 && endOfSlotBundle != nil {
		if endOfSlotBundle.InfusedChallengeChain == nil {
			return nil, 0, fmt.Errorf("weightproof: boundary slot missing infused challenge chain")
		}
		rcSlotEndInfo := endOfSlotBundle.RewardChain.EndOfSlotVdf
		ccSlotEndInfo := endOfSlotBundle.ChallengeChain.ChallengeChainEndOfSlotVdf
		ccSubSlot := endOfSlotBundle.ChallengeChain
		iccChallenge := endOfSlotBundle.InfusedChallengeChain.InfusedChallengeChainEndOfSlotVdf.Challenge

		prevIccIpIters := b.prevChallengeIpIters(headerBlock, blocks)

		return &SubEpochChallengeSegmentV2{
			SubEpochN:      subEpochN,
			SubSlotData:    subSlots,
			RcSlotEndInfo:  &rcSlotEndInfo,
			CcSlotEndInfo:  &ccSlotEndInfo,
			IccSubSlotHash: &iccChallenge,
			PrevIccIpIters: prevIccIpIters,
			CcSubSlot:      &ccSubSlot,
		}, endHeight, nil
	}

	return &SubEpochChallengeSegmentV2{SubEpochN: subEpochN, SubSlotData: subSlots}, endHeight, nil
}

// prevChallengeIpIters searches backwards for the previous challenge
// block's ip_iters, crossing at most one slot boundary if headerBlock is
// not itself first-in-sub-slot, otherwise crossing zero or one additional
// boundaries, per spec.md §4.2 step 4.
func (b *SegmentBuilder) prevChallengeIpIters(headerBlock *HeaderBlock, blocks map[Hash]*BlockRecord) *uint64 {
	slotsToCheck := 1
	if !headerBlock.FirstInSubSlot {
		slotsToCheck = 2
	}
	curr, ok := blocks[headerBlock.PrevHeaderHash]
	if !ok {
		return nil
	}
	for {
		if curr.IsChallengeBlock(b.constants) {
			v := curr.IpIters(b.constants)
			return &v
		}
		if curr.FirstInSubSlot {
			slotsToCheck--
			if slotsToCheck == 0 {
				return nil
			}
		}
		next, ok := blocks[curr.PrevHash]
		if !ok {
			return nil
		}
		curr = next
	}
}

// firstSubSlotVdfs walks from the slot start containing headerBlock
// forward to headerBlock, accumulating per-block VDF data and per-slot
// end-of-slot data. A blue-boxed end-of-slot bundle supersedes any
// tentative per-block VDFs accumulated within that slot.
func (b *SegmentBuilder) firstSubSlotVdfs(
	ctx context.Context,
	headerBlock *HeaderBlock,
	headers map[Hash]*HeaderBlock,
	blocks map[Hash]*BlockRecord,
	firstInSubEpoch bool,
) ([]SubSlotDataV2, *EndOfSubSlotBundle, error) {
	currRec, ok := blocks[headerBlock.HeaderHash]
	if !ok {
		return nil, nil, fmt.Errorf("weightproof: firstSubSlotVdfs: missing block record")
	}
	for currRec.Height != 0 {
		prev, ok := blocks[currRec.PrevHash]
		if !ok || prev.Deficit == 0 {
			break
		}
		currRec = prev
	}

	var boundaryBundle *EndOfSubSlotBundle
	if firstInSubEpoch && currRec.Height > 0 {
		if currRec.SubEpochSummaryIncluded == nil {
			return nil, nil, fmt.Errorf("weightproof: expected sub epoch summary at boundary block")
		}
		hdr, ok := headers[currRec.HeaderHash]
		if !ok || len(hdr.FinishedSubSlots) == 0 {
			return nil, nil, fmt.Errorf("weightproof: missing finished sub slots at boundary block")
		}
		boundaryBundle = &hdr.FinishedSubSlots[len(hdr.FinishedSubSlots)-1]
	}

	var subSlotsData, tmp []SubSlotDataV2
	curr, ok := headers[currRec.HeaderHash]
	if !ok {
		return nil, nil, fmt.Errorf("weightproof: firstSubSlotVdfs: missing header")
	}
	for curr.Height < headerBlock.Height {
		if curr.FirstInSubSlot {
			if len(curr.FinishedSubSlots) == 0 || !blueBoxedEndOfSlot(curr.FinishedSubSlots[0]) {
				subSlotsData = append(subSlotsData, tmp...)
			}
			for _, eos := range curr.FinishedSubSlots {
				subSlotsData = append(subSlotsData, handleFinishedSlot(eos))
			}
			tmp = nil
		}
		ssd, err := b.handleBlockVdfs(ctx, curr, blocks)
		if err != nil {
			return nil, nil, err
		}
		tmp = append(tmp, ssd)
		hash, ok := b.chain.HeightToHash(curr.Height + 1)
		if !ok {
			return nil, nil, fmt.Errorf("weightproof: missing hash at height %d", curr.Height+1)
		}
		next, ok := headers[hash]
		if !ok {
			return nil, nil, fmt.Errorf("weightproof: missing header at height %d", curr.Height+1)
		}
		curr = next
	}
	subSlotsData = append(subSlotsData, tmp...)
	for _, eos := range headerBlock.FinishedSubSlots {
		subSlotsData = append(subSlotsData, handleFinishedSlot(eos))
	}
	return subSlotsData, boundaryBundle, nil
}

// slotEndVdf walks from startHeight forward until reaching a block whose
// deficit equals MinBlocksPerChallengeBlock, i.e. the challenge slot has
// ended, applying the same blue-box rule.
func (b *SegmentBuilder) slotEndVdf(ctx context.Context, startHeight uint32, headers map[Hash]*HeaderBlock, blocks map[Hash]*BlockRecord) ([]SubSlotDataV2, uint32, error) {
	hash, ok := b.chain.HeightToHash(startHeight)
	if !ok {
		return nil, 0, fmt.Errorf("weightproof: slotEndVdf: missing hash at height %d", startHeight)
	}
	curr, ok := headers[hash]
	if !ok {
		return nil, 0, fmt.Errorf("weightproof: slotEndVdf: missing header at height %d", startHeight)
	}
	var subSlotsData, tmp []SubSlotDataV2
	for {
		rec, ok := blocks[curr.HeaderHash]
		if !ok {
			return nil, 0, fmt.Errorf("weightproof: slotEndVdf: missing block record")
		}
		if rec.IsChallengeBlock(b.constants) {
			break
		}
		if curr.FirstInSubSlot {
			if len(curr.FinishedSubSlots) == 0 || !blueBoxedEndOfSlot(curr.FinishedSubSlots[0]) {
				subSlotsData = append(subSlotsData, tmp...)
			}
			for _, eos := range curr.FinishedSubSlots {
				subSlotsData = append(subSlotsData, handleFinishedSlot(eos))
			}
			tmp = nil
		}
		ssd, err := b.handleBlockVdfs(ctx, curr, blocks)
		if err != nil {
			return nil, 0, err
		}
		tmp = append(tmp, ssd)
		nextHash, ok := b.chain.HeightToHash(curr.Height + 1)
		if !ok {
			return nil, 0, fmt.Errorf("weightproof: missing hash at height %d", curr.Height+1)
		}
		next, ok := headers[nextHash]
		if !ok {
			return nil, 0, fmt.Errorf("weightproof: missing header at height %d", curr.Height+1)
		}
		curr = next
		nextRec, ok := blocks[curr.HeaderHash]
		if ok && nextRec.Deficit == uint8(b.constants.MinBlocksPerChallengeBlock) {
			break
		}
	}
	subSlotsData = append(subSlotsData, tmp...)
	return subSlotsData, curr.Height, nil
}

// blueBoxedEndOfSlot reports whether every VDF in the bundle is normalized
// to the identity element, which lets validators skip the intermediate
// per-block VDFs this bundle supersedes.
func blueBoxedEndOfSlot(eos EndOfSubSlotBundle) bool {
	if eos.ChallengeChainSlotProof == nil || !eos.ChallengeChainSlotProof.NormalizedToIdentity {
		return false
	}
	if eos.InfusedChallengeChainSlotProof != nil && !eos.InfusedChallengeChainSlotProof.NormalizedToIdentity {
		return false
	}
	return true
}

// handleBlockVdfs compresses a single block's VDF outputs (cc-sp, cc-ip,
// icc-ip) into a BlockSubSlotData entry.
func (b *SegmentBuilder) handleBlockVdfs(ctx context.Context, header *HeaderBlock, blocks map[Hash]*BlockRecord) (SubSlotDataV2, error) {
	rec, ok := blocks[header.HeaderHash]
	if !ok {
		return SubSlotDataV2{}, fmt.Errorf("weightproof: handleBlockVdfs: missing block record")
	}

	var compressedSp *CompressedClassGroupElement
	if header.ChallengeChainSpProof != nil {
		spInput := DefaultClassGroupElement()
		spIters := header.ChallengeChainSpVdf.NumberOfIterations
		compressed, err := b.vdf.CompressOutput(b.constants, header.ChallengeChainSpVdf.Challenge, spInput, header.ChallengeChainSpVdf.Output, header.ChallengeChainSpProof, spIters)
		if err != nil {
			return SubSlotDataV2{}, err
		}
		compressedSp = &compressed
	}

	ccIpInput := DefaultClassGroupElement()
	ccIpIters := rec.IpIters(b.constants)
	var prevRec *BlockRecord
	if header.Height > 0 && !rec.FirstInSubSlot {
		prevRec, ok = blocks[header.PrevHeaderHash]
		if !ok {
			return SubSlotDataV2{}, fmt.Errorf("weightproof: handleBlockVdfs: missing prev block record")
		}
		if header.ChallengeChainIpProof != nil && !header.ChallengeChainIpProof.NormalizedToIdentity {
			ccIpInput = prevRec.ChallengeVdfOutput
			ccIpIters = rec.TotalIters.Uint64() - prevRec.TotalIters.Uint64()
		}
	}
	compressedCcIp, err := b.vdf.CompressOutput(b.constants, header.ChallengeChainIpVdf.Challenge, ccIpInput, header.ChallengeChainIpVdf.Output, header.ChallengeChainIpProof, ccIpIters)
	if err != nil {
		return SubSlotDataV2{}, err
	}

	var compressedIccIp *CompressedClassGroupElement
	if header.InfusedChallengeChainIpProof != nil {
		iccIpIters := rec.IpIters(b.constants)
		iccIpInput := DefaultClassGroupElement()
		if !rec.FirstInSubSlot {
			if prevRec == nil {
				return SubSlotDataV2{}, fmt.Errorf("weightproof: handleBlockVdfs: missing prev for icc")
			}
			iccIpIters = header.TotalIters.Uint64() - prevRec.TotalIters.Uint64()
			if !prevRec.IsChallengeBlock(b.constants) {
				iccIpInput = prevRec.InfusedChallengeVdfOutput
			}
		}
		compressed, err := b.vdf.CompressOutput(b.constants, header.InfusedChallengeChainIpVdf.Challenge, iccIpInput, header.InfusedChallengeChainIpVdf.Output, header.InfusedChallengeChainIpProof, iccIpIters)
		if err != nil {
			return SubSlotDataV2{}, err
		}
		compressedIccIp = &compressed
	}

	var pos *ProofOfSpace
	var spSig []byte
	if rec.IsChallengeBlock(b.constants) {
		pos = header.ProofOfSpace
		spSig = header.ChallengeChainSpSignature
	}

	return NewBlockSubSlotData(BlockSubSlotData{
		ProofOfSpace:      pos,
		CcSpProof:         header.ChallengeChainSpProof,
		CcIpProof:         header.ChallengeChainIpProof,
		SignagePointIndex: header.SignagePointIndex,
		CcSpOutput:        compressedSp,
		CcIpOutput:        compressedCcIp,
		IccIpProof:        header.InfusedChallengeChainIpProof,
		IccIpOutput:       compressedIccIp,
		CcSpSignature:     spSig,
		IpIters:           rec.IpIters(b.constants),
		TotalIters:        rec.TotalIters,
	}), nil
}

// handleFinishedSlot projects an end-of-slot bundle down to its
// EndOfSlot-variant SubSlotDataV2.
func handleFinishedSlot(eos EndOfSubSlotBundle) SubSlotDataV2 {
	var iccOutput ClassGroupElement
	if eos.InfusedChallengeChain != nil {
		iccOutput = eos.InfusedChallengeChain.InfusedChallengeChainEndOfSlotVdf.Output
	}
	return NewEndOfSlotSubSlotData(EndOfSlotSubSlotData{
		CcSlotEndProof:   eos.ChallengeChainSlotProof,
		CcSlotEndOutput:  eos.ChallengeChain.ChallengeChainEndOfSlotVdf.Output,
		IccSlotEndProof:  eos.InfusedChallengeChainSlotProof,
		IccSlotEndOutput: iccOutput,
	})
}

// compressSegments strips per-VDF evidence from every segment except
// fullSegmentIndex, the one segment per sub-epoch subjected to full
// re-verification.
func compressSegments(fullSegmentIndex int, segments []SubEpochChallengeSegmentV2) []SubEpochChallengeSegmentV2 {
	out := make([]SubEpochChallengeSegmentV2, len(segments))
	for i, seg := range segments {
		if i == fullSegmentIndex {
			out[i] = seg
			continue
		}
		out[i] = compressSegment(seg)
	}
	return out
}

// compressSegment strips the cc-sp, cc-ip, cc-slot-end, icc-ip, and
// icc-slot-end proofs from every sub-slot datum strictly after the challenge
// slot; compressed outputs and iteration counts are kept.
// Pre-challenge overflow data, and the challenge slot itself, are retained
// unconditionally — see DESIGN.md Open Question 2.
func compressSegment(segment SubEpochChallengeSegmentV2) SubEpochChallengeSegmentV2 {
	comp := SubEpochChallengeSegmentV2{
		SubEpochN:      segment.SubEpochN,
		RcSlotEndInfo:  segment.RcSlotEndInfo,
		CcSlotEndInfo:  segment.CcSlotEndInfo,
		IccSubSlotHash: segment.IccSubSlotHash,
		PrevIccIpIters: segment.PrevIccIpIters,
		CcSubSlot:      segment.CcSubSlot,
	}
	afterChallenge := false
	for _, ssd := range segment.SubSlotData {
		newSlot := ssd
		if afterChallenge {
			switch ssd.Kind {
			case SubSlotKindBlock:
				// Only the proofs are stripped; compressed outputs are
				// kept since ratio accounting and hash chaining still
				// need the iteration counts and compressed outputs.
				stripped := *ssd.Block
				stripped.CcSpProof = nil
				stripped.CcIpProof = nil
				stripped.IccIpProof = nil
				newSlot = NewBlockSubSlotData(stripped)
			case SubSlotKindEndOfSlot:
				stripped := *ssd.EndOfSlot
				stripped.CcSlotEndProof = nil
				stripped.IccSlotEndProof = nil
				newSlot = NewEndOfSlotSubSlotData(stripped)
			}
		}
		if ssd.IsChallenge() {
			afterChallenge = true
		}
		comp.SubSlotData = append(comp.SubSlotData, newSlot)
	}
	return comp
}
