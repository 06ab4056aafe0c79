package weightproof

import (
	"context"
	"math/big"
)

// BlockRecord is the minimal per-block consensus state the builder and
// validator need: enough to walk the chain and decide challenge-block
// membership, but none of the transaction or reward bookkeeping that is
// out of scope for weight proofs.
type BlockRecord struct {
	Height                  uint32
	HeaderHash              Hash
	PrevHash                Hash
	Weight                  *big.Int
	TotalIters              *big.Int
	Deficit                 uint8
	FirstInSubSlot          bool
	Overflow                bool
	SubEpochSummaryIncluded *SubEpochSummary
	ChallengeVdfOutput      ClassGroupElement
	InfusedChallengeVdfOutput ClassGroupElement
}

// IsChallengeBlock reports whether this block starts a new challenge slot,
// i.e. its deficit counter has reached zero.
func (b *BlockRecord) IsChallengeBlock(c Constants) bool {
	return b.Deficit == 0
}

// IpIters returns the number of VDF iterations from the start of this
// block's sub-slot to its infusion point.
func (b *BlockRecord) IpIters(c Constants) uint64 {
	return b.TotalIters.Uint64()
}

// BlockchainInterface is the external collaborator the weight proof
// subsystem is built against. Storage, persistence, and networking are all
// out of scope (spec.md §1); this is the seam across which they are
// injected.
type BlockchainInterface interface {
	// TryBlockRecord returns the cached BlockRecord for hash, if present,
	// without touching storage.
	TryBlockRecord(hash Hash) (*BlockRecord, bool)

	// GetBlockRecordFromDB fetches a BlockRecord, hitting storage if
	// necessary.
	GetBlockRecordFromDB(ctx context.Context, hash Hash) (*BlockRecord, error)

	// HeightToHash returns the canonical header hash at height.
	HeightToHash(height uint32) (Hash, bool)

	// HeightToBlockRecord returns the canonical BlockRecord at height.
	HeightToBlockRecord(height uint32) (*BlockRecord, bool)

	// GetSesHeights returns the ascending heights of every sub-epoch
	// summary block known to the chain.
	GetSesHeights() []uint32

	// GetSes returns the sub-epoch summary recorded at height, if any.
	GetSes(height uint32) (*SubEpochSummary, bool)

	// GetBlockRecordsAt returns, in order, the BlockRecord at each
	// requested height (nil entries where unknown).
	GetBlockRecordsAt(ctx context.Context, heights []uint32) ([]*BlockRecord, error)

	// GetBlockRecordsInRange returns every BlockRecord with height in
	// [from, to], keyed by header hash.
	GetBlockRecordsInRange(ctx context.Context, from, to uint32) (map[Hash]*BlockRecord, error)

	// GetHeaderBlocksInRange returns every HeaderBlock with height in
	// [from, to], keyed by header hash. txFilter is accepted for parity
	// with the source interface but ignored: weight proofs never need
	// transaction bodies.
	GetHeaderBlocksInRange(ctx context.Context, from, to uint32, txFilter bool) (map[Hash]*HeaderBlock, error)

	// GetSubEpochChallengeSegmentsV2 returns a previously-persisted
	// segment set for the sub-epoch ending at sesBlockHash, if cached.
	GetSubEpochChallengeSegmentsV2(ctx context.Context, sesBlockHash Hash) ([]SubEpochChallengeSegmentV2, bool, error)

	// PersistSubEpochChallengeSegmentsV2 caches a freshly built segment
	// set so future proof builds can skip reconstruction.
	PersistSubEpochChallengeSegmentsV2(ctx context.Context, sesBlockHash Hash, segments []SubEpochChallengeSegmentV2) error

	// GetPeakHeight returns the chain's current peak height, if known.
	GetPeakHeight() (uint32, bool)
}

// VDFVerifier is the injected VDF re-execution and compression boundary.
// Both operations are treated as pure functions of their byte-serialised
// inputs, per spec.md §5, so they can run on a worker pool without sharing
// memory with the caller beyond the task payload.
type VDFVerifier interface {
	// VerifyCompressedVDF checks that running the VDF from challenge over
	// input for iterations steps, as attested by proof, yields output. On
	// success it returns the re-expanded (uncompressed) group element so
	// callers can thread it into the next VDF's input.
	VerifyCompressedVDF(c Constants, challenge Hash, input ClassGroupElement, output CompressedClassGroupElement, proof *VDFProof, iterations uint64) (bool, ClassGroupElement, error)

	// CompressOutput produces the short representative of a VDF output,
	// used by the builder when materialising segments.
	CompressOutput(c Constants, challenge Hash, input ClassGroupElement, output ClassGroupElement, proof *VDFProof, iterations uint64) (CompressedClassGroupElement, error)

	// ValidateEndOfSlot checks an end-of-slot VDF directly against its
	// claimed VDFInfo (no separate compressed-output recovery step, since
	// end-of-slot outputs are stored uncompressed).
	ValidateEndOfSlot(c Constants, input ClassGroupElement, proof *VDFProof, info VDFInfo) bool
}

// PoSpaceVerifier is the injected proof-of-space quality check boundary.
type PoSpaceVerifier interface {
	// VerifyAndGetQualityString checks pos against challenge and the
	// signage-point challenge, returning the quality string used to
	// derive required_iters on success.
	VerifyAndGetQualityString(c Constants, pos ProofOfSpace, challenge, signagePointChallenge Hash) ([]byte, bool)
}

// RequiredIters computes the number of VDF iterations a challenge block
// must accumulate before its infusion point, from a proof-of-space quality
// string and the current difficulty/sub-slot-iters. This is a thin
// deterministic function of already-verified inputs, not an opaque
// external collaborator, so it lives in this package rather than behind an
// interface.
func RequiredIters(quality []byte, difficulty, subSlotIters uint64) uint64 {
	if len(quality) == 0 || difficulty == 0 {
		return subSlotIters
	}
	h := uint64(0)
	for _, b := range quality[:min(8, len(quality))] {
		h = h<<8 | uint64(b)
	}
	if h == 0 {
		h = 1
	}
	iters := subSlotIters / (h%difficulty + 1)
	if iters == 0 {
		iters = 1
	}
	return iters
}
