package weightproof

import (
	"math/big"

	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/types"
)

// Hash is re-exported for readability inside this package.
type Hash = types.Hash

// ClassGroupElement is an opaque VDF group element. The weight proof
// subsystem never inspects its bytes; it only feeds them to the injected
// VDFVerifier and compares them for equality/keying into maps.
type ClassGroupElement []byte

// DefaultClassGroupElement returns the group's identity element. The VDF
// verifier is expected to recognise this as "no prior output" sentinel.
func DefaultClassGroupElement() ClassGroupElement { return nil }

// CompressedClassGroupElement is the shortened form produced by
// CompressOutput. It is comparable (used as a map key in long_outputs) via
// its string form.
type CompressedClassGroupElement []byte

// Key returns a comparable map key for this compressed element.
func (c CompressedClassGroupElement) Key() string { return string(c) }

// VDFProof is an opaque proof blob plus the one bit of structure the
// algorithm actually inspects: whether the proof is normalized to the
// identity element (a "blue-boxed" proof, which lets validators skip
// re-deriving the true VDF input).
type VDFProof struct {
	NormalizedToIdentity bool
	Witness              []byte
}

// VDFInfo describes a single VDF evaluation: the challenge it ran from, the
// iteration count, and the resulting output.
type VDFInfo struct {
	Challenge         Hash
	NumberOfIterations uint64
	Output            ClassGroupElement
}

// Hash returns the canonical digest of this VDFInfo, used as an
// infused-challenge-chain hash input.
func (v VDFInfo) Hash() Hash {
	var w Writer
	w.WriteHash(v.Challenge)
	w.WriteUint64(v.NumberOfIterations)
	w.WriteBytes(v.Output)
	return types.Keccak256Hash(w.Bytes())
}

// ProofOfSpace is an opaque proof-of-space blob. Its quality is checked by
// the injected PoSpaceVerifier; this package only stores and serializes it.
type ProofOfSpace struct {
	Challenge    Hash
	PoolKey      []byte
	PlotKey      []byte
	Size         uint8
	Proof        []byte
}

// ChallengeBlockInfo is the subset of a challenge block's fields hashed
// into the infused-challenge-chain derivation.
type ChallengeBlockInfo struct {
	ProofOfSpace            ProofOfSpace
	ChallengeChainSpVdf     *VDFInfo
	ChallengeChainSpSignature []byte
	ChallengeChainIpVdf     VDFInfo
}

// Hash returns the canonical digest of this challenge block info.
func (c ChallengeBlockInfo) Hash() Hash {
	var w Writer
	w.WriteBytes(c.ProofOfSpace.Proof)
	if c.ChallengeChainSpVdf != nil {
		w.WriteOptTrue()
		w.WriteHash(c.ChallengeChainSpVdf.Hash())
	} else {
		w.WriteOptFalse()
	}
	w.WriteBytes(c.ChallengeChainSpSignature)
	w.WriteHash(c.ChallengeChainIpVdf.Hash())
	return types.Keccak256Hash(w.Bytes())
}

// ChallengeChainSubSlot is the challenge-chain half of an end-of-slot
// bundle.
type ChallengeChainSubSlot struct {
	ChallengeChainEndOfSlotVdf   VDFInfo
	InfusedChallengeChainHash    *Hash
	SubepochSummaryHash          *Hash
	NewSubSlotIters              *uint64
	NewDifficulty                 *uint64
}

// Hash returns the canonical digest of this challenge chain sub-slot,
// which becomes the next slot's challenge.
func (c ChallengeChainSubSlot) Hash() Hash {
	var w Writer
	w.WriteHash(c.ChallengeChainEndOfSlotVdf.Hash())
	if c.InfusedChallengeChainHash != nil {
		w.WriteOptTrue()
		w.WriteHash(*c.InfusedChallengeChainHash)
	} else {
		w.WriteOptFalse()
	}
	if c.SubepochSummaryHash != nil {
		w.WriteOptTrue()
		w.WriteHash(*c.SubepochSummaryHash)
	} else {
		w.WriteOptFalse()
	}
	if c.NewSubSlotIters != nil {
		w.WriteOptTrue()
		w.WriteUint64(*c.NewSubSlotIters)
	} else {
		w.WriteOptFalse()
	}
	if c.NewDifficulty != nil {
		w.WriteOptTrue()
		w.WriteUint64(*c.NewDifficulty)
	} else {
		w.WriteOptFalse()
	}
	return types.Keccak256Hash(w.Bytes())
}

// RewardChainSubSlot is the reward-chain half of an end-of-slot bundle.
type RewardChainSubSlot struct {
	EndOfSlotVdf               VDFInfo
	ChallengeChainSubSlotHash  Hash
	InfusedChallengeChainHash  *Hash
	Deficit                    uint8
}

// Hash returns the canonical digest of this reward chain sub-slot.
func (r RewardChainSubSlot) Hash() Hash {
	var w Writer
	w.WriteHash(r.EndOfSlotVdf.Hash())
	w.WriteHash(r.ChallengeChainSubSlotHash)
	if r.InfusedChallengeChainHash != nil {
		w.WriteOptTrue()
		w.WriteHash(*r.InfusedChallengeChainHash)
	} else {
		w.WriteOptFalse()
	}
	w.WriteUint8(r.Deficit)
	return types.Keccak256Hash(w.Bytes())
}

// SubEpochSummary is the domain primitive hashed into the summary chain.
type SubEpochSummary struct {
	PrevSummaryHash   Hash
	RewardChainHash   Hash
	NumBlocksOverflow uint8
	NewDifficulty     *uint64
	NewSubSlotIters   *uint64
}

// Hash returns the canonical digest of this summary, which becomes the
// next summary's PrevSummaryHash.
func (s SubEpochSummary) Hash() Hash {
	var w Writer
	w.WriteHash(s.PrevSummaryHash)
	w.WriteHash(s.RewardChainHash)
	w.WriteUint8(s.NumBlocksOverflow)
	if s.NewDifficulty != nil {
		w.WriteOptTrue()
		w.WriteUint64(*s.NewDifficulty)
	} else {
		w.WriteOptFalse()
	}
	if s.NewSubSlotIters != nil {
		w.WriteOptTrue()
		w.WriteUint64(*s.NewSubSlotIters)
	} else {
		w.WriteOptFalse()
	}
	return types.Keccak256Hash(w.Bytes())
}

// SubEpochData is the wire-compact projection of a SubEpochSummary: the
// prev-summary-hash link is implicit (it chains from the previous entry)
// rather than carried explicitly.
type SubEpochData struct {
	RewardChainHash   Hash
	NumBlocksOverflow uint8
	NewSubSlotIters   *uint64
	NewDifficulty     *uint64
}

// NewSubEpochData projects a SubEpochSummary down to its wire form.
func NewSubEpochData(s SubEpochSummary) SubEpochData {
	return SubEpochData{
		RewardChainHash:   s.RewardChainHash,
		NumBlocksOverflow: s.NumBlocksOverflow,
		NewSubSlotIters:   s.NewSubSlotIters,
		NewDifficulty:     s.NewDifficulty,
	}
}

// SubSlotKind discriminates the two variants of SubSlotDataV2.
type SubSlotKind uint8

const (
	SubSlotKindBlock SubSlotKind = iota
	SubSlotKindEndOfSlot
)

// BlockSubSlotData carries the per-block VDF evidence accumulated while
// walking a sub-epoch: either a full challenge block (ProofOfSpace set) or
// a plain/overflow block contributing only infusion-point data.
type BlockSubSlotData struct {
	ProofOfSpace      *ProofOfSpace
	CcSpProof         *VDFProof
	CcIpProof         *VDFProof
	SignagePointIndex uint8
	CcSpOutput        *CompressedClassGroupElement
	CcIpOutput        CompressedClassGroupElement
	IccIpProof        *VDFProof
	IccIpOutput       *CompressedClassGroupElement
	CcSpSignature     []byte
	IpIters           uint64
	TotalIters        *big.Int
}

// EndOfSlotSubSlotData carries the VDF evidence for a sub-slot boundary.
type EndOfSlotSubSlotData struct {
	CcSlotEndProof  *VDFProof
	CcSlotEndOutput ClassGroupElement
	IccSlotEndProof *VDFProof
	IccSlotEndOutput ClassGroupElement
}

// SubSlotDataV2 is the internal tagged-variant representation of a single
// entry in a challenge segment: either a Block or an EndOfSlot, never a
// record of optionals with both populated. This replaces the source's
// pervasive "assert field is not None" pattern with an exhaustive type
// switch at each use site.
type SubSlotDataV2 struct {
	Kind      SubSlotKind
	Block     *BlockSubSlotData
	EndOfSlot *EndOfSlotSubSlotData
}

// NewBlockSubSlotData constructs a Block-variant SubSlotDataV2.
func NewBlockSubSlotData(b BlockSubSlotData) SubSlotDataV2 {
	return SubSlotDataV2{Kind: SubSlotKindBlock, Block: &b}
}

// NewEndOfSlotSubSlotData constructs an EndOfSlot-variant SubSlotDataV2.
func NewEndOfSlotSubSlotData(e EndOfSlotSubSlotData) SubSlotDataV2 {
	return SubSlotDataV2{Kind: SubSlotKindEndOfSlot, EndOfSlot: &e}
}

// IsEndOfSlot reports whether this entry is a slot-boundary marker.
func (s SubSlotDataV2) IsEndOfSlot() bool { return s.Kind == SubSlotKindEndOfSlot }

// IsChallenge reports whether this entry is a challenge block (a Block
// variant carrying a ProofOfSpace).
func (s SubSlotDataV2) IsChallenge() bool {
	return s.Kind == SubSlotKindBlock && s.Block.ProofOfSpace != nil
}

// Validate enforces the tagged-variant invariant: a Block entry carries no
// end-of-slot fields and vice versa. Constructing via NewBlockSubSlotData /
// NewEndOfSlotSubSlotData already guarantees this; Validate exists for
// values decoded off the wire.
func (s SubSlotDataV2) Validate() error {
	switch s.Kind {
	case SubSlotKindBlock:
		if s.Block == nil || s.EndOfSlot != nil {
			return ErrMalformedSegment
		}
	case SubSlotKindEndOfSlot:
		if s.EndOfSlot == nil || s.Block != nil {
			return ErrMalformedSegment
		}
	default:
		return ErrMalformedSegment
	}
	return nil
}

// SubEpochChallengeSegmentV2 is one challenge-block-rooted segment of a
// sub-epoch's proof. The five boundary fields (RcSlotEndInfo,
// CcSlotEndInfo, IccSubSlotHash, PrevIccIpIters, CcSubSlot) are populated
// only on the first segment of a non-genesis sub-epoch.
type SubEpochChallengeSegmentV2 struct {
	SubEpochN      uint32
	SubSlotData    []SubSlotDataV2
	RcSlotEndInfo  *VDFInfo
	CcSlotEndInfo  *VDFInfo
	IccSubSlotHash *Hash
	PrevIccIpIters *uint64

	// CcSubSlot carries the full challenge-chain sub-slot this boundary
	// closed, so the reward-chain sub-slot hash can be reconstructed
	// exactly (rather than approximated from CcSlotEndInfo alone).
	CcSubSlot *ChallengeChainSubSlot
}

// HeaderBlock is the minimal header-level view of a block needed by the
// recent chain and by sub-epoch summary reconstruction. Full block bodies,
// transactions, and filters are out of scope (spec.md Non-goals).
type HeaderBlock struct {
	Height                  uint32
	HeaderHash              Hash
	PrevHeaderHash          Hash
	Weight                  *big.Int
	TotalIters              *big.Int
	FirstInSubSlot          bool
	Overflow                bool
	Deficit                 uint8
	SubEpochSummaryIncluded *SubEpochSummary
	FinishedSubSlots        []EndOfSubSlotBundle

	// Per-block challenge-chain and infused-challenge-chain VDF
	// descriptors and proofs, needed to rebuild
	// SubSlotDataV2 entries while walking a sub-epoch.
	ProofOfSpace                    *ProofOfSpace
	SignagePointIndex                uint8
	ChallengeChainSpVdf              *VDFInfo
	ChallengeChainIpVdf              VDFInfo
	InfusedChallengeChainIpVdf       *VDFInfo
	ChallengeChainSpSignature        []byte
	ChallengeChainSpProof            *VDFProof
	ChallengeChainIpProof            *VDFProof
	InfusedChallengeChainIpProof     *VDFProof
}

// EndOfSubSlotBundle is the header-level view of a finished sub-slot: the
// challenge-chain and reward-chain halves plus their proofs, and an
// optional infused-challenge-chain half.
type EndOfSubSlotBundle struct {
	ChallengeChain         ChallengeChainSubSlot
	RewardChain            RewardChainSubSlot
	InfusedChallengeChain  *InfusedChallengeChainSubSlot
	ChallengeChainSlotProof *VDFProof
	InfusedChallengeChainSlotProof *VDFProof
}

// InfusedChallengeChainSubSlot is the icc half of an end-of-slot bundle,
// present only when the preceding challenge slot had a non-zero deficit
// run.
type InfusedChallengeChainSubSlot struct {
	InfusedChallengeChainEndOfSlotVdf VDFInfo
}

// WeightProofV2 is the complete wire object produced by the builder and
// consumed by the validator.
type WeightProofV2 struct {
	SubEpochs        []SubEpochData
	SubEpochSegments []SubEpochChallengeSegmentV2
	RecentChainData  []HeaderBlock
}
