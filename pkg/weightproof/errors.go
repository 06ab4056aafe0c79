package weightproof

import "errors"

// Sentinel errors surfaced by the validator and builder. Validation
// failures are wrapped with fmt.Errorf("%w: ...") to carry context; callers
// that need the kind should use errors.Is against these values.
var (
	// ErrTipUnknown is returned when construction cannot locate the
	// requested tip in the backing chain.
	ErrTipUnknown = errors.New("weightproof: tip unknown")

	// ErrInsufficientChain covers every "chain too short" failure: fewer
	// than WeightProofRecentBlocks blocks above tip, fewer than three
	// sub-epoch summaries, or a sampling probability <= 0.
	ErrInsufficientChain = errors.New("weightproof: insufficient chain")

	// ErrSummaryMismatch is returned when the reconstructed sub-epoch
	// summary chain disagrees with the anchor read from the recent chain.
	ErrSummaryMismatch = errors.New("weightproof: sub epoch summary mismatch")

	// ErrSamplingMismatch is returned when a sub-epoch required by the
	// sampling oracle has no corresponding segment group in the proof.
	ErrSamplingMismatch = errors.New("weightproof: sampled sub epoch missing from segments")

	// ErrBoundaryMismatch is returned when a segment's boundary-derived
	// reward chain sub-slot hash disagrees with the claimed summary.
	ErrBoundaryMismatch = errors.New("weightproof: reward chain boundary mismatch")

	// ErrVdfInvalid is returned when any VDF re-verification fails.
	ErrVdfInvalid = errors.New("weightproof: vdf verification failed")

	// ErrPosInvalid is returned when a proof-of-space quality check fails.
	ErrPosInvalid = errors.New("weightproof: proof of space invalid")

	// ErrRatioBelowThreshold is returned when avg_slot_iters/avg_ip_iters
	// drops below Constants.WeightProofThresholdNum/WeightProofThresholdDen.
	ErrRatioBelowThreshold = errors.New("weightproof: slot/infusion ratio below threshold")

	// ErrRecentChainInvalid is returned when recent-chain validation
	// fails.
	ErrRecentChainInvalid = errors.New("weightproof: recent chain invalid")

	// ErrMalformedSegment is returned when a segment violates the
	// SubSlotDataV2 tagged-variant invariants (e.g. a block record with
	// end-of-slot fields set).
	ErrMalformedSegment = errors.New("weightproof: malformed segment")
)
