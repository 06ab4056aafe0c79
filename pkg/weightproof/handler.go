package weightproof

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/log"
	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/metrics"
)

// HandlerConfig wires a Handler's collaborators together. Logger and
// Metrics are optional: a nil Logger falls back to the package default, a
// nil Metrics makes every metric call a no-op.
type HandlerConfig struct {
	Constants Constants
	Chain     BlockchainInterface
	Vdf       VDFVerifier
	Pos       PoSpaceVerifier
	Pool      *Pool
	Logger    *log.Logger
	Metrics   *metrics.Metrics
}

// Handler is the top-level weight proof subsystem entry point: it owns the
// cached (tip, proof) pair and orchestrates the sampling oracle, segment
// builder, recent chain builder, validator, and fork-point resolver behind
// a single mutex, mirroring the teacher's single-writer cache pattern.
type Handler struct {
	constants Constants
	chain     BlockchainInterface
	vdf       VDFVerifier
	pos       PoSpaceVerifier
	pool      *Pool
	log       *log.Logger
	metrics   *metrics.Metrics

	segments    *SegmentBuilder
	recent      *RecentChainBuilder
	validator   *Validator
	forkPoints  *ForkPointResolver

	mu        sync.Mutex
	cacheTip  Hash
	cacheWp   *WeightProofV2
}

// NewHandler constructs a Handler from cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default().Module("weightproof")
	}
	pool := cfg.Pool
	if pool == nil {
		pool = NewPool(DefaultWorkerPoolConfig())
	}
	return &Handler{
		constants:  cfg.Constants,
		chain:      cfg.Chain,
		vdf:        cfg.Vdf,
		pos:        cfg.Pos,
		pool:       pool,
		log:        logger,
		metrics:    cfg.Metrics,
		segments:   NewSegmentBuilder(cfg.Constants, cfg.Chain, cfg.Vdf, pool),
		recent:     NewRecentChainBuilder(cfg.Chain),
		validator:  NewValidator(cfg.Constants, cfg.Vdf, cfg.Pos, pool),
		forkPoints: NewForkPointResolver(cfg.Chain),
	}
}

// GetSubEpochData projects every known sub-epoch summary into its
// wire-compact SubEpochData form, in order.
func (h *Handler) GetSubEpochData() []SubEpochData {
	var out []SubEpochData
	for _, height := range h.chain.GetSesHeights() {
		ses, ok := h.chain.GetSes(height)
		if !ok {
			continue
		}
		out = append(out, NewSubEpochData(*ses))
	}
	return out
}

// GetProofOfWeight builds (or returns a cached) WeightProofV2 terminating
// at tip, sampling sub-epochs deterministically from seed.
func (h *Handler) GetProofOfWeight(ctx context.Context, tip Hash, seed [32]byte) (*WeightProofV2, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cacheWp != nil && h.cacheTip == tip {
		return h.cacheWp, nil
	}

	start := time.Now()
	wp, err := h.buildProofOfWeight(ctx, tip, seed)
	h.metrics.ObserveBuildDuration(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	h.cacheTip = tip
	h.cacheWp = wp

	h.metrics.IncProofsBuilt()
	return wp, nil
}

func (h *Handler) buildProofOfWeight(ctx context.Context, tip Hash, seed [32]byte) (*WeightProofV2, error) {
	tipRec, ok := h.chain.TryBlockRecord(tip)
	if !ok {
		var err error
		tipRec, err = h.chain.GetBlockRecordFromDB(ctx, tip)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrTipUnknown, err)
		}
	}
	if tipRec == nil {
		return nil, ErrTipUnknown
	}

	sesHeights := h.chain.GetSesHeights()
	if len(sesHeights) < 3 {
		return nil, fmt.Errorf("%w: fewer than three sub epoch summaries", ErrInsufficientChain)
	}
	if tipRec.Height < h.constants.WeightProofRecentBlocks {
		return nil, fmt.Errorf("%w: tip below recent block window", ErrInsufficientChain)
	}

	subEpochData := h.GetSubEpochData()
	_, _, subEpochWeightList := mapSubEpochSummaries(h.constants, subEpochData)
	fullList := append(append([]*big.Int{}, subEpochWeightList...), tipRec.Weight)
	lastLWeight := new(big.Int).Sub(fullList[len(fullList)-1], thirdFromLast(fullList))

	rng := NewRand(seed)
	weightsToCheck, err := weightsForSampling(rng, tipRec.Weight, lastLWeight)
	if err != nil {
		return nil, err
	}
	required := sampledSubEpochs(weightsToCheck, fullList)

	var allSegments []SubEpochChallengeSegmentV2
	var seStart *BlockRecord
	genesisHash, ok := h.chain.HeightToHash(0)
	if !ok {
		return nil, fmt.Errorf("weightproof: missing genesis hash")
	}
	seStart, ok = h.chain.TryBlockRecord(genesisHash)
	if !ok {
		seStart, err = h.chain.GetBlockRecordFromDB(ctx, genesisHash)
		if err != nil {
			return nil, err
		}
	}

	for idx, height := range sesHeights {
		if uint32(idx) >= tipRec.Height {
			break
		}
		hash, ok := h.chain.HeightToHash(height)
		if !ok {
			continue
		}
		sesBlock, ok := h.chain.TryBlockRecord(hash)
		if !ok {
			sesBlock, err = h.chain.GetBlockRecordFromDB(ctx, hash)
			if err != nil {
				return nil, err
			}
		}
		if sesBlock.Height > tipRec.Height {
			break
		}

		subEpochN := uint32(idx)
		if cached, ok, err := h.chain.GetSubEpochChallengeSegmentsV2(ctx, hash); err == nil && ok {
			allSegments = append(allSegments, cached...)
		} else if required[subEpochN] {
			segs, err := h.segments.BuildSubEpochSegments(ctx, sesBlock, seStart, subEpochN)
			if err != nil {
				return nil, err
			}
			h.metrics.IncSegmentsBuilt(len(segs))
			sampledIdx := rng.IntN(len(segs))
			compressed := compressSegments(sampledIdx, segs)
			if err := h.chain.PersistSubEpochChallengeSegmentsV2(ctx, hash, compressed); err != nil {
				h.log.Warn("persist segments failed", "error", err)
			}
			allSegments = append(allSegments, compressed...)
		}
		seStart = sesBlock
	}

	recentChain, err := h.recent.Build(ctx, tipRec.Height)
	if err != nil {
		return nil, err
	}
	h.metrics.SetRecentChainLength(len(recentChain))
	h.metrics.SetSubEpochSummaries(len(subEpochData))

	return &WeightProofV2{
		SubEpochs:        subEpochData,
		SubEpochSegments: allSegments,
		RecentChainData:  recentChain,
	}, nil
}

// ValidateWeightProof re-derives the summary chain, replays sampling, and
// re-verifies every sampled segment plus the recent chain, returning the
// resolved fork point and the reconstructed summary chain on success.
func (h *Handler) ValidateWeightProof(ctx context.Context, wp *WeightProofV2, seed [32]byte) (bool, uint32, []SubEpochSummary, error) {
	start := time.Now()
	ok, forkPoint, summaries, err := h.validator.Validate(ctx, *wp, seed, h.forkPoints)
	h.metrics.ObserveValidateDuration(time.Since(start).Seconds())
	if err != nil {
		h.metrics.IncProofsValidated("invalid")
		return false, 0, nil, err
	}
	if !ok {
		h.metrics.IncProofsValidated("invalid")
		return false, 0, nil, nil
	}
	h.metrics.IncProofsValidated("valid")
	return true, forkPoint, summaries, nil
}

// GetForkPointNoValidations compares received summaries against the local
// chain without running any VDF or proof-of-space re-verification,
// suitable for a cheap preliminary fork-point estimate.
func (h *Handler) GetForkPointNoValidations(received []SubEpochSummary) uint32 {
	h.metrics.IncForkPointLookups()
	return h.forkPoints.Resolve(received)
}
