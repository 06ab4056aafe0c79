package weightproof

import (
	"context"
	"fmt"
)

// RecentChainBuilder extracts the last two sub-epochs' worth of header
// blocks, used as the anchor a weight proof terminates at (spec.md §4.3).
type RecentChainBuilder struct {
	chain BlockchainInterface
}

// NewRecentChainBuilder constructs a RecentChainBuilder.
func NewRecentChainBuilder(chain BlockchainInterface) *RecentChainBuilder {
	return &RecentChainBuilder{chain: chain}
}

// Build walks backwards from tipHeight, collecting header blocks until two
// sub-epoch summary inclusions have been seen, then includes one more
// block beyond the second.
func (rb *RecentChainBuilder) Build(ctx context.Context, tipHeight uint32) ([]HeaderBlock, error) {
	sesHeights := rb.chain.GetSesHeights()

	minHeight := uint32(0)
	countSes := 0
	for i := len(sesHeights) - 1; i >= 0; i-- {
		if sesHeights[i] <= tipHeight {
			countSes++
		}
		if countSes == 2 {
			if sesHeights[i] == 0 {
				minHeight = 0
			} else {
				minHeight = sesHeights[i] - 1
			}
			break
		}
	}

	headers, err := rb.chain.GetHeaderBlocksInRange(ctx, minHeight, tipHeight, false)
	if err != nil {
		return nil, err
	}
	blocks, err := rb.chain.GetBlockRecordsInRange(ctx, minHeight, tipHeight)
	if err != nil {
		return nil, err
	}

	var recentChain []HeaderBlock
	sesCount := 0
	currHeight := tipHeight
	for sesCount < 2 {
		if currHeight == 0 {
			break
		}
		hash, ok := rb.chain.HeightToHash(currHeight)
		if !ok {
			return nil, fmt.Errorf("weightproof: recent chain: missing hash at height %d", currHeight)
		}
		header, ok := headers[hash]
		if !ok {
			return nil, fmt.Errorf("weightproof: recent chain: missing header at height %d", currHeight)
		}
		rec, ok := blocks[header.HeaderHash]
		if !ok {
			return nil, fmt.Errorf("weightproof: recent chain: missing block record at height %d", currHeight)
		}
		recentChain = append([]HeaderBlock{*header}, recentChain...)
		if rec.SubEpochSummaryIncluded != nil {
			sesCount++
		}
		currHeight--
	}

	hash, ok := rb.chain.HeightToHash(currHeight)
	if !ok {
		return nil, fmt.Errorf("weightproof: recent chain: missing hash at height %d", currHeight)
	}
	header, ok := headers[hash]
	if !ok {
		return nil, fmt.Errorf("weightproof: recent chain: missing header at height %d", currHeight)
	}
	recentChain = append([]HeaderBlock{*header}, recentChain...)

	return recentChain, nil
}
