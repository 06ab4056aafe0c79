// Package wptest provides in-memory fakes for weightproof's external
// collaborators (BlockchainInterface, VDFVerifier, PoSpaceVerifier), used by
// this package's own tests and available to callers writing integration
// tests against a full Handler.
package wptest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	wp "github.com/Hydrangea-Network/hydrangea-blockchain/pkg/weightproof"
)

// Chain is an in-memory BlockchainInterface backed by plain maps, grounded
// on the teacher's header_chain_mgr_test.go fixture style: build up state
// with AddBlock, then exercise the subsystem under test against it.
type Chain struct {
	mu sync.RWMutex

	heightToHash   map[uint32]wp.Hash
	records        map[wp.Hash]*wp.BlockRecord
	headers        map[wp.Hash]*wp.HeaderBlock
	sesHeights     []uint32
	ses            map[uint32]wp.SubEpochSummary
	segments       map[wp.Hash][]wp.SubEpochChallengeSegmentV2
	peakHeight     uint32
	hasPeak        bool
}

// NewChain constructs an empty Chain.
func NewChain() *Chain {
	return &Chain{
		heightToHash: make(map[uint32]wp.Hash),
		records:      make(map[wp.Hash]*wp.BlockRecord),
		headers:      make(map[wp.Hash]*wp.HeaderBlock),
		ses:          make(map[uint32]wp.SubEpochSummary),
		segments:     make(map[wp.Hash][]wp.SubEpochChallengeSegmentV2),
	}
}

// AddBlock registers rec and hdr (hdr may be nil) at their shared height,
// updating the canonical height-to-hash mapping and peak height.
func (c *Chain) AddBlock(rec *wp.BlockRecord, hdr *wp.HeaderBlock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heightToHash[rec.Height] = rec.HeaderHash
	c.records[rec.HeaderHash] = rec
	if hdr != nil {
		c.headers[rec.HeaderHash] = hdr
	}
	if rec.SubEpochSummaryIncluded != nil {
		c.sesHeights = append(c.sesHeights, rec.Height)
		c.ses[rec.Height] = *rec.SubEpochSummaryIncluded
	}
	if !c.hasPeak || rec.Height > c.peakHeight {
		c.peakHeight = rec.Height
		c.hasPeak = true
	}
}

func (c *Chain) TryBlockRecord(hash wp.Hash) (*wp.BlockRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.records[hash]
	return r, ok
}

func (c *Chain) GetBlockRecordFromDB(ctx context.Context, hash wp.Hash) (*wp.BlockRecord, error) {
	r, ok := c.TryBlockRecord(hash)
	if !ok {
		return nil, fmt.Errorf("wptest: no block record for %s", hash.Hex())
	}
	return r, nil
}

func (c *Chain) HeightToHash(height uint32) (wp.Hash, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.heightToHash[height]
	return h, ok
}

func (c *Chain) HeightToBlockRecord(height uint32) (*wp.BlockRecord, bool) {
	hash, ok := c.HeightToHash(height)
	if !ok {
		return nil, false
	}
	return c.TryBlockRecord(hash)
}

func (c *Chain) GetSesHeights() []uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uint32, len(c.sesHeights))
	copy(out, c.sesHeights)
	return out
}

func (c *Chain) GetSes(height uint32) (*wp.SubEpochSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.ses[height]
	if !ok {
		return nil, false
	}
	return &s, true
}

func (c *Chain) GetBlockRecordsAt(ctx context.Context, heights []uint32) ([]*wp.BlockRecord, error) {
	out := make([]*wp.BlockRecord, len(heights))
	for i, h := range heights {
		rec, _ := c.HeightToBlockRecord(h)
		out[i] = rec
	}
	return out, nil
}

func (c *Chain) GetBlockRecordsInRange(ctx context.Context, from, to uint32) (map[wp.Hash]*wp.BlockRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[wp.Hash]*wp.BlockRecord)
	for h := from; h <= to; h++ {
		hash, ok := c.heightToHash[h]
		if !ok {
			continue
		}
		out[hash] = c.records[hash]
	}
	return out, nil
}

func (c *Chain) GetHeaderBlocksInRange(ctx context.Context, from, to uint32, txFilter bool) (map[wp.Hash]*wp.HeaderBlock, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[wp.Hash]*wp.HeaderBlock)
	for h := from; h <= to; h++ {
		hash, ok := c.heightToHash[h]
		if !ok {
			continue
		}
		if hdr, ok := c.headers[hash]; ok {
			out[hash] = hdr
		}
	}
	return out, nil
}

func (c *Chain) GetSubEpochChallengeSegmentsV2(ctx context.Context, sesBlockHash wp.Hash) ([]wp.SubEpochChallengeSegmentV2, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.segments[sesBlockHash]
	return s, ok, nil
}

func (c *Chain) PersistSubEpochChallengeSegmentsV2(ctx context.Context, sesBlockHash wp.Hash, segments []wp.SubEpochChallengeSegmentV2) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.segments[sesBlockHash] = segments
	return nil
}

func (c *Chain) GetPeakHeight() (uint32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peakHeight, c.hasPeak
}

// VDF is a fake VDFVerifier that treats "running the VDF" as hashing
// (challenge, input, iterations) together: CompressOutput and
// VerifyCompressedVDF agree by construction, and ValidateEndOfSlot checks
// the same relation against a VDFInfo's claimed output.
type VDF struct{}

func vdfExpected(challenge wp.Hash, input wp.ClassGroupElement, iterations uint64) wp.ClassGroupElement {
	h := sha256.New()
	h.Write(challenge[:])
	h.Write(input)
	var iterBytes [8]byte
	for i := 0; i < 8; i++ {
		iterBytes[i] = byte(iterations >> (56 - 8*i))
	}
	h.Write(iterBytes[:])
	return h.Sum(nil)
}

func (VDF) VerifyCompressedVDF(c wp.Constants, challenge wp.Hash, input wp.ClassGroupElement, output wp.CompressedClassGroupElement, proof *wp.VDFProof, iterations uint64) (bool, wp.ClassGroupElement, error) {
	expected := vdfExpected(challenge, input, iterations)
	ok := string(expected) == string(output)
	return ok, expected, nil
}

func (VDF) CompressOutput(c wp.Constants, challenge wp.Hash, input, output wp.ClassGroupElement, proof *wp.VDFProof, iterations uint64) (wp.CompressedClassGroupElement, error) {
	return wp.CompressedClassGroupElement(vdfExpected(challenge, input, iterations)), nil
}

func (VDF) ValidateEndOfSlot(c wp.Constants, input wp.ClassGroupElement, proof *wp.VDFProof, info wp.VDFInfo) bool {
	expected := vdfExpected(info.Challenge, input, info.NumberOfIterations)
	return string(expected) == string(info.Output)
}

// PoSpace is a fake PoSpaceVerifier that accepts any proof with non-empty
// Proof bytes, returning those bytes as the quality string, and rejects an
// empty proof.
type PoSpace struct{}

func (PoSpace) VerifyAndGetQualityString(c wp.Constants, pos wp.ProofOfSpace, challenge, signagePointChallenge wp.Hash) ([]byte, bool) {
	if len(pos.Proof) == 0 {
		return nil, false
	}
	return pos.Proof, true
}
