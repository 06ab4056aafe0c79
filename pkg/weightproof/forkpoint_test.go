package weightproof_test

import (
	"testing"

	. "github.com/Hydrangea-Network/hydrangea-blockchain/pkg/weightproof"
	"github.com/Hydrangea-Network/hydrangea-blockchain/pkg/weightproof/wptest"
)

func makeSes(prev Hash, overflow uint8) SubEpochSummary {
	return SubEpochSummary{PrevSummaryHash: prev, RewardChainHash: Hash{byte(overflow + 1)}, NumBlocksOverflow: overflow}
}

func TestForkPointResolverFullAgreement(t *testing.T) {
	chain := wptest.NewChain()
	var prev Hash
	var local []SubEpochSummary
	for i, height := range []uint32{100, 200, 300, 400} {
		ses := makeSes(prev, uint8(i))
		chain.AddBlock(&BlockRecord{Height: height, HeaderHash: Hash{byte(height)}, SubEpochSummaryIncluded: &ses}, nil)
		local = append(local, ses)
		prev = ses.Hash()
	}
	resolver := NewForkPointResolver(chain)
	fp := resolver.Resolve(local)
	if fp != 200 {
		t.Fatalf("got fork point %d, want 200 (heights[k-2] with last matching index k=3)", fp)
	}
}

func TestForkPointResolverNoAgreement(t *testing.T) {
	chain := wptest.NewChain()
	ses := makeSes(Hash{}, 0)
	chain.AddBlock(&BlockRecord{Height: 100, HeaderHash: Hash{1}, SubEpochSummaryIncluded: &ses}, nil)
	resolver := NewForkPointResolver(chain)
	other := makeSes(Hash{99}, 5)
	if fp := resolver.Resolve([]SubEpochSummary{other}); fp != 0 {
		t.Fatalf("got fork point %d, want 0 on immediate disagreement", fp)
	}
}
