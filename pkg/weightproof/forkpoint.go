package weightproof

// ForkPointResolver compares received sub-epoch summaries against the
// local chain to determine the earliest agreeing height (spec.md §4.6).
type ForkPointResolver struct {
	chain BlockchainInterface
}

// NewForkPointResolver constructs a ForkPointResolver.
func NewForkPointResolver(chain BlockchainInterface) *ForkPointResolver {
	return &ForkPointResolver{chain: chain}
}

// Resolve walks local sub-epoch-summary heights in order, comparing each
// against the corresponding received summary's hash. Let k be the last
// matching index; returns ses_heights[k-2] if k > 2, else height 0. The
// two-summary back-off accounts for two summaries tying despite different
// underlying blocks — consensus only stabilises one sub-epoch later.
func (fr *ForkPointResolver) Resolve(received []SubEpochSummary) uint32 {
	sesHeights := fr.chain.GetSesHeights()
	forkPointIndex := 0
	for idx, height := range sesHeights {
		if idx >= len(received) {
			break
		}
		local, ok := fr.chain.GetSes(height)
		if !ok || local.Hash() != received[idx].Hash() {
			break
		}
		forkPointIndex = idx
	}
	if forkPointIndex > 2 {
		return sesHeights[forkPointIndex-2]
	}
	return 0
}
