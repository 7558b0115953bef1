// Package blocktree implements the in-memory block-header tree: the active
// chain, the headers index, the orphan pool, header validation, fork
// discovery, and reorg. It is a single-owner, non-reentrant data structure —
// every exported method assumes exclusive access for its duration and none
// of them take an internal lock; concurrent use is the caller's problem.
package blocktree

import (
	"fmt"
	"sort"

	"github.com/duskchain/duskd/pkg/core/clock"
	"github.com/duskchain/duskd/pkg/core/consensus"
	"github.com/duskchain/duskd/pkg/core/store"
	"github.com/duskchain/duskd/pkg/core/types"
)

// Tree is the block-header tree: an active chain backed by a durable Store,
// a headers index for O(1) on-chain lookups, and an orphan pool for headers
// that are not (yet) connected to the active chain.
type Tree struct {
	store  store.Store
	params consensus.Params

	chain   []types.CachedBlock         // active chain, genesis at index 0
	headers map[types.Hash]types.Height // hash -> height, active chain only
	orphans map[types.Hash]types.BlockHeader

	checkpoints       map[types.Height]types.Hash
	checkpointHeights []types.Height // ascending, for last-checkpoint lookup

	// Trace enables logging of swallowed DuplicateBlock/BlockMissing errors
	// during ImportBlocks, mirroring a trace-level log in a richer logger.
	Trace bool
}

// New builds a Tree from store, replaying every stored header by ascending
// height through extendChain without revalidating it (the store is trusted).
// It fails only if the store itself errors.
func New(st store.Store, params consensus.Params, checkpoints []Checkpoint) (*Tree, error) {
	length, err := st.Len()
	if err != nil {
		return nil, err
	}

	t := &Tree{
		store:       st,
		params:      params,
		chain:       make([]types.CachedBlock, 0, length),
		headers:     make(map[types.Hash]types.Height, length),
		orphans:     make(map[types.Hash]types.BlockHeader),
		checkpoints: make(map[types.Height]types.Hash, len(checkpoints)),
	}

	for _, cp := range checkpoints {
		t.checkpoints[cp.Height] = cp.Hash
		t.checkpointHeights = append(t.checkpointHeights, cp.Height)
	}
	sort.Slice(t.checkpointHeights, func(i, j int) bool { return t.checkpointHeights[i] < t.checkpointHeights[j] })

	records, err := st.Iter()
	if err != nil {
		return nil, err
	}

	genesis := st.Genesis()
	genesisHash := genesis.Hash()
	t.chain = append(t.chain, types.CachedBlock{Height: 0, Hash: genesisHash, Header: genesis})
	t.headers[genesisHash] = 0

	for _, rec := range records {
		if rec.Height == 0 {
			continue
		}
		t.extendChain(rec.Height, rec.Header.Hash(), rec.Header)
	}

	if len(t.chain) != length {
		return nil, fmt.Errorf("blocktree: store reported length %d but replay produced %d", length, len(t.chain))
	}
	return t, nil
}

// extendChain appends a header to the active chain and indexes it. The
// caller must have already validated (or, for replay, trusted) the header;
// extendChain itself only enforces the structural precondition that it
// extends the current tip, as a programmer-error assertion.
func (t *Tree) extendChain(height types.Height, hash types.Hash, header types.BlockHeader) {
	tip := t.chain[len(t.chain)-1]
	if header.PrevBlockHash != tip.Hash {
		panic(fmt.Sprintf("blocktree: extendChain height %d does not extend tip %s", height, tip.Hash))
	}
	delete(t.orphans, hash)
	t.headers[hash] = height
	t.chain = append(t.chain, types.CachedBlock{Height: height, Hash: hash, Header: header})
}

// ExtendTip is the fast path: if header extends the current tip, validate
// and append it. It never creates orphans and never reorgs.
func (t *Tree) ExtendTip(header types.BlockHeader, c clock.Clock) (ImportResult, error) {
	tip := t.chain[len(t.chain)-1]
	hash := header.Hash()

	if header.PrevBlockHash != tip.Hash {
		return tipUnchanged(), nil
	}

	if err := t.validate(tip, header, c); err != nil {
		return ImportResult{}, err
	}
	height := tip.Height + 1
	t.extendChain(height, hash, header)
	if err := t.store.Put([]types.BlockHeader{header}); err != nil {
		return ImportResult{}, err
	}
	return tipChanged(hash, height, nil), nil
}

// Tip returns the hash and header of the last active-chain element.
func (t *Tree) Tip() (types.Hash, types.BlockHeader) {
	last := t.chain[len(t.chain)-1]
	return last.Hash, last.Header
}

// Genesis returns the header at index 0.
func (t *Tree) Genesis() types.BlockHeader {
	return t.chain[0].Header
}

// Height returns the active chain length minus one.
func (t *Tree) Height() types.Height {
	return types.Height(len(t.chain) - 1)
}

// GetBlock returns the height and header for hash if it is on the active
// chain. Orphans are intentionally not queryable here.
func (t *Tree) GetBlock(hash types.Hash) (types.Height, types.BlockHeader, bool) {
	height, ok := t.headers[hash]
	if !ok {
		return 0, types.BlockHeader{}, false
	}
	return height, t.chain[height].Header, true
}

// GetBlockByHeight returns the header at that index of the active chain.
func (t *Tree) GetBlockByHeight(height types.Height) (types.BlockHeader, bool) {
	if height >= types.Height(len(t.chain)) {
		return types.BlockHeader{}, false
	}
	return t.chain[height].Header, true
}

// Iter returns every active-chain block from genesis to tip. The returned
// slice is a copy; mutating it does not affect the tree.
func (t *Tree) Iter() []types.CachedBlock {
	out := make([]types.CachedBlock, len(t.chain))
	copy(out, t.chain)
	return out
}

// IsKnown reports whether hash is on the active chain or in the orphan pool.
func (t *Tree) IsKnown(hash types.Hash) bool {
	if _, ok := t.headers[hash]; ok {
		return true
	}
	_, ok := t.orphans[hash]
	return ok
}

// Contains reports whether hash is on the active chain.
func (t *Tree) Contains(hash types.Hash) bool {
	_, ok := t.headers[hash]
	return ok
}

// lastCheckpoint returns the greatest checkpoint height <= currentHeight, or
// 0 if there is none.
func (t *Tree) lastCheckpoint(currentHeight types.Height) types.Height {
	best := types.Height(0)
	for _, h := range t.checkpointHeights {
		if h <= currentHeight {
			best = h
		} else {
			break
		}
	}
	return best
}

// locatorIndexes returns the classical exponential-backoff set of heights:
// starting at from, step back 1,1,1,...,1,2,4,8,... (ten unit steps, then
// doubling) until reaching 0.
func locatorIndexes(from types.Height) []types.Height {
	var out []types.Height
	step := types.Height(1)
	height := from
	tries := 0
	for {
		out = append(out, height)
		if height == 0 {
			break
		}
		if tries >= 10 {
			step *= 2
		}
		if step > height {
			height = 0
		} else {
			height -= step
		}
		tries++
	}
	return out
}

// LocatorHashes returns the exponential-backoff locator starting at height
// from, skipping any index below the last checkpoint at or below the current
// height. Panics (a programmer-error precondition) if from > Height().
func (t *Tree) LocatorHashes(from types.Height) []types.Hash {
	if from > t.Height() {
		panic(fmt.Sprintf("blocktree: locator from height %d exceeds tip height %d", from, t.Height()))
	}

	lastCheckpoint := t.lastCheckpoint(t.Height())

	var hashes []types.Hash
	for _, height := range locatorIndexes(from) {
		if height < lastCheckpoint {
			break
		}
		hashes = append(hashes, t.chain[height].Hash)
	}
	return hashes
}
