package blocktree

import "github.com/duskchain/duskd/pkg/core/types"

// ImportResultKind tags whether an import moved the tip.
type ImportResultKind int

const (
	// TipUnchanged means the active chain's tip is the same as before the call.
	TipUnchanged ImportResultKind = iota
	// TipChanged means the active chain's tip moved, either by extension or
	// by a reorg to a heavier fork.
	TipChanged
)

// ImportResult is the closed-sum result of ExtendTip, ImportBlock, and
// ImportBlocks. Hash/Height/Stale are only meaningful when Kind is
// TipChanged; Stale lists the headers rolled off the old chain, oldest
// first, and is empty when the tip simply extended.
type ImportResult struct {
	Kind   ImportResultKind
	Hash   types.Hash
	Height types.Height
	Stale  []types.BlockHeader
}

func tipUnchanged() ImportResult {
	return ImportResult{Kind: TipUnchanged}
}

func tipChanged(hash types.Hash, height types.Height, stale []types.BlockHeader) ImportResult {
	return ImportResult{Kind: TipChanged, Hash: hash, Height: height, Stale: stale}
}

// Checkpoint pins a known-good hash at a given height. No fork whose fork
// point lies below the last checkpoint at or below tip may activate.
type Checkpoint struct {
	Height types.Height
	Hash   types.Hash
}
