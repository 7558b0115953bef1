package blocktree

import (
	"testing"

	"github.com/duskchain/duskd/pkg/core/clock"
	"github.com/duskchain/duskd/pkg/core/consensus"
	"github.com/duskchain/duskd/pkg/core/store"
	"github.com/duskchain/duskd/pkg/core/types"
)

// testEasyBits encodes a target comfortably above 2^256: every possible
// 256-bit hash satisfies it, so tests can chain headers without mining.
const testEasyBits = 0x227fffff

const testSpacing = 600

func testParams(network consensus.Network) consensus.Params {
	return consensus.Params{
		Network:                      network,
		PowLimit:                     types.CompactToBig(testEasyBits),
		PowLimitBits:                 testEasyBits,
		DifficultyAdjustmentInterval: 100000,
		PowTargetSpacing:             testSpacing,
		AllowMinDifficultyBlocks:     false,
	}
}

func testGenesis(t0 uint32) types.BlockHeader {
	return types.BlockHeader{
		Version:       1,
		PrevBlockHash: types.ZeroHash,
		MerkleRoot:    types.ZeroHash,
		Time:          t0,
		Bits:          testEasyBits,
		Nonce:         0,
	}
}

// child builds the next header on top of parent, advancing time by
// testSpacing and varying Nonce so distinct branches never collide on hash.
func child(parent types.BlockHeader, nonce uint32) types.BlockHeader {
	return types.BlockHeader{
		Version:       1,
		PrevBlockHash: parent.Hash(),
		MerkleRoot:    types.ZeroHash,
		Time:          parent.Time + testSpacing,
		Bits:          testEasyBits,
		Nonce:         nonce,
	}
}

func newTestTree(t *testing.T, genesis types.BlockHeader, params consensus.Params) *Tree {
	t.Helper()
	st, err := store.NewBadgerStore("", genesis)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tree, err := New(st, params, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tree
}

func farFutureClock(genesis types.BlockHeader) clock.Clock {
	return clock.Fixed(genesis.Time + 1_000_000)
}

func TestNewReplaysGenesisOnly(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))

	if tree.Height() != 0 {
		t.Fatalf("height = %d, want 0", tree.Height())
	}
	hash, header := tree.Tip()
	if hash != genesis.Hash() {
		t.Fatalf("tip hash = %s, want %s", hash, genesis.Hash())
	}
	if header != genesis {
		t.Fatalf("tip header mismatch")
	}
}

func TestExtendTipAppends(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	h1 := child(genesis, 1)
	result, err := tree.ExtendTip(h1, c)
	if err != nil {
		t.Fatalf("ExtendTip: %v", err)
	}
	if result.Kind != TipChanged {
		t.Fatalf("result.Kind = %v, want TipChanged", result.Kind)
	}
	if tree.Height() != 1 {
		t.Fatalf("height = %d, want 1", tree.Height())
	}
	if tip, _ := tree.Tip(); tip != h1.Hash() {
		t.Fatalf("tip = %s, want %s", tip, h1.Hash())
	}
}

func TestExtendTipIgnoresNonExtension(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	orphan := types.BlockHeader{
		Version:       1,
		PrevBlockHash: types.Hash{0xAA},
		Time:          genesis.Time + testSpacing,
		Bits:          testEasyBits,
	}
	result, err := tree.ExtendTip(orphan, c)
	if err != nil {
		t.Fatalf("ExtendTip: %v", err)
	}
	if result.Kind != TipUnchanged {
		t.Fatalf("result.Kind = %v, want TipUnchanged", result.Kind)
	}
	if tree.Height() != 0 {
		t.Fatalf("height = %d, want 0 (unchanged)", tree.Height())
	}
}

func TestImportBlockDuplicateOnActiveChain(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	h1 := child(genesis, 1)
	if _, err := tree.ImportBlock(h1, c); err != nil {
		t.Fatalf("first import: %v", err)
	}
	_, err := tree.ImportBlock(h1, c)
	if _, ok := err.(*DuplicateBlockError); !ok {
		t.Fatalf("second import error = %v (%T), want *DuplicateBlockError", err, err)
	}
}

func TestImportBlockDuplicateOrphan(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	h1 := child(genesis, 1)
	h2 := child(h1, 2)
	if _, err := tree.ImportBlock(h2, c); err == nil {
		t.Fatalf("expected BlockMissing importing orphan h2 first")
	}
	_, err := tree.ImportBlock(h2, c)
	if _, ok := err.(*DuplicateBlockError); !ok {
		t.Fatalf("re-importing orphan h2 error = %v (%T), want *DuplicateBlockError", err, err)
	}
}

func TestImportBlockMissingParent(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	h1 := child(genesis, 1)
	h2 := child(h1, 2) // orphan: h1 never imported

	_, err := tree.ImportBlock(h2, c)
	missing, ok := err.(*BlockMissingError)
	if !ok {
		t.Fatalf("err = %v (%T), want *BlockMissingError", err, err)
	}
	if missing.Hash != h1.Hash() {
		t.Fatalf("missing hash = %s, want %s", missing.Hash, h1.Hash())
	}
	if tree.Height() != 0 {
		t.Fatalf("height = %d, want 0 (orphan does not join chain)", tree.Height())
	}
}

func TestImportBlockConnectsOrphanOnParentArrival(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	h1 := child(genesis, 1)
	h2 := child(h1, 2)

	if _, err := tree.ImportBlock(h2, c); err == nil {
		t.Fatalf("expected BlockMissing for h2 before h1 arrives")
	}

	result, err := tree.ImportBlock(h1, c)
	if err != nil {
		t.Fatalf("importing h1: %v", err)
	}
	if result.Kind != TipChanged {
		t.Fatalf("result.Kind = %v, want TipChanged", result.Kind)
	}

	// h1 connects h2's orphan branch, which now outweighs the (empty) main
	// suffix above h1, so the tip should have advanced straight to h2.
	if tree.Height() != 2 {
		t.Fatalf("height = %d, want 2 (h2 reconnected automatically)", tree.Height())
	}
	if tip, _ := tree.Tip(); tip != h2.Hash() {
		t.Fatalf("tip = %s, want %s", tip, h2.Hash())
	}
}

func TestImportBlockReorgToHeavierFork(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	a1 := child(genesis, 1)
	a2 := child(a1, 2)
	for _, h := range []types.BlockHeader{a1, a2} {
		if _, err := tree.ImportBlock(h, c); err != nil {
			t.Fatalf("importing main branch: %v", err)
		}
	}

	b1 := child(genesis, 100)
	b2 := child(b1, 101)
	b3 := child(b2, 102)

	if _, err := tree.ImportBlock(b1, c); err != nil {
		t.Fatalf("importing b1: %v", err)
	}
	if _, err := tree.ImportBlock(b2, c); err != nil {
		t.Fatalf("importing b2: %v", err)
	}

	result, err := tree.ImportBlock(b3, c)
	if err != nil {
		t.Fatalf("importing b3: %v", err)
	}
	if result.Kind != TipChanged {
		t.Fatalf("result.Kind = %v, want TipChanged", result.Kind)
	}
	if tip, _ := tree.Tip(); tip != b3.Hash() {
		t.Fatalf("tip = %s, want %s (heavier fork)", tip, b3.Hash())
	}
	if len(result.Stale) != 2 {
		t.Fatalf("len(stale) = %d, want 2", len(result.Stale))
	}
	if result.Stale[0].Hash() != a1.Hash() || result.Stale[1].Hash() != a2.Hash() {
		t.Fatalf("stale headers out of order or wrong: %+v", result.Stale)
	}
}

func TestLastCheckpointRejectsOldFork(t *testing.T) {
	genesis := testGenesis(1_000_000)
	st, err := store.NewBadgerStore("", genesis)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	defer st.Close()

	a1 := child(genesis, 1)
	a2 := child(a1, 2)
	checkpoint := Checkpoint{Height: 1, Hash: a1.Hash()}

	tree, err := New(st, testParams(consensus.Mainnet), []Checkpoint{checkpoint})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c := farFutureClock(genesis)

	for _, h := range []types.BlockHeader{a1, a2} {
		if _, err := tree.ImportBlock(h, c); err != nil {
			t.Fatalf("importing main branch: %v", err)
		}
	}

	// A fork rooted at genesis (height 0) is below checkpoint height 1, and
	// must be rejected once its parent is known on-chain.
	b1 := child(genesis, 200)
	_, err = tree.ImportBlock(b1, c)
	if _, ok := err.(*InvalidBlockHeightError); !ok {
		t.Fatalf("err = %v (%T), want *InvalidBlockHeightError", err, err)
	}
}

func TestImportBlocksAbortsOnFatalError(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	h1 := child(genesis, 1)
	badTime := child(h1, 2)
	badTime.Time = genesis.Time // <= median-time-past, invalid

	result, err := tree.ImportBlocks([]types.BlockHeader{h1, badTime}, c)
	if err == nil {
		t.Fatalf("expected abort error")
	}
	aborted, ok := err.(*BlockImportAbortedError)
	if !ok {
		t.Fatalf("err = %v (%T), want *BlockImportAbortedError", err, err)
	}
	if aborted.Index != 1 {
		t.Fatalf("aborted.Index = %d, want 1", aborted.Index)
	}
	if result.Kind != TipUnchanged || result.Hash != (types.Hash{}) || result.Height != 0 || result.Stale != nil {
		t.Fatalf("result = %+v, want zero value on abort", result)
	}
	// h1 still imported before the abort.
	if tree.Height() != 1 {
		t.Fatalf("height = %d, want 1 (h1 committed before abort)", tree.Height())
	}
}

func TestImportBlocksSwallowsDuplicateAndMissing(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	h1 := child(genesis, 1)
	orphanTip := child(child(genesis, 99), 100) // parent never supplied

	result, err := tree.ImportBlocks([]types.BlockHeader{h1, h1, orphanTip}, c)
	if err != nil {
		t.Fatalf("ImportBlocks: %v", err)
	}
	if result.Kind != TipChanged || result.Hash != h1.Hash() {
		t.Fatalf("result = %+v, want TipChanged at h1", result)
	}
}

func TestLocatorHashesExponentialBackoff(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))
	c := farFutureClock(genesis)

	parent := genesis
	for i := uint32(1); i <= 15; i++ {
		h := child(parent, i)
		if _, err := tree.ImportBlock(h, c); err != nil {
			t.Fatalf("importing height %d: %v", i, err)
		}
		parent = h
	}

	hashes := tree.LocatorHashes(tree.Height())
	if len(hashes) == 0 {
		t.Fatalf("expected non-empty locator")
	}
	if hashes[len(hashes)-1] != genesis.Hash() {
		t.Fatalf("locator must end at genesis, got %s", hashes[len(hashes)-1])
	}
}

func TestLocatorHashesPanicsAboveTip(t *testing.T) {
	genesis := testGenesis(1_000_000)
	tree := newTestTree(t, genesis, testParams(consensus.Mainnet))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for locator above tip height")
		}
	}()
	tree.LocatorHashes(tree.Height() + 1)
}
