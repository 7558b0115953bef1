package blocktree

import (
	"log"

	"github.com/duskchain/duskd/pkg/core/clock"
	"github.com/duskchain/duskd/pkg/core/consensus"
	"github.com/duskchain/duskd/pkg/core/types"
)

// candidate is a proposed fork reconstructed from the orphan pool: an
// ordered run of headers forking off the active chain at forkHeight. It is
// transient — rebuilt on demand and discarded after each import attempt.
type candidate struct {
	forkHeight types.Height
	forkHash   types.Hash
	headers    []types.BlockHeader
	tip        types.Hash
}

// ImportBlock is the general import path: classify header as extending the
// tip, a duplicate, a pre-checkpoint fork, or an orphan candidate for the
// cheap PoW gate, then run the fork engine to see whether any branch now
// outweighs the active chain.
func (t *Tree) ImportBlock(header types.BlockHeader, c clock.Clock) (ImportResult, error) {
	tip := t.chain[len(t.chain)-1]
	hash := header.Hash()
	before := tip.Hash

	switch {
	case header.PrevBlockHash == tip.Hash:
		if err := t.validate(tip, header, c); err != nil {
			return ImportResult{}, err
		}
		height := tip.Height + 1
		t.extendChain(height, hash, header)
		if err := t.store.Put([]types.BlockHeader{header}); err != nil {
			return ImportResult{}, err
		}

	case t.Contains(hash) || t.isOrphan(hash):
		return ImportResult{}, &DuplicateBlockError{Hash: hash}

	default:
		if height, ok := t.headers[header.PrevBlockHash]; ok {
			if height < t.lastCheckpoint(t.Height()) {
				return ImportResult{}, &InvalidBlockHeightError{Height: height + 1}
			}
		}

		target := header.Target()
		if !consensus.MeetsTarget(header, target) {
			return ImportResult{}, &InvalidBlockPoWError{}
		}
		if target.Cmp(t.params.PowLimit) > 0 {
			return ImportResult{}, &InvalidBlockTargetError{Got: target, Limit: t.params.PowLimit}
		}
		t.orphans[hash] = header
	}

	// Re-derive candidates unconditionally: a direct tip extension above may
	// have just supplied the missing parent for an orphan queued earlier, so
	// candidates must be (re-)discovered even on the fast path.
	candidates := t.chainCandidates(c)

	if len(candidates) == 0 && !t.Contains(header.PrevBlockHash) && !t.isOrphan(header.PrevBlockHash) {
		return ImportResult{}, &BlockMissingError{Hash: header.PrevBlockHash}
	}

	var stale []types.BlockHeader
	for _, cand := range candidates {
		candidateWork := types.CumulativeWork(cand.headers)
		mainWork := types.CumulativeWork(t.chainSuffixHeaders(cand.forkHeight))

		switch {
		case candidateWork.Cmp(mainWork) > 0:
			rolled, err := t.switchToFork(cand)
			if err != nil {
				return ImportResult{}, err
			}
			stale = rolled
		case t.params.Network != consensus.Mainnet && candidateWork.Cmp(mainWork) == 0:
			current, _ := t.Tip()
			if types.LessAsLittleEndian(cand.tip, current) {
				rolled, err := t.switchToFork(cand)
				if err != nil {
					return ImportResult{}, err
				}
				stale = rolled
			}
		}
	}

	newHash, newHeight := t.tipHashHeight()
	if newHash != before {
		return tipChanged(newHash, newHeight, stale), nil
	}
	if !t.Contains(header.PrevBlockHash) && !t.isOrphan(header.PrevBlockHash) {
		return ImportResult{}, &BlockMissingError{Hash: header.PrevBlockHash}
	}
	return tipUnchanged(), nil
}

func (t *Tree) tipHashHeight() (types.Hash, types.Height) {
	last := t.chain[len(t.chain)-1]
	return last.Hash, last.Height
}

func (t *Tree) isOrphan(hash types.Hash) bool {
	_, ok := t.orphans[hash]
	return ok
}

// chainSuffixHeaders returns the headers of the active chain strictly above
// forkHeight, used to compare cumulative work against a candidate branch.
func (t *Tree) chainSuffixHeaders(forkHeight types.Height) []types.BlockHeader {
	if int(forkHeight)+1 >= len(t.chain) {
		return nil
	}
	suffix := t.chain[forkHeight+1:]
	headers := make([]types.BlockHeader, len(suffix))
	for i, blk := range suffix {
		headers[i] = blk.Header
	}
	return headers
}

// chainCandidates enumerates every candidate reconstructible from the orphan
// pool whose full-branch validation succeeds. Candidates that fail
// validate_branch are dropped silently, per spec.
func (t *Tree) chainCandidates(c clock.Clock) []*candidate {
	var out []*candidate
	for tip := range t.orphans {
		cand, ok := t.branch(tip)
		if !ok {
			continue
		}
		if err := t.validateBranch(cand, c); err != nil {
			continue
		}
		out = append(out, cand)
	}
	return out
}

// branch walks backward from tip through the orphan pool, accumulating
// headers, until it reaches a cursor present in the headers index — the
// fork point. Returns false if no on-chain ancestor is ever reached.
func (t *Tree) branch(tip types.Hash) (*candidate, bool) {
	var headers []types.BlockHeader
	cursor := tip

	for {
		header, ok := t.orphans[cursor]
		if !ok {
			break
		}
		headers = append([]types.BlockHeader{header}, headers...)
		cursor = header.PrevBlockHash
	}

	height, ok := t.headers[cursor]
	if !ok {
		return nil, false
	}
	return &candidate{
		tip:        tip,
		forkHeight: height,
		forkHash:   cursor,
		headers:    headers,
	}, true
}

// rollback drains active-chain elements above height in descending order,
// moving each into the orphan pool, then truncates the store. Returns the
// removed headers in ascending-height order.
func (t *Tree) rollback(height types.Height) ([]types.BlockHeader, error) {
	var stale []types.BlockHeader
	for len(t.chain)-1 > int(height) {
		last := t.chain[len(t.chain)-1]
		t.chain = t.chain[:len(t.chain)-1]

		delete(t.headers, last.Hash)
		t.orphans[last.Hash] = last.Header
		stale = append(stale, last.Header)
	}
	// stale was built newest-first (descending height); reverse to ascending.
	for i, j := 0, len(stale)-1; i < j; i, j = i+1, j-1 {
		stale[i], stale[j] = stale[j], stale[i]
	}

	if err := t.store.Rollback(height); err != nil {
		return nil, err
	}
	return stale, nil
}

// switchToFork rolls back to the candidate's fork height, then extends with
// every header of the candidate in order. Returns the stale list from
// rollback.
//
// Any store error here is fatal: it is propagated and may leave the tree
// inconsistent with its store. Recovery is the caller's responsibility.
func (t *Tree) switchToFork(cand *candidate) ([]types.BlockHeader, error) {
	stale, err := t.rollback(cand.forkHeight)
	if err != nil {
		return nil, err
	}

	for i, header := range cand.headers {
		t.extendChain(cand.forkHeight+types.Height(i)+1, header.Hash(), header)
	}
	if err := t.store.Put(cand.headers); err != nil {
		return nil, err
	}
	return stale, nil
}

// ImportBlocks folds ImportBlock over the sequence. DuplicateBlock and
// BlockMissing errors are swallowed (logged when Trace is set) and iteration
// continues; any other error aborts the batch. Returns the last successful
// ImportResult, or TipUnchanged if none succeeded.
func (t *Tree) ImportBlocks(headers []types.BlockHeader, c clock.Clock) (ImportResult, error) {
	result := tipUnchanged()
	seen := false

	for i, header := range headers {
		r, err := t.ImportBlock(header, c)
		switch e := err.(type) {
		case nil:
			result = r
			seen = true
		case *DuplicateBlockError:
			if t.Trace {
				log.Printf("trace: duplicate block %s", e.Hash)
			}
		case *BlockMissingError:
			if t.Trace {
				log.Printf("trace: missing block %s", e.Hash)
			}
		default:
			return ImportResult{}, &BlockImportAbortedError{Cause: err, Index: i, Height: t.Height()}
		}
	}

	if !seen {
		return tipUnchanged(), nil
	}
	return result, nil
}
