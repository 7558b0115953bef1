package blocktree

import (
	"math/big"
	"sort"

	"github.com/duskchain/duskd/pkg/core/clock"
	"github.com/duskchain/duskd/pkg/core/consensus"
	"github.com/duskchain/duskd/pkg/core/types"
)

// validate checks header against consensus rules given that it extends
// parent. It is a hard precondition that parent.Hash == header.PrevBlockHash;
// violating it is a programmer error, not a returned value.
func (t *Tree) validate(parent types.CachedBlock, header types.BlockHeader, c clock.Clock) error {
	if parent.Hash != header.PrevBlockHash {
		panic("blocktree: validate called with a parent that does not match header.PrevBlockHash")
	}

	height := parent.Height + 1

	expected := t.nextTarget(parent, header)
	// Round-trip through the 32-bit compact encoding: the header's own Bits
	// field only has 32 bits of precision, so validation must compare against
	// the same precision rather than the full 256-bit value.
	compactTarget := types.CompactToBig(types.BigToCompact(expected))

	if header.Bits != types.BigToCompact(compactTarget) {
		return &InvalidBlockTargetError{Got: header.Target(), Limit: compactTarget}
	}
	if !consensus.MeetsTarget(header, compactTarget) {
		return &InvalidBlockPoWError{}
	}

	if expected, ok := t.checkpoints[height]; ok {
		hash := header.Hash()
		if hash != expected {
			return &InvalidBlockHashError{Hash: hash, Height: height}
		}
	}

	mtp := t.medianTimePast(height)
	if header.Time <= mtp {
		return &InvalidTimestampError{Time: header.Time, Direction: Less}
	}
	if header.Time > c.Time()+consensus.MaxFutureBlockTime {
		return &InvalidTimestampError{Time: header.Time, Direction: Greater}
	}

	return nil
}

// nextTarget computes the target the child header at parent.Height+1 must
// satisfy, per the min-difficulty exception (testnet-style networks) or the
// standard retarget schedule.
func (t *Tree) nextTarget(parent types.CachedBlock, header types.BlockHeader) *big.Int {
	height := parent.Height + 1
	p := t.params

	if p.AllowMinDifficultyBlocks && !p.IsRetargetHeight(height) {
		if header.Time > parent.Header.Time+2*p.PowTargetSpacing {
			return p.PowLimit
		}
		return t.nextMinDifficultyTarget()
	}
	return t.nextDifficultyTarget(parent)
}

// nextDifficultyTarget implements the standard retarget: every
// DifficultyAdjustmentInterval blocks, scale the previous window's target by
// the ratio of actual to expected elapsed time; otherwise inherit the
// parent's target unchanged.
func (t *Tree) nextDifficultyTarget(parent types.CachedBlock) *big.Int {
	p := t.params
	height := parent.Height + 1

	if !p.IsRetargetHeight(height) || height < p.DifficultyAdjustmentInterval {
		return parent.Header.Target()
	}

	firstHeight := height - p.DifficultyAdjustmentInterval
	first, ok := t.ancestorAtHeight(parent, firstHeight)
	if !ok {
		return parent.Header.Target()
	}

	actualTimespan := int64(parent.Header.Time) - int64(first.Header.Time)
	return consensus.ScaleTarget(parent.Header.Target(), actualTimespan, p.TargetTimespan(), p.PowLimit)
}

// nextMinDifficultyTarget scans ancestors from the tip backward, returning
// the first header whose Bits differ from pow_limit_bits or whose height is
// a retarget boundary; if none is found, pow_limit itself is returned.
func (t *Tree) nextMinDifficultyTarget() *big.Int {
	p := t.params
	for i := len(t.chain) - 1; i >= 0; i-- {
		blk := t.chain[i]
		if blk.Header.Bits != p.PowLimitBits || p.IsRetargetHeight(blk.Height) {
			return blk.Header.Target()
		}
	}
	return p.PowLimit
}

// ancestorAtHeight walks backward from start (inclusive) along the ACTIVE
// chain to height. start is assumed to be on the active chain (or to be the
// fork-point block of a candidate, which is itself on the active chain).
func (t *Tree) ancestorAtHeight(start types.CachedBlock, height types.Height) (types.CachedBlock, bool) {
	if height > start.Height {
		return types.CachedBlock{}, false
	}
	if int(height) >= len(t.chain) {
		return types.CachedBlock{}, false
	}
	return t.chain[height], true
}

// medianTimePast returns the median of the last MedianTimeSpan block times
// strictly below height, taking the available prefix when
// height < MedianTimeSpan. Height 0 is forbidden (a programmer-error
// precondition: genesis has no ancestors to take a median over).
func (t *Tree) medianTimePast(height types.Height) uint32 {
	if height == 0 {
		panic("blocktree: medianTimePast(0) is undefined")
	}

	start := types.Height(0)
	if height > consensus.MedianTimeSpan {
		start = height - consensus.MedianTimeSpan
	}

	times := make([]uint32, 0, consensus.MedianTimeSpan)
	for h := start; h < height; h++ {
		times = append(times, t.chain[h].Header.Time)
	}

	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times[len(times)/2]
}

// validateBranch validates every header of candidate in sequence, starting
// from the active-chain block at candidate.forkHeight. Median-time-past and
// difficulty retargets for candidate headers are computed against the
// ACTIVE chain's ancestry below the fork point, not the candidate's own
// headers past it — an approximation that can false-reject a reorg whose
// branch point is more than MedianTimeSpan blocks back (see SPEC_FULL.md §1).
func (t *Tree) validateBranch(candidate *candidate, c clock.Clock) error {
	forkHeader, ok := t.GetBlockByHeight(candidate.forkHeight)
	if !ok {
		panic("blocktree: candidate fork point is not on the active chain")
	}

	tip := types.CachedBlock{
		Height: candidate.forkHeight,
		Hash:   candidate.forkHash,
		Header: forkHeader,
	}

	for _, header := range candidate.headers {
		if err := t.validate(tip, header, c); err != nil {
			return err
		}
		tip = types.CachedBlock{Height: tip.Height + 1, Hash: header.Hash(), Header: header}
	}
	return nil
}
