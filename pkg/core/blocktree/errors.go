package blocktree

import (
	"fmt"
	"math/big"

	"github.com/duskchain/duskd/pkg/core/types"
)

// TimestampDirection says which timestamp bound a header violated.
type TimestampDirection int

const (
	// Less means the header's time did not exceed median-time-past.
	Less TimestampDirection = iota
	// Greater means the header's time exceeded the future-time bound.
	Greater
)

func (d TimestampDirection) String() string {
	if d == Less {
		return "less"
	}
	return "greater"
}

// DuplicateBlockError is returned when a header is already known, either on
// the active chain or in the orphan pool.
type DuplicateBlockError struct{ Hash types.Hash }

func (e *DuplicateBlockError) Error() string {
	return fmt.Sprintf("duplicate block %s", e.Hash)
}

// InvalidBlockHeightError is returned when a fork point lies below the last
// checkpoint at or below the current tip.
type InvalidBlockHeightError struct{ Height types.Height }

func (e *InvalidBlockHeightError) Error() string {
	return fmt.Sprintf("invalid block height %d: forks below the last checkpoint are rejected", e.Height)
}

// InvalidBlockPoWError is returned when a header's hash does not satisfy the
// target it claims (or the target it was validated against).
type InvalidBlockPoWError struct{}

func (e *InvalidBlockPoWError) Error() string {
	return "block hash does not meet its proof-of-work target"
}

// InvalidBlockTargetError is returned when a claimed target exceeds the
// network's pow_limit, or disagrees with the target computed by validation.
type InvalidBlockTargetError struct {
	Got   *big.Int
	Limit *big.Int
}

func (e *InvalidBlockTargetError) Error() string {
	return fmt.Sprintf("block target %s exceeds limit %s", e.Got, e.Limit)
}

// InvalidBlockHashError is returned when a header at a checkpointed height
// does not hash to the expected checkpoint value.
type InvalidBlockHashError struct {
	Hash   types.Hash
	Height types.Height
}

func (e *InvalidBlockHashError) Error() string {
	return fmt.Sprintf("block hash %s at height %d does not match checkpoint", e.Hash, e.Height)
}

// InvalidTimestampError is returned when a header's time violates
// median-time-past or the future-time bound.
type InvalidTimestampError struct {
	Time      uint32
	Direction TimestampDirection
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("invalid timestamp %d (%s)", e.Time, e.Direction)
}

// BlockMissingError is returned when an orphan's parent is unknown and no
// candidate branch activated as a result of importing it.
type BlockMissingError struct{ Hash types.Hash }

func (e *BlockMissingError) Error() string {
	return fmt.Sprintf("block missing: unknown parent %s", e.Hash)
}

// BlockImportAbortedError wraps a fatal error encountered partway through a
// batch import.
type BlockImportAbortedError struct {
	Cause  error
	Index  int
	Height types.Height
}

func (e *BlockImportAbortedError) Error() string {
	return fmt.Sprintf("block import aborted at index %d (height %d): %v", e.Index, e.Height, e.Cause)
}

func (e *BlockImportAbortedError) Unwrap() error { return e.Cause }
