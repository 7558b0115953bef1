// Package store defines the durable header log the block tree replays on
// startup and appends/truncates as the active chain grows or rolls back.
package store

import (
	"errors"

	"github.com/duskchain/duskd/pkg/core/types"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("store: not found")

// StoredHeader pairs a header with the height it was stored at.
type StoredHeader struct {
	Height types.Height
	Header types.BlockHeader
}

// Store is the append-truncate header log external to the block tree. It is
// the only persistence boundary the tree depends on; its on-disk format is
// entirely its own concern.
type Store interface {
	// Genesis returns the fixed genesis header. Never fails.
	Genesis() types.BlockHeader

	// Len returns the number of headers currently stored, including genesis.
	Len() (int, error)

	// Iter returns every stored header in ascending height order, starting
	// at 0.
	Iter() ([]StoredHeader, error)

	// Put appends headers in order, immediately following the current tip.
	Put(headers []types.BlockHeader) error

	// Rollback truncates the store so the highest retained height is exactly
	// height. Fails if height is greater than the current length minus one.
	Rollback(height types.Height) error
}
