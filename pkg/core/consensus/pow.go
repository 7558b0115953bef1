package consensus

import (
	"math/big"

	"github.com/duskchain/duskd/pkg/core/types"
)

// MeetsTarget reports whether header's hash satisfies target: the header's
// hash, read as a big-endian integer, must be at or below target.
func MeetsTarget(header types.BlockHeader, target *big.Int) bool {
	return types.HashMeetsTarget(header.Hash(), target)
}
