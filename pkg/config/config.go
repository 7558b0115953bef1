// Package config holds the per-network parameter tables a block tree is
// constructed with: consensus constants, the fixed genesis header, and the
// checkpoint list, following the same struct-literal-per-network pattern the
// original currency config used for its NetworkConfig values.
package config

import (
	"math/big"

	"github.com/duskchain/duskd/pkg/core/blocktree"
	"github.com/duskchain/duskd/pkg/core/consensus"
	"github.com/duskchain/duskd/pkg/core/types"
)

// NetworkConfig bundles everything needed to stand up a Tree for one network:
// its consensus parameters, its genesis header, and its checkpoint list.
type NetworkConfig struct {
	Name        string
	Params      consensus.Params
	Genesis     types.BlockHeader
	Checkpoints []blocktree.Checkpoint
}

func mustCompact(exponent, mantissa uint32) uint32 {
	return exponent<<24 | mantissa
}

// mainnetPowLimitBits is the compact encoding of the easiest mainnet target:
// a 224-bit space (comparable to Bitcoin's own pow_limit proportions).
var mainnetPowLimitBits = mustCompact(0x1d, 0x00ffff)

// MainnetConfig is the production network: full retargeting, no
// minimum-difficulty exception, equal-work tie-breaks never apply because
// Network == Mainnet.
var MainnetConfig = NetworkConfig{
	Name: "duskd-mainnet",
	Params: consensus.Params{
		Network:                      consensus.Mainnet,
		PowLimit:                     types.CompactToBig(mainnetPowLimitBits),
		PowLimitBits:                 mainnetPowLimitBits,
		DifficultyAdjustmentInterval: 2016,
		PowTargetSpacing:             600,
		AllowMinDifficultyBlocks:     false,
	},
	Genesis: types.BlockHeader{
		Version:       1,
		PrevBlockHash: types.ZeroHash,
		MerkleRoot:    types.ZeroHash,
		Time:          1231006505,
		Bits:          mainnetPowLimitBits,
		Nonce:         2083236893,
	},
	Checkpoints: []blocktree.Checkpoint{},
}

// testnetPowLimitBits is far easier than mainnet's, matching the looser
// testnet proof-of-work floor used throughout the pack's reference chains.
var testnetPowLimitBits = mustCompact(0x1e, 0x00ffff)

// TestnetConfig enables AllowMinDifficultyBlocks and keeps the same
// retargeting cadence as mainnet; equal-work ties break on little-endian tip
// hash comparison since Network != Mainnet.
var TestnetConfig = NetworkConfig{
	Name: "duskd-testnet",
	Params: consensus.Params{
		Network:                      consensus.Testnet,
		PowLimit:                     types.CompactToBig(testnetPowLimitBits),
		PowLimitBits:                 testnetPowLimitBits,
		DifficultyAdjustmentInterval: 2016,
		PowTargetSpacing:             600,
		AllowMinDifficultyBlocks:     true,
	},
	Genesis: types.BlockHeader{
		Version:       1,
		PrevBlockHash: types.ZeroHash,
		MerkleRoot:    types.ZeroHash,
		Time:          1296688602,
		Bits:          testnetPowLimitBits,
		Nonce:         414098458,
	},
	Checkpoints: []blocktree.Checkpoint{},
}

// regtestPowLimitBits is trivially easy, intended for local single-node runs
// and tests that need to mine headers on demand.
var regtestPowLimitBits = mustCompact(0x20, 0x7fffff)

// RegtestConfig shortens the retarget interval drastically so difficulty
// tests do not need thousands of synthetic headers to reach a boundary.
var RegtestConfig = NetworkConfig{
	Name: "duskd-regtest",
	Params: consensus.Params{
		Network:                      consensus.Regtest,
		PowLimit:                     types.CompactToBig(regtestPowLimitBits),
		PowLimitBits:                 regtestPowLimitBits,
		DifficultyAdjustmentInterval: 150,
		PowTargetSpacing:             600,
		AllowMinDifficultyBlocks:     true,
	},
	Genesis: types.BlockHeader{
		Version:       1,
		PrevBlockHash: types.ZeroHash,
		MerkleRoot:    types.ZeroHash,
		Time:          1296688602,
		Bits:          regtestPowLimitBits,
		Nonce:         0,
	},
	Checkpoints: []blocktree.Checkpoint{},
}

// ByName resolves one of the three built-in networks by name, for CLI flag
// parsing. Returns false if name is unrecognized.
func ByName(name string) (NetworkConfig, bool) {
	switch name {
	case "mainnet":
		return MainnetConfig, true
	case "testnet":
		return TestnetConfig, true
	case "regtest":
		return RegtestConfig, true
	default:
		return NetworkConfig{}, false
	}
}

// PowLimitFromBits is a small helper kept alongside the config tables so
// callers constructing ad-hoc test networks can derive PowLimit from
// PowLimitBits without importing types directly.
func PowLimitFromBits(bits uint32) *big.Int {
	return types.CompactToBig(bits)
}
