package types

import (
	"encoding/binary"
	"math/big"
)

// Height identifies a block's position in the active chain. Genesis is 0.
type Height = uint64

// BlockHeader is the 80-byte header this core validates and orders. MerkleRoot,
// Version, and Nonce are opaque to consensus here; only PrevBlockHash, Time, and
// Bits are inspected by the block tree and validator.
type BlockHeader struct {
	Version       uint32
	PrevBlockHash Hash
	MerkleRoot    Hash
	Time          uint32 // seconds since epoch, network-adjusted
	Bits          uint32 // compact difficulty target
	Nonce         uint32
}

// Serialize returns a deterministic 80-byte encoding of the header.
// Field order: Version(4) || PrevBlockHash(32) || MerkleRoot(32) || Time(4) ||
// Bits(4) || Nonce(4).
func (h BlockHeader) Serialize() []byte {
	buf := make([]byte, 80)
	binary.BigEndian.PutUint32(buf[0:4], h.Version)
	copy(buf[4:36], h.PrevBlockHash[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.BigEndian.PutUint32(buf[68:72], h.Time)
	binary.BigEndian.PutUint32(buf[72:76], h.Bits)
	binary.BigEndian.PutUint32(buf[76:80], h.Nonce)
	return buf
}

// Hash computes the header's block identity hash: double-SHA256 of its
// serialized bytes. The same value is checked against the header's target to
// verify proof-of-work.
func (h BlockHeader) Hash() Hash {
	return doubleSHA256(h.Serialize())
}

// Target expands the header's compact Bits field into its full 256-bit
// difficulty target.
func (h BlockHeader) Target() *big.Int {
	return CompactToBig(h.Bits)
}

// CachedBlock is a header that has joined the active chain, along with its
// height and the hash it was indexed under.
type CachedBlock struct {
	Height Height
	Hash   Hash
	Header BlockHeader
}
