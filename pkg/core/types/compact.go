package types

import "math/big"

// CompactToBig expands a 32-bit compact difficulty representation ("bits") into
// its full 256-bit target. The representation packs a 3-byte mantissa and a
// 1-byte base-256 exponent: value = mantissa * 256^(exponent-3). This matches
// Bitcoin's nBits encoding, the canonical compact form a header's Bits field
// round-trips through.
func CompactToBig(bits uint32) *big.Int {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff

	// A set sign bit (0x00800000) means a negative number in Bitcoin's encoding;
	// no valid target is negative, so treat it as zero.
	if bits&0x00800000 != 0 {
		return big.NewInt(0)
	}

	target := new(big.Int).SetUint64(uint64(mantissa))
	if exponent <= 3 {
		target.Rsh(target, uint(8*(3-exponent)))
	} else {
		target.Lsh(target, uint(8*(exponent-3)))
	}
	return target
}

// BigToCompact reduces a 256-bit target to its 32-bit compact representation,
// losing precision to 3 significant mantissa bytes. Header validation always
// round-trips a freshly computed target through this encoding before use, so
// it matches the 32-bit precision a real header carries.
func BigToCompact(target *big.Int) uint32 {
	if target.Sign() == 0 {
		return 0
	}

	// nbytes is the number of bytes needed to represent target, i.e. the
	// exponent in the mantissa*256^(exponent-3) encoding.
	nbytes := uint((target.BitLen() + 7) / 8)

	var mantissa uint32
	if nbytes <= 3 {
		mantissa = uint32(target.Uint64()) << (8 * (3 - nbytes))
	} else {
		shifted := new(big.Int).Rsh(target, 8*(nbytes-3))
		mantissa = uint32(shifted.Uint64())
	}

	// The high bit of the mantissa is reserved as a sign bit; if set, shift one
	// more byte into the exponent to keep the value positive/unsigned.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		nbytes++
	}

	return mantissa | uint32(nbytes)<<24
}

// HashMeetsTarget reports whether hash, read as a big-endian 256-bit unsigned
// integer, is numerically at or below target. Proof-of-work is valid when the
// header's hash satisfies its own claimed (and re-encoded) target.
func HashMeetsTarget(hash Hash, target *big.Int) bool {
	if target.Sign() <= 0 {
		return false
	}
	value := new(big.Int).SetBytes(hash[:])
	return value.Cmp(target) <= 0
}

// HashWork returns the approximate proof-of-work represented by a single
// header whose target is the given value: work = 2^256 / (target + 1).
func HashWork(target *big.Int) *big.Int {
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Lsh(big.NewInt(1), 256)
	denominator := new(big.Int).Add(target, big.NewInt(1))
	return numerator.Div(numerator, denominator)
}

// CumulativeWork sums the per-header work of every header in the sequence,
// each header's work derived from its own (compact) Bits field.
func CumulativeWork(headers []BlockHeader) *big.Int {
	total := big.NewInt(0)
	for _, h := range headers {
		total.Add(total, HashWork(CompactToBig(h.Bits)))
	}
	return total
}

// LessAsLittleEndian compares two hashes as 256-bit little-endian integers and
// reports whether a < b. Used only to break mainnet-excluded equal-work ties
// deterministically; must not be confused with a lexicographic byte compare,
// which gives a different (and wrong) answer.
func LessAsLittleEndian(a, b Hash) bool {
	var ra, rb Hash
	for i := 0; i < HashSize; i++ {
		ra[i] = a[HashSize-1-i]
		rb[i] = b[HashSize-1-i]
	}
	av := new(big.Int).SetBytes(ra[:])
	bv := new(big.Int).SetBytes(rb[:])
	return av.Cmp(bv) < 0
}
