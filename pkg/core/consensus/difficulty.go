package consensus

import "math/big"

// MedianTimeSpan is the number of preceding blocks used to compute a block's
// median-time-past bound.
const MedianTimeSpan = 11

// MaxFutureBlockTime is how far ahead of network-adjusted time a block's
// timestamp may be, in seconds (two hours).
const MaxFutureBlockTime uint32 = 7200

// ScaleTarget applies the standard Bitcoin-style retarget adjustment: the
// previous window's target is scaled by the ratio of actualTimespan (the time
// the window actually took) to targetTimespan (the time it was supposed to
// take), clamped to a factor of 4 in either direction, then clamped again to
// never exceed limit.
//
// actualTimespan and targetTimespan are both in seconds. The caller is
// responsible for deciding whether this height is a retarget boundary at all;
// ScaleTarget itself always computes a new target.
func ScaleTarget(prevTarget *big.Int, actualTimespan, targetTimespan int64, limit *big.Int) *big.Int {
	minTimespan := targetTimespan / 4
	maxTimespan := targetTimespan * 4

	clamped := actualTimespan
	if clamped < minTimespan {
		clamped = minTimespan
	}
	if clamped > maxTimespan {
		clamped = maxTimespan
	}

	newTarget := new(big.Int).Mul(prevTarget, big.NewInt(clamped))
	newTarget.Div(newTarget, big.NewInt(targetTimespan))

	if newTarget.Cmp(limit) > 0 {
		return new(big.Int).Set(limit)
	}
	if newTarget.Sign() <= 0 {
		return big.NewInt(1)
	}
	return newTarget
}
