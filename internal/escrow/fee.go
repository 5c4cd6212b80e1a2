package escrow

import "math/big"

// FeePolicy computes the platform fee as a configurable basis-point share of
// the gig budget, rounded up. Pure and versionable; Bps may be zero.
type FeePolicy struct {
	Bps int64
}

func (p FeePolicy) Fee(budget int64) int64 {
	if p.Bps <= 0 || budget <= 0 {
		return 0
	}
	num := new(big.Int).Mul(big.NewInt(budget), big.NewInt(p.Bps))
	quot, rem := new(big.Int).QuoRem(num, big.NewInt(10000), new(big.Int))
	if rem.Sign() > 0 {
		quot.Add(quot, big.NewInt(1))
	}
	return quot.Int64()
}

// Total is the full escrow amount: gig budget plus platform fee.
func (p FeePolicy) Total(budget int64) int64 {
	return budget + p.Fee(budget)
}
