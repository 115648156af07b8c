// Package numeric provides the integer-domain arithmetic kernel shared by
// the market reducer and aggregators: a deterministic big-integer nth root
// and small vector helpers.
package numeric

import "math/big"

var (
	one = big.NewInt(1)
)

// NthRoot returns floor(value^(1/n)) for a non-negative value and n >= 1,
// computed by Newton's method in integer arithmetic. The iteration is seeded
// from the bit length so it converges from above, and stops at the first
// fixed point, which makes the result deterministic for all representable
// magnitudes (2^256-class values included). A zero or negative value yields
// zero.
func NthRoot(value *big.Int, n int) *big.Int {
	if n <= 0 || value.Sign() <= 0 {
		return new(big.Int)
	}
	if n == 1 || value.Cmp(one) == 0 {
		return new(big.Int).Set(value)
	}

	bigN := big.NewInt(int64(n))
	nMinusOne := big.NewInt(int64(n - 1))

	// Seed with 2^ceil(bitlen/n), an upper bound on the root.
	r := new(big.Int).Lsh(one, uint((value.BitLen()+n-1)/n))

	for {
		// next = ((n-1)*r + value/r^(n-1)) / n
		pow := new(big.Int).Exp(r, nMinusOne, nil)
		next := new(big.Int).Quo(value, pow)
		next.Add(next, new(big.Int).Mul(nMinusOne, r))
		next.Quo(next, bigN)

		if next.Cmp(r) >= 0 {
			return r
		}
		r = next
	}
}

// Prod returns the product of the vector, or 1 for an empty vector.
func Prod(vs []*big.Int) *big.Int {
	p := new(big.Int).Set(one)
	for _, v := range vs {
		p.Mul(p, v)
	}
	return p
}

// Max returns the largest element, ties resolved by first occurrence.
// It returns nil for an empty vector; callers guarantee outcome vectors are
// non-empty.
func Max(vs []*big.Int) *big.Int {
	if len(vs) == 0 {
		return nil
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v.Cmp(m) > 0 {
			m = v
		}
	}
	return new(big.Int).Set(m)
}
