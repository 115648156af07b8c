package reducer

import (
	"fmt"
	"math/big"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// CalculatePrices derives the normalized price vector from a reserve vector
// using the product-of-others rule: weight[i] is the product of every other
// outcome's reserve, and price[i] = weight[i] / sum(weights). A depleted
// outcome therefore saturates toward price 1 while the others fall toward 0.
//
// An all-zero reserve vector means the market holds no liquidity and yields
// the all-zero price vector. A zero weight sum with non-zero reserves (two
// or more depleted outcomes) has no normalization and is reported as an
// arithmetic domain fault.
func CalculatePrices(amounts []*big.Int) ([]*big.Rat, error) {
	prices := make([]*big.Rat, len(amounts))

	total := new(big.Int)
	for _, a := range amounts {
		if a.Sign() < 0 {
			return nil, fmt.Errorf("reducer: negative reserve in price calculation: %w", domain.ErrNegativeBalance)
		}
		total.Add(total, a)
	}
	if total.Sign() == 0 {
		for i := range prices {
			prices[i] = new(big.Rat)
		}
		return prices, nil
	}

	weights := make([]*big.Int, len(amounts))
	sum := new(big.Int)
	for i := range amounts {
		w := big.NewInt(1)
		for j, a := range amounts {
			if j != i {
				w.Mul(w, a)
			}
		}
		weights[i] = w
		sum.Add(sum, w)
	}

	if sum.Sign() == 0 {
		return nil, fmt.Errorf("reducer: zero weight sum over non-zero reserves: %w", domain.ErrArithmeticDomain)
	}

	for i, w := range weights {
		prices[i] = new(big.Rat).SetFrac(w, sum)
	}
	return prices, nil
}

// ZeroPrices returns the all-zero price vector of the given length.
func ZeroPrices(n int) []*big.Rat {
	prices := make([]*big.Rat, n)
	for i := range prices {
		prices[i] = new(big.Rat)
	}
	return prices
}
