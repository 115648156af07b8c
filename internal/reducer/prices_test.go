package reducer_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/reducer"
)

func TestCalculatePrices_AllZeroReserves(t *testing.T) {
	prices, err := reducer.CalculatePrices(ints(0, 0, 0))
	if err != nil {
		t.Fatalf("CalculatePrices: %v", err)
	}
	for i, p := range prices {
		if p.Sign() != 0 {
			t.Errorf("price %d = %s, want 0", i, p)
		}
	}
}

func TestCalculatePrices_SingleDepletedOutcomeSaturates(t *testing.T) {
	prices, err := reducer.CalculatePrices(ints(0, 50, 80))
	if err != nil {
		t.Fatalf("CalculatePrices: %v", err)
	}
	if prices[0].Cmp(big.NewRat(1, 1)) != 0 {
		t.Errorf("depleted outcome price = %s, want 1", prices[0])
	}
	if prices[1].Sign() != 0 || prices[2].Sign() != 0 {
		t.Errorf("other prices = %s, %s, want 0, 0", prices[1], prices[2])
	}
}

func TestCalculatePrices_TwoDepletedOutcomesIsDomainFault(t *testing.T) {
	_, err := reducer.CalculatePrices(ints(0, 0, 80))
	if !errors.Is(err, domain.ErrArithmeticDomain) {
		t.Fatalf("err = %v, want ErrArithmeticDomain", err)
	}
}

func TestCalculatePrices_NegativeReserveRejected(t *testing.T) {
	_, err := reducer.CalculatePrices(ints(10, -1))
	if !errors.Is(err, domain.ErrNegativeBalance) {
		t.Fatalf("err = %v, want ErrNegativeBalance", err)
	}
}

func TestCalculatePrices_SumsToOne(t *testing.T) {
	cases := [][]*big.Int{
		ints(100, 100),
		ints(104, 110),
		ints(1, 2, 3, 4, 5),
		ints(999999999, 1),
	}
	one := big.NewRat(1, 1)
	for _, amounts := range cases {
		prices, err := reducer.CalculatePrices(amounts)
		if err != nil {
			t.Fatalf("CalculatePrices(%v): %v", amounts, err)
		}
		sum := new(big.Rat)
		for _, p := range prices {
			sum.Add(sum, p)
		}
		if sum.Cmp(one) != 0 {
			t.Errorf("prices for %v sum to %s, want 1", amounts, sum)
		}
	}
}

func TestScaled(t *testing.T) {
	scale := big.NewInt(1_000_000)
	if got := reducer.Scaled(big.NewInt(2_500_000), scale); got != 2.5 {
		t.Errorf("Scaled = %v, want 2.5", got)
	}
	if got := reducer.Scaled(nil, scale); got != 0 {
		t.Errorf("Scaled(nil) = %v, want 0", got)
	}
	if got := reducer.Scaled(big.NewInt(5), new(big.Int)); got != 0 {
		t.Errorf("Scaled with zero scale = %v, want 0", got)
	}
}
