package domain

import (
	"math/big"
	"time"
)

// Market is one fixed-product market maker instance and the aggregate state
// derived from its event history. The persisted row is the authoritative
// copy; handlers load, mutate, and save it.
type Market struct {
	ID              string // FPMM contract address
	Creator         string
	ConditionID     string
	QuestionID      string
	CollateralToken string
	Fee             *big.Int
	TokenName       string // LP share ERC-20 metadata
	TokenSymbol     string

	OutcomeSlotCount    int
	OutcomeTokenAmounts []*big.Int // reserve vector, len == OutcomeSlotCount
	OutcomeTokenPrices  []*big.Rat // normalized, sum to 1 unless no liquidity
	TotalSupply         *big.Int   // LP shares outstanding

	LiquidityParameter       *big.Int
	ScaledLiquidityParameter float64

	CollateralVolume           *big.Int
	ScaledCollateralVolume     float64
	CollateralBuyVolume        *big.Int
	ScaledCollateralBuyVolume  float64
	CollateralSellVolume       *big.Int
	ScaledCollateralSellVolume float64
	FeeVolume                  *big.Int
	ScaledFeeVolume            float64

	TradesQuantity          int64
	BuysQuantity            int64
	SellsQuantity           int64
	LiquidityAddQuantity    int64
	LiquidityRemoveQuantity int64

	LastActiveDay  int64
	CreatedAt      time.Time
	CreationTxHash string
	UpdatedAt      time.Time
}

// Clone returns a deep copy. Stores hand out clones so callers can mutate
// freely before saving.
func (m Market) Clone() Market {
	c := m
	c.Fee = copyInt(m.Fee)
	c.TotalSupply = copyInt(m.TotalSupply)
	c.LiquidityParameter = copyInt(m.LiquidityParameter)
	c.CollateralVolume = copyInt(m.CollateralVolume)
	c.CollateralBuyVolume = copyInt(m.CollateralBuyVolume)
	c.CollateralSellVolume = copyInt(m.CollateralSellVolume)
	c.FeeVolume = copyInt(m.FeeVolume)
	c.OutcomeTokenAmounts = copyInts(m.OutcomeTokenAmounts)
	if m.OutcomeTokenPrices != nil {
		c.OutcomeTokenPrices = make([]*big.Rat, len(m.OutcomeTokenPrices))
		for i, p := range m.OutcomeTokenPrices {
			if p != nil {
				c.OutcomeTokenPrices[i] = new(big.Rat).Set(p)
			}
		}
	}
	return c
}

// Condition is an outcome-resolution contract shared by possibly many
// markets.
type Condition struct {
	ID               string
	OutcomeSlotCount int
	MarketIDs        []string
}

// Clone returns a deep copy.
func (c Condition) Clone() Condition {
	out := c
	out.MarketIDs = append([]string(nil), c.MarketIDs...)
	return out
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func copyInts(vs []*big.Int) []*big.Int {
	if vs == nil {
		return nil
	}
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = copyInt(v)
	}
	return out
}
