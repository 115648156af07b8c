// Package reducer implements the pure market-state transitions: given a
// market snapshot and one event payload it computes the new reserve vector,
// price vector, liquidity parameter, LP-share supply, and event counters.
// Persistence and downstream aggregation are the caller's concern; a
// transition either fully mutates the in-memory snapshot or returns an error
// leaving it untouched.
package reducer

import (
	"fmt"
	"math/big"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/numeric"
)

// NewMarket initializes a market from its creation event. All reserves,
// prices, and accumulators start at zero; prices stay zero until the first
// funding event establishes liquidity.
func NewMarket(ev domain.Event) domain.Market {
	created := ev.Created
	n := created.OutcomeSlotCount

	amounts := make([]*big.Int, n)
	for i := range amounts {
		amounts[i] = new(big.Int)
	}

	return domain.Market{
		ID:                   domain.NormalizeAddress(ev.MarketAddress),
		Creator:              domain.NormalizeAddress(created.Creator),
		ConditionID:          domain.NormalizeHash(created.ConditionID),
		QuestionID:           domain.NormalizeHash(created.QuestionID),
		CollateralToken:      domain.NormalizeAddress(created.CollateralToken),
		Fee:                  new(big.Int).Set(created.Fee),
		TokenName:            created.TokenName,
		TokenSymbol:          created.TokenSymbol,
		OutcomeSlotCount:     n,
		OutcomeTokenAmounts:  amounts,
		OutcomeTokenPrices:   ZeroPrices(n),
		TotalSupply:          new(big.Int),
		LiquidityParameter:   new(big.Int),
		CollateralVolume:     new(big.Int),
		CollateralBuyVolume:  new(big.Int),
		CollateralSellVolume: new(big.Int),
		FeeVolume:            new(big.Int),
		LastActiveDay:        domain.DayBucket(ev.Timestamp),
		CreatedAt:            ev.Timestamp,
		CreationTxHash:       domain.NormalizeHash(ev.TxHash),
		UpdatedAt:            ev.Timestamp,
	}
}

// ApplyFundingAdded folds a liquidity addition into the market: reserves grow
// by the per-outcome amounts, the liquidity parameter is recomputed, and the
// share supply grows by the minted shares. Only the bootstrap funding (supply
// was zero before the event) recomputes prices; later fundings must not be
// able to move them.
func ApplyFundingAdded(m *domain.Market, funding *domain.FundingAdded, ts time.Time, scale *big.Int) error {
	if len(funding.AmountsAdded) != m.OutcomeSlotCount {
		return fmt.Errorf("reducer: funding added with %d amounts on %d-outcome market %s: %w",
			len(funding.AmountsAdded), m.OutcomeSlotCount, m.ID, domain.ErrSlotCountMismatch)
	}

	newAmounts := make([]*big.Int, m.OutcomeSlotCount)
	for i, old := range m.OutcomeTokenAmounts {
		newAmounts[i] = new(big.Int).Add(old, funding.AmountsAdded[i])
	}

	m.OutcomeTokenAmounts = newAmounts
	setLiquidity(m, scale)

	m.TotalSupply = new(big.Int).Add(m.TotalSupply, funding.SharesMinted)
	if m.TotalSupply.Cmp(funding.SharesMinted) == 0 {
		// First liquidity: initial price discovery from the new reserves.
		prices, err := CalculatePrices(newAmounts)
		if err != nil {
			return err
		}
		m.OutcomeTokenPrices = prices
	}

	m.LiquidityAddQuantity++
	m.UpdatedAt = ts
	return nil
}

// ApplyFundingRemoved folds a liquidity removal into the market. A removal
// that would drive any reserve negative is rejected before any mutation.
// When the share supply reaches zero the price vector is zeroed: no
// liquidity, no meaningful price.
func ApplyFundingRemoved(m *domain.Market, funding *domain.FundingRemoved, ts time.Time, scale *big.Int) error {
	if len(funding.AmountsRemoved) != m.OutcomeSlotCount {
		return fmt.Errorf("reducer: funding removed with %d amounts on %d-outcome market %s: %w",
			len(funding.AmountsRemoved), m.OutcomeSlotCount, m.ID, domain.ErrSlotCountMismatch)
	}

	newAmounts := make([]*big.Int, m.OutcomeSlotCount)
	for i, old := range m.OutcomeTokenAmounts {
		newAmounts[i] = new(big.Int).Sub(old, funding.AmountsRemoved[i])
		if newAmounts[i].Sign() < 0 {
			return fmt.Errorf("reducer: removing %s from reserve %d of market %s: %w",
				funding.AmountsRemoved[i], i, m.ID, domain.ErrNegativeBalance)
		}
	}

	newSupply := new(big.Int).Sub(m.TotalSupply, funding.SharesBurnt)
	if newSupply.Sign() < 0 {
		return fmt.Errorf("reducer: burning %s of %s LP shares on market %s: %w",
			funding.SharesBurnt, m.TotalSupply, m.ID, domain.ErrNegativeBalance)
	}

	m.OutcomeTokenAmounts = newAmounts
	setLiquidity(m, scale)

	m.TotalSupply = newSupply
	if m.TotalSupply.Sign() == 0 {
		m.OutcomeTokenPrices = ZeroPrices(m.OutcomeSlotCount)
	}

	m.LiquidityRemoveQuantity++
	m.UpdatedAt = ts
	return nil
}

// ApplyBuy folds a purchase into the market. The traded outcome's reserve
// grows by the net investment minus the tokens handed out; every other
// reserve grows by the full net investment. Prices and liquidity are
// recomputed from the new reserves.
func ApplyBuy(m *domain.Market, buy *domain.Buy, ts time.Time, scale *big.Int) error {
	if buy.OutcomeIndex < 0 || buy.OutcomeIndex >= m.OutcomeSlotCount {
		return fmt.Errorf("reducer: buy outcome index %d out of range on market %s: %w",
			buy.OutcomeIndex, m.ID, domain.ErrSlotCountMismatch)
	}

	newAmounts := make([]*big.Int, m.OutcomeSlotCount)
	for i, old := range m.OutcomeTokenAmounts {
		newAmounts[i] = new(big.Int).Add(old, buy.NetInvestmentAmount)
		if i == buy.OutcomeIndex {
			newAmounts[i].Sub(newAmounts[i], buy.OutcomeTokensBought)
		}
		if newAmounts[i].Sign() < 0 {
			return fmt.Errorf("reducer: buy drives reserve %d of market %s negative: %w",
				i, m.ID, domain.ErrNegativeBalance)
		}
	}

	prices, err := CalculatePrices(newAmounts)
	if err != nil {
		return err
	}

	m.OutcomeTokenAmounts = newAmounts
	m.OutcomeTokenPrices = prices
	setLiquidity(m, scale)

	m.TradesQuantity++
	m.BuysQuantity++
	m.UpdatedAt = ts
	return nil
}

// ApplySell is the mirror of ApplyBuy: the traded outcome's reserve grows by
// the tokens returned minus the net payout, every other reserve shrinks by
// the net payout.
func ApplySell(m *domain.Market, sell *domain.Sell, ts time.Time, scale *big.Int) error {
	if sell.OutcomeIndex < 0 || sell.OutcomeIndex >= m.OutcomeSlotCount {
		return fmt.Errorf("reducer: sell outcome index %d out of range on market %s: %w",
			sell.OutcomeIndex, m.ID, domain.ErrSlotCountMismatch)
	}

	newAmounts := make([]*big.Int, m.OutcomeSlotCount)
	for i, old := range m.OutcomeTokenAmounts {
		newAmounts[i] = new(big.Int).Sub(old, sell.NetReturnAmount)
		if i == sell.OutcomeIndex {
			newAmounts[i].Add(newAmounts[i], sell.OutcomeTokensSold)
		}
		if newAmounts[i].Sign() < 0 {
			return fmt.Errorf("reducer: sell drives reserve %d of market %s negative: %w",
				i, m.ID, domain.ErrNegativeBalance)
		}
	}

	prices, err := CalculatePrices(newAmounts)
	if err != nil {
		return err
	}

	m.OutcomeTokenAmounts = newAmounts
	m.OutcomeTokenPrices = prices
	setLiquidity(m, scale)

	m.TradesQuantity++
	m.SellsQuantity++
	m.UpdatedAt = ts
	return nil
}

// setLiquidity recomputes the liquidity parameter as the nth root of the
// reserve product, plus its decimal-scaled mirror.
func setLiquidity(m *domain.Market, scale *big.Int) {
	m.LiquidityParameter = numeric.NthRoot(numeric.Prod(m.OutcomeTokenAmounts), m.OutcomeSlotCount)
	m.ScaledLiquidityParameter = Scaled(m.LiquidityParameter, scale)
}

// Scaled converts a raw integer amount to its human-readable decimal value
// by dividing by the collateral token's scale (10^decimals).
func Scaled(v, scale *big.Int) float64 {
	if v == nil || scale == nil || scale.Sign() == 0 {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(v, scale).Float64()
	return f
}
