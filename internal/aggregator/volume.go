// Package aggregator maintains the running volume and fee rollups: the
// per-market accumulators folded into the Market row before it is saved, the
// protocol-wide global totals, and the per-question player volumes.
package aggregator

import (
	"math/big"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/reducer"
)

// RecordVolume folds one trade's gross collateral amount into the market's
// volume accumulators and advances the last-active day bucket. Day motion is
// forward-only; an event carrying an older timestamp never regresses it.
func RecordVolume(m *domain.Market, gross *big.Int, kind domain.TradeKind, scale *big.Int, ts time.Time) {
	m.CollateralVolume = new(big.Int).Add(m.CollateralVolume, gross)
	m.ScaledCollateralVolume = reducer.Scaled(m.CollateralVolume, scale)

	switch kind {
	case domain.TradeKindBuy:
		m.CollateralBuyVolume = new(big.Int).Add(m.CollateralBuyVolume, gross)
		m.ScaledCollateralBuyVolume = reducer.Scaled(m.CollateralBuyVolume, scale)
	case domain.TradeKindSell:
		m.CollateralSellVolume = new(big.Int).Add(m.CollateralSellVolume, gross)
		m.ScaledCollateralSellVolume = reducer.Scaled(m.CollateralSellVolume, scale)
	}

	if day := domain.DayBucket(ts); day > m.LastActiveDay {
		m.LastActiveDay = day
	}
}

// RecordFee folds one trade's fee into the market's fee accumulators.
func RecordFee(m *domain.Market, fee *big.Int, scale *big.Int) {
	m.FeeVolume = new(big.Int).Add(m.FeeVolume, fee)
	m.ScaledFeeVolume = reducer.Scaled(m.FeeVolume, scale)
}
