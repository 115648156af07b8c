package aggregator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/reducer"
)

// Global maintains the protocol-wide volume rollup, the per-question player
// volumes, and the reported token prices. The rollup row is created lazily
// on the first recorded trade and updated additively forever after; it is
// never reset.
type Global struct {
	volumes domain.VolumeStore
	prices  domain.PriceStore
}

// NewGlobal creates a Global aggregator over the given stores.
func NewGlobal(volumes domain.VolumeStore, prices domain.PriceStore) *Global {
	return &Global{volumes: volumes, prices: prices}
}

// RecordTrade adds one trade's gross amount and fee to the global totals.
func (g *Global) RecordTrade(ctx context.Context, gross, fee *big.Int, scale *big.Int, kind domain.TradeKind, ts time.Time) error {
	global, err := g.volumes.GetGlobal(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		global = domain.GlobalVolume{
			CollateralVolume:     new(big.Int),
			CollateralBuyVolume:  new(big.Int),
			CollateralSellVolume: new(big.Int),
			FeeVolume:            new(big.Int),
		}
	} else if err != nil {
		return fmt.Errorf("aggregator: load global volume: %w", err)
	}

	global.CollateralVolume = new(big.Int).Add(global.CollateralVolume, gross)
	global.ScaledCollateralVolume = reducer.Scaled(global.CollateralVolume, scale)
	switch kind {
	case domain.TradeKindBuy:
		global.CollateralBuyVolume = new(big.Int).Add(global.CollateralBuyVolume, gross)
		global.ScaledCollateralBuyVolume = reducer.Scaled(global.CollateralBuyVolume, scale)
	case domain.TradeKindSell:
		global.CollateralSellVolume = new(big.Int).Add(global.CollateralSellVolume, gross)
		global.ScaledCollateralSellVolume = reducer.Scaled(global.CollateralSellVolume, scale)
	}
	global.FeeVolume = new(big.Int).Add(global.FeeVolume, fee)
	global.ScaledFeeVolume = reducer.Scaled(global.FeeVolume, scale)
	global.TradesQuantity++
	global.UpdatedAt = ts

	if err := g.volumes.SaveGlobal(ctx, global); err != nil {
		return fmt.Errorf("aggregator: save global volume: %w", err)
	}
	return nil
}

// RecordPlayerVolume updates the question's running total (the chain reports
// it cumulatively on every trade) and writes the day-bucketed
// volume-by-transaction snapshot for point-in-time queries.
func (g *Global) RecordPlayerVolume(ctx context.Context, ts time.Time, questionID string, totalTradeVolume *big.Int, txHash string) error {
	questionID = domain.NormalizeHash(questionID)
	txHash = domain.NormalizeHash(txHash)
	day := domain.DayBucket(ts)

	pv, err := g.volumes.GetPlayerVolume(ctx, questionID)
	if errors.Is(err, domain.ErrNotFound) {
		pv = domain.PlayerVolume{QuestionID: questionID, TotalVolume: new(big.Int)}
	} else if err != nil {
		return fmt.Errorf("aggregator: load player volume %s: %w", questionID, err)
	}

	pv.TotalVolume = new(big.Int).Set(totalTradeVolume)
	if day > pv.Day {
		pv.Day = day
	}
	pv.UpdatedAt = ts

	if err := g.volumes.SavePlayerVolume(ctx, pv); err != nil {
		return fmt.Errorf("aggregator: save player volume %s: %w", questionID, err)
	}

	snapshot := domain.PlayerVolumeByTransaction{
		ID:         questionID + "-" + txHash,
		QuestionID: questionID,
		TxHash:     txHash,
		Volume:     new(big.Int).Set(totalTradeVolume),
		Day:        day,
		Timestamp:  ts,
	}
	if err := g.volumes.InsertPlayerVolumeByTransaction(ctx, snapshot); err != nil {
		return fmt.Errorf("aggregator: save player volume snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

// RecordCurrentPrice replaces the market's current long/short price pair and
// writes the per-transaction snapshot. Both writes are last-write-wins, so a
// replayed event lands on the same rows.
func (g *Global) RecordCurrentPrice(ctx context.Context, marketID string, price domain.CurrentPrice, txHash string, ts time.Time) error {
	questionID := domain.NormalizeHash(price.QuestionID)
	txHash = domain.NormalizeHash(txHash)

	current := domain.PlayerPrice{
		MarketID:   marketID,
		QuestionID: questionID,
		LongPrice:  new(big.Int).Set(price.LongPrice),
		ShortPrice: new(big.Int).Set(price.ShortPrice),
		UpdatedAt:  ts,
	}
	if err := g.prices.SavePlayerPrice(ctx, current); err != nil {
		return fmt.Errorf("aggregator: save player price %s: %w", marketID, err)
	}

	snapshot := domain.TradePrice{
		TxHash:     txHash,
		MarketID:   marketID,
		QuestionID: questionID,
		LongPrice:  new(big.Int).Set(price.LongPrice),
		ShortPrice: new(big.Int).Set(price.ShortPrice),
		Timestamp:  ts,
	}
	if err := g.prices.InsertTradePrice(ctx, snapshot); err != nil {
		return fmt.Errorf("aggregator: save trade price %s: %w", txHash, err)
	}
	return nil
}
