package domain

import (
	"math/big"
	"time"
)

// SecondsPerDay is the day-bucket granularity for time-series aggregation.
const SecondsPerDay = 86400

// DayBucket truncates a timestamp to its day index. Buckets only ever move
// forward within an entity's lifetime.
func DayBucket(t time.Time) int64 {
	return t.Unix() / SecondsPerDay
}

// GlobalVolume is the single protocol-wide rollup. It is created on the
// first trade and updated additively thereafter; counters never reset.
type GlobalVolume struct {
	CollateralVolume           *big.Int
	ScaledCollateralVolume     float64
	CollateralBuyVolume        *big.Int
	ScaledCollateralBuyVolume  float64
	CollateralSellVolume       *big.Int
	ScaledCollateralSellVolume float64
	FeeVolume                  *big.Int
	ScaledFeeVolume            float64
	TradesQuantity             int64
	UpdatedAt                  time.Time
}

// Clone returns a deep copy.
func (g GlobalVolume) Clone() GlobalVolume {
	c := g
	c.CollateralVolume = copyInt(g.CollateralVolume)
	c.CollateralBuyVolume = copyInt(g.CollateralBuyVolume)
	c.CollateralSellVolume = copyInt(g.CollateralSellVolume)
	c.FeeVolume = copyInt(g.FeeVolume)
	return c
}

// PlayerVolume is the per-question running trade-volume rollup, keyed by the
// external question identifier rather than the market address.
type PlayerVolume struct {
	QuestionID  string
	TotalVolume *big.Int
	Day         int64
	UpdatedAt   time.Time
}

// Clone returns a deep copy.
func (p PlayerVolume) Clone() PlayerVolume {
	c := p
	c.TotalVolume = copyInt(p.TotalVolume)
	return c
}

// PlayerVolumeByTransaction is a point-in-time snapshot of a question's
// volume keyed by the transaction that produced it, supporting
// volume-at-transaction queries distinct from the running total.
type PlayerVolumeByTransaction struct {
	ID         string // questionID-txHash
	QuestionID string
	TxHash     string
	Volume     *big.Int
	Day        int64
	Timestamp  time.Time
}

// Clone returns a deep copy.
func (p PlayerVolumeByTransaction) Clone() PlayerVolumeByTransaction {
	c := p
	c.Volume = copyInt(p.Volume)
	return c
}

// PlayerPrice is the latest long/short token price pair reported for a
// market. Only the newest pair is kept; the per-transaction history lives
// in TradePrice.
type PlayerPrice struct {
	MarketID   string
	QuestionID string
	LongPrice  *big.Int
	ShortPrice *big.Int
	UpdatedAt  time.Time
}

// Clone returns a deep copy.
func (p PlayerPrice) Clone() PlayerPrice {
	c := p
	c.LongPrice = copyInt(p.LongPrice)
	c.ShortPrice = copyInt(p.ShortPrice)
	return c
}

// TradePrice snapshots the price pair at one transaction, keyed by the
// transaction hash, supporting price-at-trade queries.
type TradePrice struct {
	TxHash     string
	MarketID   string
	QuestionID string
	LongPrice  *big.Int
	ShortPrice *big.Int
	Timestamp  time.Time
}

// Clone returns a deep copy.
func (t TradePrice) Clone() TradePrice {
	c := t
	c.LongPrice = copyInt(t.LongPrice)
	c.ShortPrice = copyInt(t.ShortPrice)
	return c
}
