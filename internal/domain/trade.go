package domain

import (
	"math/big"
	"time"
)

// TradeKind distinguishes buys from sells.
type TradeKind string

const (
	TradeKindBuy  TradeKind = "buy"
	TradeKindSell TradeKind = "sell"
)

// Trade is one immutable buy or sell record. ID is the compound event key
// (tx hash + log index + kind) so that two same-kind trades in one
// transaction never collide.
type Trade struct {
	ID                  string
	Kind                TradeKind
	MarketID            string
	User                string
	TradeAmount         *big.Int // gross collateral amount
	FeeAmount           *big.Int
	NetTradeAmount      *big.Int // gross - fee on buy, gross + fee on sell
	OutcomeIndex        int
	OutcomeTokensAmount *big.Int
	Timestamp           time.Time
	TxHash              string
	LogIndex            uint
}

// Clone returns a deep copy.
func (t Trade) Clone() Trade {
	c := t
	c.TradeAmount = copyInt(t.TradeAmount)
	c.FeeAmount = copyInt(t.FeeAmount)
	c.NetTradeAmount = copyInt(t.NetTradeAmount)
	c.OutcomeTokensAmount = copyInt(t.OutcomeTokensAmount)
	return c
}

// FundingAddition records one liquidity add. AmountsRefunded[i] is
// max(AmountsAdded) - AmountsAdded[i]: the outcome tokens handed back to the
// funder because the pool only absorbs up to the cheapest outcome's balance.
type FundingAddition struct {
	ID              string
	MarketID        string
	Funder          string
	AmountsAdded    []*big.Int
	AmountsRefunded []*big.Int
	SharesMinted    *big.Int
	Timestamp       time.Time
}

// Clone returns a deep copy.
func (f FundingAddition) Clone() FundingAddition {
	c := f
	c.AmountsAdded = copyInts(f.AmountsAdded)
	c.AmountsRefunded = copyInts(f.AmountsRefunded)
	c.SharesMinted = copyInt(f.SharesMinted)
	return c
}

// PoolShareTransferRecord records one applied LP share transfer, keyed by
// the compound event ID so a replayed event is detected and skipped.
type PoolShareTransferRecord struct {
	ID        string
	MarketID  string
	From      string
	To        string
	Amount    *big.Int
	Timestamp time.Time
}

// Clone returns a deep copy.
func (p PoolShareTransferRecord) Clone() PoolShareTransferRecord {
	c := p
	c.Amount = copyInt(p.Amount)
	return c
}

// FundingRemoval records one liquidity removal.
type FundingRemoval struct {
	ID                string
	MarketID          string
	Funder            string
	AmountsRemoved    []*big.Int
	CollateralRemoved *big.Int
	SharesBurnt       *big.Int
	Timestamp         time.Time
}

// Clone returns a deep copy.
func (f FundingRemoval) Clone() FundingRemoval {
	c := f
	c.AmountsRemoved = copyInts(f.AmountsRemoved)
	c.CollateralRemoved = copyInt(f.CollateralRemoved)
	c.SharesBurnt = copyInt(f.SharesBurnt)
	return c
}
