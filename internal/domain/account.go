package domain

import (
	"math/big"
	"time"
)

// Account is one economic participant keyed by wallet address.
// InvestmentAmount is a signed running ledger: it goes up by (gross - fee) on
// every buy and down by (gross + fee) on every sell, so a net withdrawer
// carries a negative balance.
type Account struct {
	ID                     string
	FirstSeen              time.Time
	LastSeen               time.Time
	TradesQuantity         int64
	InvestmentAmount       *big.Int
	CollateralVolume       *big.Int
	ScaledCollateralVolume float64
}

// Clone returns a deep copy.
func (a Account) Clone() Account {
	c := a
	c.InvestmentAmount = copyInt(a.InvestmentAmount)
	c.CollateralVolume = copyInt(a.CollateralVolume)
	return c
}

// PoolMembership is one (market, holder) LP-share balance.
type PoolMembership struct {
	MarketID string
	Funder   string
	Amount   *big.Int
}

// Clone returns a deep copy.
func (p PoolMembership) Clone() PoolMembership {
	c := p
	c.Amount = copyInt(p.Amount)
	return c
}

// Holding is the aggregate outcome-token balance of one account in one
// market, across all outcomes.
type Holding struct {
	AccountID  string
	MarketID   string
	QuestionID string
	Tokens     *big.Int
}

// Clone returns a deep copy.
func (h Holding) Clone() Holding {
	c := h
	c.Tokens = copyInt(h.Tokens)
	return c
}

// OutcomePosition is the fine-grained (account, market, outcome) position
// with its own token and investment ledgers.
type OutcomePosition struct {
	AccountID        string
	MarketID         string
	QuestionID       string
	OutcomeIndex     int
	Tokens           *big.Int
	InvestmentAmount *big.Int
}

// Clone returns a deep copy.
func (p OutcomePosition) Clone() OutcomePosition {
	c := p
	c.Tokens = copyInt(p.Tokens)
	c.InvestmentAmount = copyInt(p.InvestmentAmount)
	return c
}
