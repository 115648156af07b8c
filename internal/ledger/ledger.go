// Package ledger owns the per-user token bookkeeping: aggregate holdings per
// (account, market), fine-grained positions per (account, market, outcome),
// and LP pool membership balances. Trade updates touch two ledgers that must
// stay reconciled, so each update is computed fully in memory and either both
// rows are saved or neither is.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// Ledger mutates holdings, positions, and pool memberships.
type Ledger struct {
	positions   domain.PositionStore
	memberships domain.PoolMembershipStore
}

// New creates a Ledger over the given stores.
func New(positions domain.PositionStore, memberships domain.PoolMembershipStore) *Ledger {
	return &Ledger{positions: positions, memberships: memberships}
}

// ApplyTrade folds one trade into both the aggregate holding and the
// fine-grained outcome position. On a buy both token balances grow by the
// traded amount and the position's investment grows by the net trade amount;
// a sell mirrors with subtraction. A sell that would push the position's
// token balance below zero is a data-consistency fault: it is rejected
// before either row is written, so the two ledgers can never diverge.
func (l *Ledger) ApplyTrade(ctx context.Context, accountID, marketID, questionID string, outcomeIndex int, netTradeAmount, tokensTraded *big.Int, kind domain.TradeKind) error {
	accountID = domain.NormalizeAddress(accountID)
	marketID = domain.NormalizeAddress(marketID)
	questionID = domain.NormalizeHash(questionID)

	holding, err := l.positions.GetHolding(ctx, accountID, marketID)
	if errors.Is(err, domain.ErrNotFound) {
		holding = domain.Holding{
			AccountID:  accountID,
			MarketID:   marketID,
			QuestionID: questionID,
			Tokens:     new(big.Int),
		}
	} else if err != nil {
		return fmt.Errorf("ledger: load holding %s/%s: %w", accountID, marketID, err)
	}

	position, err := l.positions.GetOutcomePosition(ctx, accountID, marketID, outcomeIndex)
	if errors.Is(err, domain.ErrNotFound) {
		position = domain.OutcomePosition{
			AccountID:        accountID,
			MarketID:         marketID,
			QuestionID:       questionID,
			OutcomeIndex:     outcomeIndex,
			Tokens:           new(big.Int),
			InvestmentAmount: new(big.Int),
		}
	} else if err != nil {
		return fmt.Errorf("ledger: load position %s/%s/%d: %w", accountID, marketID, outcomeIndex, err)
	}

	switch kind {
	case domain.TradeKindBuy:
		holding.Tokens = new(big.Int).Add(holding.Tokens, tokensTraded)
		position.Tokens = new(big.Int).Add(position.Tokens, tokensTraded)
		position.InvestmentAmount = new(big.Int).Add(position.InvestmentAmount, netTradeAmount)

	case domain.TradeKindSell:
		newTokens := new(big.Int).Sub(position.Tokens, tokensTraded)
		if newTokens.Sign() < 0 {
			return fmt.Errorf("ledger: selling %s tokens from position %s/%s/%d holding %s: %w",
				tokensTraded, accountID, marketID, outcomeIndex, position.Tokens, domain.ErrNegativeBalance)
		}
		position.Tokens = newTokens
		position.InvestmentAmount = new(big.Int).Sub(position.InvestmentAmount, netTradeAmount)
		holding.Tokens = new(big.Int).Sub(holding.Tokens, tokensTraded)

	default:
		return fmt.Errorf("ledger: trade kind %q: %w", kind, domain.ErrUnknownEventKind)
	}

	if err := l.positions.SaveHolding(ctx, holding); err != nil {
		return fmt.Errorf("ledger: save holding %s/%s: %w", accountID, marketID, err)
	}
	if err := l.positions.SaveOutcomePosition(ctx, position); err != nil {
		return fmt.Errorf("ledger: save position %s/%s/%d: %w", accountID, marketID, outcomeIndex, err)
	}
	return nil
}

// TransferPoolShares moves LP shares between memberships. A zero-address
// endpoint is a mint or burn: no membership row exists for it and that side
// is skipped.
func (l *Ledger) TransferPoolShares(ctx context.Context, marketID, from, to string, amount *big.Int) error {
	marketID = domain.NormalizeAddress(marketID)
	from = domain.NormalizeAddress(from)
	to = domain.NormalizeAddress(to)

	if from != domain.ZeroAddress {
		membership, err := l.membership(ctx, marketID, from)
		if err != nil {
			return err
		}
		membership.Amount = new(big.Int).Sub(membership.Amount, amount)
		if err := l.memberships.Save(ctx, membership); err != nil {
			return fmt.Errorf("ledger: debit membership %s/%s: %w", marketID, from, err)
		}
	}

	if to != domain.ZeroAddress {
		membership, err := l.membership(ctx, marketID, to)
		if err != nil {
			return err
		}
		membership.Amount = new(big.Int).Add(membership.Amount, amount)
		if err := l.memberships.Save(ctx, membership); err != nil {
			return fmt.Errorf("ledger: credit membership %s/%s: %w", marketID, to, err)
		}
	}
	return nil
}

func (l *Ledger) membership(ctx context.Context, marketID, funder string) (domain.PoolMembership, error) {
	membership, err := l.memberships.Get(ctx, marketID, funder)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PoolMembership{
			MarketID: marketID,
			Funder:   funder,
			Amount:   new(big.Int),
		}, nil
	}
	if err != nil {
		return domain.PoolMembership{}, fmt.Errorf("ledger: load membership %s/%s: %w", marketID, funder, err)
	}
	return membership, nil
}
