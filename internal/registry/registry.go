// Package registry owns all mutations of Account rows: identity get-or-create,
// last-seen tracking, trade counting, per-account volume, and the signed
// investment ledger.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/reducer"
)

// Registry is the account registry.
type Registry struct {
	accounts domain.AccountStore
}

// New creates a Registry over the given account store.
func New(accounts domain.AccountStore) *Registry {
	return &Registry{accounts: accounts}
}

// Require returns the account, creating it with the event timestamp when it
// does not exist yet. It is idempotent.
func (r *Registry) Require(ctx context.Context, id string, ts time.Time) (domain.Account, error) {
	id = domain.NormalizeAddress(id)
	account, err := r.accounts.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		account = domain.Account{
			ID:               id,
			FirstSeen:        ts,
			LastSeen:         ts,
			InvestmentAmount: new(big.Int),
			CollateralVolume: new(big.Int),
		}
		if err := r.accounts.Save(ctx, account); err != nil {
			return domain.Account{}, fmt.Errorf("registry: create account %s: %w", id, err)
		}
		return account, nil
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("registry: load account %s: %w", id, err)
	}
	return account, nil
}

// MarkSeen advances the account's last-seen timestamp. Older timestamps are
// ignored so the field only ever moves forward.
func (r *Registry) MarkSeen(ctx context.Context, id string, ts time.Time) error {
	account, err := r.Require(ctx, id, ts)
	if err != nil {
		return err
	}
	if !ts.After(account.LastSeen) {
		return nil
	}
	account.LastSeen = ts
	if err := r.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("registry: mark account %s seen: %w", account.ID, err)
	}
	return nil
}

// IncrementTrades bumps the account's trade counter and touches last-seen.
func (r *Registry) IncrementTrades(ctx context.Context, id string, ts time.Time) error {
	account, err := r.Require(ctx, id, ts)
	if err != nil {
		return err
	}
	account.TradesQuantity++
	if ts.After(account.LastSeen) {
		account.LastSeen = ts
	}
	if err := r.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("registry: increment trades for %s: %w", account.ID, err)
	}
	return nil
}

// RecordVolume adds one trade's gross collateral amount to the account's
// cumulative volume.
func (r *Registry) RecordVolume(ctx context.Context, id string, gross *big.Int, scale *big.Int, ts time.Time) error {
	account, err := r.Require(ctx, id, ts)
	if err != nil {
		return err
	}
	account.CollateralVolume = new(big.Int).Add(account.CollateralVolume, gross)
	account.ScaledCollateralVolume = reducer.Scaled(account.CollateralVolume, scale)
	if err := r.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("registry: record volume for %s: %w", account.ID, err)
	}
	return nil
}

// ApplyInvestment moves the account's signed investment ledger: up by
// (gross - fee) on a buy, down by (gross + fee) on a sell. This is a running
// net-deposit figure distinct from per-position investment, and it may go
// negative for a net withdrawer.
func (r *Registry) ApplyInvestment(ctx context.Context, id string, gross, fee *big.Int, kind domain.TradeKind) error {
	id = domain.NormalizeAddress(id)
	account, err := r.accounts.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("registry: load account %s for investment update: %w", id, err)
	}

	switch kind {
	case domain.TradeKindBuy:
		delta := new(big.Int).Sub(gross, fee)
		account.InvestmentAmount = new(big.Int).Add(account.InvestmentAmount, delta)
	case domain.TradeKindSell:
		delta := new(big.Int).Add(gross, fee)
		account.InvestmentAmount = new(big.Int).Sub(account.InvestmentAmount, delta)
	default:
		return fmt.Errorf("registry: investment update for kind %q: %w", kind, domain.ErrUnknownEventKind)
	}

	if err := r.accounts.Save(ctx, account); err != nil {
		return fmt.Errorf("registry: apply investment for %s: %w", account.ID, err)
	}
	return nil
}
