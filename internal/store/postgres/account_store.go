package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// AccountStore implements domain.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates an AccountStore backed by the given pool.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Get returns the account by address, or domain.ErrNotFound.
func (s *AccountStore) Get(ctx context.Context, id string) (domain.Account, error) {
	var (
		a          domain.Account
		investment string
		volume     string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, first_seen, last_seen, trades_quantity,
		       investment_amount, collateral_volume, scaled_collateral_volume
		FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.FirstSeen, &a.LastSeen, &a.TradesQuantity,
		&investment, &volume, &a.ScaledCollateralVolume)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("postgres: get account %s: %w", id, err)
	}

	if a.InvestmentAmount, err = decodeBig(investment); err != nil {
		return domain.Account{}, err
	}
	if a.CollateralVolume, err = decodeBig(volume); err != nil {
		return domain.Account{}, err
	}
	return a, nil
}

// Save upserts the account row.
func (s *AccountStore) Save(ctx context.Context, a domain.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (id, first_seen, last_seen, trades_quantity,
			investment_amount, collateral_volume, scaled_collateral_volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			last_seen                = EXCLUDED.last_seen,
			trades_quantity          = EXCLUDED.trades_quantity,
			investment_amount        = EXCLUDED.investment_amount,
			collateral_volume        = EXCLUDED.collateral_volume,
			scaled_collateral_volume = EXCLUDED.scaled_collateral_volume`,
		a.ID, a.FirstSeen, a.LastSeen, a.TradesQuantity,
		encodeBig(a.InvestmentAmount), encodeBig(a.CollateralVolume), a.ScaledCollateralVolume,
	)
	if err != nil {
		return fmt.Errorf("postgres: save account %s: %w", a.ID, err)
	}
	return nil
}

// PoolMembershipStore implements domain.PoolMembershipStore using PostgreSQL.
type PoolMembershipStore struct {
	pool *pgxpool.Pool
}

// NewPoolMembershipStore creates a PoolMembershipStore backed by the given
// pool.
func NewPoolMembershipStore(pool *pgxpool.Pool) *PoolMembershipStore {
	return &PoolMembershipStore{pool: pool}
}

// Get returns the (market, funder) membership, or domain.ErrNotFound.
func (s *PoolMembershipStore) Get(ctx context.Context, marketID, funder string) (domain.PoolMembership, error) {
	var (
		m      domain.PoolMembership
		amount string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT market_id, funder, amount FROM pool_memberships
		WHERE market_id = $1 AND funder = $2`, marketID, funder,
	).Scan(&m.MarketID, &m.Funder, &amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PoolMembership{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PoolMembership{}, fmt.Errorf("postgres: get membership %s/%s: %w", marketID, funder, err)
	}

	if m.Amount, err = decodeBig(amount); err != nil {
		return domain.PoolMembership{}, err
	}
	return m, nil
}

// Save upserts the membership row.
func (s *PoolMembershipStore) Save(ctx context.Context, m domain.PoolMembership) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_memberships (market_id, funder, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (market_id, funder) DO UPDATE SET amount = EXCLUDED.amount`,
		m.MarketID, m.Funder, encodeBig(m.Amount),
	)
	if err != nil {
		return fmt.Errorf("postgres: save membership %s/%s: %w", m.MarketID, m.Funder, err)
	}
	return nil
}

var (
	_ domain.AccountStore        = (*AccountStore)(nil)
	_ domain.PoolMembershipStore = (*PoolMembershipStore)(nil)
)
