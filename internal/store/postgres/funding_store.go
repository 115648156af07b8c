package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// FundingStore implements domain.FundingStore using PostgreSQL.
type FundingStore struct {
	pool *pgxpool.Pool
}

// NewFundingStore creates a FundingStore backed by the given pool.
func NewFundingStore(pool *pgxpool.Pool) *FundingStore {
	return &FundingStore{pool: pool}
}

// GetAddition returns the funding addition by id, or domain.ErrNotFound.
func (s *FundingStore) GetAddition(ctx context.Context, id string) (domain.FundingAddition, error) {
	var (
		f        domain.FundingAddition
		added    []string
		refunded []string
		minted   string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, market_id, funder, amounts_added, amounts_refunded, shares_minted, ts
		FROM funding_additions WHERE id = $1`, id,
	).Scan(&f.ID, &f.MarketID, &f.Funder, &added, &refunded, &minted, &f.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FundingAddition{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.FundingAddition{}, fmt.Errorf("postgres: get funding addition %s: %w", id, err)
	}

	if f.AmountsAdded, err = decodeBigs(added); err != nil {
		return domain.FundingAddition{}, err
	}
	if f.AmountsRefunded, err = decodeBigs(refunded); err != nil {
		return domain.FundingAddition{}, err
	}
	if f.SharesMinted, err = decodeBig(minted); err != nil {
		return domain.FundingAddition{}, err
	}
	return f, nil
}

// InsertAddition writes the funding addition record.
func (s *FundingStore) InsertAddition(ctx context.Context, f domain.FundingAddition) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO funding_additions (id, market_id, funder, amounts_added, amounts_refunded, shares_minted, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		f.ID, f.MarketID, f.Funder,
		encodeBigs(f.AmountsAdded), encodeBigs(f.AmountsRefunded), encodeBig(f.SharesMinted), f.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert funding addition %s: %w", f.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: funding addition %s: %w", f.ID, domain.ErrAlreadyExists)
	}
	return nil
}

// GetRemoval returns the funding removal by id, or domain.ErrNotFound.
func (s *FundingStore) GetRemoval(ctx context.Context, id string) (domain.FundingRemoval, error) {
	var (
		f          domain.FundingRemoval
		removed    []string
		collateral string
		burnt      string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, market_id, funder, amounts_removed, collateral_removed, shares_burnt, ts
		FROM funding_removals WHERE id = $1`, id,
	).Scan(&f.ID, &f.MarketID, &f.Funder, &removed, &collateral, &burnt, &f.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FundingRemoval{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.FundingRemoval{}, fmt.Errorf("postgres: get funding removal %s: %w", id, err)
	}

	if f.AmountsRemoved, err = decodeBigs(removed); err != nil {
		return domain.FundingRemoval{}, err
	}
	if f.CollateralRemoved, err = decodeBig(collateral); err != nil {
		return domain.FundingRemoval{}, err
	}
	if f.SharesBurnt, err = decodeBig(burnt); err != nil {
		return domain.FundingRemoval{}, err
	}
	return f, nil
}

// InsertRemoval writes the funding removal record.
func (s *FundingStore) InsertRemoval(ctx context.Context, f domain.FundingRemoval) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO funding_removals (id, market_id, funder, amounts_removed, collateral_removed, shares_burnt, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`,
		f.ID, f.MarketID, f.Funder,
		encodeBigs(f.AmountsRemoved), encodeBig(f.CollateralRemoved), encodeBig(f.SharesBurnt), f.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert funding removal %s: %w", f.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: funding removal %s: %w", f.ID, domain.ErrAlreadyExists)
	}
	return nil
}

var _ domain.FundingStore = (*FundingStore)(nil)
