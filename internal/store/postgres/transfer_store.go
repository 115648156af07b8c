package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// TransferStore implements domain.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *pgxpool.Pool
}

// NewTransferStore creates a TransferStore backed by the given pool.
func NewTransferStore(pool *pgxpool.Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Get returns the transfer record by id, or domain.ErrNotFound.
func (s *TransferStore) Get(ctx context.Context, id string) (domain.PoolShareTransferRecord, error) {
	var (
		r      domain.PoolShareTransferRecord
		amount string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, market_id, from_addr, to_addr, amount, ts
		FROM pool_share_transfers WHERE id = $1`, id,
	).Scan(&r.ID, &r.MarketID, &r.From, &r.To, &amount, &r.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PoolShareTransferRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PoolShareTransferRecord{}, fmt.Errorf("postgres: get pool share transfer %s: %w", id, err)
	}
	if r.Amount, err = decodeBig(amount); err != nil {
		return domain.PoolShareTransferRecord{}, err
	}
	return r, nil
}

// Insert writes the transfer record.
func (s *TransferStore) Insert(ctx context.Context, r domain.PoolShareTransferRecord) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO pool_share_transfers (id, market_id, from_addr, to_addr, amount, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		r.ID, r.MarketID, r.From, r.To, encodeBig(r.Amount), r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert pool share transfer %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: pool share transfer %s: %w", r.ID, domain.ErrAlreadyExists)
	}
	return nil
}

var _ domain.TransferStore = (*TransferStore)(nil)
