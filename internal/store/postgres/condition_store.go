package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// ConditionStore implements domain.ConditionStore using PostgreSQL.
type ConditionStore struct {
	pool *pgxpool.Pool
}

// NewConditionStore creates a ConditionStore backed by the given pool.
func NewConditionStore(pool *pgxpool.Pool) *ConditionStore {
	return &ConditionStore{pool: pool}
}

// Get returns the condition by id, or domain.ErrNotFound.
func (s *ConditionStore) Get(ctx context.Context, id string) (domain.Condition, error) {
	var c domain.Condition
	err := s.pool.QueryRow(ctx,
		`SELECT id, outcome_slot_count, market_ids FROM conditions WHERE id = $1`, id,
	).Scan(&c.ID, &c.OutcomeSlotCount, &c.MarketIDs)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Condition{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Condition{}, fmt.Errorf("postgres: get condition %s: %w", id, err)
	}
	return c, nil
}

// Save upserts the condition row.
func (s *ConditionStore) Save(ctx context.Context, c domain.Condition) error {
	marketIDs := c.MarketIDs
	if marketIDs == nil {
		marketIDs = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conditions (id, outcome_slot_count, market_ids)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			outcome_slot_count = EXCLUDED.outcome_slot_count,
			market_ids         = EXCLUDED.market_ids`,
		c.ID, c.OutcomeSlotCount, marketIDs,
	)
	if err != nil {
		return fmt.Errorf("postgres: save condition %s: %w", c.ID, err)
	}
	return nil
}

var _ domain.ConditionStore = (*ConditionStore)(nil)
