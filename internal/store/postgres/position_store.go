package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// GetHolding returns the aggregate holding, or domain.ErrNotFound.
func (s *PositionStore) GetHolding(ctx context.Context, accountID, marketID string) (domain.Holding, error) {
	var (
		h      domain.Holding
		tokens string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT account_id, market_id, question_id, tokens FROM holdings
		WHERE account_id = $1 AND market_id = $2`, accountID, marketID,
	).Scan(&h.AccountID, &h.MarketID, &h.QuestionID, &tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Holding{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Holding{}, fmt.Errorf("postgres: get holding %s/%s: %w", accountID, marketID, err)
	}

	if h.Tokens, err = decodeBig(tokens); err != nil {
		return domain.Holding{}, err
	}
	return h, nil
}

// SaveHolding upserts the holding row.
func (s *PositionStore) SaveHolding(ctx context.Context, h domain.Holding) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO holdings (account_id, market_id, question_id, tokens)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, market_id) DO UPDATE SET tokens = EXCLUDED.tokens`,
		h.AccountID, h.MarketID, h.QuestionID, encodeBig(h.Tokens),
	)
	if err != nil {
		return fmt.Errorf("postgres: save holding %s/%s: %w", h.AccountID, h.MarketID, err)
	}
	return nil
}

// GetOutcomePosition returns the per-outcome position, or domain.ErrNotFound.
func (s *PositionStore) GetOutcomePosition(ctx context.Context, accountID, marketID string, outcomeIndex int) (domain.OutcomePosition, error) {
	var (
		p          domain.OutcomePosition
		tokens     string
		investment string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT account_id, market_id, question_id, outcome_index, tokens, investment_amount
		FROM outcome_positions
		WHERE account_id = $1 AND market_id = $2 AND outcome_index = $3`,
		accountID, marketID, outcomeIndex,
	).Scan(&p.AccountID, &p.MarketID, &p.QuestionID, &p.OutcomeIndex, &tokens, &investment)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OutcomePosition{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OutcomePosition{}, fmt.Errorf("postgres: get position %s/%s/%d: %w", accountID, marketID, outcomeIndex, err)
	}

	if p.Tokens, err = decodeBig(tokens); err != nil {
		return domain.OutcomePosition{}, err
	}
	if p.InvestmentAmount, err = decodeBig(investment); err != nil {
		return domain.OutcomePosition{}, err
	}
	return p, nil
}

// SaveOutcomePosition upserts the position row.
func (s *PositionStore) SaveOutcomePosition(ctx context.Context, p domain.OutcomePosition) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO outcome_positions (account_id, market_id, question_id, outcome_index, tokens, investment_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, market_id, outcome_index) DO UPDATE SET
			tokens            = EXCLUDED.tokens,
			investment_amount = EXCLUDED.investment_amount`,
		p.AccountID, p.MarketID, p.QuestionID, p.OutcomeIndex,
		encodeBig(p.Tokens), encodeBig(p.InvestmentAmount),
	)
	if err != nil {
		return fmt.Errorf("postgres: save position %s/%s/%d: %w", p.AccountID, p.MarketID, p.OutcomeIndex, err)
	}
	return nil
}

var _ domain.PositionStore = (*PositionStore)(nil)
