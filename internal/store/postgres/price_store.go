package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// PriceStore implements domain.PriceStore using PostgreSQL.
type PriceStore struct {
	pool *pgxpool.Pool
}

// NewPriceStore creates a PriceStore backed by the given pool.
func NewPriceStore(pool *pgxpool.Pool) *PriceStore {
	return &PriceStore{pool: pool}
}

// GetPlayerPrice returns the market's current price pair, or
// domain.ErrNotFound.
func (s *PriceStore) GetPlayerPrice(ctx context.Context, marketID string) (domain.PlayerPrice, error) {
	var (
		p           domain.PlayerPrice
		long, short string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT market_id, question_id, long_price, short_price, updated_at
		FROM player_prices WHERE market_id = $1`, marketID,
	).Scan(&p.MarketID, &p.QuestionID, &long, &short, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerPrice{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PlayerPrice{}, fmt.Errorf("postgres: get player price %s: %w", marketID, err)
	}
	if p.LongPrice, err = decodeBig(long); err != nil {
		return domain.PlayerPrice{}, err
	}
	if p.ShortPrice, err = decodeBig(short); err != nil {
		return domain.PlayerPrice{}, err
	}
	return p, nil
}

// SavePlayerPrice upserts the market's current price pair.
func (s *PriceStore) SavePlayerPrice(ctx context.Context, p domain.PlayerPrice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_prices (market_id, question_id, long_price, short_price, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (market_id) DO UPDATE SET
			question_id = EXCLUDED.question_id,
			long_price  = EXCLUDED.long_price,
			short_price = EXCLUDED.short_price,
			updated_at  = EXCLUDED.updated_at`,
		p.MarketID, p.QuestionID, encodeBig(p.LongPrice), encodeBig(p.ShortPrice), p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save player price %s: %w", p.MarketID, err)
	}
	return nil
}

// InsertTradePrice writes the per-transaction snapshot. Replays of the same
// transaction overwrite rather than duplicate.
func (s *PriceStore) InsertTradePrice(ctx context.Context, t domain.TradePrice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trade_prices (tx_hash, market_id, question_id, long_price, short_price, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_hash) DO UPDATE SET
			market_id   = EXCLUDED.market_id,
			question_id = EXCLUDED.question_id,
			long_price  = EXCLUDED.long_price,
			short_price = EXCLUDED.short_price,
			ts          = EXCLUDED.ts`,
		t.TxHash, t.MarketID, t.QuestionID, encodeBig(t.LongPrice), encodeBig(t.ShortPrice), t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: save trade price %s: %w", t.TxHash, err)
	}
	return nil
}

var _ domain.PriceStore = (*PriceStore)(nil)
