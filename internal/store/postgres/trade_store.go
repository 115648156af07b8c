package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeColumns = `
	id, kind, market_id, account_id, trade_amount, fee_amount,
	net_trade_amount, outcome_index, outcome_tokens_amount, ts, tx_hash, log_index`

func scanTrade(row pgx.Row) (domain.Trade, error) {
	var (
		t      domain.Trade
		kind   string
		gross  string
		fee    string
		net    string
		tokens string
	)
	err := row.Scan(
		&t.ID, &kind, &t.MarketID, &t.User, &gross, &fee,
		&net, &t.OutcomeIndex, &tokens, &t.Timestamp, &t.TxHash, &t.LogIndex,
	)
	if err != nil {
		return domain.Trade{}, err
	}
	t.Kind = domain.TradeKind(kind)
	if t.TradeAmount, err = decodeBig(gross); err != nil {
		return domain.Trade{}, err
	}
	if t.FeeAmount, err = decodeBig(fee); err != nil {
		return domain.Trade{}, err
	}
	if t.NetTradeAmount, err = decodeBig(net); err != nil {
		return domain.Trade{}, err
	}
	if t.OutcomeTokensAmount, err = decodeBig(tokens); err != nil {
		return domain.Trade{}, err
	}
	return t, nil
}

// Get returns the trade by id, or domain.ErrNotFound.
func (s *TradeStore) Get(ctx context.Context, id string) (domain.Trade, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+tradeColumns+` FROM trades WHERE id = $1`, id)
	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Trade{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Trade{}, fmt.Errorf("postgres: get trade %s: %w", id, err)
	}
	return t, nil
}

// Insert writes the trade. Trades are immutable; a duplicate id is
// domain.ErrAlreadyExists.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO trades (`+tradeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, string(t.Kind), t.MarketID, t.User,
		encodeBig(t.TradeAmount), encodeBig(t.FeeAmount), encodeBig(t.NetTradeAmount),
		t.OutcomeIndex, encodeBig(t.OutcomeTokensAmount), t.Timestamp, t.TxHash, t.LogIndex,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: trade %s: %w", t.ID, domain.ErrAlreadyExists)
	}
	return nil
}

// ListByMarket returns the market's trades ordered by timestamp.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Trade, error) {
	var (
		conds = []string{"market_id = $1"}
		args  = []any{marketID}
	)
	if opts.Since != nil {
		args = append(args, *opts.Since)
		conds = append(conds, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		conds = append(conds, fmt.Sprintf("ts <= $%d", len(args)))
	}

	query := `SELECT ` + tradeColumns + ` FROM trades WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY ts, log_index`
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", marketID, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades for %s: %w", marketID, err)
	}
	return out, nil
}

// ListBefore returns up to limit trades older than the cutoff, oldest first.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time, limit int) ([]domain.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE ts < $1 ORDER BY ts, log_index`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", before, err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", before, err)
	}
	return out, nil
}

// DeleteBefore removes trades older than the cutoff and reports how many.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE ts < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
