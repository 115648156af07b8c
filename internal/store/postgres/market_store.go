package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketColumns = `
	id, creator, condition_id, question_id, collateral_token, fee,
	token_name, token_symbol,
	outcome_slot_count, outcome_token_amounts, outcome_token_prices,
	total_supply, liquidity_parameter, scaled_liquidity_parameter,
	collateral_volume, scaled_collateral_volume,
	collateral_buy_volume, scaled_collateral_buy_volume,
	collateral_sell_volume, scaled_collateral_sell_volume,
	fee_volume, scaled_fee_volume,
	trades_quantity, buys_quantity, sells_quantity,
	liquidity_add_quantity, liquidity_remove_quantity,
	last_active_day, created_at, creation_tx_hash, updated_at`

// Get returns the market by contract address, or domain.ErrNotFound.
func (s *MarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+marketColumns+` FROM markets WHERE id = $1`, id)

	var (
		m       domain.Market
		fee     string
		amounts []string
		prices  []string
		supply  string
		liq     string
		vol     string
		buyVol  string
		sellVol string
		feeVol  string
	)
	err := row.Scan(
		&m.ID, &m.Creator, &m.ConditionID, &m.QuestionID, &m.CollateralToken, &fee,
		&m.TokenName, &m.TokenSymbol,
		&m.OutcomeSlotCount, &amounts, &prices,
		&supply, &liq, &m.ScaledLiquidityParameter,
		&vol, &m.ScaledCollateralVolume,
		&buyVol, &m.ScaledCollateralBuyVolume,
		&sellVol, &m.ScaledCollateralSellVolume,
		&feeVol, &m.ScaledFeeVolume,
		&m.TradesQuantity, &m.BuysQuantity, &m.SellsQuantity,
		&m.LiquidityAddQuantity, &m.LiquidityRemoveQuantity,
		&m.LastActiveDay, &m.CreatedAt, &m.CreationTxHash, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Market{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}

	if m.Fee, err = decodeBig(fee); err != nil {
		return domain.Market{}, err
	}
	if m.OutcomeTokenAmounts, err = decodeBigs(amounts); err != nil {
		return domain.Market{}, err
	}
	if m.OutcomeTokenPrices, err = decodeRats(prices); err != nil {
		return domain.Market{}, err
	}
	if m.TotalSupply, err = decodeBig(supply); err != nil {
		return domain.Market{}, err
	}
	if m.LiquidityParameter, err = decodeBig(liq); err != nil {
		return domain.Market{}, err
	}
	if m.CollateralVolume, err = decodeBig(vol); err != nil {
		return domain.Market{}, err
	}
	if m.CollateralBuyVolume, err = decodeBig(buyVol); err != nil {
		return domain.Market{}, err
	}
	if m.CollateralSellVolume, err = decodeBig(sellVol); err != nil {
		return domain.Market{}, err
	}
	if m.FeeVolume, err = decodeBig(feeVol); err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

// Save upserts the market row.
func (s *MarketStore) Save(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (` + marketColumns + `)
		VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8,
			$9, $10, $11,
			$12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22,
			$23, $24, $25, $26, $27,
			$28, $29, $30, $31
		)
		ON CONFLICT (id) DO UPDATE SET
			outcome_token_amounts         = EXCLUDED.outcome_token_amounts,
			outcome_token_prices          = EXCLUDED.outcome_token_prices,
			total_supply                  = EXCLUDED.total_supply,
			liquidity_parameter           = EXCLUDED.liquidity_parameter,
			scaled_liquidity_parameter    = EXCLUDED.scaled_liquidity_parameter,
			collateral_volume             = EXCLUDED.collateral_volume,
			scaled_collateral_volume      = EXCLUDED.scaled_collateral_volume,
			collateral_buy_volume         = EXCLUDED.collateral_buy_volume,
			scaled_collateral_buy_volume  = EXCLUDED.scaled_collateral_buy_volume,
			collateral_sell_volume        = EXCLUDED.collateral_sell_volume,
			scaled_collateral_sell_volume = EXCLUDED.scaled_collateral_sell_volume,
			fee_volume                    = EXCLUDED.fee_volume,
			scaled_fee_volume             = EXCLUDED.scaled_fee_volume,
			trades_quantity               = EXCLUDED.trades_quantity,
			buys_quantity                 = EXCLUDED.buys_quantity,
			sells_quantity                = EXCLUDED.sells_quantity,
			liquidity_add_quantity        = EXCLUDED.liquidity_add_quantity,
			liquidity_remove_quantity     = EXCLUDED.liquidity_remove_quantity,
			last_active_day               = EXCLUDED.last_active_day,
			updated_at                    = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Creator, m.ConditionID, m.QuestionID, m.CollateralToken, encodeBig(m.Fee),
		m.TokenName, m.TokenSymbol,
		m.OutcomeSlotCount, encodeBigs(m.OutcomeTokenAmounts), encodeRats(m.OutcomeTokenPrices),
		encodeBig(m.TotalSupply), encodeBig(m.LiquidityParameter), m.ScaledLiquidityParameter,
		encodeBig(m.CollateralVolume), m.ScaledCollateralVolume,
		encodeBig(m.CollateralBuyVolume), m.ScaledCollateralBuyVolume,
		encodeBig(m.CollateralSellVolume), m.ScaledCollateralSellVolume,
		encodeBig(m.FeeVolume), m.ScaledFeeVolume,
		m.TradesQuantity, m.BuysQuantity, m.SellsQuantity,
		m.LiquidityAddQuantity, m.LiquidityRemoveQuantity,
		m.LastActiveDay, m.CreatedAt, m.CreationTxHash, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save market %s: %w", m.ID, err)
	}
	return nil
}

// Count returns the number of indexed markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return n, nil
}

var _ domain.MarketStore = (*MarketStore)(nil)
