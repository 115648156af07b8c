package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
)

// VolumeStore implements domain.VolumeStore using PostgreSQL. The global
// rollup lives in a single-row table.
type VolumeStore struct {
	pool *pgxpool.Pool
}

// NewVolumeStore creates a VolumeStore backed by the given pool.
func NewVolumeStore(pool *pgxpool.Pool) *VolumeStore {
	return &VolumeStore{pool: pool}
}

// GetGlobal returns the protocol-wide rollup, or domain.ErrNotFound before
// the first trade.
func (s *VolumeStore) GetGlobal(ctx context.Context) (domain.GlobalVolume, error) {
	var (
		g       domain.GlobalVolume
		vol     string
		buyVol  string
		sellVol string
		feeVol  string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT collateral_volume, scaled_collateral_volume,
		       collateral_buy_volume, scaled_collateral_buy_volume,
		       collateral_sell_volume, scaled_collateral_sell_volume,
		       fee_volume, scaled_fee_volume, trades_quantity, updated_at
		FROM global_volume WHERE id = 1`,
	).Scan(&vol, &g.ScaledCollateralVolume,
		&buyVol, &g.ScaledCollateralBuyVolume,
		&sellVol, &g.ScaledCollateralSellVolume,
		&feeVol, &g.ScaledFeeVolume, &g.TradesQuantity, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GlobalVolume{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.GlobalVolume{}, fmt.Errorf("postgres: get global volume: %w", err)
	}

	if g.CollateralVolume, err = decodeBig(vol); err != nil {
		return domain.GlobalVolume{}, err
	}
	if g.CollateralBuyVolume, err = decodeBig(buyVol); err != nil {
		return domain.GlobalVolume{}, err
	}
	if g.CollateralSellVolume, err = decodeBig(sellVol); err != nil {
		return domain.GlobalVolume{}, err
	}
	if g.FeeVolume, err = decodeBig(feeVol); err != nil {
		return domain.GlobalVolume{}, err
	}
	return g, nil
}

// SaveGlobal upserts the singleton rollup row.
func (s *VolumeStore) SaveGlobal(ctx context.Context, g domain.GlobalVolume) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO global_volume (id,
			collateral_volume, scaled_collateral_volume,
			collateral_buy_volume, scaled_collateral_buy_volume,
			collateral_sell_volume, scaled_collateral_sell_volume,
			fee_volume, scaled_fee_volume, trades_quantity, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			collateral_volume             = EXCLUDED.collateral_volume,
			scaled_collateral_volume      = EXCLUDED.scaled_collateral_volume,
			collateral_buy_volume         = EXCLUDED.collateral_buy_volume,
			scaled_collateral_buy_volume  = EXCLUDED.scaled_collateral_buy_volume,
			collateral_sell_volume        = EXCLUDED.collateral_sell_volume,
			scaled_collateral_sell_volume = EXCLUDED.scaled_collateral_sell_volume,
			fee_volume                    = EXCLUDED.fee_volume,
			scaled_fee_volume             = EXCLUDED.scaled_fee_volume,
			trades_quantity               = EXCLUDED.trades_quantity,
			updated_at                    = EXCLUDED.updated_at`,
		encodeBig(g.CollateralVolume), g.ScaledCollateralVolume,
		encodeBig(g.CollateralBuyVolume), g.ScaledCollateralBuyVolume,
		encodeBig(g.CollateralSellVolume), g.ScaledCollateralSellVolume,
		encodeBig(g.FeeVolume), g.ScaledFeeVolume, g.TradesQuantity, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save global volume: %w", err)
	}
	return nil
}

// GetPlayerVolume returns the question's running rollup, or
// domain.ErrNotFound.
func (s *VolumeStore) GetPlayerVolume(ctx context.Context, questionID string) (domain.PlayerVolume, error) {
	var (
		p     domain.PlayerVolume
		total string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT question_id, total_volume, day, updated_at
		FROM player_volumes WHERE question_id = $1`, questionID,
	).Scan(&p.QuestionID, &total, &p.Day, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PlayerVolume{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PlayerVolume{}, fmt.Errorf("postgres: get player volume %s: %w", questionID, err)
	}

	if p.TotalVolume, err = decodeBig(total); err != nil {
		return domain.PlayerVolume{}, err
	}
	return p, nil
}

// SavePlayerVolume upserts the question's running rollup.
func (s *VolumeStore) SavePlayerVolume(ctx context.Context, p domain.PlayerVolume) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_volumes (question_id, total_volume, day, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (question_id) DO UPDATE SET
			total_volume = EXCLUDED.total_volume,
			day          = EXCLUDED.day,
			updated_at   = EXCLUDED.updated_at`,
		p.QuestionID, encodeBig(p.TotalVolume), p.Day, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save player volume %s: %w", p.QuestionID, err)
	}
	return nil
}

// InsertPlayerVolumeByTransaction writes the point-in-time snapshot. Replays
// of the same transaction overwrite rather than duplicate.
func (s *VolumeStore) InsertPlayerVolumeByTransaction(ctx context.Context, p domain.PlayerVolumeByTransaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_volume_by_transaction (id, question_id, tx_hash, volume, day, ts)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			volume = EXCLUDED.volume,
			day    = EXCLUDED.day,
			ts     = EXCLUDED.ts`,
		p.ID, p.QuestionID, p.TxHash, encodeBig(p.Volume), p.Day, p.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: save player volume snapshot %s: %w", p.ID, err)
	}
	return nil
}

var _ domain.VolumeStore = (*VolumeStore)(nil)
