package domain

import (
	"context"
	"io"
	"math/big"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// Every Get returns ErrNotFound when the entity is absent; callers branch on
// it to implement get-or-create. Stores must be linearizable per id under
// the engine's single-writer discipline.

// MarketStore persists market aggregate state.
type MarketStore interface {
	Get(ctx context.Context, id string) (Market, error)
	Save(ctx context.Context, m Market) error
	Count(ctx context.Context) (int64, error)
}

// ConditionStore persists outcome-resolution conditions and their market
// links.
type ConditionStore interface {
	Get(ctx context.Context, id string) (Condition, error)
	Save(ctx context.Context, c Condition) error
}

// TradeStore persists immutable trade records.
type TradeStore interface {
	Get(ctx context.Context, id string) (Trade, error)
	Insert(ctx context.Context, t Trade) error
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Trade, error)
	ListBefore(ctx context.Context, before time.Time, limit int) ([]Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// FundingStore persists liquidity addition and removal records.
type FundingStore interface {
	GetAddition(ctx context.Context, id string) (FundingAddition, error)
	InsertAddition(ctx context.Context, f FundingAddition) error
	GetRemoval(ctx context.Context, id string) (FundingRemoval, error)
	InsertRemoval(ctx context.Context, f FundingRemoval) error
}

// TransferStore persists applied pool share transfers for replay detection.
type TransferStore interface {
	Get(ctx context.Context, id string) (PoolShareTransferRecord, error)
	Insert(ctx context.Context, r PoolShareTransferRecord) error
}

// AccountStore persists participant identity and running ledgers.
type AccountStore interface {
	Get(ctx context.Context, id string) (Account, error)
	Save(ctx context.Context, a Account) error
}

// PoolMembershipStore persists (market, holder) LP-share balances.
type PoolMembershipStore interface {
	Get(ctx context.Context, marketID, funder string) (PoolMembership, error)
	Save(ctx context.Context, m PoolMembership) error
}

// PositionStore persists aggregate holdings and per-outcome positions.
type PositionStore interface {
	GetHolding(ctx context.Context, accountID, marketID string) (Holding, error)
	SaveHolding(ctx context.Context, h Holding) error
	GetOutcomePosition(ctx context.Context, accountID, marketID string, outcomeIndex int) (OutcomePosition, error)
	SaveOutcomePosition(ctx context.Context, p OutcomePosition) error
}

// VolumeStore persists the global rollup and per-question player volumes.
type VolumeStore interface {
	GetGlobal(ctx context.Context) (GlobalVolume, error)
	SaveGlobal(ctx context.Context, g GlobalVolume) error
	GetPlayerVolume(ctx context.Context, questionID string) (PlayerVolume, error)
	SavePlayerVolume(ctx context.Context, p PlayerVolume) error
	InsertPlayerVolumeByTransaction(ctx context.Context, p PlayerVolumeByTransaction) error
}

// PriceStore persists current and per-transaction token price pairs.
type PriceStore interface {
	GetPlayerPrice(ctx context.Context, marketID string) (PlayerPrice, error)
	SavePlayerPrice(ctx context.Context, p PlayerPrice) error
	InsertTradePrice(ctx context.Context, t TradePrice) error
}

// CollateralScaler resolves a collateral token's decimal scale (10^decimals).
// Token decimals are immutable, so results are cacheable indefinitely.
type CollateralScaler interface {
	ScaleOf(ctx context.Context, token string) (*big.Int, error)
}

// CursorStore checkpoints the last processed stream position so a restarted
// poller resumes without replaying events.
type CursorStore interface {
	Get(ctx context.Context) (block uint64, logIndex uint, err error)
	Set(ctx context.Context, block uint64, logIndex uint) error
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver moves aged trade records from the database to cold storage.
type Archiver interface {
	ArchiveTrades(ctx context.Context, before time.Time) (int64, error)
}
