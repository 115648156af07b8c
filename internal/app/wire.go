package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/fpmm-indexer/internal/aggregator"
	s3blob "github.com/alanyoungcy/fpmm-indexer/internal/blob/s3"
	"github.com/alanyoungcy/fpmm-indexer/internal/cache/redis"
	"github.com/alanyoungcy/fpmm-indexer/internal/collateral"
	"github.com/alanyoungcy/fpmm-indexer/internal/config"
	"github.com/alanyoungcy/fpmm-indexer/internal/domain"
	"github.com/alanyoungcy/fpmm-indexer/internal/ledger"
	"github.com/alanyoungcy/fpmm-indexer/internal/registry"
	"github.com/alanyoungcy/fpmm-indexer/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	Markets     domain.MarketStore
	Conditions  domain.ConditionStore
	Trades      domain.TradeStore
	Fundings    domain.FundingStore
	Transfers   domain.TransferStore
	Accounts    domain.AccountStore
	Memberships domain.PoolMembershipStore
	Positions   domain.PositionStore
	Volumes     domain.VolumeStore
	Prices      domain.PriceStore

	// State services built on the stores.
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Global   *aggregator.Global

	// Collateral scale resolution, cheapest layer first.
	Scaler domain.CollateralScaler

	// Stream checkpoint.
	Cursor domain.CursorStore

	// Cold storage. Nil unless archival is configured.
	Archiver domain.Archiver
}

// needsRedis returns true for modes that read or write the stream cursor and
// scale cache.
func needsRedis(mode string) bool {
	switch mode {
	case "poll", "stream":
		return true
	default:
		return false
	}
}

// needsS3 returns true when cold-storage archival will run.
func needsS3(cfg *config.Config, mode string) bool {
	return mode == "archive" || cfg.Pipeline.ArchiveEnabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations || cfg.Mode == "migrate" {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Markets = postgres.NewMarketStore(pool)
	deps.Conditions = postgres.NewConditionStore(pool)
	deps.Trades = postgres.NewTradeStore(pool)
	deps.Fundings = postgres.NewFundingStore(pool)
	deps.Transfers = postgres.NewTransferStore(pool)
	deps.Accounts = postgres.NewAccountStore(pool)
	deps.Memberships = postgres.NewPoolMembershipStore(pool)
	deps.Positions = postgres.NewPositionStore(pool)
	deps.Volumes = postgres.NewVolumeStore(pool)
	deps.Prices = postgres.NewPriceStore(pool)

	deps.Registry = registry.New(deps.Accounts)
	deps.Ledger = ledger.New(deps.Positions, deps.Memberships)
	deps.Global = aggregator.NewGlobal(deps.Volumes, deps.Prices)

	// --- Redis (cursor + distributed scale cache) ---
	var redisClient *redis.Client
	if needsRedis(cfg.Mode) {
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cursor = redis.NewCursorStore(redisClient, cfg.Pipeline.CursorName)
	}

	// --- Collateral scale resolution ---
	// Configured static table first, then the on-chain decimals() call for
	// tokens the table does not cover. The chain path is cached in Redis and
	// memoized in-process so each token is resolved at most once per layer.
	var scaler domain.CollateralScaler = collateral.NewStaticScaler(cfg.Collateral.StaticDecimals)
	if cfg.Chain.RPCURL != "" {
		ethClient, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: eth rpc: %w", err)
		}
		closers = append(closers, ethClient.Close)

		var chainScaler domain.CollateralScaler = collateral.NewChainResolver(ethClient)
		if redisClient != nil {
			chainScaler = redis.NewScaleCache(redisClient, chainScaler)
		}
		scaler = collateral.NewFallback(scaler, chainScaler)
	}
	deps.Scaler = collateral.NewMemo(scaler)

	// --- S3 cold storage ---
	if needsS3(cfg, cfg.Mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), s3blob.NewReader(s3Client), deps.Trades, logger)
	}

	return deps, cleanup, nil
}
