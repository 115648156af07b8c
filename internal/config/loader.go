package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies INDEXER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known INDEXER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "INDEXER_CHAIN_RPC_URL")
	setInt(&cfg.Chain.ChainID, "INDEXER_CHAIN_ID")

	// ── Goldsky ──
	setStr(&cfg.Goldsky.URL, "INDEXER_GOLDSKY_URL")
	setStr(&cfg.Goldsky.APIKey, "INDEXER_GOLDSKY_API_KEY")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "INDEXER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "INDEXER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "INDEXER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "INDEXER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "INDEXER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "INDEXER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "INDEXER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "INDEXER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "INDEXER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "INDEXER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "INDEXER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "INDEXER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "INDEXER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "INDEXER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "INDEXER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "INDEXER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "INDEXER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "INDEXER_S3_REGION")
	setStr(&cfg.S3.Bucket, "INDEXER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "INDEXER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "INDEXER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "INDEXER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "INDEXER_S3_FORCE_PATH_STYLE")

	// ── Pipeline ──
	setDuration(&cfg.Pipeline.PollInterval, "INDEXER_PIPELINE_POLL_INTERVAL")
	setInt(&cfg.Pipeline.BatchSize, "INDEXER_PIPELINE_BATCH_SIZE")
	setStr(&cfg.Pipeline.CursorName, "INDEXER_PIPELINE_CURSOR_NAME")
	setBool(&cfg.Pipeline.ArchiveEnabled, "INDEXER_PIPELINE_ARCHIVE_ENABLED")
	setInt(&cfg.Pipeline.ArchiveRetentionDays, "INDEXER_PIPELINE_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Pipeline.ArchiveCron, "INDEXER_PIPELINE_ARCHIVE_CRON")

	// ── Feed ──
	setStr(&cfg.Feed.WsURL, "INDEXER_FEED_WS_URL")

	// ── Top-level ──
	setStr(&cfg.Mode, "INDEXER_MODE")
	setStr(&cfg.LogLevel, "INDEXER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
