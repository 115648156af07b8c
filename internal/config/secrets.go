package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Goldsky
	out.Goldsky = cfg.Goldsky
	redact(&out.Goldsky.APIKey)

	// Postgres
	out.Postgres = cfg.Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// Redis
	out.Redis = cfg.Redis
	redact(&out.Redis.Password)

	// S3
	out.S3 = cfg.S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Copy the static decimals map so mutations to the redacted copy do not
	// affect the original.
	if cfg.Collateral.StaticDecimals != nil {
		out.Collateral.StaticDecimals = make(map[string]uint8, len(cfg.Collateral.StaticDecimals))
		for k, v := range cfg.Collateral.StaticDecimals {
			out.Collateral.StaticDecimals[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
