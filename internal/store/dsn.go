package store

import (
	"log/slog"
	"strings"
)

// DSN type identifiers returned by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeRedis    = "redis"
	DSNTypeSQLite   = "sqlite"
)

// DetectDSNType classifies a DSN by scheme: postgres:// and postgresql://
// (or key=value form with host=) are Postgres, redis:// and rediss:// are
// Redis, anything else is treated as a SQLite file path.
func DetectDSNType(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return DSNTypePostgres
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return DSNTypeRedis
	default:
		return DSNTypeSQLite
	}
}

// NewStoreFromDSN creates the store backend matching the DSN type.
func NewStoreFromDSN(dsn string, opts ...Option) (Store, error) {
	dsnType := DetectDSNType(dsn)
	slog.Debug("NewStoreFromDSN: selecting store backend", "dsn_type", dsnType)
	allOpts := append([]Option{WithDSN(dsn)}, opts...)
	switch dsnType {
	case DSNTypePostgres:
		return NewPostgresStore(allOpts...)
	case DSNTypeRedis:
		return NewRedisStore(allOpts...)
	default:
		return NewSQLiteStore(allOpts...)
	}
}
