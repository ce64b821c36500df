package repository

import "time"

// RedisOption configures a RedisLeaderboard.
type RedisOption func(*RedisLeaderboard)

// WithKey sets the sorted set key. Auxiliary hashes share it as a prefix.
func WithKey(key string) RedisOption {
	return func(l *RedisLeaderboard) {
		if key != "" {
			l.key = key
		}
	}
}

// PostgresOption configures the pool behind the Postgres stores.
type PostgresOption func(*postgresSettings)

type postgresSettings struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxLifetime time.Duration
	migrate         bool
}

// WithPool tunes database/sql pooling. Non-positive values keep the defaults.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) PostgresOption {
	return func(s *postgresSettings) {
		if maxOpen > 0 {
			s.maxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			s.maxIdleConns = maxIdle
		}
		if lifetime > 0 {
			s.connMaxLifetime = lifetime
		}
	}
}

// WithoutMigrations skips goose on open.
func WithoutMigrations() PostgresOption {
	return func(s *postgresSettings) { s.migrate = false }
}
