package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "APAS_"
	envConfig  = "APAS_CONFIG"
	envDotFile = "APAS_ENV_FILE"
	dotFile    = ".env"
)

// listKeys are decoded from comma-separated env values.
var listKeys = []string{"cors_origins"}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. YAML file if APAS_CONFIG is set
//  3. env (prefix APAS_), after a .env file has been merged into the process env
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	// APAS_QUEUE_SIZE -> queue_size; underscores are kept to match koanf tags.
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, any) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(envPrefix))
		if slices.Contains(listKeys, key) {
			return key, splitList(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList splits a comma-separated value, dropping blank items.
func splitList(value string) []string {
	items := []string{}
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// loadDotEnv merges a dotenv file into the process environment. Variables
// already present win; a missing file is not an error.
func loadDotEnv() error {
	path := os.Getenv(envDotFile)
	if path == "" {
		path = dotFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
	}
	return nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case strings.TrimSpace(c.JWTSecret) == "":
		return invalid("jwt_secret must not be empty")
	case !slices.Contains([]string{BackendMemory, BackendPostgres}, c.Store):
		return invalid("store must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Store)
	case c.Store == BackendPostgres && c.DatabaseURL == "":
		return invalid("database_url is required for the postgres store")
	case !slices.Contains([]string{BackendMemory, BackendRedis}, c.Leaderboard):
		return invalid("leaderboard must be %q or %q, got %q", BackendMemory, BackendRedis, c.Leaderboard)
	case !slices.Contains([]string{BackendLocal, BackendMinio}, c.VideoStore):
		return invalid("video_store must be %q or %q, got %q", BackendLocal, BackendMinio, c.VideoStore)
	case c.VideoStore == BackendMinio && c.MinioEndpoint == "":
		return invalid("minio_endpoint is required for the minio video store")
	case c.AnalysisQueueSize <= 0 || c.WorkerCount <= 0:
		return invalid("queue_size and worker_count must be positive")
	case c.ScoringLatencyMinMS < 0 || c.ScoringLatencyMaxMS < c.ScoringLatencyMinMS:
		return invalid("scoring latency range [%d, %d] is invalid", c.ScoringLatencyMinMS, c.ScoringLatencyMaxMS)
	case c.ScoreBaseline < 0 || c.ScoreBaseline > 75:
		return invalid("score_baseline must be within [0, 75]")
	case c.MaxLeaderboardLimit <= 0:
		return invalid("max_leaderboard_limit must be positive")
	}
	return nil
}
