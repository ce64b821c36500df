// Package config defines the portal configuration and its defaults.
package config

import "runtime"

// Backend names accepted by the store selectors.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendLocal    = "local"
	BackendMinio    = "minio"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFile enables a size-rotated JSON log file next to console output.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `koanf:"cors_origins"`
	// RateLimitRPS and RateLimitBurst throttle auth and upload routes per client IP.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// JWTSecret signs stage tokens.
	JWTSecret       string `koanf:"jwt_secret"`
	TokenTTLMinutes int    `koanf:"token_ttl_minutes"`
	OTPTTLSeconds   int    `koanf:"otp_ttl_seconds"`
	// OTPEcho returns issued codes in the API response. There is no SMS gateway.
	OTPEcho bool `koanf:"otp_echo"`
	// AdminKey guards /admin routes through the X-Admin-Key header. Empty leaves them open.
	AdminKey string `koanf:"admin_key"`

	// CatalogPath optionally replaces the embedded sport catalog.
	CatalogPath string `koanf:"catalog_path"`
	// SeedDemoData loads demo users, roster athletes and leaderboard rows on start.
	SeedDemoData bool `koanf:"seed_demo_data"`

	// Store selects the athlete/selection/progress backend: memory or postgres.
	Store       string `koanf:"store"`
	DatabaseURL string `koanf:"database_url"`

	// Leaderboard selects the ranking backend: memory or redis.
	Leaderboard   string `koanf:"leaderboard"`
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisKey      string `koanf:"redis_key"`

	// VideoStore selects where uploads land: local or minio.
	VideoStore     string `koanf:"video_store"`
	UploadDir      string `koanf:"upload_dir"`
	MaxUploadMB    int    `koanf:"max_upload_mb"`
	MinioEndpoint  string `koanf:"minio_endpoint"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioBucket    string `koanf:"minio_bucket"`
	MinioSecure    bool   `koanf:"minio_secure"`
	// ProbeVideos reads duration and frame count with ffprobe when available.
	ProbeVideos bool `koanf:"probe_videos"`

	// AnalysisQueueSize bounds the in-memory analysis queue.
	AnalysisQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the upload idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`
	// AnalysisWaitSeconds caps how long a synchronous upload waits for its result.
	AnalysisWaitSeconds int `koanf:"analysis_wait_seconds"`

	// ScoringLatencyMinMS and ScoringLatencyMaxMS simulate analysis latency bounds.
	ScoringLatencyMinMS int `koanf:"scoring_latency_min_ms"`
	ScoringLatencyMaxMS int `koanf:"scoring_latency_max_ms"`
	// ProgressStepDelayMS paces the reported analysis progress steps.
	ProgressStepDelayMS int `koanf:"progress_step_delay_ms"`
	// ScoreBaseline is the lower bound of the mock overall score.
	ScoreBaseline int `koanf:"score_baseline"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9080",
		CORSOrigins:         []string{"*"},
		RateLimitRPS:        5,
		RateLimitBurst:      20,
		JWTSecret:           "apas-dev-secret",
		TokenTTLMinutes:     12 * 60,
		OTPTTLSeconds:       300,
		OTPEcho:             true,
		SeedDemoData:        true,
		Store:               BackendMemory,
		Leaderboard:         BackendMemory,
		RedisAddr:           "localhost:6379",
		RedisKey:            "apas:leaderboard",
		VideoStore:          BackendLocal,
		UploadDir:           "uploads",
		MaxUploadMB:         100,
		MinioBucket:         "videos",
		AnalysisQueueSize:   1_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          10_000,
		AnalysisWaitSeconds: 30,
		ScoringLatencyMinMS: 80,
		ScoringLatencyMaxMS: 150,
		ProgressStepDelayMS: 250,
		ScoreBaseline:       70,
		MaxLeaderboardLimit: 100,
	}
}
