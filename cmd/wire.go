package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/apas/internal/adapters/http/api"
	"github.com/okian/apas/internal/adapters/http/site"
	"github.com/okian/apas/internal/adapters/http/swagger"
	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/adapters/storage"
	service "github.com/okian/apas/internal/app"
	"github.com/okian/apas/internal/config"
	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/analysis"
	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/pkg/logger"
)

const (
	dbMaxOpen     = 10
	dbMaxIdle     = 5
	dbMaxLifetime = 30 * time.Minute
	probeTimeout  = 10 * time.Second
)

// buildService assembles the service from cfg. The returned cleanup closes
// any backend connections and is safe to call after a failed build.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger) (*service.Service, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*service.Service, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.AnalysisQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithStepDelay(time.Duration(cfg.ProgressStepDelayMS) * time.Millisecond),
		service.WithOTPEcho(cfg.OTPEcho),
		service.WithDemoData(cfg.SeedDemoData),
		service.WithTokenIssuer(pipeline.NewTokenIssuer(cfg.JWTSecret,
			pipeline.WithTTL(time.Duration(cfg.TokenTTLMinutes)*time.Minute))),
		service.WithCodes(account.NewCodes(account.WithCodeTTL(time.Duration(cfg.OTPTTLSeconds) * time.Second))),
	}

	if cfg.CatalogPath != "" {
		cat, err := catalog.Load(catalog.WithFile(cfg.CatalogPath))
		if err != nil {
			return fail(err)
		}
		opts = append(opts, service.WithCatalog(cat))
	}

	scorerOpts := []analysis.Option{
		analysis.WithLatencyRange(
			time.Duration(cfg.ScoringLatencyMinMS)*time.Millisecond,
			time.Duration(cfg.ScoringLatencyMaxMS)*time.Millisecond,
		),
		analysis.WithBaseline(cfg.ScoreBaseline),
	}
	if cfg.ProbeVideos {
		scorerOpts = append(scorerOpts, analysis.WithProber(analysis.FFProbe{Timeout: probeTimeout}))
	}
	opts = append(opts, service.WithScorer(analysis.NewSeededScorer(scorerOpts...)))

	switch cfg.Store {
	case config.BackendPostgres:
		db, err := repository.OpenPostgres(ctx, cfg.DatabaseURL, repository.WithPool(dbMaxOpen, dbMaxIdle, dbMaxLifetime))
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
		opts = append(opts, service.WithStores(
			repository.NewPostgresUsers(db),
			repository.NewPostgresAthletes(db),
			repository.NewPostgresSelections(db),
			repository.NewPostgresProgress(db),
		))
		log.Info(ctx, "using postgres store")
	default:
		log.Info(ctx, "using in-memory store")
	}

	if cfg.Leaderboard == config.BackendRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("redis %s: %w", cfg.RedisAddr, err))
		}
		opts = append(opts, service.WithLeaderboard(repository.NewRedisLeaderboard(rdb, repository.WithKey(cfg.RedisKey))))
		log.Info(ctx, "using redis leaderboard", logger.String("addr", cfg.RedisAddr))
	}

	var videos storage.VideoStore
	switch cfg.VideoStore {
	case config.BackendMinio:
		ms, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			Secure:    cfg.MinioSecure,
		})
		if err != nil {
			return fail(err)
		}
		videos = ms
	default:
		ls, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return fail(err)
		}
		videos = ls
	}
	opts = append(opts, service.WithVideoStore(videos))

	return service.New(opts...), cleanup, nil
}

// buildServer mounts the API, landing page and docs on one router.
func buildServer(cfg *config.Config, svc *service.Service) *http.Server {
	apiServer := api.NewServer(svc,
		api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		api.WithMaxUploadBytes(int64(cfg.MaxUploadMB)<<20),
		api.WithAnalysisWait(time.Duration(cfg.AnalysisWaitSeconds)*time.Second),
		api.WithCORSOrigins(cfg.CORSOrigins),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithAdminKey(cfg.AdminKey),
	)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Handler(site.Register, swagger.Register),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
