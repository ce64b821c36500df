package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/apas/internal/demo"
	"github.com/okian/apas/pkg/logger"
)

// Default configuration constants.
const (
	defaultAthletes = 25
	defaultWorkers  = 2 // multiplier for runtime.NumCPU()
	defaultTimeout  = 60 * time.Second
	defaultRPS      = 4
	defaultRetries  = 5
	defaultRunLimit = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the portal")
		athletes = flag.Int("athletes", defaultAthletes, "Number of athletes to walk through the journey")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of athletes in flight at once")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout; uploads wait for their score")
		rps      = flag.Float64("rps", defaultRPS, "Client-side requests per second (0 disables pacing)")
		retries  = flag.Int("retries", defaultRetries, "Attempts per request when rate limited")
		logFile  = flag.String("log", "", "Also write JSON logs to this file")
		verbose  = flag.Bool("verbose", false, "Log every journey step")
	)
	flag.Parse()

	var opts []logger.Option
	if *logFile != "" {
		opts = append(opts, logger.WithFile(*logFile))
	}
	if err := logger.Init(opts...); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	if _, err := demo.Run(ctx, &demo.Config{
		BaseURL:  *baseURL,
		Athletes: *athletes,
		Workers:  *workers,
		Timeout:  *timeout,
		RPS:      *rps,
		Retries:  *retries,
		Verbose:  *verbose,
	}); err != nil {
		logger.Get().Error(ctx, "demo run failed", logger.Error(err))
		cancel()
		_ = logger.Sync()
		os.Exit(1)
	}
}
