package demo

import "time"

// Config holds configuration for a demo run.
type Config struct {
	BaseURL  string        // Base URL of the portal
	Athletes int           // Number of athletes to walk through the journey
	Workers  int           // Number of athletes in flight at once
	Timeout  time.Duration // HTTP request timeout
	RPS      float64       // Client-side request rate; 0 disables pacing
	Retries  int           // Attempts per request on 429
	Verbose  bool          // Log every stage transition
}

// Stats holds run statistics.
type Stats struct {
	Registered  int64
	Verified    int64
	QuizPassed  int64
	Cleared     int64
	Analyzed    int64
	Ranked      int64
	Failed      int64
	RateLimited int64
	TopScore    int
	Board       int
	StartTime   time.Time
	Duration    time.Duration
}
