// Package analysis scores uploaded performance videos. The scorer is a
// deterministic mock: one filename always yields one result.
package analysis

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Default scorer configuration.
const (
	defaultBaseline   = 70
	defaultMinLatency = 80 * time.Millisecond
	defaultMaxLatency = 150 * time.Millisecond
	scoreSpread       = 25
	recommendCount    = 3

	// AnalysisTypeMock marks results produced without real video analysis.
	AnalysisTypeMock = "mock"
)

// Tiers and benchmark statuses derived from the overall score.
const (
	TierAdvanced     = "Advanced"
	TierIntermediate = "Intermediate"
	TierBeginner     = "Beginner"

	BenchmarkAbove = "Above"
	BenchmarkAt    = "At"
	BenchmarkBelow = "Below"
)

var recommendationPool = []string{
	"Focus on maintaining consistent form throughout the movement",
	"Work on core stability to improve overall balance",
	"Consider strength training to enhance power output",
	"Practice technique drills for better movement efficiency",
	"Incorporate flexibility training for optimal range of motion",
}

// VideoRef identifies a stored upload.
type VideoRef struct {
	// Name is the original client filename and seeds the mock.
	Name string
	// Key is the storage key.
	Key string
	// Path is a local filesystem path, empty for remote stores.
	Path        string
	Size        int64
	ContentType string
}

// JointAngles are reported in degrees.
type JointAngles struct {
	Knee  int `json:"knee"`
	Ankle int `json:"ankle"`
	Hip   int `json:"hip"`
}

// Result is the analysis report of one video.
type Result struct {
	JumpHeight      float64     `json:"jumpHeight"`
	StrideLength    float64     `json:"strideLength"`
	JointAngles     JointAngles `json:"jointAngles"`
	Speed           float64     `json:"speed"`
	Balance         int         `json:"balance"`
	Technique       int         `json:"technique"`
	OverallScore    int         `json:"overallScore"`
	Summary         string      `json:"summary"`
	Recommendations []string    `json:"recommendations"`
	FrameCount      int         `json:"frameCount"`
	Duration        float64     `json:"duration"`
	AnalysisType    string      `json:"analysisType"`
	Tier            string      `json:"tier"`
	Benchmark       string      `json:"benchmark"`
}

// PerformanceScorer turns a stored video into a report.
type PerformanceScorer interface {
	// Score analyses a video, honoring ctx for cancellation.
	Score(ctx context.Context, video VideoRef) (Result, error)
}

// Option applies a configuration option to the SeededScorer.
type Option func(*SeededScorer)

// WithLatencyRange sets the simulated latency range.
func WithLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *SeededScorer) {
		if minLatency >= 0 && maxLatency >= minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithBaseline sets the lowest possible overall score.
func WithBaseline(baseline int) Option {
	return func(s *SeededScorer) {
		if baseline >= 0 && baseline+scoreSpread <= 100 {
			s.baseline = baseline
		}
	}
}

// WithProber reads real duration and frame count from local files.
func WithProber(p Prober) Option {
	return func(s *SeededScorer) {
		s.prober = p
	}
}

// SeededScorer implements PerformanceScorer with filename-seeded mock metrics.
type SeededScorer struct {
	baseline   int
	minLatency time.Duration
	maxLatency time.Duration
	prober     Prober

	mu      sync.Mutex
	latency *rand.Rand
}

// NewSeededScorer creates a scorer with configuration options.
func NewSeededScorer(opts ...Option) *SeededScorer {
	s := &SeededScorer{
		baseline:   defaultBaseline,
		minLatency: defaultMinLatency,
		maxLatency: defaultMaxLatency,
		latency:    rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // latency jitter only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed is the sum of the character codes of name.
func Seed(name string) int64 {
	var sum int64
	for _, r := range name {
		sum += int64(r)
	}
	return sum
}

// Score computes the report for video after a simulated processing delay.
func (s *SeededScorer) Score(ctx context.Context, video VideoRef) (Result, error) {
	if video.Name == "" {
		return Result{}, ErrNoVideo
	}

	if err := s.wait(ctx); err != nil {
		return Result{}, err
	}

	res := s.generate(video.Name)

	if s.prober != nil && video.Path != "" {
		if meta, err := s.prober.Probe(ctx, video.Path); err == nil {
			if meta.Duration > 0 {
				res.Duration = round(meta.Duration, 2)
			}
			if meta.FrameCount > 0 {
				res.FrameCount = meta.FrameCount
			}
		}
	}
	return res, nil
}

func (s *SeededScorer) wait(ctx context.Context) error {
	d := s.minLatency
	if span := s.maxLatency - s.minLatency; span > 0 {
		s.mu.Lock()
		d += time.Duration(s.latency.Int63n(int64(span)))
		s.mu.Unlock()
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

func (s *SeededScorer) generate(name string) Result {
	rng := rand.New(rand.NewSource(Seed(name))) //nolint:gosec // reproducible mock

	base := float64(s.baseline) + rng.Float64()*scoreSpread
	overall := int(math.Round(base))

	res := Result{
		JumpHeight:   round(rng.Float64()*30+35, 1),
		StrideLength: round(rng.Float64()*0.6+1.1, 2),
		JointAngles: JointAngles{
			Knee:  int(math.Round(rng.Float64()*25 + 135)),
			Ankle: int(math.Round(rng.Float64()*20 + 80)),
			Hip:   int(math.Round(rng.Float64()*30 + 155)),
		},
		Speed:        round(rng.Float64()*6+7, 1),
		Balance:      int(math.Round(rng.Float64()*25 + 70)),
		Technique:    int(math.Round(rng.Float64()*30 + 65)),
		OverallScore: overall,
		FrameCount:   rng.Intn(500) + 200,
		Duration:     round(rng.Float64()*10+5, 2),
		AnalysisType: AnalysisTypeMock,
		Tier:         Tier(overall),
		Benchmark:    Benchmark(overall),
	}

	picked := rng.Perm(len(recommendationPool))[:recommendCount]
	res.Recommendations = make([]string, 0, recommendCount)
	for i, rec := range recommendationPool {
		for _, p := range picked {
			if p == i {
				res.Recommendations = append(res.Recommendations, rec)
			}
		}
	}

	res.Summary = fmt.Sprintf(
		"Analysis completed for %s. Performance shows %s athletic potential with specific areas identified for improvement.",
		name, band(base))
	return res
}

func band(score float64) string {
	switch {
	case score > 85:
		return "excellent"
	case score > 70:
		return "good"
	}
	return "developing"
}

// Tier classifies an overall score.
func Tier(score int) string {
	switch {
	case score >= 85:
		return TierAdvanced
	case score >= 70:
		return TierIntermediate
	}
	return TierBeginner
}

// Benchmark compares an overall score with the programme benchmark.
func Benchmark(score int) string {
	switch {
	case score >= 85:
		return BenchmarkAbove
	case score >= 70:
		return BenchmarkAt
	}
	return BenchmarkBelow
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
