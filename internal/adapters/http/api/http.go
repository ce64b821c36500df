// Package api serves the athlete portal over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/okian/apas/internal/domain/catalog"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	AuthDependencies
	JourneyDependencies
	VideoDependencies
	LeaderboardDependencies
	AdminDependencies
	StatsProvider

	Catalog() *catalog.Catalog
	Tokens() *pipeline.TokenIssuer
}

const maxJSONBody = 1 << 20

// Server wires HTTP routes for the portal API.
type Server struct {
	tokens      *pipeline.TokenIssuer
	corsOrigins []string
	adminKey    string
	limiter     *ipLimiter

	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	authHandler        *AuthHandler
	catalogHandler     *CatalogHandler
	journeyHandler     *JourneyHandler
	videoHandler       *VideoHandler
	leaderboardHandler *LeaderboardHandler
	adminHandler       *AdminHandler
}

// Option configures a Server.
type Option func(*settings)

type settings struct {
	maxLimit     int
	maxUpload    int64
	analysisWait time.Duration
	corsOrigins  []string
	rps          float64
	burst        int
	adminKey     string
	now          func() time.Time
}

// WithMaxLeaderboardLimit caps the limit query parameter.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithMaxUploadBytes caps the size of a video upload.
func WithMaxUploadBytes(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithAnalysisWait sets how long a synchronous upload waits for its result.
func WithAnalysisWait(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.analysisWait = d
		}
	}
}

// WithCORSOrigins sets the allowed browser origins. Empty allows any origin.
func WithCORSOrigins(origins []string) Option {
	return func(s *settings) { s.corsOrigins = origins }
}

// WithRateLimit sets the per-IP limit applied to auth and upload routes.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		s.rps = rps
		s.burst = burst
	}
}

// WithAdminKey requires X-Admin-Key on admin routes. Empty leaves them open.
func WithAdminKey(key string) Option {
	return func(s *settings) { s.adminKey = key }
}

// WithClock replaces time.Now, used for export file names.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates an API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := settings{
		maxLimit:     100,
		maxUpload:    100 << 20,
		analysisWait: 30 * time.Second,
		rps:          5,
		burst:        20,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		tokens:             deps.Tokens(),
		corsOrigins:        cfg.corsOrigins,
		adminKey:           cfg.adminKey,
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		authHandler:        NewAuthHandler(deps),
		catalogHandler:     NewCatalogHandler(deps),
		journeyHandler:     NewJourneyHandler(deps),
		videoHandler:       NewVideoHandler(deps, cfg.maxUpload, cfg.analysisWait),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.maxLimit),
		adminHandler:       NewAdminHandler(deps, cfg.now),
	}
	if cfg.rps > 0 {
		s.limiter = newIPLimiter(cfg.rps, cfg.burst)
	}
	return s
}

// Handler builds the root router. mounts register extra routes, such as the
// landing page and API docs, next to the API.
func (s *Server) Handler(mounts ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.cors().Handler)
	r.Use(MetricsMiddleware)

	s.Register(r)
	for _, mount := range mounts {
		mount(r)
	}
	return r
}

func (s *Server) cors() *cors.Cors {
	opts := cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Admin-Key"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}
	if len(s.corsOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	} else {
		opts.AllowedOrigins = s.corsOrigins
	}
	return cors.New(opts)
}

// Register attaches all API routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/metrics", s.healthHandler.HandleMetrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", s.statsHandler.HandleStats)

		r.Get("/sports", s.catalogHandler.HandleListSports)
		r.Get("/sports/{id}", s.catalogHandler.HandleGetSport)
		r.Get("/categories", s.catalogHandler.HandleCategories)
		r.Get("/states", s.catalogHandler.HandleStates)

		r.Get("/leaderboard", s.leaderboardHandler.HandleGetLeaderboard)
		r.Get("/leaderboard/{athleteId}", s.leaderboardHandler.HandleGetRank)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/auth/register", s.authHandler.HandleRegister)
			r.Post("/auth/login", s.authHandler.HandleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/journey", s.authHandler.HandleJourney)
			r.With(s.rateLimit).Post("/auth/otp/send", s.authHandler.HandleSendOTP)
			r.With(s.rateLimit).Post("/auth/otp/verify", s.authHandler.HandleVerifyOTP)

			r.Get("/selection", s.journeyHandler.HandleGetSelection)
			r.Post("/selection", s.journeyHandler.HandleSelectSport)

			r.Get("/quiz", s.journeyHandler.HandleQuizState)
			r.Post("/quiz/start", s.journeyHandler.HandleStartQuiz)
			r.Post("/quiz/answer", s.journeyHandler.HandleAnswer)
			r.Post("/quiz/next", s.journeyHandler.HandleNext)
			r.Post("/quiz/previous", s.journeyHandler.HandlePrevious)
			r.Post("/quiz/submit", s.journeyHandler.HandleSubmitQuiz)

			r.Get("/fitness", s.journeyHandler.HandleFitnessState)
			r.Post("/fitness", s.journeyHandler.HandleSubmitFitness)
			r.Post("/fitness/retry", s.journeyHandler.HandleRetryFitness)

			r.With(s.rateLimit).Post("/video-analysis", s.videoHandler.HandleUpload)
			r.Get("/video-analysis/jobs/{id}", s.videoHandler.HandleGetJob)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/stats", s.adminHandler.HandleSummary)
			r.Get("/athletes", s.adminHandler.HandleListAthletes)
			r.Get("/athletes/export.csv", s.adminHandler.HandleExportCSV)
			r.Get("/athletes/{id}", s.adminHandler.HandleGetAthlete)
			r.Get("/athletes/{id}/report.txt", s.adminHandler.HandleReport)
			r.Patch("/athletes/{id}/status", s.adminHandler.HandleSetStatus)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorBody{Code: code, Message: msg, Fields: fieldErrors(err)})
}

// writeFailure renders a service error. Domain errors keep their own message;
// server errors are logged and answered with the status text only.
func writeFailure(ctx context.Context, w http.ResponseWriter, op string, err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		logFailure(ctx, op, f.status, err)
		writeJSON(w, f.status, types.ErrorBody{Code: f.code, Message: http.StatusText(f.status)})
		return
	}
	writeError(w, f.status, f.code, err)
}

func logFailure(ctx context.Context, op string, status int, err error) {
	logger.Get().Named("api").Error(ctx, "request failed",
		logger.String("op", op),
		logger.Int("status", status),
		logger.Error(err),
	)
}

// decodeJSON reads one JSON document from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty request body")
		}
		return WrapKind(op, ErrBadRequest, fmt.Errorf("decode body: %w", err))
	}
	return nil
}
