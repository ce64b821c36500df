package api

import (
	"context"
	"net/http"

	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/types"
)

// AuthDependencies covers registration, login and phone verification.
type AuthDependencies interface {
	Register(ctx context.Context, r account.Registration) (types.Session, error)
	Login(ctx context.Context, c account.Credentials) (types.Session, error)
	SendOTP(ctx context.Context, claims *pipeline.Claims) (types.OTPChallenge, error)
	VerifyOTP(ctx context.Context, claims *pipeline.Claims, code string) (types.Session, error)
	Journey(ctx context.Context, claims *pipeline.Claims) (types.Session, error)
}

// AuthHandler handles account requests.
type AuthHandler struct {
	deps AuthDependencies
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(deps AuthDependencies) *AuthHandler {
	return &AuthHandler{deps: deps}
}

// HandleRegister handles POST /api/v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	var req account.Registration
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sess, err := h.deps.Register(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleLogin handles POST /api/v1/auth/login. The identifier is an Aadhaar
// number or a first or full name.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req account.Credentials
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sess, err := h.deps.Login(r.Context(), req)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleSendOTP handles POST /api/v1/auth/otp/send.
func (h *AuthHandler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	const op = "api.send_otp"
	ch, err := h.deps.SendOTP(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

// HandleVerifyOTP handles POST /api/v1/auth/otp/verify.
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	const op = "api.verify_otp"
	var req verifyOTPRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	sess, err := h.deps.VerifyOTP(r.Context(), claimsFrom(r.Context()), req.Code)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleJourney handles GET /api/v1/journey and returns a token for the
// stage the server holds.
func (h *AuthHandler) HandleJourney(w http.ResponseWriter, r *http.Request) {
	const op = "api.journey"
	sess, err := h.deps.Journey(r.Context(), claimsFrom(r.Context()))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}
