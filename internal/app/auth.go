package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/apas/internal/adapters/repository"
	"github.com/okian/apas/internal/domain/account"
	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/pipeline"
	"github.com/okian/apas/internal/domain/types"
	"github.com/okian/apas/pkg/logger"
	"github.com/okian/apas/pkg/metrics"
)

// Register validates the sign-up form, stores the account, opens its roster
// profile and returns a session at the registered stage.
func (s *Service) Register(ctx context.Context, r account.Registration) (types.Session, error) {
	if errs := account.ValidateRegistration(r, s.catalog.HasState); len(errs) > 0 {
		metrics.RecordRegistration("invalid")
		return types.Session{}, errs
	}

	u, err := s.createUser(ctx, uuid.NewString(), r)
	if err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			metrics.RecordRegistration("duplicate")
		} else {
			metrics.RecordRegistration("error")
		}
		return types.Session{}, err
	}
	metrics.RecordRegistration("ok")

	s.log().Info(ctx, "athlete registered",
		logger.String("user_id", u.ID),
		logger.String("state", u.State),
	)
	return s.session(u, model.Progress{UserID: u.ID, Stage: pipeline.Registered})
}

// createUser stores the account, its progress record and roster profile.
func (s *Service) createUser(ctx context.Context, id string, r account.Registration) (model.User, error) {
	hash, err := account.HashPassword(r.Password)
	if err != nil {
		return model.User{}, err
	}
	now := s.now().UTC()
	u := model.User{
		ID:           id,
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		Gmail:        strings.TrimSpace(r.Gmail),
		Aadhaar:      account.NormalizeAadhaar(r.Aadhaar),
		Phone:        strings.TrimSpace(r.Phone),
		PasswordHash: hash,
		State:        strings.TrimSpace(r.State),
		District:     strings.TrimSpace(r.District),
		City:         strings.TrimSpace(r.City),
		Pincode:      strings.TrimSpace(r.Pincode),
		RegisteredAt: now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.User{}, account.ErrDuplicate
		}
		return model.User{}, err
	}
	if err := s.progress.Put(ctx, model.Progress{UserID: u.ID, Stage: pipeline.Registered, UpdatedAt: now}); err != nil {
		return model.User{}, err
	}
	if err := s.athletes.Upsert(ctx, model.Athlete{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		State:            u.State,
		District:         u.District,
		RegistrationDate: now,
		ValidationStatus: model.StatusPending,
		Phone:            u.Phone,
		Email:            u.Gmail,
		Aadhaar:          u.Aadhaar,
	}); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Login resolves a first name or Aadhaar number and checks the password.
func (s *Service) Login(ctx context.Context, c account.Credentials) (types.Session, error) {
	u, err := account.Authenticate(ctx, s.users, c)
	if err != nil {
		metrics.RecordLogin(loginResult(err))
		return types.Session{}, err
	}
	metrics.RecordLogin("ok")

	p, err := s.progress.Get(ctx, u.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return types.Session{}, err
		}
		p = model.Progress{UserID: u.ID, Stage: pipeline.Registered}
	}
	return s.session(u, p)
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, account.ErrInvalidForm):
		return "invalid"
	case errors.Is(err, account.ErrWrongPassword):
		return "wrong_password"
	case errors.Is(err, account.ErrAmbiguousName):
		return "ambiguous"
	case errors.Is(err, account.ErrNoUsers), errors.Is(err, account.ErrAadhaarUnknown), errors.Is(err, account.ErrNameUnknown):
		return "unknown"
	}
	return "error"
}

// SendOTP issues a verification code for the athlete's phone. A new code
// replaces the previous one.
func (s *Service) SendOTP(ctx context.Context, claims *pipeline.Claims) (types.OTPChallenge, error) {
	u, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		return types.OTPChallenge{}, err
	}
	code, exp, err := s.codes.Issue(u.ID)
	if err != nil {
		return types.OTPChallenge{}, err
	}
	s.log().Debug(ctx, "verification code issued", logger.String("user_id", u.ID))

	ch := types.OTPChallenge{Phone: u.Phone, ExpiresAt: exp}
	if s.otpEcho {
		ch.Code = code
	}
	return ch, nil
}

// VerifyOTP consumes the code and marks the phone verified.
func (s *Service) VerifyOTP(ctx context.Context, claims *pipeline.Claims, code string) (types.Session, error) {
	if err := s.codes.Verify(claims.Subject, strings.TrimSpace(code)); err != nil {
		switch {
		case errors.Is(err, account.ErrOTPExpired):
			metrics.RecordOTPVerification("expired")
		case errors.Is(err, account.ErrInvalidOTP):
			metrics.RecordOTPVerification("invalid")
		default:
			metrics.RecordOTPVerification("missing")
		}
		return types.Session{}, err
	}
	metrics.RecordOTPVerification("ok")

	u, err := s.users.Get(ctx, claims.Subject)
	if err != nil {
		return types.Session{}, err
	}
	u.PhoneVerified = true
	if err := s.users.Update(ctx, u); err != nil {
		return types.Session{}, err
	}
	return s.refresh(ctx, u.ID)
}

// Journey returns the athlete's current stage with a fresh token.
func (s *Service) Journey(ctx context.Context, claims *pipeline.Claims) (types.Session, error) {
	return s.refresh(ctx, claims.Subject)
}

// refresh loads the user and progress and issues a session for them.
func (s *Service) refresh(ctx context.Context, userID string) (types.Session, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return types.Session{}, err
	}
	p, err := s.progress.Get(ctx, userID)
	if err != nil {
		return types.Session{}, err
	}
	return s.session(u, p)
}

func (s *Service) session(u model.User, p model.Progress) (types.Session, error) {
	token, err := s.tokens.Issue(u.ID, p.Stage, p.Sport)
	if err != nil {
		return types.Session{}, err
	}
	return types.Session{
		Token:         token,
		UserID:        u.ID,
		Name:          u.FullName(),
		Stage:         p.Stage,
		Sport:         p.Sport,
		PhoneVerified: u.PhoneVerified,
	}, nil
}

func (s *Service) log() logger.Logger {
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}
