package account

import (
	"context"
	"strings"

	"github.com/okian/apas/internal/domain/model"
)

// Directory is the read side of a user store used by login.
type Directory interface {
	Count(ctx context.Context) (int, error)
	ByAadhaar(ctx context.Context, aadhaar string) (model.User, bool, error)
	ByFirstName(ctx context.Context, firstName string) ([]model.User, error)
}

// Credentials is the login form. Identifier is a first name or an Aadhaar number.
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// ValidateCredentials checks the login form for missing fields.
func ValidateCredentials(c Credentials) FieldErrors {
	errs := FieldErrors{}
	if blank(c.Identifier) {
		errs["identifier"] = "First name or Aadhaar number is required"
	}
	if c.Password == "" {
		errs["password"] = "Password is required"
	}
	return errs
}

// Resolve finds the single user an identifier refers to.
func Resolve(ctx context.Context, dir Directory, identifier string) (model.User, error) {
	total, err := dir.Count(ctx)
	if err != nil {
		return model.User{}, err
	}
	if total == 0 {
		return model.User{}, ErrNoUsers
	}

	if IsAadhaar(identifier) {
		u, ok, err := dir.ByAadhaar(ctx, NormalizeAadhaar(identifier))
		switch {
		case err != nil:
			return model.User{}, err
		case !ok:
			return model.User{}, ErrAadhaarUnknown
		}
		return u, nil
	}

	matches, err := dir.ByFirstName(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return model.User{}, err
	}
	switch len(matches) {
	case 0:
		return model.User{}, ErrNameUnknown
	case 1:
		return matches[0], nil
	}
	return model.User{}, ErrAmbiguousName
}

// Authenticate validates the form, resolves the user and checks the password.
func Authenticate(ctx context.Context, dir Directory, c Credentials) (model.User, error) {
	if errs := ValidateCredentials(c); len(errs) > 0 {
		return model.User{}, errs
	}
	u, err := Resolve(ctx, dir, c.Identifier)
	if err != nil {
		return model.User{}, err
	}
	if !CheckPassword(u.PasswordHash, c.Password) {
		return model.User{}, ErrWrongPassword
	}
	return u, nil
}
