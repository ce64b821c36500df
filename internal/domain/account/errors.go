package account

import "errors"

var (
	// ErrInvalidForm is returned when a form has field errors. Use FieldErrors
	// with errors.As to read them.
	ErrInvalidForm = errors.New("invalid form")

	ErrDuplicate      = errors.New("User with this Aadhaar number or email already exists")
	ErrNoUsers        = errors.New("No user accounts found in the system. Please register first.")
	ErrAadhaarUnknown = errors.New("No account found with this Aadhaar number. Please check your number or register first.")
	ErrNameUnknown    = errors.New("No account found with this first name. Please check spelling or use your Aadhaar number.")
	ErrAmbiguousName  = errors.New("Multiple accounts found with this name. Please use your Aadhaar number to login")
	ErrWrongPassword  = errors.New("Incorrect password. Please try again.")

	ErrInvalidOTP = errors.New("Invalid OTP. Please check and try again.")
	ErrOTPExpired = errors.New("OTP has expired. Please request a new one.")
	ErrNoOTP      = errors.New("No OTP has been requested. Please request a new one.")
)

// FieldErrors maps form field names to user-facing messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string { return ErrInvalidForm.Error() }

// Unwrap lets errors.Is match ErrInvalidForm.
func (f FieldErrors) Unwrap() error { return ErrInvalidForm }
