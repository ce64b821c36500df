package fitness

import "errors"

// ErrInvalidForm is returned when a form has field errors. Use FieldErrors
// with errors.As to read them.
var ErrInvalidForm = errors.New("invalid fitness form")

// FieldErrors maps form field names to user-facing messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string { return ErrInvalidForm.Error() }

// Unwrap lets errors.Is match ErrInvalidForm.
func (f FieldErrors) Unwrap() error { return ErrInvalidForm }
