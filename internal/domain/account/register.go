// Package account covers registration, login and phone verification rules.
package account

import (
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

var (
	aadhaarRe = regexp.MustCompile(`^\d{12}$`)
	phoneRe   = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodeRe = regexp.MustCompile(`^\d{6}$`)
)

// Registration is the sign-up form.
type Registration struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Gmail           string `json:"gmail"`
	Aadhaar         string `json:"aadhaar"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	State           string `json:"state"`
	District        string `json:"district"`
	City            string `json:"city"`
	Pincode         string `json:"pincode"`
	AgreeToTerms    bool   `json:"agreeToTerms"`
}

// NormalizeAadhaar strips spaces and dashes.
func NormalizeAadhaar(s string) string {
	return strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(s)
}

// IsAadhaar reports whether s is twelve digits once normalized.
func IsAadhaar(s string) bool {
	return aadhaarRe.MatchString(NormalizeAadhaar(s))
}

// ValidateRegistration checks every field. validState decides whether a
// state name is in the accepted list; nil accepts any non-empty state.
func ValidateRegistration(r Registration, validState func(string) bool) FieldErrors {
	errs := FieldErrors{}

	if blank(r.FirstName) {
		errs["firstName"] = "First name is required"
	}
	if blank(r.LastName) {
		errs["lastName"] = "Last name is required"
	}

	switch {
	case blank(r.Aadhaar):
		errs["aadhaar"] = "Aadhaar number is required"
	case !IsAadhaar(r.Aadhaar):
		errs["aadhaar"] = "Aadhaar must be exactly 12 digits"
	}

	switch {
	case blank(r.Phone):
		errs["phone"] = "Phone number is required"
	case !phoneRe.MatchString(strings.TrimSpace(r.Phone)):
		errs["phone"] = "Enter a valid 10-digit Indian mobile number"
	}

	switch {
	case r.Password == "":
		errs["password"] = "Password is required"
	case len(r.Password) < minPasswordLen:
		errs["password"] = "Password must be at least 8 characters"
	}
	if r.Password != r.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match"
	}

	switch {
	case blank(r.State):
		errs["state"] = "State is required"
	case validState != nil && !validState(r.State):
		errs["state"] = "Select a valid state"
	}
	if blank(r.District) {
		errs["district"] = "District is required"
	}
	if blank(r.City) {
		errs["city"] = "City/Village is required"
	}

	switch {
	case blank(r.Pincode):
		errs["pincode"] = "Pin code is required"
	case !pincodeRe.MatchString(strings.TrimSpace(r.Pincode)):
		errs["pincode"] = "Pin code must be 6 digits"
	}

	if !r.AgreeToTerms {
		errs["terms"] = "You must agree to the terms and privacy policy"
	}
	return errs
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword compares a bcrypt hash with a candidate password.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
