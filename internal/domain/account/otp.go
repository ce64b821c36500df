package account

import (
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	otpAlphabet   = "0123456789"
	otpLength     = 6
	defaultOTPTTL = 300 * time.Second
)

type pendingCode struct {
	code    string
	expires time.Time
}

// Codes issues and checks one-time phone verification codes.
type Codes struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[string]pendingCode
}

// CodesOption configures Codes.
type CodesOption func(*Codes)

// WithCodeTTL sets the code lifetime.
func WithCodeTTL(ttl time.Duration) CodesOption {
	return func(c *Codes) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCodeClock replaces time.Now.
func WithCodeClock(now func() time.Time) CodesOption {
	return func(c *Codes) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodes creates an empty code book.
func NewCodes(opts ...CodesOption) *Codes {
	c := &Codes{ttl: defaultOTPTTL, now: time.Now, pending: make(map[string]pendingCode)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue creates a fresh code for key, replacing any earlier one.
func (c *Codes) Issue(key string) (string, time.Time, error) {
	code, err := gonanoid.Generate(otpAlphabet, otpLength)
	if err != nil {
		return "", time.Time{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	c.pending[key] = pendingCode{code: code, expires: exp}
	return code, exp, nil
}

// Verify consumes the code for key when it matches and has not expired.
func (c *Codes) Verify(key, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[key]
	if !ok {
		return ErrNoOTP
	}
	if c.now().After(p.expires) {
		delete(c.pending, key)
		return ErrOTPExpired
	}
	if p.code != code {
		return ErrInvalidOTP
	}
	delete(c.pending, key)
	return nil
}
