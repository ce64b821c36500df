// Package storage keeps uploaded performance videos on local disk or in a
// MinIO bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"github.com/okian/apas/internal/domain/model"
)

// VideoStore persists uploads.
type VideoStore interface {
	// Save stores r under a fresh key derived from name. size may be -1 when unknown.
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (model.Video, error)
	Delete(ctx context.Context, key string) error
}

// Option configures a store.
type Option func(*settings)

type settings struct {
	now       func() time.Time
	urlPrefix string
}

// WithClock replaces time.Now in key generation.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithURLPrefix sets the public prefix stored in Video.URL.
func WithURLPrefix(prefix string) Option {
	return func(s *settings) { s.urlPrefix = prefix }
}

func newSettings(defaultPrefix string, opts []Option) settings {
	s := settings{now: time.Now, urlPrefix: defaultPrefix}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Key builds "<unix-millis>_<name>" with the base name slugified and the
// extension kept, e.g. "1700000000000_my-jump.mp4".
func Key(at time.Time, name string) (string, error) {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "" || base == "." || base == "/" {
		return "", ErrEmptyName
	}
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "video"
	}
	return fmt.Sprintf("%d_%s%s", at.UnixMilli(), stem, ext), nil
}

// LocalStore writes uploads into a directory.
type LocalStore struct {
	dir string
	settings
}

// NewLocalStore creates dir when missing.
func NewLocalStore(dir string, opts ...Option) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, settings: newSettings("/uploads/", opts)}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader, _ int64, contentType string) (model.Video, error) {
	key, err := Key(s.now(), name)
	if err != nil {
		return model.Video{}, err
	}
	dst := filepath.Join(s.dir, key)
	out, err := os.Create(dst)
	if err != nil {
		return model.Video{}, fmt.Errorf("create %s: %w", key, err)
	}
	n, err := io.Copy(out, contextReader{ctx: ctx, r: r})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return model.Video{}, fmt.Errorf("write %s: %w", key, err)
	}
	return model.Video{
		Name:        name,
		Key:         key,
		Path:        dst,
		URL:         s.urlPrefix + key,
		Size:        n,
		ContentType: contentType,
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.Base(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return err
}

// contextReader stops a copy once ctx ends.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
