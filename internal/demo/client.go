package demo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const defaultRetryAfter = time.Second

// ErrStatus is returned when the portal answers with an unexpected status.
var ErrStatus = errors.New("unexpected status")

// client talks JSON to the portal and paces itself with a token bucket.
type client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	retries int
	limited *int64
}

func newClient(cfg *Config, limited *int64) *client {
	c := &client{
		base:    cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		retries: max(cfg.Retries, 1),
		limited: limited,
	}
	if cfg.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), max(int(cfg.RPS), 1))
	}
	return c
}

// call sends body as JSON and decodes the response into out when the status
// matches want. A 429 is retried after the server's Retry-After.
func (c *client) call(ctx context.Context, method, path, token string, body, out any, want ...int) error {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return err
		}
	}
	return c.send(ctx, path, out, want, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		bearer(req, token)
		return req, nil
	})
}

// upload posts a multipart video under the "video" field.
func (c *client) upload(ctx context.Context, path, token, name string, video []byte, out any, want ...int) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("video", name)
	if err != nil {
		return err
	}
	if _, err := fw.Write(video); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	payload := buf.Bytes()
	return c.send(ctx, path, out, want, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		bearer(req, token)
		return req, nil
	})
}

func (c *client) send(ctx context.Context, path string, out any, want []int, build func() (*http.Request, error)) error {
	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		req, err := build()
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.retries {
			atomic.AddInt64(c.limited, 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter(resp.Header.Get("Retry-After"))):
			}
			continue
		}
		if !expected(resp.StatusCode, want) {
			return fmt.Errorf("%w: %s %d: %s", ErrStatus, path, resp.StatusCode, bytes.TrimSpace(data))
		}
		if out == nil || len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, out)
	}
}

func bearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func expected(code int, want []int) bool {
	if len(want) == 0 {
		return code == http.StatusOK
	}
	for _, w := range want {
		if code == w {
			return true
		}
	}
	return false
}

func retryAfter(v string) time.Duration {
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultRetryAfter
}
