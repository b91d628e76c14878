package auth

import (
	"context"
	"errors"
	"time"
)

// CookieReader reads a cookie from the browser session
type CookieReader interface {
	Cookie(ctx context.Context, url, name string) (value string, ok bool, err error)
}

// StorageReader evaluates the storage probe in the portal page. It checks
// localStorage then sessionStorage for each key in order.
type StorageReader interface {
	StorageToken(ctx context.Context, keys []string) (value string, ok bool, err error)
}

// StoragePreparer is implemented by readers that must load the portal page
// before the probe can run. Preparation is not bound by the probe timeout.
type StoragePreparer interface {
	PrepareStorage(ctx context.Context) error
}

// CookieSource reads the token from a named cookie on the portal origin
type CookieSource struct {
	Reader CookieReader
	URL    string
	Name   string
}

// Token reads the cookie. A cookie read failure counts as no token.
func (c *CookieSource) Token(ctx context.Context) (string, bool, error) {
	value, ok, err := c.Reader.Cookie(ctx, c.URL, c.Name)
	if err != nil || !ok || value == "" {
		return "", false, err
	}
	return value, true, nil
}

// StorageSource probes page storage. The probe is abandoned after Timeout
// and reported as no token.
type StorageSource struct {
	Reader  StorageReader
	Keys    []string
	Timeout time.Duration
}

// Token prepares the reader, then runs the probe under the timeout
func (s *StorageSource) Token(ctx context.Context) (string, bool, error) {
	if p, ok := s.Reader.(StoragePreparer); ok {
		if err := p.PrepareStorage(ctx); err != nil {
			return "", false, err
		}
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value string
		ok    bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, ok, err := s.Reader.StorageToken(probeCtx, s.Keys)
		done <- result{v, ok, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
				return "", false, nil
			}
			return "", false, r.err
		}
		return r.value, r.ok && r.value != "", nil
	case <-probeCtx.Done():
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		return "", false, nil
	}
}
