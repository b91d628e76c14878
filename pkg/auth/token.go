// Package auth resolves the bearer token used for the portal detail API.
package auth

import (
	"context"
	"errors"
	"fmt"

	"hdexport/pkg/logger"
)

// ErrNoToken is returned when no source produced a token
var ErrNoToken = errors.New("no auth token found")

// Source looks up a token. A missing token is reported as ok=false with a
// nil error; err is reserved for lookups that could not run at all.
type Source interface {
	Token(ctx context.Context) (token string, ok bool, err error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context) (string, bool, error)

// Token calls f
func (f SourceFunc) Token(ctx context.Context) (string, bool, error) {
	return f(ctx)
}

// Static is a fixed token, typically from a flag or HDEXPORT_TOKEN
type Static string

// Token returns the fixed token when non-empty
func (s Static) Token(context.Context) (string, bool, error) {
	return string(s), s != "", nil
}

// Resolver asks its sources in order and returns the first token found
type Resolver struct {
	sources []namedSource
	logger  logger.Logger
}

type namedSource struct {
	name   string
	source Source
}

// NewResolver creates a resolver with no sources
func NewResolver(log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{logger: log.WithField("component", "auth")}
}

// With appends a named source and returns the resolver
func (r *Resolver) With(name string, src Source) *Resolver {
	if src != nil {
		r.sources = append(r.sources, namedSource{name: name, source: src})
	}
	return r
}

// Token returns the first token found. Source errors are logged and the
// next source is tried; if nothing produced a token ErrNoToken is returned.
func (r *Resolver) Token(ctx context.Context) (string, error) {
	for _, s := range r.sources {
		token, ok, err := s.source.Token(ctx)
		if err != nil {
			r.logger.WithError(err).WarnWithFields("token lookup failed", map[string]interface{}{
				"source": s.name,
			})
			continue
		}
		if ok && token != "" {
			r.logger.DebugWithFields("token found", map[string]interface{}{
				"source": s.name,
				"token":  Mask(token),
			})
			return token, nil
		}
		r.logger.DebugWithFields("token not found", map[string]interface{}{
			"source": s.name,
		})
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("resolve token: %w", err)
	}
	return "", ErrNoToken
}

// Mask renders a token for logs as its first ten characters and "...".
// An empty token renders as "null".
func Mask(token string) string {
	if token == "" {
		return "null"
	}
	if len(token) <= 10 {
		return token + "..."
	}
	return token[:10] + "..."
}
