// Package portal is the HTTP client for the tax portal invoice API.
package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"hdexport/pkg/auth"
	"hdexport/pkg/config"
	errs "hdexport/pkg/errors"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
	"hdexport/pkg/ratelimit"
	"hdexport/pkg/retry"
)

// Options configures a Client
type Options struct {
	DetailURL     string
	Timeout       time.Duration
	UserAgent     string
	RetryAttempts int
	RetryDelay    time.Duration
	// Limiter is an optional ceiling on request rate
	Limiter ratelimit.Limiter
}

// OptionsFromConfig maps the portal and download sections to Options
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		DetailURL:     cfg.Portal.APIURL,
		Timeout:       cfg.Download.RequestTimeout,
		UserAgent:     cfg.Portal.UserAgent,
		RetryAttempts: cfg.Download.RetryAttempts,
		RetryDelay:    cfg.Download.RetryDelay,
	}
	if tb := ratelimit.PerMinute(cfg.Download.RequestsPerMinute); tb != nil {
		opts.Limiter = tb
	}
	return opts
}

// Client talks to the invoice detail API
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	opts       Options
	logger     logger.Logger
}

// NewClient creates a new portal API client
func NewClient(opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.DetailURL == "" {
		opts.DetailURL = DetailURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}

	headers := map[string]string{
		"Accept":       "application/json, text/plain, */*",
		"Content-Type": "application/json",
		"action":       ActionHeader,
		"end-point":    EndpointHeader,
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		headers:    headers,
		opts:       opts,
		logger:     log.WithField("component", "portal"),
	}
}

// FetchDetail fetches an invoice detail, retrying failed attempts with a
// doubling delay.
func (c *Client) FetchDetail(ctx context.Context, id invoice.Identifier, token string) (*invoice.Detail, error) {
	return retry.DoWithResult(func() (*invoice.Detail, error) {
		return c.fetchDetailOnce(ctx, id, token)
	}, &retry.Config{
		MaxAttempts: c.opts.RetryAttempts,
		Backoff:     retry.NewExponentialBackoff(c.opts.RetryDelay),
		Context:     ctx,
		Logger:      c.logger.WithField("invoice", id.String()),
	})
}

func (c *Client) fetchDetailOnce(ctx context.Context, id invoice.Identifier, token string) (*invoice.Detail, error) {
	target, err := DetailQueryURL(c.opts.DetailURL, id)
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("fetching invoice detail", map[string]interface{}{
		"url":      target,
		"nbmst":    id.SellerTaxID,
		"khmshdon": id.TemplateCode,
		"khhdon":   id.SeriesCode,
		"shdon":    id.Number,
		"token":    auth.Mask(token),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	detail, err := invoice.Decode(body)
	if err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse invoice detail", map[string]interface{}{
			"url":          target,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: err.Error(),
			Code:    http.StatusOK,
		}
	}
	if len(detail.Warnings) > 0 {
		c.logger.WarnWithFields("Invoice detail has unreadable print fields", map[string]interface{}{
			"invoice":  id.String(),
			"warnings": detail.Warnings,
		})
	}
	return detail, nil
}

// Download fetches a remote artifact such as the pdfUrl of a detail
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	return c.do(req)
}

// do sends the request with the client headers and returns the body of a
// 2xx response. Other statuses become an *errors.Error.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, float64(duration.Microseconds())/1000)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errs.FromStatus(resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return body, nil
}
