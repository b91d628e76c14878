package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hdexport/pkg/config"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
)

var (
	// ErrLoadingTimeout ends a crawl whose table never finished loading
	ErrLoadingTimeout = errors.New("loading timeout exceeded")
	// ErrNoNextPage is returned by Advance when there is nothing to advance to
	ErrNoNextPage = errors.New("next page button not available")
)

// Options controls pagination timing
type Options struct {
	// Settle is waited after the click and again after loading clears
	Settle         time.Duration
	PollInterval   time.Duration
	LoadingTimeout time.Duration
}

// DefaultOptions matches the portal's table behaviour
func DefaultOptions() Options {
	return Options{
		Settle:         time.Second,
		PollInterval:   500 * time.Millisecond,
		LoadingTimeout: 10 * time.Second,
	}
}

// OptionsFromConfig reads the pagination section
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Settle:         cfg.Pagination.Settle,
		PollInterval:   cfg.Pagination.PollInterval,
		LoadingTimeout: cfg.Pagination.LoadingTimeout,
	}
}

// Summary describes a finished crawl
type Summary struct {
	Pages    int
	Invoices int
	Rejected int
}

// PageFunc is told about every scraped page
type PageFunc func(page, found, total int)

// Crawler walks every page of the invoice table and hands each page's
// invoices to a sink
type Crawler struct {
	table  Table
	sink   BatchSink
	opts   Options
	logger logger.Logger
	onPage PageFunc

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewCrawler creates a Crawler
func NewCrawler(table Table, sink BatchSink, opts Options, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Crawler{
		table:  table,
		sink:   sink,
		opts:   opts,
		logger: log.WithField("component", "crawler"),
		sleep:  sleep,
		now:    time.Now,
	}
}

// OnPage registers a callback run after each page is scraped
func (c *Crawler) OnPage(fn PageFunc) {
	c.onPage = fn
}

// Run scrapes the current page, hands it to the sink and advances until the
// next control is disabled. A loading timeout ends the crawl with
// ErrLoadingTimeout. Sink failures are logged and the crawl continues.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	for {
		ids, rejected, err := c.scrape(ctx)
		if err != nil {
			return sum, err
		}
		sum.Pages++
		sum.Invoices += len(ids)
		sum.Rejected += rejected

		c.logger.InfoWithFields("Invoices found on page", map[string]interface{}{
			"page":  sum.Pages,
			"found": len(ids),
			"total": sum.Invoices,
		})
		if c.onPage != nil {
			c.onPage(sum.Pages, len(ids), sum.Invoices)
		}

		if len(ids) > 0 {
			if err := c.sink.HandleBatch(ctx, ids); err != nil {
				if ctx.Err() != nil {
					return sum, ctx.Err()
				}
				c.logger.WithError(err).WithField("page", sum.Pages).Error("Batch failed")
			}
		}

		more, err := c.HasNext(ctx)
		if err != nil {
			return sum, err
		}
		if !more {
			c.logger.InfoWithFields("No more pages", map[string]interface{}{
				"pages": sum.Pages,
				"total": sum.Invoices,
			})
			return sum, nil
		}

		if err := c.Advance(ctx); err != nil {
			return sum, err
		}
	}
}

// Scrape reads the current page. Malformed row keys are logged and skipped.
func (c *Crawler) Scrape(ctx context.Context) ([]invoice.Identifier, error) {
	ids, _, err := c.scrape(ctx)
	return ids, err
}

func (c *Crawler) scrape(ctx context.Context) ([]invoice.Identifier, int, error) {
	keys, err := c.table.RowKeys(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read table rows: %w", err)
	}

	ids, rejected := invoice.ParseRowKeys(keys)
	for _, key := range rejected {
		c.logger.WarnWithFields("Invalid row key format", map[string]interface{}{
			"row_key": key,
		})
	}
	return ids, len(rejected), nil
}

// HasNext reports whether the next control is present and enabled
func (c *Crawler) HasNext(ctx context.Context) (bool, error) {
	next, err := c.table.NextControl(ctx)
	if err != nil {
		return false, fmt.Errorf("read pagination: %w", err)
	}
	return next.Enabled(), nil
}

// Advance clicks next, waits for the table to finish loading and lets the
// DOM settle
func (c *Crawler) Advance(ctx context.Context) error {
	more, err := c.HasNext(ctx)
	if err != nil {
		return err
	}
	if !more {
		return ErrNoNextPage
	}

	if err := c.table.ClickNext(ctx); err != nil {
		return fmt.Errorf("click next page: %w", err)
	}
	if err := c.sleep(ctx, c.opts.Settle); err != nil {
		return err
	}
	if err := c.WaitForLoading(ctx); err != nil {
		return err
	}
	return c.sleep(ctx, c.opts.Settle)
}

// WaitForLoading polls the loading indicators until they clear
func (c *Crawler) WaitForLoading(ctx context.Context) error {
	poll := NewPoll(c.now(), c.opts.LoadingTimeout)

	for {
		loading, err := c.table.Loading(ctx)
		if err != nil {
			return fmt.Errorf("probe loading state: %w", err)
		}

		switch poll.Observe(loading, c.now()) {
		case Settled:
			return nil
		case TimedOut:
			c.logger.WarnWithFields("Table did not finish loading", map[string]interface{}{
				"timeout": c.opts.LoadingTimeout.String(),
			})
			return ErrLoadingTimeout
		}

		if err := c.sleep(ctx, c.opts.PollInterval); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
