package downloader

import (
	"context"
	"io"
	"time"

	"hdexport/pkg/config"
	errs "hdexport/pkg/errors"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
	"hdexport/pkg/ratelimit"
)

// DetailClient fetches invoice details and remote files from the portal
type DetailClient interface {
	FetchDetail(ctx context.Context, id invoice.Identifier, token string) (*invoice.Detail, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// ArtifactStore persists invoice artifacts
type ArtifactStore interface {
	Save(name string, r io.Reader) (string, error)
}

// PrintCapturer renders an invoice and saves its PDF capture
type PrintCapturer interface {
	Print(ctx context.Context, id invoice.Identifier, detail *invoice.Detail) (string, error)
}

// ItemResult is the outcome of one invoice
type ItemResult struct {
	Invoice     invoice.Identifier
	Kind        invoice.Kind
	Path        string
	PrintPath   string
	Error       error
	RateLimited bool
	Duration    time.Duration
}

// Success reports whether the item finished without error
func (r ItemResult) Success() bool {
	return r.Error == nil
}

// BatchResult summarises a processed batch
type BatchResult struct {
	Attempted   int
	Succeeded   int
	Failed      int
	RateLimited int
	Items       []ItemResult
}

// Options controls batch pacing
type Options struct {
	Delay          time.Duration
	RateLimitDelay time.Duration
}

// OptionsFromConfig reads pacing from the download section
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Delay:          cfg.Download.Delay,
		RateLimitDelay: cfg.Download.RateLimitDelay,
	}
}

// Downloader processes invoice batches one item at a time
type Downloader struct {
	client      DetailClient
	store       ArtifactStore
	printer     PrintCapturer
	pacer       *ratelimit.Pacer
	logger      logger.Logger
	onRateLimit func(invoice.Identifier)
	onItem      func(ItemResult)
}

// New creates a Downloader
func New(client DetailClient, store ArtifactStore, opts Options, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client: client,
		store:  store,
		pacer:  ratelimit.NewPacer(opts.Delay, opts.RateLimitDelay),
		logger: log.WithField("component", "downloader"),
	}
}

// SetPrinter enables the print capture step; nil disables it
func (d *Downloader) SetPrinter(p PrintCapturer) {
	d.printer = p
}

// OnRateLimit registers a callback invoked for every rate limited item
func (d *Downloader) OnRateLimit(fn func(invoice.Identifier)) {
	d.onRateLimit = fn
}

// OnItem registers a callback invoked after every item, before pacing
func (d *Downloader) OnItem(fn func(ItemResult)) {
	d.onItem = fn
}

// Pacer exposes the pacer so callers can observe or replace its sleep
func (d *Downloader) Pacer() *ratelimit.Pacer {
	return d.pacer
}

// ProcessBatch fetches, saves and optionally prints each invoice in order.
// A failed item is logged and the batch moves on. Only cancellation of ctx
// ends the batch early, and the partial result is returned with the error.
func (d *Downloader) ProcessBatch(ctx context.Context, ids []invoice.Identifier, token string) (BatchResult, error) {
	result := BatchResult{Items: make([]ItemResult, 0, len(ids))}
	d.logger.InfoWithFields("Processing batch", map[string]interface{}{
		"count": len(ids),
	})

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := d.processItem(ctx, id, token)
		result.Attempted++
		if item.Success() {
			result.Succeeded++
		} else {
			result.Failed++
		}

		if item.RateLimited {
			result.RateLimited++
			d.pacer.Escalate()
			logger.LogRateLimit(d.logger, id.String(), d.pacer.Escalated.Milliseconds())
			if d.onRateLimit != nil {
				d.onRateLimit(id)
			}
		}
		result.Items = append(result.Items, item)
		if d.onItem != nil {
			d.onItem(item)
		}
		logger.LogBatchProgress(d.logger, result.Attempted, len(ids), result.Failed)

		if _, err := d.pacer.Pace(ctx); err != nil {
			return result, err
		}
	}

	return result, nil
}

// processItem handles one invoice; errors are recorded, never returned
func (d *Downloader) processItem(ctx context.Context, id invoice.Identifier, token string) ItemResult {
	start := time.Now()
	item := ItemResult{Invoice: id}

	d.logger.DebugWithFields("Fetching invoice detail", map[string]interface{}{
		"invoice": id.String(),
	})

	detail, err := d.client.FetchDetail(ctx, id, token)
	if err != nil {
		return d.fail(item, "", err, start)
	}

	path, kind, err := d.saveArtifact(ctx, id, detail)
	item.Kind = kind
	if err != nil {
		return d.fail(item, id.Filename(kind.Extension()), err, start)
	}
	item.Path = path
	logger.LogArtifact(d.logger, id.String(), id.Filename(kind.Extension()), nil)

	if d.printer != nil {
		printPath, err := d.printer.Print(ctx, id, detail)
		if err != nil {
			return d.fail(item, id.PrintFilename(), err, start)
		}
		item.PrintPath = printPath
	}

	item.Duration = time.Since(start)
	return item
}

func (d *Downloader) fail(item ItemResult, filename string, err error, start time.Time) ItemResult {
	item.Error = err
	item.RateLimited = errs.IsRateLimit(err)
	item.Duration = time.Since(start)
	logger.LogArtifact(d.logger, item.Invoice.String(), filename, err)
	return item
}
