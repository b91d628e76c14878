package app

import (
	"context"
	"errors"
	"sync/atomic"

	"hdexport/internal/downloader"
	"hdexport/pkg/auth"
	"hdexport/pkg/bus"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
	"hdexport/pkg/printer"
	"hdexport/pkg/scraper"
	"hdexport/pkg/ui"
)

// ErrCrawlRunning rejects a START_CRAWL while another crawl is in progress
var ErrCrawlRunning = errors.New("a crawl is already running")

// TokenSource resolves the portal session token
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// BatchRunner downloads a batch of invoices
type BatchRunner interface {
	ProcessBatch(ctx context.Context, ids []invoice.Identifier, token string) (downloader.BatchResult, error)
}

// DetailFetcher fetches one invoice detail
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id invoice.Identifier, token string) (*invoice.Detail, error)
}

// ViewController opens and closes interactive print views
type ViewController interface {
	Open(ctx context.Context, id invoice.Identifier, detail *invoice.Detail) (string, error)
	CloseView(id string) error
	Registry() *printer.Registry
}

// CrawlFunc walks the invoice table and hands every page to sink
type CrawlFunc func(ctx context.Context, sink scraper.BatchSink) (scraper.Summary, error)

// Handlers answers the runtime messages
type Handlers struct {
	// Tokens resolves the token a crawl or a tokenless batch runs with
	Tokens TokenSource
	// Cookies resolves the session cookie for GET_AUTH_TOKEN and PRINT_INVOICE
	Cookies  TokenSource
	Batches  BatchRunner
	Details  DetailFetcher
	Views    ViewController
	Crawl    CrawlFunc
	Reporter ui.Reporter
	Notifier *ui.Notifier
	// Base, when set, replaces the caller's context for long running work
	// so a dropped HTTP request does not cancel a crawl
	Base context.Context

	logger   logger.Logger
	crawling atomic.Bool
}

// Register installs every handler on d
func (h *Handlers) Register(d *bus.Dispatcher, log logger.Logger) {
	if log == nil {
		log = logger.GetLogger()
	}
	h.logger = log.WithField("component", "app")

	d.Handle(bus.StartCrawl, h.startCrawl)
	d.Handle(bus.DownloadBatch, h.downloadBatch)
	d.Handle(bus.GetAuthToken, h.getAuthToken)
	d.Handle(bus.PrintInvoice, h.printInvoice)
	d.Handle(bus.CheckReady, h.checkReady)
	d.Handle(bus.ClosePrintTab, h.closePrintTab)
}

func (h *Handlers) work(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Base == nil {
		return ctx, func() {}
	}
	return context.WithCancel(h.Base)
}

func (h *Handlers) startCrawl(ctx context.Context, msg bus.Message) (interface{}, error) {
	if !h.crawling.CompareAndSwap(false, true) {
		return bus.CrawlFailed(ErrCrawlRunning), nil
	}
	defer h.crawling.Store(false)

	ctx, cancel := h.work(ctx)
	defer cancel()

	token, err := h.Tokens.Token(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Crawl not started")
		h.failed(err)
		return bus.CrawlFailed(err), nil
	}

	var saved, failed int
	sink := scraper.BatchSinkFunc(func(ctx context.Context, ids []invoice.Identifier) error {
		res, err := h.Batches.ProcessBatch(ctx, ids, token)
		saved += res.Succeeded
		failed += res.Failed
		return err
	})

	sum, err := h.Crawl(ctx, sink)
	if err != nil {
		h.logger.WithError(err).ErrorWithFields("Crawl failed", map[string]interface{}{
			"pages": sum.Pages,
			"saved": saved,
		})
		h.failed(err)
		return bus.CrawlFailed(err), nil
	}

	h.logger.InfoWithFields("Crawl finished", map[string]interface{}{
		"pages":    sum.Pages,
		"invoices": sum.Invoices,
		"rejected": sum.Rejected,
		"saved":    saved,
		"failed":   failed,
	})
	h.finished(saved, failed)
	return bus.Started(), nil
}

func (h *Handlers) downloadBatch(ctx context.Context, msg bus.Message) (interface{}, error) {
	ctx, cancel := h.work(ctx)
	defer cancel()

	token := msg.Token
	if token == "" {
		tok, err := h.Tokens.Token(ctx)
		if err != nil {
			h.failed(err)
			return bus.BatchFailed(err), nil
		}
		token = tok
	}

	res, err := h.Batches.ProcessBatch(ctx, msg.Data, token)
	if err != nil {
		h.failed(err)
		return bus.BatchFailed(err), nil
	}
	h.finished(res.Succeeded, res.Failed)
	return bus.BatchDone(), nil
}

func (h *Handlers) getAuthToken(ctx context.Context, msg bus.Message) (interface{}, error) {
	token, err := h.Cookies.Token(ctx)
	if err != nil {
		h.logger.WithError(err).Debug("No session cookie")
		return bus.Token(""), nil
	}
	return bus.Token(token), nil
}

func (h *Handlers) printInvoice(ctx context.Context, msg bus.Message) (interface{}, error) {
	if msg.Invoice == nil {
		return bus.PrintFailed("missing invoice"), nil
	}
	id := *msg.Invoice

	token := msg.Token
	if token == "" {
		tok, err := h.Cookies.Token(ctx)
		if err != nil {
			return bus.PrintFailed(bus.NoTokenMessage), nil
		}
		token = tok
	}

	detail, err := h.Details.FetchDetail(ctx, id, token)
	if err != nil {
		h.logger.WithError(err).WithField("invoice", id.String()).Warn("Print fetch failed")
		return bus.PrintFailed(err.Error()), nil
	}
	key, err := h.Views.Open(ctx, id, detail)
	if err != nil {
		h.logger.WithError(err).WithField("invoice", id.String()).Warn("Print view failed")
		return bus.PrintFailed(err.Error()), nil
	}
	return bus.Printed(key), nil
}

func (h *Handlers) checkReady(ctx context.Context, msg bus.Message) (interface{}, error) {
	id := msg.TabID.String()
	if id == "" {
		id = msg.Sender
	}
	if id == "" {
		return nil, nil
	}
	if !h.Views.Registry().Signal(id) {
		h.logger.DebugWithFields("Ready signal without waiter", map[string]interface{}{"id": id})
	}
	return nil, nil
}

func (h *Handlers) closePrintTab(ctx context.Context, msg bus.Message) (interface{}, error) {
	id := msg.Sender
	if id == "" {
		id = msg.TabID.String()
	}
	if id == "" {
		return nil, nil
	}
	if err := h.Views.CloseView(id); err != nil {
		h.logger.WithError(err).WithField("view", id).Warn("Failed to close print view")
	}
	return nil, nil
}

func (h *Handlers) finished(saved, failed int) {
	if h.Reporter != nil {
		h.Reporter.Finished(saved, failed)
	}
	if h.Notifier != nil {
		h.Notifier.Completed(saved, failed)
	}
}

func (h *Handlers) failed(err error) {
	if h.Notifier != nil {
		h.Notifier.Failed(err)
	}
}

// NoToken reports whether a crawl reply failed for lack of a session token
func NoToken(reply bus.CrawlReply) bool {
	return reply.Status == "error" && reply.Message == auth.ErrNoToken.Error()
}
