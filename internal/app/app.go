package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hdexport/internal/browser"
	"hdexport/internal/downloader"
	"hdexport/internal/server"
	"hdexport/pkg/auth"
	"hdexport/pkg/bus"
	"hdexport/pkg/config"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
	"hdexport/pkg/portal"
	"hdexport/pkg/printer"
	"hdexport/pkg/scraper"
	"hdexport/pkg/storage"
	"hdexport/pkg/ui"
)

// Options tunes an App beyond the config file
type Options struct {
	Reporter ui.Reporter
	Notifier *ui.Notifier
}

// App wires the browser, portal client, downloader, printer and print
// surface behind one message dispatcher. Chrome is started on first use.
type App struct {
	cfg        *config.Config
	logger     logger.Logger
	store      *storage.Manager
	client     *portal.Client
	printer    *printer.Printer
	downloader *downloader.Downloader
	dispatcher *bus.Dispatcher
	server     *server.Server
	handlers   *Handlers
	reporter   ui.Reporter

	launch func(ctx context.Context) (*browser.Session, error)

	mu      sync.Mutex
	session *browser.Session
	table   *browser.TablePage
}

// New builds the App and starts the loopback print surface
func New(ctx context.Context, cfg *config.Config, opts Options, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	store, err := storage.NewManager(cfg.InvoiceDir())
	if err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	a := &App{
		cfg:      cfg,
		logger:   log.WithField("component", "app"),
		store:    store,
		client:   portal.NewClient(portal.OptionsFromConfig(cfg), log),
		reporter: opts.Reporter,
	}
	a.launch = func(ctx context.Context) (*browser.Session, error) {
		return browser.Launch(ctx, browser.OptionsFromConfig(cfg), log)
	}

	a.printer = printer.New(lazyViews{a}, store, nil, printer.OptionsFromConfig(cfg, ""), log)
	a.dispatcher = bus.NewDispatcher(log)
	a.server = server.New(a.dispatcher, a.printer.Store(), server.OptionsFromConfig(cfg), log)

	a.downloader = downloader.New(a.client, store, downloader.OptionsFromConfig(cfg), log)
	if cfg.Print.Enabled {
		a.downloader.SetPrinter(a.printer)
	}
	a.downloader.OnItem(a.itemDone)
	a.downloader.OnRateLimit(func(id invoice.Identifier) {
		if a.reporter != nil {
			a.reporter.RateLimited(id.String(), cfg.Download.RateLimitDelay)
		}
		if opts.Notifier != nil {
			opts.Notifier.RateLimited(id.String())
		}
	})

	cookies := &auth.CookieSource{Reader: lazyCookies{a}, URL: cfg.Portal.BaseURL, Name: cfg.Portal.CookieName}
	var session auth.Source = cookies
	if cfg.Portal.TokenSource == "storage" {
		session = &auth.StorageSource{Reader: lazyStorage{a}, Keys: cfg.Portal.TokenKeys, Timeout: cfg.Portal.TokenTimeout}
	}

	a.handlers = &Handlers{
		Tokens: auth.NewResolver(log).
			With("static", auth.Static(cfg.Portal.Token)).
			With(cfg.Portal.TokenSource, session),
		Cookies:  auth.NewResolver(log).With("cookie", cookies),
		Batches:  a.downloader,
		Details:  a.client,
		Views:    a.printer,
		Crawl:    a.crawl,
		Reporter: opts.Reporter,
		Notifier: opts.Notifier,
		Base:     ctx,
	}
	a.handlers.Register(a.dispatcher, log)

	base, err := a.server.Start()
	if err != nil {
		return nil, fmt.Errorf("start print surface: %w", err)
	}
	a.printer.SetBaseURL(base)
	return a, nil
}

// Dispatch routes msg to its handler in-process
func (a *App) Dispatch(ctx context.Context, msg bus.Message) (interface{}, error) {
	return a.dispatcher.Dispatch(ctx, msg)
}

// BaseURL is the print surface address
func (a *App) BaseURL() string {
	return a.server.BaseURL()
}

// OutputDir is where artifacts are written
func (a *App) OutputDir() string {
	return a.store.GetOutputDir()
}

// FilesWritten counts the distinct artifacts saved during this run
func (a *App) FilesWritten() int {
	return a.store.GetWrittenCount()
}

// WaitForTable opens the invoice list and blocks until it shows rows,
// giving the user time to sign in and search
func (a *App) WaitForTable(ctx context.Context) error {
	table, err := a.listPage(ctx)
	if err != nil {
		return err
	}
	a.logger.InfoWithFields("Waiting for the invoice table", map[string]interface{}{
		"url": a.cfg.Portal.ListURL,
	})
	return table.WaitRows(ctx)
}

// Close stops the print surface and the browser
func (a *App) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Print surface shutdown failed")
	}

	a.mu.Lock()
	s := a.session
	a.session = nil
	a.table = nil
	a.mu.Unlock()
	if s != nil {
		return s.Close()
	}
	return nil
}

func (a *App) crawl(ctx context.Context, sink scraper.BatchSink) (scraper.Summary, error) {
	table, err := a.listPage(ctx)
	if err != nil {
		return scraper.Summary{}, err
	}
	c := scraper.NewCrawler(table, sink, scraper.OptionsFromConfig(a.cfg), a.logger)
	if a.reporter != nil {
		c.OnPage(a.reporter.PageScanned)
	}
	return c.Run(ctx)
}

func (a *App) itemDone(item downloader.ItemResult) {
	if a.reporter == nil {
		return
	}
	if item.Success() {
		a.reporter.ItemSaved(item.Invoice.String(), item.Path)
		return
	}
	a.reporter.ItemFailed(item.Invoice.String(), item.Error)
}

func (a *App) browserSession(ctx context.Context) (*browser.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		return a.session, nil
	}
	s, err := a.launch(ctx)
	if err != nil {
		return nil, err
	}
	a.session = s
	return s, nil
}

func (a *App) listPage(ctx context.Context) (*browser.TablePage, error) {
	s, err := a.browserSession(ctx)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.table != nil {
		return a.table, nil
	}
	page, err := s.OpenPage(ctx, a.cfg.Portal.ListURL)
	if err != nil {
		return nil, err
	}
	a.table = browser.NewTablePage(page)
	return a.table, nil
}

type lazyCookies struct{ a *App }

func (l lazyCookies) Cookie(ctx context.Context, url, name string) (string, bool, error) {
	s, err := l.a.browserSession(ctx)
	if err != nil {
		return "", false, err
	}
	return s.Cookie(ctx, url, name)
}

type lazyStorage struct{ a *App }

// PrepareStorage launches Chrome and opens the list page ahead of the
// storage probe
func (l lazyStorage) PrepareStorage(ctx context.Context) error {
	_, err := l.a.listPage(ctx)
	return err
}

func (l lazyStorage) StorageToken(ctx context.Context, keys []string) (string, bool, error) {
	t, err := l.a.listPage(ctx)
	if err != nil {
		return "", false, err
	}
	return t.StorageToken(ctx, keys)
}

type lazyViews struct{ a *App }

func (l lazyViews) Spawn(ctx context.Context, background bool) (printer.View, error) {
	s, err := l.a.browserSession(ctx)
	if err != nil {
		return nil, err
	}
	return browser.NewViewHost(s).Spawn(ctx, background)
}
