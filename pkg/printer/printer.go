package printer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"hdexport/pkg/config"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
)

// ErrLoadTimeout is returned when a print view never finishes loading
var ErrLoadTimeout = errors.New("tab load timeout")

// Paper describes the capture page setup in inches
type Paper struct {
	Width           float64
	Height          float64
	MarginTop       float64
	MarginBottom    float64
	MarginLeft      float64
	MarginRight     float64
	PrintBackground bool
}

// A4 is the paper used for invoice captures
var A4 = Paper{Width: 8.27, Height: 11.69, PrintBackground: true}

// ViewHost opens print views
type ViewHost interface {
	// Spawn opens a blank view; background views do not take focus
	Spawn(ctx context.Context, background bool) (View, error)
}

// View is one open print view
type View interface {
	ID() string
	Navigate(ctx context.Context, url string) error
	WaitLoad(ctx context.Context) error
	Attach(ctx context.Context) (Capture, error)
	Close() error
}

// Capture is a debugging channel attached to a view
type Capture interface {
	EnablePage(ctx context.Context) error
	PrintToPDF(ctx context.Context, paper Paper) ([]byte, error)
	Detach() error
}

// Sink persists captured files
type Sink interface {
	SaveBytes(name string, data []byte) (string, error)
}

// Options controls the print pipeline
type Options struct {
	// BaseURL is the print surface origin, e.g. http://127.0.0.1:8931
	BaseURL      string
	LoadTimeout  time.Duration
	ReadyTimeout time.Duration
	Paper        Paper
	Validate     bool
}

// OptionsFromConfig builds Options from the print section
func OptionsFromConfig(cfg *config.Config, baseURL string) Options {
	paper := A4
	if cfg.Print.PaperWidth > 0 {
		paper.Width = cfg.Print.PaperWidth
	}
	if cfg.Print.PaperHeight > 0 {
		paper.Height = cfg.Print.PaperHeight
	}
	return Options{
		BaseURL:      baseURL,
		LoadTimeout:  cfg.Print.ReadyTimeout,
		ReadyTimeout: cfg.Print.ReadyTimeout,
		Paper:        paper,
		Validate:     cfg.Print.Validate,
	}
}

// Printer renders invoices in a print view and captures them as PDF
type Printer struct {
	host     ViewHost
	sink     Sink
	store    *SessionStore
	registry *Registry
	opts     Options
	logger   logger.Logger
	validate Validator
	newID    func() string

	mu    sync.Mutex
	views map[string]View
}

// New creates a Printer. The store and registry are created when nil.
func New(host ViewHost, sink Sink, store *SessionStore, opts Options, log logger.Logger) *Printer {
	if store == nil {
		store = NewSessionStore()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 15 * time.Second
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = opts.ReadyTimeout
	}
	if opts.Paper.Width == 0 || opts.Paper.Height == 0 {
		opts.Paper = A4
	}
	p := &Printer{
		host:     host,
		sink:     sink,
		store:    store,
		registry: NewRegistry(),
		opts:     opts,
		logger:   log.WithField("component", "printer"),
		newID:    uuid.NewString,
		views:    make(map[string]View),
	}
	if opts.Validate {
		p.validate = ValidatePDF
	}
	return p
}

// SetValidator replaces the capture validator; nil disables validation
func (p *Printer) SetValidator(v Validator) {
	p.validate = v
}

// SetBaseURL points views at a print surface started after New
func (p *Printer) SetBaseURL(base string) {
	p.opts.BaseURL = base
}

// Store returns the session store the print surface reads from
func (p *Printer) Store() *SessionStore {
	return p.store
}

// Registry returns the ready-signal registry
func (p *Printer) Registry() *Registry {
	return p.registry
}

// Print renders detail in a background view, captures it as A4 PDF and
// saves it as the invoice's print file. It returns the saved path.
func (p *Printer) Print(ctx context.Context, id invoice.Identifier, detail *invoice.Detail) (string, error) {
	key := id.PrintKey()
	op := p.newID()
	log := p.logger.WithFields(map[string]interface{}{
		"invoice": id.String(),
		"op":      op,
	})

	p.store.Put(key, Entry{Invoice: id, Data: detail})
	defer p.store.Delete(key)

	if err := p.registry.Register(op); err != nil {
		return "", err
	}
	defer p.registry.Release(op)

	view, err := p.host.Spawn(ctx, true)
	if err != nil {
		return "", fmt.Errorf("open print view: %w", err)
	}
	defer func() {
		if err := view.Close(); err != nil {
			log.WithError(err).Warn("Failed to close print view")
		}
	}()

	target := PrintURL(p.opts.BaseURL, key, op, view.ID())
	log.DebugWithFields("Opening print view", map[string]interface{}{
		"url": target,
	})
	if err := view.Navigate(ctx, target); err != nil {
		return "", fmt.Errorf("navigate print view: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, p.opts.LoadTimeout)
	err = view.WaitLoad(loadCtx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrLoadTimeout, err)
	}

	result, err := p.registry.Wait(ctx, op, p.opts.ReadyTimeout)
	if err != nil {
		return "", err
	}
	if result == TimedOut {
		log.Warn("Print view did not signal ready, capturing anyway")
	}

	data, err := p.capture(ctx, view, log)
	if err != nil {
		return "", err
	}

	if p.validate != nil {
		pages, err := p.validate(data)
		if err != nil {
			return "", err
		}
		log.DebugWithFields("Capture validated", map[string]interface{}{"pages": pages})
	}

	path, err := p.sink.SaveBytes(id.PrintFilename(), data)
	if err != nil {
		return "", fmt.Errorf("save print capture: %w", err)
	}
	log.InfoWithFields("Print capture saved", map[string]interface{}{
		"file":  id.PrintFilename(),
		"bytes": len(data),
	})
	return path, nil
}

func (p *Printer) capture(ctx context.Context, view View, log logger.Logger) ([]byte, error) {
	c, err := view.Attach(ctx)
	if err != nil {
		return nil, fmt.Errorf("attach capture: %w", err)
	}
	defer func() {
		if err := c.Detach(); err != nil {
			log.WithError(err).Warn("Failed to detach capture")
		}
	}()

	if err := c.EnablePage(ctx); err != nil {
		return nil, fmt.Errorf("enable page events: %w", err)
	}
	data, err := c.PrintToPDF(ctx, p.opts.Paper)
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return data, nil
}

// Open stores detail and shows it in a focused view for the user to print.
// The view stays open until CloseView is called for its id.
func (p *Printer) Open(ctx context.Context, id invoice.Identifier, detail *invoice.Detail) (string, error) {
	key := id.PrintKey()
	p.store.Put(key, Entry{Invoice: id, Data: detail})

	view, err := p.host.Spawn(ctx, false)
	if err != nil {
		return "", fmt.Errorf("open print view: %w", err)
	}
	if err := view.Navigate(ctx, PrintURL(p.opts.BaseURL, key, "", view.ID())); err != nil {
		if cerr := view.Close(); cerr != nil {
			p.logger.WithError(cerr).Warn("Failed to close print view")
		}
		return "", fmt.Errorf("navigate print view: %w", err)
	}

	p.mu.Lock()
	p.views[view.ID()] = view
	p.mu.Unlock()
	return key, nil
}

// CloseView closes an interactive view opened by Open. Unknown ids are ignored.
func (p *Printer) CloseView(id string) error {
	p.mu.Lock()
	view, ok := p.views[id]
	delete(p.views, id)
	p.mu.Unlock()

	if !ok {
		return nil
	}
	return view.Close()
}

// PrintURL builds the print surface address. The fragment carries the
// session key followed by the correlation id and view id when present.
func PrintURL(base, key, op, viewID string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(base, "/"))
	b.WriteString("/print/#")
	b.WriteString(escapeComponent(key))
	if op != "" {
		b.WriteString("&op=")
		b.WriteString(escapeComponent(op))
	}
	if viewID != "" {
		b.WriteString("&tabId=")
		b.WriteString(escapeComponent(viewID))
	}
	return b.String()
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
