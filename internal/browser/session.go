package browser

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ansel1/merry"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"hdexport/pkg/config"
	"hdexport/pkg/logger"
)

// ErrClosed is returned when using a closed session
var ErrClosed = merry.New("browser: session is closed")

// Options controls how Chrome is started or reached
type Options struct {
	// RemoteURL attaches to a running Chrome (ws:// or http:// debugging
	// address). Empty launches a local Chrome.
	RemoteURL   string
	ChromePath  string
	UserDataDir string
	Headless    bool
	Stealth     bool
	NoSandbox   bool
	// NavigateTimeout bounds navigation and the load wait of OpenPage
	NavigateTimeout time.Duration
}

// OptionsFromConfig reads the browser section
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RemoteURL:       cfg.Browser.RemoteURL,
		ChromePath:      cfg.Browser.ChromePath,
		UserDataDir:     cfg.Browser.UserDataDir,
		Headless:        cfg.Browser.Headless,
		Stealth:         cfg.Browser.Stealth,
		NoSandbox:       cfg.Browser.NoSandbox,
		NavigateTimeout: 30 * time.Second,
	}
}

// Session is one connected Chrome
type Session struct {
	opts       Options
	logger     logger.Logger
	browser    *rod.Browser
	lnch       *launcher.Launcher
	controlURL string

	mu     sync.Mutex
	closed bool
}

// Launch starts Chrome, or connects to RemoteURL when set
func Launch(ctx context.Context, opts Options, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.NavigateTimeout <= 0 {
		opts.NavigateTimeout = 30 * time.Second
	}
	s := &Session{opts: opts, logger: log.WithField("component", "browser")}

	if opts.RemoteURL != "" {
		u := opts.RemoteURL
		if !strings.HasPrefix(u, "ws") {
			resolved, err := launcher.ResolveURL(u)
			if err != nil {
				return nil, merry.Prependf(err, "browser: resolve %s", u)
			}
			u = resolved
		}
		s.controlURL = u
		s.logger.InfoWithFields("Connecting to remote Chrome", map[string]interface{}{"url": u})
	} else {
		l := launcher.New().
			Headless(opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if opts.ChromePath != "" {
			l = l.Bin(opts.ChromePath)
		}
		if opts.UserDataDir != "" {
			l = l.UserDataDir(opts.UserDataDir)
		}
		if opts.NoSandbox {
			l = l.NoSandbox(true)
		}

		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, merry.Prependf(err, "browser: launch")
		}
		s.lnch = l
		s.controlURL = u
		s.logger.InfoWithFields("Launched local Chrome", map[string]interface{}{
			"headless": opts.Headless,
			"stealth":  opts.Stealth,
		})
	}

	b := rod.New().ControlURL(s.controlURL)
	if err := b.Connect(); err != nil {
		s.cleanupLauncher()
		return nil, merry.Prependf(err, "browser: connect")
	}
	s.browser = b
	return s, nil
}

// Browser returns the rod handle
func (s *Session) Browser() *rod.Browser {
	return s.browser
}

// ControlURL is the DevTools websocket address of the browser
func (s *Session) ControlURL() string {
	return s.controlURL
}

// NewPage opens a blank tab. Stealth tabs hide automation markers.
func (s *Session) NewPage(background, withStealth bool) (*rod.Page, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var (
		page *rod.Page
		err  error
	)
	if withStealth {
		page, err = stealth.Page(s.browser)
	} else {
		page, err = s.browser.Page(proto.TargetCreateTarget{URL: "about:blank", Background: background})
	}
	if err != nil {
		return nil, merry.Prependf(err, "browser: create tab")
	}
	return page, nil
}

// OpenPage opens a tab on pageURL and waits for it to load
func (s *Session) OpenPage(ctx context.Context, pageURL string) (*rod.Page, error) {
	page, err := s.NewPage(false, s.opts.Stealth)
	if err != nil {
		return nil, err
	}

	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		_ = page.Close()
		return nil, merry.Prependf(err, "browser: navigate %s", pageURL)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.logger.WithError(err).WithField("url", pageURL).Warn("Page load wait timed out")
	}
	return page, nil
}

// Close disconnects and stops a locally launched Chrome. Remote browsers
// are left running.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.lnch != nil && s.browser != nil {
		err = s.browser.Close()
	}
	s.cleanupLauncher()
	s.logger.Debug("Browser session closed")
	if err != nil {
		return merry.Prependf(err, "browser: close")
	}
	return nil
}

func (s *Session) cleanupLauncher() {
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
}

func (s *Session) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
