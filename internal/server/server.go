package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hdexport/pkg/bus"
	"hdexport/pkg/config"
	"hdexport/pkg/logger"
	"hdexport/pkg/printer"
)

// ViewHeader carries the id of the view posting a runtime message
const ViewHeader = "X-View-Id"

const maxMessageBytes = 1 << 20

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Options configures the print surface
type Options struct {
	ListenAddr string
	// Grace is the pause between fonts and images settling and CHECK_READY
	Grace time.Duration
	// Fallback is the fixed wait used when the page has no font loading API
	Fallback time.Duration
}

// OptionsFromConfig reads the print section
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ListenAddr: cfg.Print.ListenAddr,
		Grace:      cfg.Print.Grace,
		Fallback:   2 * time.Second,
	}
}

// Server is the loopback print surface and runtime message endpoint
type Server struct {
	dispatcher *bus.Dispatcher
	store      *printer.SessionStore
	opts       Options
	logger     logger.Logger
	router     chi.Router
	now        func() time.Time

	mu      sync.Mutex
	http    *http.Server
	baseURL string
}

// New creates a Server reading print entries from store and routing
// runtime messages through d
func New(d *bus.Dispatcher, store *printer.SessionStore, opts Options, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}
	if opts.Grace <= 0 {
		opts.Grace = 500 * time.Millisecond
	}
	if opts.Fallback <= 0 {
		opts.Fallback = 2 * time.Second
	}
	s := &Server{
		dispatcher: d,
		store:      store,
		opts:       opts,
		logger:     log.WithField("component", "server"),
		now:        time.Now,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/print", func(r chi.Router) {
		r.Get("/", s.handleShell)
		r.Get("/render/{key}", s.handleRender)
	})
	r.Post("/runtime/message", s.handleMessage)
	return r
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
// It returns the base URL print views should load from.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.http != nil {
		return s.baseURL, nil
	}

	ln, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return "", fmt.Errorf("listen %s: %w", s.opts.ListenAddr, err)
	}
	s.http = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.baseURL = "http://" + ln.Addr().String()

	srv := s.http
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("Print surface stopped")
		}
	}()

	logger.LogComponentStart(s.logger, "server", map[string]interface{}{
		"base_url": s.baseURL,
		"actions":  len(s.dispatcher.Actions()),
	})
	return s.baseURL, nil
}

// BaseURL returns the address set by Start
func (s *Server) BaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseURL
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	logger.LogComponentStop(s.logger, "server", "shutdown")
	return err
}

func (s *Server) handleShell(w http.ResponseWriter, r *http.Request) {
	data := map[string]interface{}{
		"GraceMs":    s.opts.Grace.Milliseconds(),
		"FallbackMs": s.opts.Fallback.Milliseconds(),
		"ViewHeader": ViewHeader,
	}
	s.render(w, "shell", data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, "bad key", http.StatusBadRequest)
		return
	}
	entry, ok := s.store.Get(key)
	if !ok {
		s.logger.WarnWithFields("Print entry not found", map[string]interface{}{"key": key})
		http.NotFound(w, r)
		return
	}
	s.render(w, "invoice", buildPage(entry, s.now()))
}

func (s *Server) render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.WithError(err).WarnWithFields("Template failed", map[string]interface{}{"template": name})
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	msg, err := bus.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	msg.Sender = r.Header.Get(ViewHeader)

	reply, err := s.dispatcher.Dispatch(r.Context(), msg)
	switch {
	case errors.Is(err, bus.ErrUnknownAction):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.logger.WithError(err).WarnWithFields("Message handler failed", map[string]interface{}{
			"action": string(msg.Action),
		})
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.LogRequest(s.logger, r.Method, r.URL.Path, status, float64(time.Since(start).Microseconds())/1000)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
