package printer

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
	"hdexport/pkg/storage"
)

var testID = invoice.Identifier{SellerTaxID: "0101234567", TemplateCode: "1", SeriesCode: "C24TAA", Number: "123"}

type fakeCapture struct {
	mu        sync.Mutex
	calls     []string
	paper     Paper
	pdf       []byte
	printErr  error
	detachErr error
}

func (c *fakeCapture) record(call string) {
	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

func (c *fakeCapture) EnablePage(ctx context.Context) error {
	c.record("enable")
	return nil
}

func (c *fakeCapture) PrintToPDF(ctx context.Context, paper Paper) ([]byte, error) {
	c.record("print")
	c.paper = paper
	return c.pdf, c.printErr
}

func (c *fakeCapture) Detach() error {
	c.record("detach")
	return c.detachErr
}

type fakeView struct {
	id         string
	url        string
	loadErr    error
	onNavigate func(url string)
	capture    *fakeCapture
	closed     bool
	closeErr   error
}

func (v *fakeView) ID() string { return v.id }

func (v *fakeView) Navigate(ctx context.Context, u string) error {
	v.url = u
	if v.onNavigate != nil {
		v.onNavigate(u)
	}
	return nil
}

func (v *fakeView) WaitLoad(ctx context.Context) error {
	if v.loadErr != nil {
		<-ctx.Done()
		return v.loadErr
	}
	return nil
}

func (v *fakeView) Attach(ctx context.Context) (Capture, error) {
	v.capture.record("attach")
	return v.capture, nil
}

func (v *fakeView) Close() error {
	v.closed = true
	return v.closeErr
}

type fakeHost struct {
	view       *fakeView
	background []bool
}

func (h *fakeHost) Spawn(ctx context.Context, background bool) (View, error) {
	h.background = append(h.background, background)
	return h.view, nil
}

// readyOnNavigate plays the print surface: it signals the op in the fragment
func readyOnNavigate(p **Printer) func(string) {
	return func(raw string) {
		u, err := url.Parse(raw)
		if err != nil {
			return
		}
		params, _ := url.ParseQuery(strings.SplitN(u.Fragment, "&", 2)[1])
		(*p).Registry().Signal(params.Get("op"))
	}
}

func newTestPrinter(t *testing.T, view *fakeView) (*Printer, *fakeHost, *storage.Manager, *logger.TestLogger) {
	t.Helper()
	dir := t.TempDir()
	sink, err := storage.NewManager(dir)
	require.NoError(t, err)

	host := &fakeHost{view: view}
	log := logger.NewTestLogger()
	p := New(host, sink, nil, Options{
		BaseURL:      "http://127.0.0.1:8931",
		LoadTimeout:  50 * time.Millisecond,
		ReadyTimeout: 50 * time.Millisecond,
	}, log)
	p.newID = func() string { return "op-1" }
	return p, host, sink, log
}

func TestPrintCapturesAndSaves(t *testing.T) {
	capture := &fakeCapture{pdf: []byte("%PDF-1.4 fake")}
	view := &fakeView{id: "T1", capture: capture}
	p, host, sink, log := newTestPrinter(t, view)
	view.onNavigate = readyOnNavigate(&p)

	path, err := p.Print(context.Background(), testID, &invoice.Detail{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(sink.GetOutputDir(), "HoaDon_0101234567_123_Print.pdf"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(data))

	assert.Equal(t, []bool{true}, host.background)
	assert.Equal(t, "http://127.0.0.1:8931/print/#print_invoice_0101234567_1_C24TAA_123&op=op-1&tabId=T1", view.url)
	assert.Equal(t, []string{"attach", "enable", "print", "detach"}, capture.calls)
	assert.Equal(t, A4, capture.paper)
	assert.True(t, view.closed)
	assert.False(t, log.HasMessage("Print view did not signal ready, capturing anyway"))

	assert.Zero(t, p.Store().Len())
	assert.Zero(t, p.Registry().Pending())
}

func TestPrintProceedsWhenReadyNeverArrives(t *testing.T) {
	capture := &fakeCapture{pdf: []byte("%PDF")}
	view := &fakeView{id: "T1", capture: capture}
	p, _, _, log := newTestPrinter(t, view)

	_, err := p.Print(context.Background(), testID, &invoice.Detail{})
	require.NoError(t, err)
	assert.True(t, log.HasMessage("Print view did not signal ready, capturing anyway"))
	assert.Contains(t, capture.calls, "print")
}

func TestPrintLoadTimeout(t *testing.T) {
	capture := &fakeCapture{}
	view := &fakeView{id: "T1", capture: capture, loadErr: context.DeadlineExceeded}
	p, _, sink, _ := newTestPrinter(t, view)

	_, err := p.Print(context.Background(), testID, &invoice.Detail{})
	assert.ErrorIs(t, err, ErrLoadTimeout)
	assert.Contains(t, err.Error(), "tab load timeout")
	assert.Empty(t, capture.calls)
	assert.True(t, view.closed)
	assert.Zero(t, sink.GetWrittenCount())
	assert.Zero(t, p.Registry().Pending())
}

func TestPrintCaptureErrorStillTearsDown(t *testing.T) {
	capture := &fakeCapture{printErr: errors.New("Printing failed"), detachErr: errors.New("detached already")}
	view := &fakeView{id: "T1", capture: capture, closeErr: errors.New("no tab with id")}
	p, _, _, log := newTestPrinter(t, view)
	view.onNavigate = readyOnNavigate(&p)

	_, err := p.Print(context.Background(), testID, &invoice.Detail{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Printing failed")

	assert.Equal(t, "detach", capture.calls[len(capture.calls)-1])
	assert.True(t, view.closed)
	assert.True(t, log.HasMessage("Failed to detach capture"))
	assert.True(t, log.HasMessage("Failed to close print view"))
}

func TestPrintValidationFailureIsItemError(t *testing.T) {
	capture := &fakeCapture{pdf: []byte("not a pdf")}
	view := &fakeView{id: "T1", capture: capture}
	p, _, sink, _ := newTestPrinter(t, view)
	view.onNavigate = readyOnNavigate(&p)
	p.SetValidator(func([]byte) (int, error) { return 0, errors.New("validate pdf: broken xref") })

	_, err := p.Print(context.Background(), testID, &invoice.Detail{})
	assert.ErrorContains(t, err, "broken xref")
	assert.Zero(t, sink.GetWrittenCount())
}

func TestOpenAndCloseView(t *testing.T) {
	view := &fakeView{id: "T9", capture: &fakeCapture{}}
	p, host, _, _ := newTestPrinter(t, view)

	key, err := p.Open(context.Background(), testID, &invoice.Detail{})
	require.NoError(t, err)
	assert.Equal(t, "print_invoice_0101234567_1_C24TAA_123", key)
	assert.Equal(t, []bool{false}, host.background)
	assert.Equal(t, "http://127.0.0.1:8931/print/#print_invoice_0101234567_1_C24TAA_123&tabId=T9", view.url)

	_, ok := p.Store().Get(key)
	assert.True(t, ok, "interactive entries stay until the view reads them")

	require.NoError(t, p.CloseView("T9"))
	assert.True(t, view.closed)
	assert.NoError(t, p.CloseView("T9"))
}

func TestPrintURLEscapesKey(t *testing.T) {
	got := PrintURL("http://127.0.0.1:1/", "print_invoice_a b&c", "", "")
	assert.Equal(t, "http://127.0.0.1:1/print/#print_invoice_a%20b%26c", got)
}

func TestValidatePDFRejectsGarbage(t *testing.T) {
	_, err := ValidatePDF(nil)
	assert.ErrorContains(t, err, "empty capture")

	_, err = ValidatePDF([]byte("<html>not a pdf</html>"))
	assert.Error(t, err)
}
