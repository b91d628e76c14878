package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"hdexport/pkg/bus"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
	"hdexport/pkg/printer"
)

const samplePayload = `{
	"nbmst": "0101234567",
	"khmshdon": 1,
	"khhdon": "C24TAA",
	"shdon": 123,
	"mhdon": "M-1",
	"tdlap": "2024-03-05T08:30:00",
	"nbten": "Công ty A",
	"nmten": "Công ty B",
	"tgtcthue": 1000000,
	"tgtthue": 100000,
	"tgtttbso": 1100000,
	"tgtttbchu": "Một triệu một trăm nghìn đồng",
	"hdhhdvu": [{"ten": "Dịch vụ <tư vấn>", "dvtinh": "Gói", "sluong": 2, "dgia": 500000, "thtien": 1000000, "tsuat": "10%"}],
	"thttltsuat": [{"tsuat": "10%", "thtien": 1000000, "tthue": 100000}]
}`

func newTestServer(t *testing.T) (*Server, *bus.Dispatcher, *printer.SessionStore, *httptest.Server) {
	t.Helper()
	log := logger.NewTestLogger()
	d := bus.NewDispatcher(log)
	store := printer.NewSessionStore()
	s := New(d, store, Options{Grace: 250 * time.Millisecond}, log)
	s.now = func() time.Time { return time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC) }
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, d, store, ts
}

func post(t *testing.T, ts *httptest.Server, body, viewID string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/runtime/message", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if viewID != "" {
		req.Header.Set(ViewHeader, viewID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestFormatAmount(t *testing.T) {
	p := message.NewPrinter(language.Vietnamese)

	assert.Equal(t, "1.100.000", formatAmount(p, decimal.NewFromInt(1100000)))
	assert.Equal(t, "1.234.567,5", formatAmount(p, decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "0", formatAmount(p, decimal.Zero))
}

func TestShellPage(t *testing.T) {
	_, _, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/print/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body := readBody(t, resp)
	assert.Regexp(t, `var graceMs =\s*250\s*;`, body)
	assert.Contains(t, body, "CHECK_READY")
	assert.Contains(t, body, "CLOSE_PRINT_TAB")
}

func TestRenderUnknownKey(t *testing.T) {
	_, _, _, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/print/render/print_invoice_missing")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRenderInvoice(t *testing.T) {
	_, _, store, ts := newTestServer(t)

	detail, err := invoice.Decode([]byte(samplePayload))
	require.NoError(t, err)
	id := detail.Identifier()
	store.Put(id.PrintKey(), printer.Entry{Invoice: id, Data: detail})

	resp, err := http.Get(ts.URL + "/print/render/" + id.PrintKey())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "Ký hiệu: C24TAA")
	assert.Contains(t, body, "Số: 123")
	assert.Contains(t, body, "1.100.000")
	assert.Contains(t, body, "500.000")
	assert.Contains(t, body, "Một triệu một trăm nghìn đồng")
	assert.Contains(t, body, `<span class="date-part">05</span>`)
	assert.Contains(t, body, `<span class="date-part">03</span>`)
	assert.Contains(t, body, "Ký ngày: 2024-03-05T08:30:00")
	assert.Contains(t, body, "Dịch vụ &lt;tư vấn&gt;")
	assert.Contains(t, body, `data-footer="06/03/2024 09:00:00"`)
}

func TestBuildPageFallsBackToIdentifier(t *testing.T) {
	id := invoice.Identifier{SellerTaxID: "0101", TemplateCode: "1", SeriesCode: "K24", Number: "9"}

	page := buildPage(printer.Entry{Invoice: id, Data: &invoice.Detail{}}, time.Now())

	assert.Equal(t, "1", page.TemplateCode)
	assert.Equal(t, "K24", page.SeriesCode)
	assert.Equal(t, "9", page.Number)
	assert.Empty(t, page.Date.Day)
	assert.Empty(t, page.QRURL)
}

func TestRuntimeMessageReply(t *testing.T) {
	_, d, _, ts := newTestServer(t)
	d.Handle(bus.GetAuthToken, func(ctx context.Context, msg bus.Message) (interface{}, error) {
		return bus.Token("abc"), nil
	})

	resp := post(t, ts, `{"action":"GET_AUTH_TOKEN"}`, "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var reply map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "abc", reply["token"])
}

func TestRuntimeMessageSender(t *testing.T) {
	_, d, _, ts := newTestServer(t)
	var got bus.Message
	d.Handle(bus.CheckReady, func(ctx context.Context, msg bus.Message) (interface{}, error) {
		got = msg
		return nil, nil
	})

	resp := post(t, ts, `{"action":"CHECK_READY","tabId":"op-1"}`, "view-7")

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "op-1", got.TabID.String())
	assert.Equal(t, "view-7", got.Sender)
}

func TestRuntimeMessageNumericTabID(t *testing.T) {
	_, d, _, ts := newTestServer(t)
	var got bus.Message
	d.Handle(bus.ClosePrintTab, func(ctx context.Context, msg bus.Message) (interface{}, error) {
		got = msg
		return nil, nil
	})

	resp := post(t, ts, `{"action":"CLOSE_PRINT_TAB","tabId":42}`, "")

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "42", got.TabID.String())
}

func TestRuntimeMessageErrors(t *testing.T) {
	_, d, _, ts := newTestServer(t)
	d.Handle(bus.DownloadBatch, func(ctx context.Context, msg bus.Message) (interface{}, error) {
		return nil, assert.AnError
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"action":`, http.StatusBadRequest},
		{"missing action", `{}`, http.StatusBadRequest},
		{"unknown action", `{"action":"NOPE"}`, http.StatusBadRequest},
		{"handler error", `{"action":"DOWNLOAD_BATCH"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts, tt.body, "")
			assert.Equal(t, tt.status, resp.StatusCode)

			var reply map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
			assert.NotEmpty(t, reply["error"])
		})
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := New(bus.NewDispatcher(logger.NewNopLogger()), printer.NewSessionStore(), Options{ListenAddr: "127.0.0.1:0"}, logger.NewNopLogger())

	base, err := s.Start()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(base, "http://127.0.0.1:"))
	assert.Equal(t, base, s.BaseURL())

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, s.Shutdown(ctx))
}
