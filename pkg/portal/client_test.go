package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hdexport/pkg/config"
	errs "hdexport/pkg/errors"
	"hdexport/pkg/invoice"
	"hdexport/pkg/logger"
)

var testID = invoice.Identifier{SellerTaxID: "0101234567", TemplateCode: "1", SeriesCode: "C24TAA", Number: "123"}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *logger.TestLogger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := logger.NewTestLogger()
	c := NewClient(Options{
		DetailURL:     srv.URL + "/query/invoices/detail",
		Timeout:       5 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, log)
	return c, log
}

func TestFetchDetailRequestShape(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nbmst":"0101234567","shdon":123,"xml":"<?xml version=\"1.0\"?><HDon/>"}`))
	})

	detail, err := c.FetchDetail(context.Background(), testID, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, invoice.KindXML, detail.Kind())

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/query/invoices/detail", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "0101234567", q.Get("nbmst"))
	assert.Equal(t, "C24TAA", q.Get("khhdon"))
	assert.Equal(t, "123", q.Get("shdon"))
	assert.Equal(t, "1", q.Get("khmshdon"))

	assert.Equal(t, "Bearer tok-123", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json, text/plain, */*", got.Header.Get("Accept"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, ActionHeader, got.Header.Get("action"))
	assert.Equal(t, EndpointHeader, got.Header.Get("end-point"))
}

func TestFetchDetailRetriesThenSucceeds(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"nbmst":"0101234567"}`))
	})

	detail, err := c.FetchDetail(context.Background(), testID, "tok")
	require.NoError(t, err)
	assert.Equal(t, invoice.KindJSON, detail.Kind())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDetailRateLimited(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchDetail(context.Background(), testID, "tok")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.True(t, errs.IsRateLimit(err))
	assert.Contains(t, err.Error(), "HTTP 429: Too Many Requests")
}

func TestFetchDetailParseError(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>login</html>`))
	})

	_, err := c.FetchDetail(context.Background(), testID, "tok")
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeParsing, apiErr.Type)
	assert.True(t, log.HasMessage("failed to parse invoice detail"))
}

func TestFetchDetailKeepsUnreadableFields(t *testing.T) {
	var calls int32
	body := `{"nbmst":"0101234567","tgtttbso":"n/a","xml":{"inner":"x"},"qrcode":123}`
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(body))
	})

	detail, err := c.FetchDetail(context.Background(), testID, "tok")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, invoice.KindJSON, detail.Kind())
	assert.JSONEq(t, body, string(detail.Raw))
	assert.Equal(t, invoice.Text("123"), detail.QRCode)
	assert.True(t, log.HasMessage("Invoice detail has unreadable print fields"))
}

func TestFetchDetailDoesNotLogToken(t *testing.T) {
	c, log := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.FetchDetail(context.Background(), testID, "eyJhbGciOiJIUzI1NiJ9.secret")
	require.NoError(t, err)
	assert.NotContains(t, log.String(), "eyJhbGciOiJIUzI1NiJ9.secret")
	assert.Contains(t, log.String(), "eyJhbGciOi...")
}

func TestFetchDetailCancelled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchDetail(ctx, testID, "tok")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4 raw"))
	})
	base := c.opts.DetailURL[:len(c.opts.DetailURL)-len("/query/invoices/detail")]

	data, err := c.Download(context.Background(), base+"/file.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 raw", string(data))

	_, err = c.Download(context.Background(), base+"/missing.pdf")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Download.RequestsPerMinute = 20

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, DetailURL, opts.DetailURL)
	assert.Equal(t, 3, opts.RetryAttempts)
	assert.Equal(t, 500*time.Millisecond, opts.RetryDelay)
	assert.NotNil(t, opts.Limiter)

	cfg.Download.RequestsPerMinute = 0
	assert.Nil(t, OptionsFromConfig(cfg).Limiter)
}

func TestDetailQueryURL(t *testing.T) {
	got, err := DetailQueryURL(DetailURL, testID)
	require.NoError(t, err)
	assert.Equal(t, DetailURL+"?khhdon=C24TAA&khmshdon=1&nbmst=0101234567&shdon=123", got)

	_, err = DetailQueryURL("://bad", testID)
	assert.Error(t, err)
}
