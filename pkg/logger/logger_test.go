package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hdexport/pkg/config"
)

func bufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).With().Timestamp().Logger()
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{name: "info level", cfg: &config.LoggingConfig{Level: "info"}},
		{name: "debug level without color", cfg: &config.LoggingConfig{Level: "debug", NoColor: true}},
		{name: "invalid level", cfg: &config.LoggingConfig{Level: "loud"}, wantErr: true},
		{name: "file output", cfg: &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "hdexport.log")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
			if tt.cfg.File != "" {
				assert.FileExists(t, tt.cfg.File)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestFieldsAreWritten(t *testing.T) {
	var buf bytes.Buffer
	log := bufferLogger(&buf)

	log.WithField("invoice", "0101234567/2").
		WithFields(map[string]interface{}{"attempt": 2, "rate_limited": true}).
		WithError(errors.New("HTTP 429: Too Many Requests")).
		Warn("retrying")

	out := buf.String()
	assert.Contains(t, out, "retrying")
	assert.Contains(t, out, `"invoice":"0101234567/2"`)
	assert.Contains(t, out, `"attempt":2`)
	assert.Contains(t, out, `"rate_limited":true`)
	assert.Contains(t, out, "HTTP 429")
}

func TestWithErrorNil(t *testing.T) {
	var buf bytes.Buffer
	log := bufferLogger(&buf)
	assert.Same(t, log, log.WithError(nil))
}

func TestDerivedLoggerDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer
	log := bufferLogger(&buf)

	_ = log.WithField("scoped", "yes")
	log.Info("parent")

	assert.NotContains(t, buf.String(), "scoped")
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	log := bufferLogger(&buf)

	log.InfoWithFields("all types", map[string]interface{}{
		"string":   "x",
		"int64":    int64(456),
		"float":    3.5,
		"time":     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 300 * time.Millisecond,
		"strings":  []string{"a", "b"},
		"ints":     []int{1, 2},
		"custom":   struct{ Name string }{Name: "n"},
	})

	out := buf.String()
	assert.Contains(t, out, `"int64":456`)
	assert.Contains(t, out, `"strings":["a","b"]`)
	assert.Contains(t, out, `"custom":{"Name":"n"}`)
}

func TestGlobalLogger(t *testing.T) {
	require.NoError(t, Initialize(&config.LoggingConfig{Level: "debug", NoColor: true}))
	assert.NotNil(t, GetLogger())

	Debug("debug message")
	Info("info message")
	WithField("key", "value").Info("with field")
	WithError(errors.New("boom")).Error("with error")
}

func TestTestLoggerCapturesDerivedLoggers(t *testing.T) {
	tl := NewTestLogger()

	scoped := tl.WithField("component", "downloader")
	scoped.WithError(errors.New("boom")).ErrorWithFields("failed", map[string]interface{}{"invoice": "x/1"})
	tl.Info("plain")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "ERROR", msgs[0].Level)
	assert.Equal(t, "downloader", msgs[0].Fields["component"])
	assert.Equal(t, "x/1", msgs[0].Fields["invoice"])
	assert.EqualError(t, msgs[0].Error, "boom")
	assert.Nil(t, msgs[1].Fields)

	assert.True(t, tl.HasError())
	assert.True(t, tl.HasMessage("plain"))
	assert.Contains(t, tl.String(), "[ERROR] failed")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestHelpers(t *testing.T) {
	tl := NewTestLogger()

	LogRateLimit(tl, "0101234567/2", 2000)
	LogBatchProgress(tl, 3, 4, 1)
	LogArtifact(tl, "0101234567/3", "Invoices/HoaDon_0101234567_3.xml", nil)
	LogRequest(tl, "GET", "https://example.test", 503, 12.5)

	msg, ok := tl.FindMessage("Rate limit reached, slowing down")
	require.True(t, ok)
	assert.Equal(t, int64(2000), msg.Fields["next_delay_ms"])

	msg, ok = tl.FindMessage("Batch progress")
	require.True(t, ok)
	assert.Equal(t, "75.0%", msg.Fields["percentage"])

	assert.True(t, tl.HasMessage("Invoice saved"))
	assert.Len(t, tl.GetMessagesByLevel("ERROR"), 1)
}
