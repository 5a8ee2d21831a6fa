package player

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *Config {
	cfg := Config{
		ReconnectBackoff: 10 * time.Millisecond,
		PollInterval:     20 * time.Millisecond,
	}.withDefaults()
	return &cfg
}

// titleRecorder collects delivered titles across goroutines.
type titleRecorder struct {
	mu     sync.Mutex
	titles []string
}

func (r *titleRecorder) record(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
}

func (r *titleRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...)
}

// icyRound frames one audio+metadata round the way servers put it on the wire.
func icyRound(metaint int, payload string) []byte {
	var buf bytes.Buffer
	buf.Write(bytes.Repeat([]byte{0xAA}, metaint))
	if payload == "" {
		buf.WriteByte(0)
		return buf.Bytes()
	}
	chunks := (len(payload) + 15) / 16
	buf.WriteByte(byte(chunks))
	block := make([]byte, chunks*16)
	copy(block, payload)
	buf.Write(block)
	return buf.Bytes()
}

func awaitTerminated(t *testing.T, m *monitor) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.AwaitTerminated(ctx))
}

func TestMonitorSuppressesDuplicateTitles(t *testing.T) {
	const metaint = 64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-metaint", strconv.Itoa(metaint))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='First';"))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='First';"))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='Second';"))
	}))
	defer srv.Close()

	rec := &titleRecorder{}
	m := newMonitor(testConfig(), testLogger(), srv.URL, nil, rec.record)
	require.NoError(t, m.StartAsync(context.Background()))

	// Clean EOF after the last round ends the monitor on its own.
	awaitTerminated(t, m)

	assert.Equal(t, []string{"First", "Second"}, rec.all())
}

func TestMonitorEmitsNoTitleTransitions(t *testing.T) {
	const metaint = 64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("icy-metaint", strconv.Itoa(metaint))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='Track';"))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='';"))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='-';"))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='Track';"))
	}))
	defer srv.Close()

	rec := &titleRecorder{}
	m := newMonitor(testConfig(), testLogger(), srv.URL, nil, rec.record)
	require.NoError(t, m.StartAsync(context.Background()))
	awaitTerminated(t, m)

	// One transition into "no title" (the placeholder repeat is suppressed)
	// and one back out.
	assert.Equal(t, []string{"Track", "", "Track"}, rec.all())
}

func TestMonitorStopsSilentlyWithoutMetadataOrHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &titleRecorder{}
	m := newMonitor(testConfig(), testLogger(), srv.URL, nil, rec.record)
	require.NoError(t, m.StartAsync(context.Background()))
	awaitTerminated(t, m)

	assert.Empty(t, rec.all())
}

func TestMonitorFallsBackToPolling(t *testing.T) {
	const metaint = 64

	pollSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"item":{"title":"Polled Track"}}}`))
	}))
	defer pollSrv.Close()

	var calls atomic.Int32
	streamSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) > 1 {
			// The reconnect no longer offers inband metadata.
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("icy-metaint", strconv.Itoa(metaint))
		_, _ = w.Write(icyRound(metaint, "StreamTitle='Inband Track';StreamUrl='"+pollSrv.URL+"';"))
		// die mid-audio so the failure is transient, not end-of-stream
		_, _ = w.Write(bytes.Repeat([]byte{0xAA}, metaint/2))
	}))
	defer streamSrv.Close()

	rec := &titleRecorder{}
	m := newMonitor(testConfig(), testLogger(), streamSrv.URL, nil, rec.record)
	require.NoError(t, m.StartAsync(context.Background()))
	defer func() {
		m.StopAsync()
		awaitTerminated(t, m)
	}()

	require.Eventually(t, func() bool {
		titles := rec.all()
		return len(titles) == 2 && titles[1] == "Polled Track"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"Inband Track", "Polled Track"}, rec.all())
}

func TestMonitorCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.ReconnectBackoff = 10 * time.Second

	rec := &titleRecorder{}
	m := newMonitor(cfg, testLogger(), srv.URL, nil, rec.record)
	require.NoError(t, m.StartAsync(context.Background()))

	// Give the worker time to fail its first connect and enter the backoff
	// sleep, then make sure cancellation does not wait the backoff out.
	time.Sleep(100 * time.Millisecond)
	m.StopAsync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.AwaitTerminated(ctx))

	assert.Empty(t, rec.all())
}
