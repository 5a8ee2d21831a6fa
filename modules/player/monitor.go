package player

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/grafana/dskit/backoff"
	"github.com/grafana/dskit/services"

	"github.com/zachfi/radiogo/pkg/icy"
)

// monitor is the background worker that watches one stream for track titles.
// It is a one-shot service: once terminated it never restarts; a new playback
// gets a new monitor.
//
// The inband channel is tried first. When the stream stops advertising a
// metadata interval and a status URL hint was observed earlier, the monitor
// switches permanently to polling that URL. Without a hint there is nothing
// left to watch and the monitor stops silently.
type monitor struct {
	services.Service

	logger *slog.Logger
	cfg    *Config
	url    string
	client *http.Client // nil outside tests

	// onTitle must be cheap; it is called inline from the worker and its
	// return is never awaited.
	onTitle func(string)

	lastTitle string
	emitted   bool

	pollURL string
	polling bool
}

func newMonitor(cfg *Config, logger *slog.Logger, url string, client *http.Client, onTitle func(string)) *monitor {
	m := &monitor{
		logger:  logger.With("worker", "monitor", "url", url),
		cfg:     cfg,
		url:     url,
		client:  client,
		onTitle: onTitle,
	}
	m.Service = services.NewBasicService(nil, m.running, nil)
	return m
}

func (m *monitor) running(ctx context.Context) error {
	bo := backoff.New(ctx, backoff.Config{
		MinBackoff: m.cfg.ReconnectBackoff,
		MaxBackoff: m.cfg.ReconnectBackoff,
	})

	for ctx.Err() == nil {
		if m.polling {
			m.pollLoop(ctx)
			return nil
		}

		err := m.watchInband(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, icy.ErrNoInbandMetadata):
			if m.pollURL == "" {
				m.logger.Info("no inband metadata and no status endpoint advertised, giving up")
				return nil
			}
			m.logger.Info("switching to status polling", "status_url", m.pollURL)
			m.polling = true
		case errors.Is(err, icy.ErrStreamEnded):
			m.logger.Info("metadata stream ended")
			return nil
		default:
			m.logger.Warn("metadata connection lost, reconnecting", "err", err)
			metricMonitorReconnects.Inc()
			bo.Wait()
		}
	}

	return nil
}

// watchInband opens the stream and consumes metadata blocks until the
// connection fails or ctx is cancelled. The previously emitted title is kept
// across reconnects so a network blip does not clear the display.
func (m *monitor) watchInband(ctx context.Context) error {
	stream, err := icy.Open(ctx, m.client, m.url)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	m.logger.Debug("inband metadata channel open", "station", stream.Name, "bitrate", stream.Bitrate)

	for {
		md, err := stream.NextMetadata()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if md.StreamURL != "" {
			m.pollURL = md.StreamURL
		}
		m.emit(md.StreamTitle)
	}
}

// pollLoop polls the status endpoint until ctx is cancelled. Failures are
// logged and retried next interval; they never end the monitor.
func (m *monitor) pollLoop(ctx context.Context) {
	poller := icy.NewPoller(m.client, m.pollURL)
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		title, err := poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("status poll failed", "err", err)
		} else {
			m.emit(title)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// emit delivers a title, suppressing consecutive duplicates. The empty title
// ("no title") participates: transitions into and out of it are delivered,
// repeats are not.
func (m *monitor) emit(title string) {
	if m.emitted && title == m.lastTitle {
		return
	}
	m.lastTitle = title
	m.emitted = true
	metricTitleChanges.Inc()
	m.onTitle(title)
}
