// Package player owns the external audio player process and the single
// metadata monitor tied to it. It is the only component the rest of the
// application talks to about playback.
package player

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grafana/dskit/services"

	"github.com/zachfi/radiogo/pkg/icy"
)

var module = "player"

// Player is the playback controller: a state machine over the external
// player process and at most one live monitor worker. All public operations
// are safe for concurrent use; they serialize on one mutex and never block
// longer than the configured bounds.
type Player struct {
	services.Service
	cfg      *Config
	logger   *slog.Logger
	notifier Notifier
	store    *stationStore

	// httpClient overrides the stream/poll clients in tests.
	httpClient *http.Client

	mu      sync.Mutex
	state   State
	reason  string
	station *Station
	proc    *process

	// activeMon identifies the one worker whose notifications are delivered.
	// Cleared before stopping a worker so late emits are discarded as stale
	// without touching mu.
	activeMon atomic.Pointer[monitor]

	titleMu sync.Mutex
	title   string
}

// New creates and returns a new Player. A nil notifier gets a logging one.
func New(cfg Config, logger slog.Logger, notifier Notifier) (*Player, error) {
	cfg = cfg.withDefaults()

	p := &Player{
		cfg:    &cfg,
		logger: logger.With("module", module),
		state:  StateIdle,
		store:  newStationStore(cfg.StateFile),
	}
	if notifier == nil {
		notifier = &logNotifier{logger: p.logger}
	}
	p.notifier = notifier

	p.Service = services.NewBasicService(nil, p.running, p.stopping)

	return p, nil
}

func (p *Player) running(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (p *Player) stopping(_ error) error {
	p.logger.Info("stopping")
	p.Stop()
	return nil
}

// Play stops any current playback, then launches the external player for the
// station and starts a fresh monitor. Launch failure and an unreachable
// stream resolve to a failed state, never an error; the player stays usable.
func (p *Player) Play(station Station) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playLocked(station)
}

func (p *Player) playLocked(station Station) {
	p.stopLocked()

	p.station = &station
	p.setStateLocked(StateStarting, "")

	proc, err := startProcess(p.cfg.PlayerPath, station.URL)
	if err != nil {
		p.failLocked(fmt.Sprintf("failed to launch %s: %v", p.cfg.PlayerPath, err))
		return
	}

	// A bad URL or a missing codec makes the player exit almost at once;
	// give it a moment before deciding it survived.
	time.Sleep(p.cfg.SettleDelay)
	if !proc.alive() {
		p.failLocked("player exited immediately")
		return
	}

	if err := p.preflight(station.URL); err != nil {
		proc.terminate()
		p.failLocked(fmt.Sprintf("stream unreachable: %v", err))
		return
	}

	p.proc = proc
	p.startMonitorLocked(station)
	p.setStateLocked(StatePlaying, "")

	if err := p.store.Save(station); err != nil {
		p.logger.Warn("failed to persist last station", "err", err)
	}
}

// Stop terminates the player process, joins the monitor within the
// configured bound, and clears the retained title. Stopping while idle is a
// no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.state == StateIdle {
		return
	}

	p.stopMonitorLocked()

	if p.proc != nil {
		p.proc.terminate()
		p.proc = nil
	}

	p.titleMu.Lock()
	p.title = ""
	p.titleMu.Unlock()

	p.station = nil
	p.setStateLocked(StateIdle, "")
}

// Toggle stops when playing, otherwise resumes the last persisted station.
func (p *Player) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StatePlaying || p.state == StateStarting {
		p.stopLocked()
		return
	}

	station, err := p.store.Load()
	if err != nil {
		p.logger.Warn("failed to load last station", "err", err)
		return
	}
	if station == nil {
		p.logger.Info("nothing to play, no station was previously played")
		return
	}

	p.playLocked(*station)
}

// Status returns an immutable snapshot of the player.
func (p *Player) Status() Status {
	p.mu.Lock()
	st := Status{State: p.state, Reason: p.reason}
	if p.station != nil {
		st.Station = p.station.Name
	}
	p.mu.Unlock()

	p.titleMu.Lock()
	st.Title = p.title
	p.titleMu.Unlock()

	return st
}

// preflight is a quick reachability probe on the stream URL before
// committing to playback. Only the response headers are of interest.
func (p *Player) preflight(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PreflightTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Add("accept", "*/*")

	client := p.httpClient
	if client == nil {
		client = &http.Client{}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}

func (p *Player) startMonitorLocked(station Station) {
	// The external player resolves playlist URLs itself; the monitor needs
	// the direct stream URL.
	url := station.URL
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.PreflightTimeout)
	resolved, err := icy.ResolveStreamURL(ctx, p.httpClient, url)
	cancel()
	if err != nil {
		p.logger.Warn("failed to resolve stream URL, monitoring as-is", "err", err)
	} else {
		url = resolved
	}

	var mon *monitor
	mon = newMonitor(p.cfg, p.logger, url, p.httpClient, func(title string) {
		p.titleChanged(mon, title)
	})

	// Publish the identity before the worker runs so its first emit is
	// never mistaken for a stale one.
	p.activeMon.Store(mon)
	if err := mon.StartAsync(context.Background()); err != nil {
		p.logger.Warn("failed to start monitor", "err", err)
		p.activeMon.Store(nil)
	}
}

func (p *Player) stopMonitorLocked() {
	mon := p.activeMon.Swap(nil)
	if mon == nil {
		return
	}

	mon.StopAsync()
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.MonitorJoinTimeout)
	defer cancel()
	if err := mon.AwaitTerminated(ctx); err != nil {
		// Abandon it; its notifications are stale now and get discarded.
		p.logger.Warn("monitor did not exit in time", "err", err)
	}
}

// titleChanged is the single delivery path from the monitor worker. Workers
// that have been superseded are recognized by identity and ignored.
func (p *Player) titleChanged(from *monitor, title string) {
	if p.activeMon.Load() != from {
		return
	}

	p.titleMu.Lock()
	p.title = title
	p.titleMu.Unlock()

	p.notifier.OnTitleChanged(title)
}

func (p *Player) setStateLocked(state State, reason string) {
	p.state = state
	p.reason = reason
	metricPlaybackState.Set(float64(state))

	name := ""
	if p.station != nil {
		name = p.station.Name
	}
	p.notifier.OnStateChanged(state, name, reason)
}

func (p *Player) failLocked(reason string) {
	p.logger.Warn("playback failed", "reason", reason)
	metricPlaybackFailures.Inc()
	p.setStateLocked(StateFailed, reason)
}
