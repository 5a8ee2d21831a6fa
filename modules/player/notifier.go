package player

import "log/slog"

// Notifier receives playback events. Implementations must be cheap: the
// player calls them inline from its single delivery path and never awaits a
// response. A UI is expected to post onto its own event loop.
type Notifier interface {
	// OnStateChanged fires on every state transition. reason is non-empty
	// only for StateFailed.
	OnStateChanged(state State, station string, reason string)

	// OnTitleChanged fires when the observed track title changes, including
	// transitions to an empty ("no title") value. Consecutive duplicates are
	// suppressed before delivery.
	OnTitleChanged(title string)
}

// logNotifier is the default sink when no UI is attached.
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) OnStateChanged(state State, station string, reason string) {
	if reason != "" {
		n.logger.Warn("playback state changed", "state", state.String(), "station", station, "reason", reason)
		return
	}
	n.logger.Info("playback state changed", "state", state.String(), "station", station)
}

func (n *logNotifier) OnTitleChanged(title string) {
	if title == "" {
		n.logger.Info("no title")
		return
	}
	n.logger.Info("now playing", "title", title)
}
