package player

import (
	"flag"
	"runtime"
	"time"

	"github.com/zachfi/zkit/pkg/util"
)

// Timing guidance:
// - settle-delay: how long the external player gets before we check whether it
//   exited immediately (bad URL, missing codec). Too short misses fast exits.
// - reconnect-backoff: delay before reopening the metadata connection after a
//   network blip. The previous title is kept across reconnects.
// - monitor-join-timeout: how long Stop/Play wait for the monitor worker to
//   exit before abandoning it. Abandoned workers are harmless; their
//   notifications are discarded as stale.
const (
	defaultSettleDelay        = 700 * time.Millisecond
	defaultPreflightTimeout   = 5 * time.Second
	defaultReconnectBackoff   = 5 * time.Second
	defaultPollInterval       = 10 * time.Second
	defaultMonitorJoinTimeout = 2 * time.Second
)

type Config struct {
	PlayerPath         string        `yaml:"player-path,omitempty"`          // external audio player binary
	StateFile          string        `yaml:"state-file,omitempty"`           // where the last played station is remembered
	SettleDelay        time.Duration `yaml:"settle-delay,omitempty"`         // wait before probing the spawned player
	PreflightTimeout   time.Duration `yaml:"preflight-timeout,omitempty"`    // timeout for the reachability check
	ReconnectBackoff   time.Duration `yaml:"reconnect-backoff,omitempty"`    // delay before reopening the metadata connection
	PollInterval       time.Duration `yaml:"poll-interval,omitempty"`        // spacing between JSON status polls
	MonitorJoinTimeout time.Duration `yaml:"monitor-join-timeout,omitempty"` // bound on waiting for the monitor to exit
}

// defaultPlayerPath picks the command-line player customary on each OS. Any
// binary that accepts a stream URL as its only argument works.
func defaultPlayerPath() string {
	switch runtime.GOOS {
	case "windows":
		return "wmplayer.exe"
	case "darwin":
		return "afplay"
	default:
		return "mpv"
	}
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.PlayerPath, util.PrefixConfig(prefix, "player-path"), defaultPlayerPath(),
		"External audio player to spawn. It is given the stream URL as its only argument and treated as a black box.")
	f.StringVar(&cfg.StateFile, util.PrefixConfig(prefix, "state-file"), "",
		"File in which to remember the last played station for toggle. Empty disables persistence.")
	f.DurationVar(&cfg.SettleDelay, util.PrefixConfig(prefix, "settle-delay"), defaultSettleDelay,
		"How long to wait after spawning the player before checking that it is still alive.")
	f.DurationVar(&cfg.PreflightTimeout, util.PrefixConfig(prefix, "preflight-timeout"), defaultPreflightTimeout,
		"Timeout for the pre-flight reachability check on the stream URL.")
	f.DurationVar(&cfg.ReconnectBackoff, util.PrefixConfig(prefix, "reconnect-backoff"), defaultReconnectBackoff,
		"Delay before reopening the metadata connection after a transient failure.")
	f.DurationVar(&cfg.PollInterval, util.PrefixConfig(prefix, "poll-interval"), defaultPollInterval,
		"Interval between JSON status polls when a stream publishes titles out of band.")
	f.DurationVar(&cfg.MonitorJoinTimeout, util.PrefixConfig(prefix, "monitor-join-timeout"), defaultMonitorJoinTimeout,
		"Bound on waiting for the metadata monitor to exit during stop.")
}

// withDefaults fills zero values so a Player built from a bare Config (tests,
// yaml without flags) still gets sane timing.
func (cfg Config) withDefaults() Config {
	if cfg.PlayerPath == "" {
		cfg.PlayerPath = defaultPlayerPath()
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.PreflightTimeout == 0 {
		cfg.PreflightTimeout = defaultPreflightTimeout
	}
	if cfg.ReconnectBackoff == 0 {
		cfg.ReconnectBackoff = defaultReconnectBackoff
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MonitorJoinTimeout == 0 {
		cfg.MonitorJoinTimeout = defaultMonitorJoinTimeout
	}
	return cfg
}
