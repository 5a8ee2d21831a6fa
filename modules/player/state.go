package player

// Station identifies a stream to play. It is held only for the duration of
// playback; bookmark management lives outside this module.
type Station struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// State is the playback state machine. It is owned by the Player and mutated
// only by its own methods; the monitor worker communicates via notifications
// instead of touching it.
type State int

const (
	StateIdle State = iota
	StateStarting
	StatePlaying
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePlaying:
		return "playing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is an immutable snapshot of the player, safe to hand across
// goroutines.
type Status struct {
	State   State  `json:"state"`
	Station string `json:"station,omitempty"`
	Title   string `json:"title,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
