package player

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// stationStore remembers the last played station so toggle can resume it
// across restarts. The file format matches the original radiotray
// config.json for drop-in compatibility.
type stationStore struct {
	path string
}

type stationState struct {
	LastStation     string `json:"last_station"`
	LastStationName string `json:"last_station_name"`
}

func newStationStore(path string) *stationStore {
	return &stationStore{path: path}
}

// Load returns the last played station, or nil if none was ever saved.
func (s *stationStore) Load() (*Station, error) {
	if s.path == "" {
		return nil, nil
	}

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var st stationState
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if st.LastStation == "" {
		return nil, nil
	}

	return &Station{Name: st.LastStationName, URL: st.LastStation}, nil
}

// Save persists the station. A write failure is reported but playback is not
// affected by it.
func (s *stationStore) Save(station Station) error {
	if s.path == "" {
		return nil
	}

	b, err := json.Marshal(stationState{
		LastStation:     station.URL,
		LastStationName: station.Name,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}
