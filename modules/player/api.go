package player

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// RegisterRoutes attaches the control API to the server's router. This is
// the seat the tray menu of a desktop frontend would occupy: a thin external
// collaborator driving Play/Stop/Toggle and reading state.
func (p *Player) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/v1/play", p.handlePlay).Methods(http.MethodPost)
	r.HandleFunc("/v1/stop", p.handleStop).Methods(http.MethodPost)
	r.HandleFunc("/v1/toggle", p.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/v1/status", p.handleStatus).Methods(http.MethodGet)
}

func (p *Player) handlePlay(w http.ResponseWriter, r *http.Request) {
	var station Station
	if err := json.NewDecoder(r.Body).Decode(&station); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(station.URL) == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	p.Play(station)
	p.writeStatus(w)
}

func (p *Player) handleStop(w http.ResponseWriter, _ *http.Request) {
	p.Stop()
	p.writeStatus(w)
}

func (p *Player) handleToggle(w http.ResponseWriter, _ *http.Request) {
	p.Toggle()
	p.writeStatus(w)
}

func (p *Player) handleStatus(w http.ResponseWriter, _ *http.Request) {
	p.writeStatus(w)
}

type statusResponse struct {
	State   string `json:"state"`
	Station string `json:"station,omitempty"`
	Title   string `json:"title,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (p *Player) writeStatus(w http.ResponseWriter) {
	st := p.Status()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{
		State:   st.State.String(),
		Station: st.Station,
		Title:   st.Title,
		Reason:  st.Reason,
	}); err != nil {
		p.logger.Warn("failed to write status response", "err", err)
	}
}
