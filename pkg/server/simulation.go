package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/homewatts/homewatts/pkg/log"
	"github.com/homewatts/homewatts/pkg/simulation"
	"github.com/homewatts/homewatts/pkg/storage"
)

var errSimulationRunning = errors.New("simulation already running")

// simManager tracks at most one Simulator per user. Start and stop requests
// serialize on its mutex; the simulators own their tick goroutines.
type simManager struct {
	db storage.Database

	mu   sync.Mutex
	sims map[string]*simulation.Simulator
}

func newSimManager(db storage.Database) *simManager {
	return &simManager{
		db:   db,
		sims: make(map[string]*simulation.Simulator),
	}
}

// start creates and starts a simulator for the user. A simulator that is
// already running is an error; a stopped one is replaced.
func (m *simManager) start(ctx context.Context, userID string, cfg simulation.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sim, ok := m.sims[userID]; ok && sim.Running() {
		return errSimulationRunning
	}

	sim := simulation.New(userID, m.db, cfg)
	if err := sim.Start(ctx); err != nil {
		return err
	}
	m.sims[userID] = sim
	return nil
}

// stop tears down the user's simulator if one is running.
func (m *simManager) stop(userID string) bool {
	m.mu.Lock()
	sim, ok := m.sims[userID]
	if ok {
		delete(m.sims, userID)
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	sim.Stop()
	return true
}

// stopAll tears down every running simulator. Called on server shutdown.
func (m *simManager) stopAll() {
	m.mu.Lock()
	sims := m.sims
	m.sims = make(map[string]*simulation.Simulator)
	m.mu.Unlock()

	for _, sim := range sims {
		sim.Stop()
	}
}

func (s *Server) handleSimulationStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	var req struct {
		Mode simulation.Mode `json:"mode"`
	}
	if r.Body != nil {
		// an empty body means the default mode
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, "invalid request", http.StatusBadRequest)
			return
		}
	}

	var cfg simulation.Config
	switch req.Mode {
	case simulation.ModeInteractive:
		cfg = simulation.InteractiveConfig()
	case simulation.ModeBackground, "":
		cfg = simulation.BackgroundConfig()
	default:
		writeJSONError(w, "unknown simulation mode", http.StatusBadRequest)
		return
	}

	if err := s.sims.start(ctx, user.ID, cfg); err != nil {
		if errors.Is(err, errSimulationRunning) {
			writeJSONError(w, "simulation already running", http.StatusConflict)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "failed to start simulation", slog.Any("error", err))
		writeJSONError(w, "failed to start simulation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, struct {
		Running bool            `json:"running"`
		Mode    simulation.Mode `json:"mode"`
	}{Running: true, Mode: cfg.Mode})
}

func (s *Server) handleSimulationStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.getUser(r)
	if user.ID == "" {
		writeJSONError(w, "user id required", http.StatusBadRequest)
		return
	}

	stopped := s.sims.stop(user.ID)
	log.Ctx(ctx).InfoContext(ctx, "simulation stop requested", slog.Bool("wasRunning", stopped))

	writeJSON(w, struct {
		Running bool `json:"running"`
	}{Running: false})
}
