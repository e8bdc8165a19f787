package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"bomb-arena/internal/render"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

// Handler methods for routerHandlers.
// All reads go through the engine's published world snapshot, never the engine lock.

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	state := h.engine.WorldState()
	if state == nil {
		writeError(w, "Simulation not started", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, state)
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	state := h.engine.WorldState()
	if state == nil {
		writeError(w, "Simulation not started", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]interface{}{
		"tick":             state.Tick,
		"playerCount":      state.PlayerCount,
		"aliveCount":       state.AliveCount,
		"bombCount":        len(state.Bombs),
		"explosionCount":   len(state.Explosions),
		"totalKills":       state.TotalKills,
		"totalDetonations": state.TotalDetonations,
		"eventLog":         h.engine.GetEventLogStats(),
	})
}

func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	n := defaultLeaderboardSize
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = min(v, maxLeaderboardSize)
	}

	writeJSON(w, h.engine.Leaderboard(n))
}

func (h *routerHandlers) handleArenaImage(w http.ResponseWriter, r *http.Request) {
	state := h.engine.WorldState()
	if state == nil {
		writeError(w, "Simulation not started", http.StatusServiceUnavailable)
		return
	}

	size := render.DefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, "size must be an integer", http.StatusBadRequest)
			return
		}
		size = v
	}

	data, err := h.renderer.PNG(state, size)
	if err != nil {
		log.Printf("❌ Arena render failed: %v", err)
		writeError(w, "Render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
