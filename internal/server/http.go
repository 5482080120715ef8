package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/muurk/glucometer/internal/logging"
	"github.com/muurk/glucometer/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"clients":   s.hub.Len(),
		"published": s.hub.Published(),
	})
}

func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rows, err := s.store.List(r.Context())
	if err != nil {
		logging.Error("Failed to list measurements", zap.Error(err))
		http.Error(w, "failed to list measurements", http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []store.Measurement{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write JSON response", zap.Error(err))
	}
}
