package rest

import (
	"net/http"

	"github.com/goccy/go-json"
	"github.com/webitel/hose-relay/internal/service"
)

type StatsHandler struct {
	relayer service.Relayer
}

func NewStatsHandler(relayer service.Relayer) *StatsHandler {
	return &StatsHandler{relayer: relayer}
}

// Stats reports live sessions and their counters.
func (h *StatsHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.relayer.Stats())
}

// Health is a liveness probe.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}
