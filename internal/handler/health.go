package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports whether the backing database is reachable.
// *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessProbe is implemented by ingestors that only become ready
// once their subscription is established.
type ReadinessProbe interface {
	IsReady() bool
}

type HealthHandler struct {
	db       Pinger
	ingestor ReadinessProbe // nil when MQTT ingestion is disabled
}

func NewHealthHandler(db Pinger, ingestor ReadinessProbe) *HealthHandler {
	return &HealthHandler{
		db:       db,
		ingestor: ingestor,
	}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type ReadyResponse struct {
	Ready         bool      `json:"ready"`
	Database      bool      `json:"database"`
	IngestorReady bool      `json:"ingestorReady"`
	ServerTime    time.Time `json:"serverTime"`
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbUp := h.db.Ping(ctx) == nil
	ingestorReady := h.ingestor == nil || h.ingestor.IsReady()

	ready := dbUp && ingestorReady
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ReadyResponse{
		Ready:         ready,
		Database:      dbUp,
		IngestorReady: ingestorReady,
		ServerTime:    time.Now(),
	})
}
