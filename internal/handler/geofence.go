package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"fleettrack/internal/domain"
)

type GeofenceStore interface {
	Create(ctx context.Context, gf *domain.Geofence) (*domain.Geofence, error)
	ByID(ctx context.Context, tenantID string, id uuid.UUID) (*domain.Geofence, error)
	ListActive(ctx context.Context, tenantID string) ([]domain.Geofence, error)
	Update(ctx context.Context, gf *domain.Geofence) error
	Deactivate(ctx context.Context, tenantID string, id uuid.UUID) error
}

type GeofenceHandler struct {
	store GeofenceStore
}

func NewGeofenceHandler(store GeofenceStore) *GeofenceHandler {
	return &GeofenceHandler{store: store}
}

type geofenceRequest struct {
	Name         *string         `json:"name,omitempty"`
	Shape        json.RawMessage `json:"shape,omitempty"`
	AlertOnEntry *bool           `json:"alertOnEntry,omitempty"`
	AlertOnExit  *bool           `json:"alertOnExit,omitempty"`
}

type geofenceResponse struct {
	ID           uuid.UUID       `json:"id"`
	TenantID     string          `json:"tenantId"`
	Name         string          `json:"name"`
	Shape        json.RawMessage `json:"shape"`
	AlertOnEntry bool            `json:"alertOnEntry"`
	AlertOnExit  bool            `json:"alertOnExit"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func toGeofenceResponse(gf *domain.Geofence) (*geofenceResponse, error) {
	shape, err := domain.EncodeShape(gf.Shape)
	if err != nil {
		return nil, err
	}
	return &geofenceResponse{
		ID:           gf.ID,
		TenantID:     gf.TenantID,
		Name:         gf.Name,
		Shape:        shape,
		AlertOnEntry: gf.AlertOnEntry,
		AlertOnExit:  gf.AlertOnExit,
		IsActive:     gf.IsActive,
		CreatedAt:    gf.CreatedAt,
		UpdatedAt:    gf.UpdatedAt,
	}, nil
}

func (h *GeofenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req geofenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == nil || req.Shape == nil {
		respondError(w, http.StatusBadRequest, "name and shape are required")
		return
	}

	shape, err := domain.DecodeShape(req.Shape)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	gf := &domain.Geofence{
		TenantID: r.PathValue("tenant"),
		Name:     *req.Name,
		Shape:    shape,
	}
	if req.AlertOnEntry != nil {
		gf.AlertOnEntry = *req.AlertOnEntry
	}
	if req.AlertOnExit != nil {
		gf.AlertOnExit = *req.AlertOnExit
	}

	stored, err := h.store.Create(r.Context(), gf)
	if err != nil {
		respondGeofenceError(w, err)
		return
	}

	resp, err := toGeofenceResponse(stored)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode geofence")
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

type geofenceListResponse struct {
	Geofences []*geofenceResponse `json:"geofences"`
	Count     int                 `json:"count"`
}

func (h *GeofenceHandler) List(w http.ResponseWriter, r *http.Request) {
	fences, err := h.store.ListActive(r.Context(), r.PathValue("tenant"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list geofences")
		return
	}

	resp := geofenceListResponse{Geofences: make([]*geofenceResponse, 0, len(fences))}
	for i := range fences {
		item, err := toGeofenceResponse(&fences[i])
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to encode geofence")
			return
		}
		resp.Geofences = append(resp.Geofences, item)
	}
	resp.Count = len(resp.Geofences)

	respondJSON(w, http.StatusOK, resp)
}

func (h *GeofenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}

	gf, err := h.store.ByID(r.Context(), r.PathValue("tenant"), id)
	if err != nil {
		respondGeofenceError(w, err)
		return
	}

	resp, err := toGeofenceResponse(gf)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode geofence")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Update applies a partial patch: only the provided fields change.
func (h *GeofenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}

	var req geofenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gf, err := h.store.ByID(r.Context(), r.PathValue("tenant"), id)
	if err != nil {
		respondGeofenceError(w, err)
		return
	}

	if req.Name != nil {
		gf.Name = *req.Name
	}
	if req.Shape != nil {
		shape, err := domain.DecodeShape(req.Shape)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		gf.Shape = shape
	}
	if req.AlertOnEntry != nil {
		gf.AlertOnEntry = *req.AlertOnEntry
	}
	if req.AlertOnExit != nil {
		gf.AlertOnExit = *req.AlertOnExit
	}

	if err := h.store.Update(r.Context(), gf); err != nil {
		respondGeofenceError(w, err)
		return
	}

	resp, err := toGeofenceResponse(gf)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to encode geofence")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *GeofenceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid geofence id")
		return
	}

	if err := h.store.Deactivate(r.Context(), r.PathValue("tenant"), id); err != nil {
		respondGeofenceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func respondGeofenceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidGeofence):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "geofence not found")
	default:
		respondError(w, http.StatusInternalServerError, "geofence operation failed")
	}
}
