package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fleettrack/internal/domain"
	"fleettrack/internal/service"
)

// TrackingHandler exposes the live recording path and the on-demand
// analytics over HTTP.
type TrackingHandler struct {
	recorder *service.Recorder
	trips    *service.TripService
	behavior *service.BehaviorService
}

func NewTrackingHandler(recorder *service.Recorder, trips *service.TripService, behavior *service.BehaviorService) *TrackingHandler {
	return &TrackingHandler{
		recorder: recorder,
		trips:    trips,
		behavior: behavior,
	}
}

type pointRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	SpeedKmh  float64  `json:"speedKmh"`
	Heading   float64  `json:"heading"`
	AltitudeM *float64 `json:"altitudeM,omitempty"`
	AccuracyM *float64 `json:"accuracyM,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

func (r *pointRequest) validate() error {
	if r.Latitude < -90 || r.Latitude > 90 {
		return errors.New("latitude must be between -90 and 90")
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return errors.New("longitude must be between -180 and 180")
	}
	if r.SpeedKmh < 0 {
		return errors.New("speedKmh must be non-negative")
	}
	if r.Timestamp <= 0 {
		return errors.New("timestamp must be a positive unix timestamp")
	}
	return nil
}

func (h *TrackingHandler) RecordPoint(w http.ResponseWriter, r *http.Request) {
	tenantID, vehicleID := r.PathValue("tenant"), r.PathValue("vehicle")

	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	point := &domain.TrackingPoint{
		TenantID:  tenantID,
		VehicleID: vehicleID,
		Lat:       req.Latitude,
		Lon:       req.Longitude,
		SpeedKmh:  req.SpeedKmh,
		Heading:   req.Heading,
		AltitudeM: req.AltitudeM,
		AccuracyM: req.AccuracyM,
		Timestamp: time.Unix(req.Timestamp, 0).UTC(),
	}

	stored, err := h.recorder.RecordTrackingPoint(r.Context(), point)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record point")
		return
	}

	respondJSON(w, http.StatusCreated, stored)
}

func (h *TrackingHandler) GetVehicleLocation(w http.ResponseWriter, r *http.Request) {
	tenantID, vehicleID := r.PathValue("tenant"), r.PathValue("vehicle")

	point, err := h.recorder.GetVehicleLocation(r.Context(), tenantID, vehicleID)
	if errors.Is(err, domain.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no location on record")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch location")
		return
	}

	respondJSON(w, http.StatusOK, point)
}

func (h *TrackingHandler) GetFleetLocations(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.recorder.GetFleetLocations(r.Context(), r.PathValue("tenant"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch fleet locations")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

func (h *TrackingHandler) GetVehicleRoute(w http.ResponseWriter, r *http.Request) {
	tenantID, vehicleID := r.PathValue("tenant"), r.PathValue("vehicle")

	start, end, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	route, err := h.trips.GetVehicleRoute(r.Context(), tenantID, vehicleID, start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reconstruct route")
		return
	}

	respondJSON(w, http.StatusOK, route)
}

type tripsResponse struct {
	Trips []domain.Trip `json:"trips"`
	Count int           `json:"count"`
}

func (h *TrackingHandler) GetVehicleTripHistory(w http.ResponseWriter, r *http.Request) {
	tenantID, vehicleID := r.PathValue("tenant"), r.PathValue("vehicle")

	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		d, err := strconv.Atoi(daysStr)
		if err != nil || d <= 0 {
			respondError(w, http.StatusBadRequest, "invalid days parameter")
			return
		}
		days = d
	}

	trips, err := h.trips.GetVehicleTripHistory(r.Context(), tenantID, vehicleID, days)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to build trip history")
		return
	}
	if trips == nil {
		trips = []domain.Trip{}
	}

	respondJSON(w, http.StatusOK, tripsResponse{Trips: trips, Count: len(trips)})
}

func (h *TrackingHandler) GetDriverBehavior(w http.ResponseWriter, r *http.Request) {
	tenantID, vehicleID := r.PathValue("tenant"), r.PathValue("vehicle")

	start, end, err := parseWindow(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.behavior.AnalyzeDriverBehavior(r.Context(), tenantID, vehicleID, start, end)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to analyze behavior")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func parseWindow(r *http.Request) (start, end time.Time, err error) {
	startUnix, err := strconv.ParseInt(r.URL.Query().Get("start"), 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid start parameter")
	}
	endUnix, err := strconv.ParseInt(r.URL.Query().Get("end"), 10, 64)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("invalid end parameter")
	}
	if endUnix < startUnix {
		return time.Time{}, time.Time{}, errors.New("end must not precede start")
	}
	return time.Unix(startUnix, 0).UTC(), time.Unix(endUnix, 0).UTC(), nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
