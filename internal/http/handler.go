package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/davidbz/waypost/internal/domain"
	"github.com/davidbz/waypost/internal/observability"
)

// Handler handles HTTP requests.
type Handler struct {
	service *domain.GeocodingService
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(service *domain.GeocodingService) *Handler {
	return &Handler{
		service: service,
	}
}

// HandleGeocode processes forward geocoding requests.
func (h *Handler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := observability.WithOperation(r.Context(), "geocode")

	var req domain.GeocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	logger := observability.FromContext(ctx)
	logger.Info("geocode request received",
		zap.String("address", req.Address),
		zap.String("city", req.City),
	)

	response, err := h.service.Geocode(ctx, &req)
	if err != nil {
		logger.Error("geocode failed", zap.Error(err))
		writeError(w, err)
		return
	}

	logger.Info("geocode succeeded",
		zap.Float64("latitude", response.Latitude),
		zap.Float64("longitude", response.Longitude),
	)

	writeJSON(w, http.StatusOK, response)
}

// HandleReverseGeocode processes reverse geocoding requests.
func (h *Handler) HandleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := observability.WithOperation(r.Context(), "reverse_geocode")

	var req domain.ReverseGeocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	logger := observability.FromContext(ctx)
	logger.Info("reverse geocode request received",
		zap.Float64("latitude", req.Latitude),
		zap.Float64("longitude", req.Longitude),
	)

	response, err := h.service.ReverseGeocode(ctx, &req)
	if err != nil {
		logger.Error("reverse geocode failed", zap.Error(err))
		writeError(w, err)
		return
	}

	logger.Info("reverse geocode succeeded",
		zap.String("address", response.Address),
	)

	writeJSON(w, http.StatusOK, response)
}

// HandleHealth handles health check requests. The probe result is reported
// as a status code, never as an error.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.service.HealthCheck(ctx) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "geocoding",
		"uptime":  h.service.Uptime().Seconds(),
	})
}

// HandleCacheStats returns a read-only snapshot of the response cache.
func (h *Handler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, h.service.CacheStats())
}

// HandleRoot serves the service banner.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service": "waypost",
		"health":  "/health",
		"metrics": "/metrics",
	})
}

// errorResponse is the wire shape for failed requests.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps the error taxonomy to HTTP status codes: validation
// failures are client errors, provider failures are upstream errors.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var providerErr *domain.ProviderError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.As(err, &providerErr):
		writeJSON(w, http.StatusBadGateway, errorResponse{
			Error:   "provider_error",
			Message: err.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Status already written, nothing left to do.
		return
	}
}
