package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lei/build-notify/internal/delivery"
	"github.com/lei/build-notify/internal/models"
	"github.com/lei/build-notify/internal/service"
)

// defaultFormatter is used when an event names no formatter
const defaultFormatter = "default"

// Handlers contains HTTP handler functions
type Handlers struct {
	service *service.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *service.Service) *Handlers {
	return &Handlers{service: svc}
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ListFormatters handles GET /v1/formatters
func (h *Handlers) ListFormatters(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())

	infos := h.service.ListFormatters(r.Context())

	search := r.URL.Query().Get("search")
	kind := r.URL.Query().Get("kind")
	filtered := FilterFormatters(infos, search, kind)

	if logger != nil {
		logger.Debug("formatters listed", "count", len(filtered))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"formatters": filtered,
	})
}

// buildEventRequest is the payload for build event and preview endpoints
type buildEventRequest struct {
	Formatter string        `json:"formatter"`
	Build     *models.Build `json:"build"`
	Blamelist []string      `json:"blamelist"`
}

func decodeBuildEvent(r *http.Request) (*buildEventRequest, error) {
	var req buildEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Build == nil {
		return nil, errors.New("missing build record")
	}
	if req.Formatter == "" {
		req.Formatter = defaultFormatter
	}
	return &req, nil
}

// NotifyBuild handles POST /v1/events/build
func (h *Handlers) NotifyBuild(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())

	req, err := decodeBuildEvent(r)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid build event", "error", err)
		}
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if logger != nil {
		logger.Debug("build event received",
			"formatter", req.Formatter,
			"builder", req.Build.Builder.Name,
			"results", req.Build.Results.String())
	}

	notification, err := h.service.NotifyBuild(r.Context(), req.Formatter, req.Build, req.Blamelist)
	if err != nil {
		// Formatting succeeded but one or more channels failed
		if notification != nil {
			respondDeliveryFailure(w, r, notification, err)
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if logger != nil {
		logger.Info("build notification sent",
			"formatter", req.Formatter,
			"builder", req.Build.Builder.Name,
			"notification_id", notification.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"notification": notification,
	})
}

// NotifyMissingWorker handles POST /v1/events/worker-missing
func (h *Handlers) NotifyMissingWorker(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())

	var req struct {
		Formatter string         `json:"formatter"`
		Worker    *models.Worker `json:"worker"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.Warn("invalid request body", "error", err)
		}
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Worker == nil {
		respondError(w, r, http.StatusBadRequest, "missing worker record")
		return
	}
	if req.Formatter == "" {
		req.Formatter = "missing-worker"
	}

	notification, err := h.service.NotifyMissingWorker(r.Context(), req.Formatter, req.Worker)
	if err != nil {
		if notification != nil {
			respondDeliveryFailure(w, r, notification, err)
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if logger != nil {
		logger.Info("worker notification sent",
			"formatter", req.Formatter,
			"worker", req.Worker.Name,
			"notification_id", notification.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"notification": notification,
	})
}

// PreviewBuild handles POST /v1/preview/build - renders a message
// without delivering it
func (h *Handlers) PreviewBuild(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())

	req, err := decodeBuildEvent(r)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid preview request", "error", err)
		}
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.FormatBuild(r.Context(), req.Formatter, req.Build, req.Blamelist)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if logger != nil {
		logger.Debug("build message previewed",
			"formatter", req.Formatter,
			"builder", req.Build.Builder.Name)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": msg,
	})
}

// respondError writes a JSON error response with logging
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logger := GetLogger(r.Context())
	requestID := GetRequestID(r.Context())

	// Log the error with full context
	if logger != nil {
		logger.Error("returning error response",
			"status", status,
			"message", message,
			"request_id", requestID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message":    message,
			"code":       status,
			"request_id": requestID,
		},
	})
}

// respondDeliveryFailure reports a notification that was formatted but
// could not be delivered to every channel
func respondDeliveryFailure(w http.ResponseWriter, r *http.Request, n *delivery.Notification, err error) {
	logger := GetLogger(r.Context())
	requestID := GetRequestID(r.Context())

	if logger != nil {
		logger.Error("delivery failed",
			"notification_id", n.ID,
			"error", err,
			"request_id", requestID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusBadGateway)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"notification": n,
		"error": map[string]interface{}{
			"message":    "delivery failed on one or more channels",
			"code":       http.StatusBadGateway,
			"request_id": requestID,
		},
	})
}

// handleServiceError maps service errors to HTTP responses with detailed logging
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := GetLogger(r.Context())
	requestID := GetRequestID(r.Context())

	// Log original error with full details
	if logger != nil {
		logger.Error("service error occurred",
			"error", err.Error(),
			"error_type", fmt.Sprintf("%T", err),
			"request_id", requestID)
	}

	switch {
	case errors.Is(err, service.ErrFormatterNotFound):
		respondError(w, r, http.StatusNotFound, "formatter not found")
	case errors.Is(err, service.ErrWrongFormatterKind):
		respondError(w, r, http.StatusBadRequest, "formatter handles a different event kind")
	case errors.Is(err, delivery.ErrUnauthorized):
		respondError(w, r, http.StatusBadGateway, "channel authentication failed")
	case errors.Is(err, delivery.ErrChannelUnavailable):
		respondError(w, r, http.StatusBadGateway, "channel temporarily unavailable")
	default:
		var deliveryErr *delivery.DeliveryError
		if errors.As(err, &deliveryErr) {
			if logger != nil {
				logger.Error("delivery error details",
					"channel", deliveryErr.Channel,
					"channel_code", deliveryErr.Code,
					"channel_message", deliveryErr.Message)
			}
			respondError(w, r, http.StatusBadGateway, "delivery failed")
			return
		}

		// Formatting failures (undefined context keys and the like) are
		// formatter-logic bugs, surfaced loudly
		respondError(w, r, http.StatusInternalServerError, "message formatting failed")
	}
}
