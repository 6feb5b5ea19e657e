package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/ingest"
	"github.com/matchpulse/predict-api/internal/models"
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{
		"postgres": h.pg != nil && h.pg.Ping(ctx) == nil,
		"redis":    h.redis != nil && h.redis.Ping(ctx).Err() == nil,
	}

	ready := true
	for _, ok := range checks {
		if !ok {
			ready = false
			break
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":      ready,
		"checks":     checks,
		"queueDepth": h.queue.QueueDepth(),
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// serviceError translates a service-layer error into the structured error
// body. Unclassified errors are logged and surfaced as a generic 500.
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ingest.ErrSyncInProgress) {
		h.jsonResponse(w, http.StatusConflict, models.ErrorPayload{
			Code:    "sync_in_progress",
			Message: err.Error(),
		})
		return
	}

	code := apperrors.Code(err)
	status, ok := statusByCode[code]
	if !ok || code == "internal" {
		h.logger.Errorw("request failed", "path", r.URL.Path, "error", err)
		h.jsonResponse(w, http.StatusInternalServerError, models.ErrorPayload{
			Code:    "internal",
			Message: "internal server error",
		})
		return
	}
	h.jsonResponse(w, status, models.ErrorPayload{Code: code, Message: err.Error()})
}

var statusByCode = map[string]int{
	"not_found":            http.StatusNotFound,
	"validation_error":     http.StatusBadRequest,
	"data_insufficient":    http.StatusUnprocessableEntity,
	"model_unavailable":    http.StatusServiceUnavailable,
	"upstream_unavailable": http.StatusBadGateway,
}

func (h *Handler) validationError(w http.ResponseWriter, message string) {
	h.jsonResponse(w, http.StatusBadRequest, models.ErrorPayload{
		Code:    "validation_error",
		Message: message,
	})
}

// decodeBody parses a JSON body into dst and runs struct validation.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.validationError(w, "invalid JSON body: "+err.Error())
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.validationError(w, err.Error())
		return false
	}
	return true
}

// queryInt parses an optional integer query parameter; found is false when
// the parameter is absent, err is non-nil when it is present but malformed.
func queryInt(r *http.Request, name string) (val int, found bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}
