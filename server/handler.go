package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cnosuke/multi-get/aggregator"
	"github.com/cnosuke/multi-get/headers"
	ierrors "github.com/cnosuke/multi-get/internal/errors"
	"github.com/cnosuke/multi-get/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Aggregator merges the GET responses of many URLs into one envelope.
type Aggregator interface {
	Aggregate(ctx context.Context, urls []string, headers map[string]string) (*types.ResponseEnvelope, error)
}

// RequestHandler - Handler for POST /api/request
type RequestHandler struct {
	agg          Aggregator
	defaults     headers.Defaults
	maxBodyBytes int64
}

// NewRequestHandler - Create a new RequestHandler
func NewRequestHandler(agg Aggregator, defaults headers.Defaults, maxBodyBytes int64) *RequestHandler {
	return &RequestHandler{
		agg:          agg,
		defaults:     defaults,
		maxBodyBytes: maxBodyBytes,
	}
}

func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body types.RequestSpec
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	hdrs := headers.Resolve(h.defaults, body.Headers, body.Cookie)

	zap.S().Debugw("executing request",
		"urls_count", len(body.URLs),
		"header_count", len(hdrs))

	envelope, err := h.agg.Aggregate(r.Context(), body.URLs, hdrs)
	if err != nil {
		switch {
		case ierrors.IsValidation(err):
			writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
		case r.Context().Err() != nil:
			// Client went away; nothing to write
			zap.S().Infow("request canceled by client", "urls_count", len(body.URLs), "error", err)
		default:
			zap.S().Errorw("failed to aggregate requests", "error", err)
			writeJSON(w, http.StatusInternalServerError, types.InternalErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, envelope)
}

func (h *RequestHandler) writeDecodeError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, types.ErrorResponse{
			Error: errors.Newf("request body exceeds %d bytes", maxBytesErr.Limit).Error(),
		})
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "urls" {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: aggregator.ErrNoURLs.Error()})
		return
	}

	writeJSON(w, http.StatusBadRequest, types.ErrorResponse{
		Error: errors.Wrap(err, "invalid request body").Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("failed to write JSON response", "status", status, "error", err)
	}
}
