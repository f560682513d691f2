package handlers

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/transitwire-systems/avl-stack/common/httputil"
	"github.com/transitwire-systems/avl-stack/common/logging"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
	"github.com/transitwire-systems/avl-stack/ingest/internal/metrics"
	"github.com/transitwire-systems/avl-stack/ingest/internal/service"
)

// healthSubscriptionID is reserved for infrastructure liveness checks and
// short-circuits to success without touching storage.
const healthSubscriptionID = "health"

// Request is the canonical internal request shape. Both trigger paths
// (gateway and internal) normalize into it at the boundary; nothing past the
// boundary branches on the source shape.
type Request struct {
	SubscriptionID  string
	APIKey          string
	Body            []byte
	ContentEncoding string

	// Authenticate is false for internal trigger paths, which are
	// pre-authorized by the surrounding infrastructure.
	Authenticate bool
}

// DataHandler serves producer feed submissions.
type DataHandler struct {
	service     *service.IngestService
	logger      *logging.Logger
	maxBodySize int64
}

// NewDataHandler constructs the handler.
func NewDataHandler(svc *service.IngestService, logger *logging.Logger, maxBodySize int64) *DataHandler {
	return &DataHandler{
		service:     svc,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// HandleData serves POST /data/{subscriptionId}?apiKey=... (gateway shape).
func (h *DataHandler) HandleData(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, true)
}

// HandleInternalData serves POST /internal/data/{subscriptionId}.
// API-key authentication is skipped; the internal path is pre-authorized.
func (h *DataHandler) HandleInternalData(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, false)
}

func (h *DataHandler) handle(w http.ResponseWriter, r *http.Request, authenticate bool) {
	req, ok := h.normalize(w, r, authenticate)
	if !ok {
		return
	}

	if req.SubscriptionID == healthSubscriptionID {
		httputil.WriteSuccess(w)
		return
	}

	ctx := r.Context()
	logger := h.logger.With(logging.SubscriptionID(req.SubscriptionID))

	body, ok := h.decodeBody(w, req)
	if !ok {
		return
	}

	_, err := h.service.Submit(ctx, req.SubscriptionID, req.APIKey, body, req.Authenticate)
	switch {
	case err == nil:
		httputil.WriteSuccess(w)

	case errors.Is(err, service.ErrUnauthorized):
		logger.WarnContext(ctx, "Unauthorized request", logging.Error(err))
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeUnauthorized).Inc()
		httputil.WriteUnauthorized(w)

	case errors.Is(err, subscriptions.ErrNotFound):
		logger.ErrorContext(ctx, "Subscription not found", logging.Error(err))
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		httputil.WriteNotFound(w, "Subscription not found")

	case errors.Is(err, service.ErrSubscriptionInactive):
		logger.ErrorContext(ctx, "Subscription is inactive, data will not be processed", logging.Error(err))
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		httputil.WriteNotFound(w, "Subscription is inactive")

	default:
		logger.ErrorContext(ctx, "There was a problem with the data endpoint", logging.Error(err))
		metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		httputil.WriteServerError(w)
	}
}

// normalize validates the request shape and produces the canonical Request.
// It writes the error response itself when validation fails.
func (h *DataHandler) normalize(w http.ResponseWriter, r *http.Request, authenticate bool) (Request, bool) {
	subscriptionID := r.PathValue("subscriptionId")
	if subscriptionID == "" {
		httputil.WriteValidationError(w, "subscriptionId is required")
		return Request{}, false
	}
	if len(subscriptionID) > 256 {
		httputil.WriteValidationError(w, "subscriptionId must be 1-256 characters")
		return Request{}, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.logger.WarnContext(r.Context(), "Request body exceeds the size limit", logging.Error(err))
			httputil.WritePayloadTooLarge(w)
			return Request{}, false
		}
		h.logger.WarnContext(r.Context(), "Failed to read request body", logging.Error(err))
		httputil.WriteValidationError(w, "Body is required")
		return Request{}, false
	}

	return Request{
		SubscriptionID:  subscriptionID,
		APIKey:          r.URL.Query().Get("apiKey"),
		Body:            body,
		ContentEncoding: strings.ToLower(r.Header.Get("Content-Encoding")),
		Authenticate:    authenticate,
	}, true
}

// decodeBody enforces body presence and decompresses gzip submissions
// (base64-encoded gzip per the feed contract).
func (h *DataHandler) decodeBody(w http.ResponseWriter, req Request) ([]byte, bool) {
	body := req.Body

	if req.ContentEncoding == "gzip" && len(body) > 0 {
		h.logger.Info("gzipped message provided, beginning unzipping",
			logging.SubscriptionID(req.SubscriptionID))

		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			httputil.WriteValidationError(w, "Body must be a string")
			return nil, false
		}

		zr, err := gzip.NewReader(bytes.NewReader(decoded))
		if err != nil {
			httputil.WriteValidationError(w, "Body must be a string")
			return nil, false
		}
		body, err = io.ReadAll(zr)
		if err != nil {
			httputil.WriteValidationError(w, "Body must be a string")
			return nil, false
		}
	}

	if len(body) == 0 {
		httputil.WriteValidationError(w, "Body is required")
		return nil, false
	}

	if !utf8.Valid(body) {
		httputil.WriteValidationError(w, "Body must be a string")
		return nil, false
	}

	return body, true
}

// Health handles GET /healthz.
func (h *DataHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}
