package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/transitwire-systems/avl-stack/common/middleware"
	"github.com/transitwire-systems/avl-stack/ingest/internal/handlers"
)

// NewRouter constructs a ServeMux with the feed endpoints registered.
func NewRouter(h *handlers.DataHandler) http.Handler {
	mux := http.NewServeMux()

	// Producer-facing endpoint, API-key authenticated. The bare paths are
	// registered too so a missing subscription id answers with the
	// contract's 400 instead of the mux's plain-text 404.
	mux.HandleFunc("POST /data/{subscriptionId}", h.HandleData)
	mux.HandleFunc("POST /data", h.HandleData)
	mux.HandleFunc("POST /data/{$}", h.HandleData)

	// Internal trigger path, pre-authorized upstream.
	mux.HandleFunc("POST /internal/data/{subscriptionId}", h.HandleInternalData)
	mux.HandleFunc("POST /internal/data", h.HandleInternalData)
	mux.HandleFunc("POST /internal/data/{$}", h.HandleInternalData)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", h.Health)

	return middleware.RequestID(mux)
}
