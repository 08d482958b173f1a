package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/restock-notifier/internal/service"
)

// maxWebhookBytes caps the webhook body. Contentful entries are far smaller.
const maxWebhookBytes = 1 << 20

// Server holds all dependencies for the REST API handlers.
type Server struct {
	restockSvc  service.RestockService
	deliverySvc service.DeliveryService
	logger      *slog.Logger
}

// New creates a new API Server backed by the provided services.
// deliverySvc may be nil when the audit log is disabled.
func New(restockSvc service.RestockService, deliverySvc service.DeliveryService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		restockSvc:  restockSvc,
		deliverySvc: deliverySvc,
		logger:      logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Contentful webhook; every method is routed so non-POST gets a JSON 405.
	r.HandleFunc("/webhook", s.handleWebhook)

	// Delivery audit log
	r.Get("/deliveries", s.handleListDeliveries)
	r.Get("/batches", s.handleListBatches)

	r.Get("/version", s.handleVersion)
}

// WebhookHandler returns the webhook endpoint for mounting outside the API prefix.
func (s *Server) WebhookHandler() http.Handler {
	return http.HandlerFunc(s.handleWebhook)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
