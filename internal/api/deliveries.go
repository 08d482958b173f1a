package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/shaharia-lab/restock-notifier/internal/service"
	"github.com/shaharia-lab/restock-notifier/internal/storage"
)

const errDeliveryLogDisabled = "delivery log is disabled"

// handleListDeliveries returns recent per-recipient outcomes.
// Accepts optional ?limit=N, ?product_id= and ?state= query parameters.
func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	if s.deliverySvc == nil {
		writeError(w, http.StatusNotFound, errDeliveryLogDisabled)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	entries, err := s.deliverySvc.ListDeliveries(r.Context(), storage.DeliveryFilter{
		ProductID: q.Get("product_id"),
		State:     q.Get("state"),
		Limit:     limit,
	})
	if err != nil {
		s.writeServiceError(w, err, "failed to list deliveries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleListBatches returns recent dispatch batch summaries.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	if s.deliverySvc == nil {
		writeError(w, http.StatusNotFound, errDeliveryLogDisabled)
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	batches, err := s.deliverySvc.ListBatches(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, err, "failed to list batches")
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return 0, true
	}
	n, err := strconv.Atoi(l)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return 0, false
	}
	return n, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error, msg string) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, ve.Error())
		return
	}
	s.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}
