package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/shaharia-lab/restock-notifier/internal/restock"
	"github.com/shaharia-lab/restock-notifier/internal/service"
)

// handleWebhook receives a Contentful entry webhook and blocks until the
// resulting dispatch batch has settled.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		res := service.ResultFor(restock.CodeMethodNotAllowed)
		writeJSON(w, res.Status, res)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		res := service.ResultFor(restock.CodeInvalidPayload)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			res.Status = http.StatusRequestEntityTooLarge
		}
		s.logger.Warn("failed to read webhook body", "error", err)
		writeJSON(w, res.Status, res)
		return
	}

	res := s.restockSvc.Handle(r.Context(), body)
	writeJSON(w, res.Status, res)
}
