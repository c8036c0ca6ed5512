package api

import (
	"net/http"
	"strconv"

	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rs/zerolog"
)

type deletionLogHandler struct {
	responder Responder
	logger    zerolog.Logger
	logs      DeletionLogReader
}

func newDeletionLogHandler(logs DeletionLogReader) deletionLogHandler {
	logger := handlerLogger("deletionLogHandler")
	return deletionLogHandler{responder: NewResponder(logger), logger: logger, logs: logs}
}

// getDeletionLogs lists recent post deletions with their reports
// @Summary List post deletions
// @Tags Blog Posts
// @Produce json
// @Param limit query int false "Maximum entries (default 100, max 500)"
// @Success 200 {array} models.PostDeletionLog
// @Router /blog-post-deletions [get]
func (h deletionLogHandler) getDeletionLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				h.responder.WriteError(w, errs.NewInvalidFieldError("limit", "must be a positive integer"))
				return
			}
			limit = parsed
		}

		entries, err := h.logs.FindRecent(r.Context(), limit)
		if err != nil {
			h.responder.WriteError(w, errs.NewDatabaseError("find", "post deletion logs", err))
			return
		}

		if entries == nil {
			entries = []*models.PostDeletionLog{}
		}
		h.responder.WriteJSON(w, entries)
	}
}
