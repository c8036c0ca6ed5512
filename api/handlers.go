package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(svc Services, startupTime time.Time) *routeHandlers {
	return &routeHandlers{
		blogPostHandler:    newBlogPostHandler(svc.Posts, svc.Lifecycle),
		deletionLogHandler: newDeletionLogHandler(svc.DeletionLogs),
		assetHandler:       newAssetHandler(svc.Uploader, svc.Assets, svc.Orphans),
		editorHandler:      newEditorHandler(),
		healthHandler:      newHealthHandler(startupTime),
	}
}

// blogPostIDParam reads and parses the {blogPostID} path parameter
func blogPostIDParam(r *http.Request) (uuid.UUID, error) {
	blogPostIDStr := chi.URLParam(r, "blogPostID")
	if blogPostIDStr == "" {
		return uuid.Nil, errs.NewBadRequestError("missing blogPostID")
	}
	blogPostID, err := uuid.Parse(blogPostIDStr)
	if err != nil {
		return uuid.Nil, errs.NewBadRequestError("invalid blogPostID")
	}
	return blogPostID, nil
}

type healthHandler struct {
	responder   Responder
	startupTime time.Time
}

func newHealthHandler(startupTime time.Time) healthHandler {
	logger := log.With().Str("handlerName", "healthHandler").Logger()
	if startupTime.IsZero() {
		startupTime = time.Now()
	}
	return healthHandler{responder: NewResponder(logger), startupTime: startupTime}
}

// getHealth reports liveness and uptime
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h healthHandler) getHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.responder.WriteJSON(w, map[string]string{
			"status":    "ok",
			"startedAt": h.startupTime.UTC().Format(time.RFC3339),
			"uptime":    time.Since(h.startupTime).Round(time.Second).String(),
		})
	}
}

func handlerLogger(name string) zerolog.Logger {
	return log.With().Str("handlerName", name).Logger()
}
