package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rpupo63/consulting-site-backend/editor"
	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rs/zerolog"
)

const maxEditorCommands = 200

type editorHandler struct {
	responder Responder
	logger    zerolog.Logger
}

func newEditorHandler() editorHandler {
	logger := handlerLogger("editorHandler")
	return editorHandler{responder: NewResponder(logger), logger: logger}
}

// applyCommands runs editor commands against a document and returns the result
// @Summary Apply editor commands
// @Description Commands that do not apply to the current selection are reported as not applied and change nothing
// @Tags Editor
// @Accept json
// @Produce json
// @Param request body EditorRequest true "Document and commands"
// @Success 200 {object} EditorResponse
// @Failure 400 {object} ErrorResponse
// @Router /editor/commands [post]
func (h editorHandler) applyCommands() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EditorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("editor", err))
			return
		}
		if len(req.Commands) > maxEditorCommands {
			h.responder.WriteError(w, errs.NewInvalidFieldError("commands", fmt.Sprintf("at most %d commands per request", maxEditorCommands)))
			return
		}

		changes := 0
		ed := editor.Load(req.Body, func(string) { changes++ })

		applied := make([]bool, len(req.Commands))
		for i, cmd := range req.Commands {
			ok, err := ed.Apply(cmd)
			if err != nil {
				h.responder.WriteError(w, errs.NewInvalidFieldError(fmt.Sprintf("commands[%d].name", i), err.Error()))
				return
			}
			applied[i] = ok
		}

		h.responder.WriteJSON(w, EditorResponse{Body: ed.HTML(), Applied: applied, Changes: changes})
	}
}
