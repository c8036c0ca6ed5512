package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rpupo63/consulting-site-backend/services"
	"github.com/rpupo63/consulting-site-backend/storage"
	"github.com/rs/zerolog"
)

// multipart overhead allowed on top of the image itself
const uploadFormSlack = 1 << 20

type assetHandler struct {
	responder Responder
	logger    zerolog.Logger
	uploader  *services.ImageUploader
	assets    AssetLister
	orphans   *services.OrphanScanner
}

func newAssetHandler(uploader *services.ImageUploader, assets AssetLister, orphans *services.OrphanScanner) assetHandler {
	logger := handlerLogger("assetHandler")
	return assetHandler{
		responder: NewResponder(logger),
		logger:    logger,
		uploader:  uploader,
		assets:    assets,
		orphans:   orphans,
	}
}

// uploadImage stores an editor image and optionally inserts it into a document
// @Summary Upload image
// @Tags Assets
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Param folder formData string true "Category folder, e.g. blog"
// @Param alt formData string false "Alt text"
// @Param body formData string false "Document to insert the image into"
// @Success 201 {object} services.UploadResult
// @Failure 413 {object} ErrorResponse
// @Failure 415 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /assets/images [post]
func (h assetHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := h.uploader.MaxBytes()
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+uploadFormSlack)
		if err := r.ParseMultipartForm(maxBytes + uploadFormSlack); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.responder.WriteError(w, errs.NewUploadTooLargeError(r.ContentLength, maxBytes))
				return
			}
			h.responder.WriteError(w, errs.NewMalformedPayloadError("multipart", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, _, err := r.FormFile("file")
		if err != nil {
			h.responder.WriteError(w, errs.NewMissingRequiredFieldError("file"))
			return
		}
		defer file.Close()

		// one byte past the limit is enough to know it is too large
		data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
		if err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("file", err))
			return
		}

		input := services.UploadInput{
			Folder: r.FormValue("folder"),
			Data:   data,
			Alt:    r.FormValue("alt"),
		}
		if values, ok := r.MultipartForm.Value["body"]; ok && len(values) > 0 {
			input.Body = &values[0]
		}

		result, err := h.uploader.Upload(r.Context(), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if h.responder.CheckContextTimeout(w, r, result.URL) {
			return
		}

		h.responder.WriteStatusJSON(w, http.StatusCreated, result)
	}
}

// listAssets lists stored files under a prefix
// @Summary List assets
// @Tags Assets
// @Produce json
// @Param prefix query string false "Path prefix, e.g. blog/"
// @Success 200 {array} storage.Object
// @Router /assets [get]
func (h assetHandler) listAssets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		objects, err := h.assets.ListFiles(r.Context(), r.URL.Query().Get("prefix"))
		if err != nil {
			h.responder.WriteError(w, errs.NewStorageError("list", err))
			return
		}
		if objects == nil {
			objects = []storage.Object{}
		}
		h.responder.WriteJSON(w, objects)
	}
}

// scanOrphans lists stored files that no post references
// @Summary Scan orphaned assets
// @Tags Assets
// @Produce json
// @Param prefix query string false "Path prefix"
// @Success 200 {object} OrphanScanResponse
// @Router /assets/orphans [get]
func (h assetHandler) scanOrphans() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		orphans, err := h.orphans.Scan(r.Context(), prefix)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, OrphanScanResponse{Prefix: prefix, Orphans: orphans, Total: len(orphans)})
	}
}

// cleanOrphans deletes stored files that no post references
// @Summary Delete orphaned assets
// @Tags Assets
// @Produce json
// @Param prefix query string false "Path prefix"
// @Success 200 {object} OrphanCleanResponse
// @Router /assets/orphans [delete]
func (h assetHandler) cleanOrphans() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		outcomes, err := h.orphans.Clean(r.Context(), prefix)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		response := OrphanCleanResponse{Prefix: prefix, Outcomes: outcomes}
		for _, o := range outcomes {
			if o.Status == services.AssetDeleted {
				response.Deleted++
			} else {
				response.Failed++
			}
		}
		if h.responder.CheckContextTimeout(w, r, response) {
			return
		}
		h.responder.WriteJSON(w, response)
	}
}
