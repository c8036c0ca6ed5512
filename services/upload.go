package services

import (
	"context"
	"slices"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rpupo63/consulting-site-backend/editor"
	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rpupo63/consulting-site-backend/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var acceptedImageTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/avif",
}

// Uploader stores bytes in the managed bucket and returns the public URL.
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// UploadInput is one image upload. Folder must be one of the configured
// asset folders.
type UploadInput struct {
	Folder string
	Data   []byte
	Alt    string
	// Body, when set, is the document the image is inserted into.
	Body *string
}

// UploadResult describes the stored object. Body is the updated document when
// one was supplied.
type UploadResult struct {
	URL         string  `json:"url"`
	Path        string  `json:"path"`
	ContentType string  `json:"contentType"`
	Size        int64   `json:"size"`
	Body        *string `json:"body,omitempty"`
}

// ImageUploader stores editor images under <folder>/<generated-name> and
// optionally inserts the result into a document.
type ImageUploader struct {
	assets   Uploader
	folders  []string
	maxBytes int64
	logger   zerolog.Logger
}

func NewImageUploader(assets Uploader, folders []string, maxBytes int64) *ImageUploader {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &ImageUploader{
		assets:   assets,
		folders:  folders,
		maxBytes: maxBytes,
		logger:   log.With().Str("component", "ImageUploader").Logger(),
	}
}

func (u *ImageUploader) MaxBytes() int64 {
	return u.maxBytes
}

// Upload checks and stores in.Data. Any failure leaves in.Body untouched; the
// image is only inserted once the upload has succeeded.
func (u *ImageUploader) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if !storage.ValidFolder(in.Folder, u.folders) {
		return nil, errs.NewInvalidFieldError("folder", "must be one of the asset folders")
	}
	if len(in.Data) == 0 {
		return nil, errs.NewMissingRequiredFieldError("file")
	}
	size := int64(len(in.Data))
	if size > u.maxBytes {
		return nil, errs.NewUploadTooLargeError(size, u.maxBytes)
	}

	mt := mimetype.Detect(in.Data)
	contentType := mt.String()
	if !slices.ContainsFunc(acceptedImageTypes, mt.Is) {
		return nil, errs.NewUnsupportedImageTypeError(contentType)
	}

	path := storage.NewObjectPath(in.Folder, mt.Extension())
	url, err := u.assets.Upload(ctx, path, in.Data, contentType)
	if err != nil {
		u.logger.Warn().Err(err).Str("path", path).Msg("image upload failed")
		return nil, errs.NewStorageError("upload", err)
	}
	u.logger.Info().Str("path", path).Int64("size", size).Msg("image uploaded")

	result := &UploadResult{URL: url, Path: path, ContentType: contentType, Size: size}
	if in.Body != nil {
		ed := editor.Load(*in.Body, nil)
		ed.InsertImage(url, in.Alt)
		body := ed.HTML()
		result.Body = &body
	}
	return result, nil
}
