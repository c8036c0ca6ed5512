package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Object storage & saga errors
var (
	ErrUploadTooLarge       = errors.New("upload too large")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrStorageUnavailable   = errors.New("object storage unavailable")
	ErrAssetNotFound        = errors.New("asset not found")
	ErrPostDeleteFailed     = errors.New("post record delete failed")
)

func NewUploadTooLargeError(size, maxSize int64) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusRequestEntityTooLarge,
		err:        ErrUploadTooLarge,
		Details:    fmt.Sprintf("File is %d bytes, maximum allowed is %d bytes", size, maxSize),
		Field:      "file",
	}
}

func NewUnsupportedImageTypeError(contentType string) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusUnsupportedMediaType,
		err:        ErrUnsupportedImageType,
		Details:    fmt.Sprintf("Content type %s is not an accepted image type", contentType),
		Field:      "file",
	}
}

func NewStorageError(operation string, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrStorageUnavailable,
		Details:    fmt.Sprintf("Object storage %s failed", operation),
		Cause:      cause,
	}
}

// NewPostDeleteFailedError marks the fatal step of the delete saga. Assets that were
// already removed stay removed, so the details name how many are gone.
func NewPostDeleteFailedError(postID string, assetsDeleted int, cause error) *ApiErr {
	return &ApiErr{
		StatusCode: http.StatusBadGateway,
		err:        ErrPostDeleteFailed,
		Details:    fmt.Sprintf("post %s is still present, %d of its assets were already deleted", postID, assetsDeleted),
		Cause:      cause,
	}
}

func IsUploadTooLargeError(err error) bool {
	return errors.Is(err, ErrUploadTooLarge)
}

func IsUnsupportedImageTypeError(err error) bool {
	return errors.Is(err, ErrUnsupportedImageType)
}

func IsPostDeleteFailedError(err error) bool {
	return errors.Is(err, ErrPostDeleteFailed)
}
