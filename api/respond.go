package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rs/zerolog"
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.WriteStatusJSON(w, http.StatusOK, data)
}

func (r Responder) WriteStatusJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	// Marshal the data first to check size and handle errors
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	// Check if response is too large (e.g., > 10MB)
	const maxResponseSize = 10 * 1024 * 1024 // 10MB
	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large, truncating")

		truncatedJSON, _ := json.Marshal(ErrorResponse{
			Error:   "Response too large",
			Status:  "error",
			Details: "The requested data exceeds the maximum response size",
		})
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(truncatedJSON)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// errorResponse turns err into the client-facing body. Causes are logged but
// never sent, so transport errors from storage or the database stay server side.
func (r Responder) errorResponse(err error) (int, ErrorResponse) {
	var apiErr *errs.ApiErr
	if !errors.As(err, &apiErr) {
		apiErr = errs.NewInternalErrorWithCause("unexpected error", err)
		apiErr.Details = "An unexpected error occurred"
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Str("error", apiErr.GetFullError()).Int("status", apiErr.StatusCode).Msg("request failed")
	} else if apiErr.Cause != nil {
		r.logger.Debug().Str("error", apiErr.GetFullError()).Msg("request rejected")
	}

	return apiErr.StatusCode, ErrorResponse{
		Error:   apiErr.Error(),
		Status:  "error",
		Field:   apiErr.Field,
		Details: apiErr.Details,
	}
}

// databaseRetryAfter is sent with database timeouts, in seconds.
const databaseRetryAfter = "5"

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	if errs.IsDatabaseTimeoutError(err) {
		w.Header().Set("Retry-After", databaseRetryAfter)
	}
	status, body := r.errorResponse(err)
	r.WriteStatusJSON(w, status, body)
}

// WriteTimeoutError writes a standardized timeout error response
func (r Responder) WriteTimeoutError(w http.ResponseWriter, endpoint string) {
	r.WriteStatusJSON(w, http.StatusRequestTimeout, map[string]interface{}{
		"error":    "Request timeout",
		"message":  "The request took too long to process",
		"status":   "timeout",
		"endpoint": endpoint,
	})
}

// CheckContextTimeout reports whether the request is already done. The result
// the handler was about to write is discarded; it is only logged.
func (r Responder) CheckContextTimeout(w http.ResponseWriter, req *http.Request, result any) bool {
	select {
	case <-req.Context().Done():
		r.logger.Warn().
			Err(req.Context().Err()).
			Str("path", req.URL.Path).
			Interface("discardedResult", result).
			Msg("request finished before the result was ready")
		r.WriteTimeoutError(w, req.URL.Path)
		return true
	default:
		return false
	}
}
