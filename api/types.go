package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/rpupo63/consulting-site-backend/editor"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/services"
	"github.com/rpupo63/consulting-site-backend/storage"
)

// PostReader serves the read-only post endpoints.
type PostReader interface {
	FindAll(ctx context.Context) ([]*models.BlogPost, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BlogPost, error)
}

type DeletionLogReader interface {
	FindRecent(ctx context.Context, limit int) ([]*models.PostDeletionLog, error)
}

type AssetLister interface {
	ListFiles(ctx context.Context, prefix string) ([]storage.Object, error)
}

// Services is everything the handlers need.
type Services struct {
	Posts        PostReader
	DeletionLogs DeletionLogReader
	Lifecycle    *services.PostLifecycle
	Uploader     *services.ImageUploader
	Assets       AssetLister
	Orphans      *services.OrphanScanner
}

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	blogPostHandler    blogPostHandler
	deletionLogHandler deletionLogHandler
	assetHandler       assetHandler
	editorHandler      editorHandler
	healthHandler      healthHandler
}

// ErrorResponse represents an error response from the API
// @Description Error response structure
type ErrorResponse struct {
	Error   string `json:"error" example:"Internal Server Error"`
	Status  string `json:"status" example:"error"`
	Field   string `json:"field,omitempty" example:"title"`
	Details string `json:"details,omitempty" example:"Additional error details"`
}

// BlogPostCollection is the list response for posts
type BlogPostCollection struct {
	BlogPosts []*models.BlogPost `json:"blogPosts"`
	Total     int                `json:"total"`
}

// DeleteFailedResponse is returned when the post record could not be deleted
// after some of its assets may already be gone.
type DeleteFailedResponse struct {
	ErrorResponse
	Report *services.DeleteReport `json:"report"`
}

type EditorRequest struct {
	Body     string           `json:"body"`
	Commands []editor.Command `json:"commands"`
}

type EditorResponse struct {
	Body    string `json:"body"`
	Applied []bool `json:"applied"`
	Changes int    `json:"changes"`
}

type OrphanScanResponse struct {
	Prefix  string           `json:"prefix"`
	Orphans []storage.Object `json:"orphans"`
	Total   int              `json:"total"`
}

type OrphanCleanResponse struct {
	Prefix   string                  `json:"prefix"`
	Outcomes []services.AssetOutcome `json:"outcomes"`
	Deleted  int                     `json:"deleted"`
	Failed   int                     `json:"failed"`
}
