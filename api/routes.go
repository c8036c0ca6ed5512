package api

import (
	"github.com/go-chi/chi/v5"
)

// setupPublicRoutes sets up the routes the public site reads from
func setupPublicRoutes(r chi.Router, handlers *routeHandlers) {
	r.Get("/healthz", handlers.healthHandler.getHealth())

	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)

		r.Get("/blog-posts", handlers.blogPostHandler.getAllBlogPosts())
		r.Get("/blog-post/{blogPostID}", handlers.blogPostHandler.getBlogPost())
	})
}

// setupAdminRoutes sets up all routes with authentication
func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(ColoredHTTPLoggingMiddleware)
		r.Use(authMiddleware.authenticate)

		// Blog Post Handler endpoints
		r.Post("/blog-post", handlers.blogPostHandler.createBlogPost())
		r.Put("/blog-post/{blogPostID}", handlers.blogPostHandler.updateBlogPost())
		r.Delete("/blog-post/{blogPostID}", handlers.blogPostHandler.deleteBlogPost())
		r.Get("/blog-post-deletions", handlers.deletionLogHandler.getDeletionLogs())

		// Asset Handler endpoints
		r.Post("/assets/images", handlers.assetHandler.uploadImage())
		r.Get("/assets", handlers.assetHandler.listAssets())
		r.Get("/assets/orphans", handlers.assetHandler.scanOrphans())
		r.Delete("/assets/orphans", handlers.assetHandler.cleanOrphans())

		r.Post("/editor/commands", handlers.editorHandler.applyCommands())
	})
}
