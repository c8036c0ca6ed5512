package api

import (
	"encoding/json"
	"net/http"

	"github.com/rpupo63/consulting-site-backend/errs"
	"github.com/rpupo63/consulting-site-backend/models"
	"github.com/rpupo63/consulting-site-backend/services"
	"github.com/rs/zerolog"
)

type blogPostHandler struct {
	responder Responder
	logger    zerolog.Logger
	posts     PostReader
	lifecycle *services.PostLifecycle
}

func newBlogPostHandler(posts PostReader, lifecycle *services.PostLifecycle) blogPostHandler {
	logger := handlerLogger("blogPostHandler")

	return blogPostHandler{
		responder: NewResponder(logger),
		logger:    logger,
		posts:     posts,
		lifecycle: lifecycle,
	}
}

// getAllBlogPosts retrieves all blog posts
// @Summary Get all blog posts
// @Tags Blog Posts
// @Produce json
// @Success 200 {object} BlogPostCollection "List of blog posts, newest first"
// @Failure 500 {object} ErrorResponse "Internal Server Error - Error fetching blog posts"
// @Router /blog-posts [get]
func (h blogPostHandler) getAllBlogPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogPosts, err := h.posts.FindAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, errs.NewDatabaseError("find", "blog posts", err))
			return
		}
		if blogPosts == nil {
			blogPosts = []*models.BlogPost{}
		}

		h.responder.WriteJSON(w, BlogPostCollection{BlogPosts: blogPosts, Total: len(blogPosts)})
	}
}

// getBlogPost retrieves a specific blog post by ID
// @Summary Get blog post
// @Tags Blog Posts
// @Produce json
// @Param blogPostID path string true "Blog Post ID" format(uuid)
// @Success 200 {object} models.BlogPost
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blogPostID"
// @Failure 404 {object} ErrorResponse "Not Found - Blog post not found"
// @Router /blog-post/{blogPostID} [get]
func (h blogPostHandler) getBlogPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogPostID, err := blogPostIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		blogPost, err := h.posts.FindByID(r.Context(), blogPostID)
		if err != nil {
			h.responder.WriteError(w, errs.NewDatabaseError("find", "blog post", err))
			return
		}

		h.responder.WriteJSON(w, blogPost)
	}
}

// createBlogPost creates a new blog post owned by the authenticated user
// @Summary Create blog post
// @Description Summary, cover image and publishedAt are derived by the server
// @Tags Blog Posts
// @Accept json
// @Produce json
// @Param blogPost body services.SaveInput true "Blog post data"
// @Success 201 {object} models.BlogPost
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blog post data"
// @Failure 401 {object} ErrorResponse
// @Router /blog-post [post]
func (h blogPostHandler) createBlogPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := ctxGetUserID(r.Context())
		if err != nil {
			h.responder.WriteError(w, errs.Unauthorized)
			return
		}

		var input services.SaveInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("blog post", err))
			return
		}

		blogPost, err := h.lifecycle.Create(r.Context(), input, userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if h.responder.CheckContextTimeout(w, r, blogPost.ID) {
			return
		}

		h.responder.WriteStatusJSON(w, http.StatusCreated, blogPost)
	}
}

// updateBlogPost replaces an existing blog post
// @Summary Update blog post
// @Tags Blog Posts
// @Accept json
// @Produce json
// @Param blogPostID path string true "Blog Post ID" format(uuid)
// @Param blogPost body services.SaveInput true "Updated blog post data"
// @Success 200 {object} models.BlogPost
// @Failure 400 {object} ErrorResponse "Bad Request - Invalid blog post data"
// @Failure 404 {object} ErrorResponse "Not Found - Blog post not found"
// @Router /blog-post/{blogPostID} [put]
func (h blogPostHandler) updateBlogPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogPostID, err := blogPostIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		var input services.SaveInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			h.responder.WriteError(w, errs.NewMalformedPayloadError("blog post", err))
			return
		}

		blogPost, err := h.lifecycle.Update(r.Context(), blogPostID, input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if h.responder.CheckContextTimeout(w, r, blogPost.ID) {
			return
		}

		h.responder.WriteJSON(w, blogPost)
	}
}

// deleteBlogPost deletes a blog post and the images it references
// @Summary Delete blog post
// @Description Deletes every managed image the post references, then the post. The report lists each image's outcome.
// @Tags Blog Posts
// @Produce json
// @Param blogPostID path string true "Blog Post ID" format(uuid)
// @Success 200 {object} services.DeleteReport
// @Failure 404 {object} ErrorResponse "Not Found - Blog post not found"
// @Failure 502 {object} DeleteFailedResponse "Post record could not be deleted"
// @Router /blog-post/{blogPostID} [delete]
func (h blogPostHandler) deleteBlogPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blogPostID, err := blogPostIDParam(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		userID, _ := ctxGetUserID(r.Context())

		report, err := h.lifecycle.DeleteByID(r.Context(), blogPostID, userID)
		if report == nil {
			h.responder.WriteError(w, err)
			return
		}
		if h.responder.CheckContextTimeout(w, r, report) {
			return
		}
		if err != nil {
			status, body := h.responder.errorResponse(err)
			h.responder.WriteStatusJSON(w, status, DeleteFailedResponse{ErrorResponse: body, Report: report})
			return
		}

		h.responder.WriteJSON(w, report)
	}
}
