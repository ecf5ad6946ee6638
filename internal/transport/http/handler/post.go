package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"devconnect/internal/app"
	"devconnect/internal/transport/http/middleware"
	"devconnect/internal/transport/http/response"
)

type PostHandler struct {
	postService *app.PostService
}

type CreatePostRequest struct {
	Text string `json:"text" binding:"required"`
}

type AddCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func NewPostHandler(postService *app.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// Create handles POST /api/posts.
func (h *PostHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "Text is required")
		return
	}

	post, err := h.postService.Create(c.Request.Context(), userID, req.Text)
	if err != nil {
		respondPostError(c, err)
		return
	}
	response.OK(c, post)
}

// List handles GET /api/posts, newest first.
func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.postService.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, posts)
}

// Get handles GET /api/posts/:post_id.
func (h *PostHandler) Get(c *gin.Context) {
	post, err := h.postService.Get(c.Request.Context(), c.Param("post_id"))
	if err != nil {
		respondPostError(c, err)
		return
	}
	response.OK(c, post)
}

// Delete handles DELETE /api/posts/:post_id.
func (h *PostHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	if err := h.postService.Delete(c.Request.Context(), c.Param("post_id"), userID); err != nil {
		respondPostError(c, err)
		return
	}
	response.OK(c, gin.H{"msg": "Post removed"})
}

// Like handles PUT /api/posts/like/:post_id and returns the like list.
func (h *PostHandler) Like(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	likes, err := h.postService.Like(c.Request.Context(), c.Param("post_id"), userID)
	if err != nil {
		respondPostError(c, err)
		return
	}
	response.OK(c, likes)
}

// Unlike handles PUT /api/posts/unlike/:post_id.
func (h *PostHandler) Unlike(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	likes, err := h.postService.Unlike(c.Request.Context(), c.Param("post_id"), userID)
	if err != nil {
		respondPostError(c, err)
		return
	}
	response.OK(c, likes)
}

// AddComment handles POST /api/posts/comments/:post_id.
func (h *PostHandler) AddComment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Validation(c, "Text is required")
		return
	}

	comments, err := h.postService.AddComment(c.Request.Context(), c.Param("post_id"), userID, req.Text)
	if err != nil {
		respondPostError(c, err)
		return
	}
	response.OK(c, comments)
}

// DeleteComment handles DELETE /api/posts/comments/:post_id/:comment_id.
func (h *PostHandler) DeleteComment(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Msg(c, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	comments, err := h.postService.DeleteComment(
		c.Request.Context(),
		c.Param("post_id"),
		c.Param("comment_id"),
		userID,
	)
	if err != nil {
		respondPostError(c, err)
		return
	}
	response.OK(c, comments)
}

func respondPostError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Validation(c, "Text is required")
	case errors.Is(err, app.ErrPostNotFound):
		response.Msg(c, http.StatusNotFound, "Post not found")
	case errors.Is(err, app.ErrAlreadyLiked):
		response.Msg(c, http.StatusBadRequest, "Post already liked!")
	case errors.Is(err, app.ErrNotLiked):
		response.Msg(c, http.StatusBadRequest, "Post has not yet been liked.")
	case errors.Is(err, app.ErrCommentNotFound):
		response.Msg(c, http.StatusNotFound, "Comment does not exist.")
	case errors.Is(err, app.ErrNotAuthorized):
		response.Msg(c, http.StatusUnauthorized, "User not authorized")
	case errors.Is(err, app.ErrUserNotFound):
		response.Msg(c, http.StatusNotFound, "User not found")
	case errors.Is(err, app.ErrConflict):
		response.Msg(c, http.StatusConflict, "Concurrent modification, please retry")
	default:
		response.InternalError(c)
	}
}
