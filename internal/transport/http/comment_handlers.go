package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/safetalk/safetalk-server/internal/service/comments"
)

// CommentHandlers provides HTTP handlers for comments.
type CommentHandlers struct {
	comments *comments.Service
	log      *zerolog.Logger
}

// NewCommentHandlers creates a new comment handlers instance.
func NewCommentHandlers(commentService *comments.Service, logger *zerolog.Logger) *CommentHandlers {
	return &CommentHandlers{comments: commentService, log: logger}
}

// CreateCommentRequest is the comment body.
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// CreateCommentResponse reports the stored comment's verdict.
type CreateCommentResponse struct {
	Msg             string `json:"msg"`
	CommentID       string `json:"comment_id"`
	IsCyberbullying bool   `json:"is_cyberbullying"`
}

// Create adds a comment to a post.
// POST /api/comment/:post_id
func (h *CommentHandlers) Create(c *gin.Context) {
	userID, username, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), userID, username, c.Param("post_id"), req.Content)
	if err != nil {
		switch {
		case errors.Is(err, comments.ErrBlocked):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "commenting disabled due to repeated abusive content"})
		case errors.Is(err, comments.ErrInvalidContent), errors.Is(err, comments.ErrInvalidPost):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to create comment")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to add comment"})
		}
		return
	}

	c.JSON(http.StatusCreated, CreateCommentResponse{
		Msg:             "Comment added",
		CommentID:       comment.ID,
		IsCyberbullying: comment.IsBullying,
	})
}
