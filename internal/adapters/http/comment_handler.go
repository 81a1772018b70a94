package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

// CommentHandler handles comment requests
type CommentHandler struct {
	commentService ports.CommentService
	logger         *logger.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService ports.CommentService, logger *logger.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// CreateComment godoc
// @Summary Comment on a task
// @Tags comments
// @Accept json
// @Produce json
// @Param request body ports.CreateCommentRequest true "Comment"
// @Success 201 {object} entities.Comment
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /comments [post]
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req ports.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.commentService.CreateComment(c.Request().Context(), req, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, comment)
}
