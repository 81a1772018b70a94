package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tasklog/core/internal/domain/entities"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

// UserContextKey is the echo context key holding the authenticated user id
const UserContextKey = "user"

// UserHandler handles user-related requests
type UserHandler struct {
	userService ports.UserService
	logger      *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService ports.UserService, logger *logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// ListUsers godoc
// @Summary List users
// @Tags users
// @Produce json
// @Success 200 {array} entities.User
// @Security BearerAuth
// @Router /users [get]
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		h.logger.Errorw("List users failed", "error", err)
		return mapError(err)
	}

	return c.JSON(http.StatusOK, users)
}

// GetCurrentUser handles getting current user info
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	userID := getUserIDFromContext(c)

	user, err := h.userService.GetUser(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, user)
}

// Utility functions and helper types

func getUserIDFromContext(c echo.Context) uuid.UUID {
	switch v := c.Get(UserContextKey).(type) {
	case uuid.UUID:
		return v
	case string:
		userID, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil
		}
		return userID
	default:
		return uuid.Nil
	}
}

func parseTaskID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid task ID")
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// mapError translates core errors into HTTP errors. Unknown errors pass
// through and end up as 500 in the server's error handler.
func mapError(err error) error {
	var verr *entities.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.Is(err, entities.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You do not have permission to access this task")
	case errors.Is(err, entities.ErrTimerAlreadyRunning),
		errors.Is(err, entities.ErrNoActiveTimer),
		errors.Is(err, entities.ErrInvalidDate),
		errors.Is(err, entities.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}

// Request/Response types

type IDResponse struct {
	ID int64 `json:"id"`
}

type DurationResponse struct {
	DurationMinutes int `json:"duration_minutes"`
}

type TotalResponse struct {
	TotalMinutes int `json:"total_minutes"`
}
