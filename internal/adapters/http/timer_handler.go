package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

// TimerHandler handles time tracking requests
type TimerHandler struct {
	timerService  ports.TimerService
	reportService ports.ReportService
	logger        *logger.Logger
}

// NewTimerHandler creates a new timer handler
func NewTimerHandler(timerService ports.TimerService, reportService ports.ReportService, logger *logger.Logger) *TimerHandler {
	return &TimerHandler{
		timerService:  timerService,
		reportService: reportService,
		logger:        logger,
	}
}

// StartTimer godoc
// @Summary Start the timer of a task
// @Tags timer
// @Produce json
// @Param id path int true "Task ID"
// @Success 201 {object} IDResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /timer/{id}/start [post]
func (h *TimerHandler) StartTimer(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	logID, err := h.timerService.StartTimer(c.Request().Context(), taskID, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, IDResponse{ID: logID})
}

// StopTimer godoc
// @Summary Stop the running timer of a task
// @Tags timer
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} DurationResponse
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /timer/{id}/stop [post]
func (h *TimerHandler) StopTimer(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	minutes, err := h.timerService.StopTimer(c.Request().Context(), taskID, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, DurationResponse{DurationMinutes: minutes})
}

// AddManualLog godoc
// @Summary Log time for a day by hand
// @Tags timer
// @Accept json
// @Produce json
// @Param request body ports.ManualLogRequest true "Date (YYYY-MM-DD) and minutes"
// @Success 201 {object} IDResponse
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /timer/manual [post]
func (h *TimerHandler) AddManualLog(c echo.Context) error {
	var req ports.ManualLogRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	logID, err := h.timerService.AddManualLog(c.Request().Context(), req, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, IDResponse{ID: logID})
}

// LastMonth godoc
// @Summary Minutes logged on the caller's tasks during the last month
// @Tags timer
// @Produce json
// @Success 200 {object} TotalResponse
// @Security BearerAuth
// @Router /timer/last-month [get]
func (h *TimerHandler) LastMonth(c echo.Context) error {
	total, err := h.reportService.TimeLoggedLastMonth(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, TotalResponse{TotalMinutes: total})
}
