package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tasklog/core/internal/infrastructure/logger"
	"github.com/tasklog/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService    ports.TaskService
	reportService  ports.ReportService
	commentService ports.CommentService
	timerService   ports.TimerService
	logger         *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService ports.TaskService, reportService ports.ReportService, commentService ports.CommentService, timerService ports.TimerService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		reportService:  reportService,
		commentService: commentService,
		timerService:   timerService,
		logger:         logger,
	}
}

// CreateTask godoc
// @Summary Create a new task
// @Description Create a task owned by the caller
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body ports.CreateTaskRequest true "Task data"
// @Success 201 {object} IDResponse
// @Failure 400 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req, userID)
	if err != nil {
		h.logger.Warnw("Create task failed", "error", err, "user_id", userID)
		return mapError(err)
	}

	return c.JSON(http.StatusCreated, IDResponse{ID: task.ID})
}

// GetTask godoc
// @Summary Get task by ID
// @Description Task details with total logged minutes
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} ports.TaskDetails
// @Failure 403 {object} ports.ErrorResponse
// @Failure 404 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	details, err := h.taskService.GetTask(c.Request().Context(), taskID, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, details)
}

// AssignTask godoc
// @Summary Assign a task
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body ports.AssignTaskRequest true "New owner"
// @Success 200 {object} ports.AssignResult
// @Security BearerAuth
// @Router /tasks/{id}/assign [post]
func (h *TaskHandler) AssignTask(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	var req ports.AssignTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.taskService.AssignTask(c.Request().Context(), taskID, req.UserID, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// CompleteTask godoc
// @Summary Mark a task as done
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} entities.Task
// @Security BearerAuth
// @Router /tasks/{id}/complete [patch]
func (h *TaskHandler) CompleteTask(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.CompleteTask(c.Request().Context(), taskID, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task with its comments and time logs
// @Tags tasks
// @Param id path int true "Task ID"
// @Success 204
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), taskID, getUserIDFromContext(c)); err != nil {
		return mapError(err)
	}

	return c.NoContent(http.StatusNoContent)
}

// MyTasks godoc
// @Summary Tasks owned by the caller
// @Tags tasks
// @Produce json
// @Success 200 {array} ports.TaskSummary
// @Security BearerAuth
// @Router /tasks/mine [get]
func (h *TaskHandler) MyTasks(c echo.Context) error {
	tasks, err := h.taskService.MyTasks(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// CreatedTasks godoc
// @Summary Tasks created by the caller
// @Tags tasks
// @Produce json
// @Success 200 {array} ports.TaskSummary
// @Security BearerAuth
// @Router /tasks/created [get]
func (h *TaskHandler) CreatedTasks(c echo.Context) error {
	tasks, err := h.taskService.CreatedTasks(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// CompletedTasks godoc
// @Summary Done tasks the caller created or owns
// @Tags tasks
// @Produce json
// @Success 200 {array} ports.TaskSummary
// @Security BearerAuth
// @Router /tasks/completed [get]
func (h *TaskHandler) CompletedTasks(c echo.Context) error {
	tasks, err := h.taskService.CompletedTasks(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// SearchTasks godoc
// @Summary Search the caller's tasks by title
// @Tags tasks
// @Produce json
// @Param title query string true "Title substring"
// @Success 200 {array} ports.TaskSummary
// @Security BearerAuth
// @Router /tasks/search [get]
func (h *TaskHandler) SearchTasks(c echo.Context) error {
	tasks, err := h.taskService.SearchTasks(c.Request().Context(), c.QueryParam("title"), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// TopTasks godoc
// @Summary Top tasks by time logged in the last month
// @Tags tasks
// @Produce json
// @Success 200 {array} ports.TaskSummary
// @Security BearerAuth
// @Router /tasks/top-20 [get]
func (h *TaskHandler) TopTasks(c echo.Context) error {
	tasks, err := h.reportService.TopTasksLastMonth(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// TaskComments godoc
// @Summary Comments of a task
// @Tags comments
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {array} entities.Comment
// @Security BearerAuth
// @Router /tasks/{id}/comments [get]
func (h *TaskHandler) TaskComments(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	comments, err := h.commentService.TaskComments(c.Request().Context(), taskID, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, comments)
}

// TimeLogs godoc
// @Summary Time logs of a task
// @Tags timer
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {array} entities.TimeLog
// @Security BearerAuth
// @Router /tasks/{id}/time-logs [get]
func (h *TaskHandler) TimeLogs(c echo.Context) error {
	taskID, err := parseTaskID(c)
	if err != nil {
		return err
	}

	logs, err := h.timerService.ListTimeLogs(c.Request().Context(), taskID, getUserIDFromContext(c))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, logs)
}
