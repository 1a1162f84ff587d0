package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hokkaidev/task-curation-api/internal/dto"
	apperrors "github.com/hokkaidev/task-curation-api/internal/errors"
	"github.com/hokkaidev/task-curation-api/internal/ordering"
)

// TaskHandler exposes the ordering API: callers reposition tasks and receive
// either the move result or a structured confirmation request.
type TaskHandler struct {
	ordering *ordering.Engine
}

// NewTaskHandler creates a TaskHandler
func NewTaskHandler(orderingEngine *ordering.Engine) *TaskHandler {
	return &TaskHandler{
		ordering: orderingEngine,
	}
}

// MoveTask moves a task to a new position within its sibling group.
// POST /api/tasks/:id/move
func (h *TaskHandler) MoveTask(c *gin.Context) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, "Invalid task id")
		return
	}

	var req dto.MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.ordering.MoveTo(taskID, req.Position, req.Confirmed)
	if err != nil {
		if errors.Is(err, ordering.ErrTaskNotFound) {
			apperrors.NotFound(c, "Task not found")
			return
		}
		apperrors.InternalError(c, "Failed to move task")
		return
	}

	if result.RequiresConfirmation {
		apperrors.ConfirmationRequired(c, result)
		return
	}

	c.JSON(http.StatusOK, result)
}
