package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/curation"
	"github.com/hokkaidev/task-curation-api/internal/dto"
	apperrors "github.com/hokkaidev/task-curation-api/internal/errors"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"github.com/hokkaidev/task-curation-api/internal/utils"
	"gorm.io/gorm"
)

// CurationHandler exposes the curation pipeline's external surfaces: the
// on-demand run trigger and today's read endpoints.
type CurationHandler struct {
	users    repository.UserRepository
	curation repository.CurationRepository
	job      *curation.UserCurationJob
	clk      clock.Clock
}

// NewCurationHandler creates a CurationHandler
func NewCurationHandler(users repository.UserRepository, curationRepo repository.CurationRepository, job *curation.UserCurationJob, clk clock.Clock) *CurationHandler {
	return &CurationHandler{
		users:    users,
		curation: curationRepo,
		job:      job,
		clk:      clk,
	}
}

// RunCuration triggers a curation run for one user, optionally scoped to a
// single project.
// POST /api/curation/run
func (h *CurationHandler) RunCuration(c *gin.Context) {
	var req dto.RunCurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.users.FindByID(req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperrors.NotFound(c, "User not found")
			return
		}
		apperrors.InternalError(c, "Failed to load user")
		return
	}
	if !user.EligibleForCuration() {
		apperrors.BadRequest(c, "User is not eligible for curation")
		return
	}

	if req.ProjectID != nil {
		err = h.job.RunProject(c.Request.Context(), user, *req.ProjectID)
	} else {
		err = h.job.Run(c.Request.Context(), user)
	}
	if err != nil {
		apperrors.InternalError(c, "Curation run failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}

// GetCuratedTasks returns the user's curated work list for today.
// GET /api/users/:id/curated
func (h *CurationHandler) GetCuratedTasks(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, "Invalid user id")
		return
	}

	today := clock.Today(h.clk)
	assignments, err := h.curation.ListAssignments(userID, today)
	if err != nil {
		apperrors.InternalError(c, "Failed to load curated tasks")
		return
	}

	response := dto.CuratedListResponse{
		WorkDate:    today,
		Assignments: make([]dto.CuratedAssignmentDTO, 0, len(assignments)),
	}
	for _, a := range assignments {
		response.Assignments = append(response.Assignments, dto.NewCuratedAssignmentDTO(a))
	}

	c.JSON(http.StatusOK, response)
}

// GetCurationHistory returns the user's past curation records, newest first.
// GET /api/users/:id/curations
func (h *CurationHandler) GetCurationHistory(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, "Invalid user id")
		return
	}

	params := utils.GetPaginationParams(c)
	records, total, err := h.curation.ListCurationRecords(userID, params)
	if err != nil {
		apperrors.InternalError(c, "Failed to load curation history")
		return
	}

	response := dto.CurationHistoryResponse{
		Records: make([]dto.CurationRecordDTO, 0, len(records)),
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
		},
	}
	for _, r := range records {
		response.Records = append(response.Records, dto.NewCurationRecordDTO(r))
	}

	c.JSON(http.StatusOK, response)
}

// GetWeightMetric returns the user's weight metric for today.
// GET /api/users/:id/metrics
func (h *CurationHandler) GetWeightMetric(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, "Invalid user id")
		return
	}

	metric, err := h.curation.FindWeightMetric(userID, clock.Today(h.clk))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apperrors.NotFound(c, "No weight metric for today")
			return
		}
		apperrors.InternalError(c, "Failed to load weight metric")
		return
	}

	c.JSON(http.StatusOK, dto.NewWeightMetricDTO(*metric))
}
