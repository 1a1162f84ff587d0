package dto

import (
	"encoding/json"
	"time"

	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/utils"
)

// RunCurationRequest triggers an on-demand curation run for one user,
// optionally scoped to a single project.
type RunCurationRequest struct {
	UserID    uint64  `json:"user_id" binding:"required"`
	ProjectID *uint64 `json:"project_id"`
}

// CuratedAssignmentDTO represents one entry on a user's work list
type CuratedAssignmentDTO struct {
	ID            uint64               `json:"id"`
	CuratableType models.CuratableType `json:"curatable_type"`
	CuratableID   uint64               `json:"curatable_id"`
	ProjectID     uint64               `json:"project_id"`
	WorkDate      time.Time            `json:"work_date"`
	InitialIndex  int                  `json:"initial_index"`
	CurrentIndex  int                  `json:"current_index"`
	MovedCount    int                  `json:"moved_count"`
}

// CuratedListResponse is the response for today's curated work list
type CuratedListResponse struct {
	WorkDate    time.Time              `json:"work_date"`
	Assignments []CuratedAssignmentDTO `json:"assignments"`
}

// NewCuratedAssignmentDTO converts a model to its API shape
func NewCuratedAssignmentDTO(a models.CuratedAssignment) CuratedAssignmentDTO {
	return CuratedAssignmentDTO{
		ID:            a.ID,
		CuratableType: a.CuratableType,
		CuratableID:   a.CuratableID,
		ProjectID:     a.ProjectID,
		WorkDate:      a.WorkDate,
		InitialIndex:  a.InitialIndex,
		CurrentIndex:  a.CurrentIndex,
		MovedCount:    a.MovedCount,
	}
}

// CurationRecordDTO represents one day's curation outcome for a project
type CurationRecordDTO struct {
	ProjectID          uint64          `json:"project_id"`
	CurationDate       time.Time       `json:"curation_date"`
	Suggestions        json.RawMessage `json:"suggestions"`
	Summary            string          `json:"summary"`
	FocusAreas         json.RawMessage `json:"focus_areas"`
	RecommendedTaskIDs json.RawMessage `json:"recommended_task_ids"`
	AIGenerated        bool            `json:"ai_generated"`
	AIModel            string          `json:"ai_model,omitempty"`
}

// NewCurationRecordDTO converts a model to its API shape
func NewCurationRecordDTO(r models.DailyCurationRecord) CurationRecordDTO {
	return CurationRecordDTO{
		ProjectID:          r.ProjectID,
		CurationDate:       r.CurationDate,
		Suggestions:        json.RawMessage(r.Suggestions),
		Summary:            r.Summary,
		FocusAreas:         json.RawMessage(r.FocusAreas),
		RecommendedTaskIDs: json.RawMessage(r.RecommendedTaskIDs),
		AIGenerated:        r.AIGenerated,
		AIModel:            r.AIModel,
	}
}

// CurationHistoryResponse is the paginated curation record listing
type CurationHistoryResponse struct {
	Records    []CurationRecordDTO      `json:"records"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// WeightMetricDTO represents a daily weight metric in API responses
type WeightMetricDTO struct {
	MetricDate           time.Time       `json:"metric_date"`
	TotalTasks           int             `json:"total_tasks"`
	SignedTasks          int             `json:"signed_tasks"`
	UnsignedTasks        int             `json:"unsigned_tasks"`
	TotalStoryPoints     float64         `json:"total_story_points"`
	AveragePointsPerTask float64         `json:"average_points_per_task"`
	VelocitySevenDay     float64         `json:"velocity_seven_day"`
	ProjectBreakdown     json.RawMessage `json:"project_breakdown"`
	SizeBreakdown        json.RawMessage `json:"size_breakdown"`
}

// NewWeightMetricDTO converts a model to its API shape
func NewWeightMetricDTO(m models.DailyWeightMetric) WeightMetricDTO {
	return WeightMetricDTO{
		MetricDate:           m.MetricDate,
		TotalTasks:           m.TotalTasks,
		SignedTasks:          m.SignedTasks,
		UnsignedTasks:        m.UnsignedTasks,
		TotalStoryPoints:     m.TotalStoryPoints,
		AveragePointsPerTask: m.AveragePointsPerTask,
		VelocitySevenDay:     m.VelocitySevenDay,
		ProjectBreakdown:     json.RawMessage(m.ProjectBreakdown),
		SizeBreakdown:        json.RawMessage(m.SizeBreakdown),
	}
}
