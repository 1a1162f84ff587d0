package curation

import (
	"encoding/json"
	"fmt"

	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"go.uber.org/zap"
)

const velocityWindowDays = 7

// projectWeight is the per-project slice of a daily weight metric.
type projectWeight struct {
	ProjectID     uint64  `json:"project_id"`
	ProjectName   string  `json:"project_name"`
	TaskCount     int     `json:"task_count"`
	StoryPoints   float64 `json:"story_points"`
	AveragePoints float64 `json:"average_points"`
}

// WeightCalculator computes and persists daily workload metrics per user,
// independent of the curation outcome.
type WeightCalculator struct {
	curation repository.CurationRepository
	clk      clock.Clock
	log      *zap.Logger
}

// NewWeightCalculator creates a WeightCalculator.
func NewWeightCalculator(curation repository.CurationRepository, clk clock.Clock, log *zap.Logger) *WeightCalculator {
	return &WeightCalculator{
		curation: curation,
		clk:      clk,
		log:      log.Named("weights"),
	}
}

// Compute aggregates every open task across the visibility-resolved project
// set and upserts the (user, date) metric row.
func (c *WeightCalculator) Compute(user *models.User, projects []ProjectTasks) (*models.DailyWeightMetric, error) {
	today := clock.Today(c.clk)

	metric := &models.DailyWeightMetric{
		UserID:     user.ID,
		MetricDate: today,
	}

	perProject := make([]projectWeight, 0, len(projects))
	sizeCounts := map[string]int{}
	pointedTasks := 0

	for _, pt := range projects {
		weight := projectWeight{
			ProjectID:   pt.Project.ID,
			ProjectName: pt.Project.Name,
		}
		for i := range pt.Tasks {
			task := pt.Tasks[i]
			if !task.IsOpen() {
				continue
			}
			metric.TotalTasks++
			weight.TaskCount++
			if task.IsSigned() {
				metric.SignedTasks++
			} else {
				metric.UnsignedTasks++
			}
			if task.CurrentStoryPoints != nil {
				metric.TotalStoryPoints += *task.CurrentStoryPoints
				weight.StoryPoints += *task.CurrentStoryPoints
				pointedTasks++
			}
			if task.Size != nil {
				sizeCounts[string(*task.Size)]++
			}
		}
		if weight.TaskCount > 0 {
			weight.AveragePoints = weight.StoryPoints / float64(weight.TaskCount)
		}
		perProject = append(perProject, weight)
	}

	if pointedTasks > 0 {
		metric.AveragePointsPerTask = metric.TotalStoryPoints / float64(pointedTasks)
	}

	trailing, err := c.curation.TrailingMetrics(user.ID, today, velocityWindowDays)
	if err != nil {
		c.log.Warn("trailing velocity lookup failed",
			zap.Uint64("user_id", user.ID), zap.Error(err))
	} else if len(trailing) > 0 {
		var total float64
		for _, m := range trailing {
			total += m.TotalStoryPoints
		}
		metric.VelocitySevenDay = total / float64(len(trailing))
	}

	projectJSON, err := json.Marshal(perProject)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project breakdown: %w", err)
	}
	sizeJSON, err := json.Marshal(sizeCounts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode size breakdown: %w", err)
	}
	metric.ProjectBreakdown = projectJSON
	metric.SizeBreakdown = sizeJSON

	if err := c.curation.UpsertWeightMetric(metric); err != nil {
		return nil, fmt.Errorf("failed to upsert weight metric: %w", err)
	}
	return metric, nil
}
