package curation

import (
	"fmt"
	"sort"

	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"go.uber.org/zap"
)

const historyWindowDays = 30

// HistoryAnalyzer summarizes a user's completion history into reusable
// performance statistics. Pure aggregation; it never fails the pipeline,
// errors degrade to zero-valued stats.
type HistoryAnalyzer struct {
	tasks    repository.TaskRepository
	curation repository.CurationRepository
	clk      clock.Clock
	log      *zap.Logger
}

// NewHistoryAnalyzer creates a HistoryAnalyzer.
func NewHistoryAnalyzer(tasks repository.TaskRepository, curation repository.CurationRepository, clk clock.Clock, log *zap.Logger) *HistoryAnalyzer {
	return &HistoryAnalyzer{
		tasks:    tasks,
		curation: curation,
		clk:      clk,
		log:      log.Named("history"),
	}
}

// Analyze computes the user's trailing 30-day statistics. On any error the
// zero-valued stats are returned ("no history"), never a failure.
func (a *HistoryAnalyzer) Analyze(user *models.User) UserStats {
	stats := UserStats{
		TaskTypeFrequency: map[string]int{},
		TopTaskTypes:      []string{},
	}

	since := a.clk.Now().AddDate(0, 0, -historyWindowDays)
	completed, err := a.tasks.CompletedByUserSince(user.ID, since)
	if err != nil {
		a.log.Warn("history lookup failed, treating as no history",
			zap.Uint64("user_id", user.ID), zap.Error(err))
		return stats
	}
	if len(completed) == 0 {
		return stats
	}

	stats.CompletedLast30Days = len(completed)

	taskIDs := make([]uint64, 0, len(completed))
	pointed := 0
	for _, t := range completed {
		taskIDs = append(taskIDs, t.ID)
		if t.CurrentStoryPoints != nil {
			stats.TotalStoryPoints += *t.CurrentStoryPoints
			pointed++
		}
		label := taskTypeLabel(t)
		stats.TaskTypeFrequency[label]++
	}
	if pointed > 0 {
		stats.AverageStoryPoints = stats.TotalStoryPoints / float64(pointed)
	}

	assignedAt, err := a.curation.EarliestAssignmentTimes(user.ID, taskIDs)
	if err != nil {
		a.log.Warn("assignment time lookup failed, skipping completion hours",
			zap.Uint64("user_id", user.ID), zap.Error(err))
	} else {
		var totalHours float64
		timed := 0
		for _, t := range completed {
			start, ok := assignedAt[t.ID]
			if !ok || t.CompletedAt == nil {
				continue
			}
			delta := t.CompletedAt.Sub(start)
			if delta < 0 {
				continue
			}
			totalHours += delta.Hours()
			timed++
		}
		if timed > 0 {
			stats.AverageCompletionHours = totalHours / float64(timed)
		}
	}

	stats.TopTaskTypes = topTaskTypes(stats.TaskTypeFrequency, 5)
	return stats
}

// taskTypeLabel synthesizes a label from project type, hierarchy position,
// size, and a points bucket, e.g. "iterative/subtask/m/medium".
func taskTypeLabel(t models.Task) string {
	projectType := string(t.Project.ProjectType)
	if projectType == "" {
		projectType = string(models.ProjectTypeFinite)
	}

	position := "task"
	if t.ParentID != nil {
		position = "subtask"
	}

	size := "unsized"
	if t.Size != nil {
		size = string(*t.Size)
	}

	return fmt.Sprintf("%s/%s/%s/%s", projectType, position, size, pointsBucket(t.CurrentStoryPoints))
}

// pointsBucket groups story points into small/medium/large.
func pointsBucket(points *float64) string {
	if points == nil {
		return "unpointed"
	}
	switch {
	case *points <= 2:
		return "small"
	case *points <= 5:
		return "medium"
	default:
		return "large"
	}
}

// topTaskTypes returns the n most frequent labels, ties broken
// lexicographically so the output is deterministic.
func topTaskTypes(freq map[string]int, n int) []string {
	labels := make([]string, 0, len(freq))
	for label := range freq {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if freq[labels[i]] != freq[labels[j]] {
			return freq[labels[i]] > freq[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if len(labels) > n {
		labels = labels[:n]
	}
	return labels
}
