package curation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"go.uber.org/zap"
)

// AssignmentStore persists a curation result: today's curated assignments
// plus the daily curation record. Re-running the same day overwrites instead
// of duplicating.
type AssignmentStore struct {
	curation repository.CurationRepository
	clk      clock.Clock
	log      *zap.Logger
}

// NewAssignmentStore creates an AssignmentStore.
func NewAssignmentStore(curation repository.CurationRepository, clk clock.Clock, log *zap.Logger) *AssignmentStore {
	return &AssignmentStore{
		curation: curation,
		clk:      clk,
		log:      log.Named("store"),
	}
}

// Persist writes the curated assignments and the daily record for one
// (user, project) curation outcome.
func (s *AssignmentStore) Persist(user *models.User, project models.Project, result *Result) error {
	today := clock.Today(s.clk)
	taskIDs := mergeRecommendedIDs(result)

	inserted, err := s.curation.ReplaceAssignments(repository.ReplaceAssignmentsInput{
		UserID:             user.ID,
		ProjectID:          project.ID,
		WorkDate:           today,
		TaskIDs:            taskIDs,
		OrganizationScoped: user.IsOrganizationMember(),
	})
	if err != nil {
		return fmt.Errorf("failed to persist curated assignments: %w", err)
	}

	record, err := buildRecord(user.ID, project.ID, today, result)
	if err != nil {
		return err
	}
	if err := s.curation.UpsertCurationRecord(record); err != nil {
		return fmt.Errorf("failed to persist curation record: %w", err)
	}

	s.log.Info("curation persisted",
		zap.Uint64("user_id", user.ID),
		zap.Uint64("project_id", project.ID),
		zap.Int("recommended", len(taskIDs)),
		zap.Int("assigned", inserted),
		zap.Bool("ai_generated", result.AIGenerated))
	return nil
}

// mergeRecommendedIDs unions the recommended-task-id list with any priority
// or risk suggestion that carries a task id, deduplicated and in stable
// order: recommendations first, then suggestion-derived ids.
func mergeRecommendedIDs(result *Result) []uint64 {
	seen := make(map[uint64]struct{}, len(result.RecommendedTaskIDs))
	merged := make([]uint64, 0, len(result.RecommendedTaskIDs))
	for _, id := range result.RecommendedTaskIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, sug := range result.Suggestions {
		if sug.TaskID == nil {
			continue
		}
		if sug.Type != SuggestionTypePriority && sug.Type != SuggestionTypeRisk {
			continue
		}
		if _, ok := seen[*sug.TaskID]; ok {
			continue
		}
		seen[*sug.TaskID] = struct{}{}
		merged = append(merged, *sug.TaskID)
	}
	return merged
}

func buildRecord(userID, projectID uint64, today time.Time, result *Result) (*models.DailyCurationRecord, error) {
	suggestions, err := json.Marshal(result.Suggestions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggestions: %w", err)
	}
	focusAreas, err := json.Marshal(result.FocusAreas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode focus areas: %w", err)
	}
	recommended, err := json.Marshal(result.RecommendedTaskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommended tasks: %w", err)
	}

	return &models.DailyCurationRecord{
		UserID:             userID,
		ProjectID:          projectID,
		CurationDate:       today,
		Suggestions:        suggestions,
		Summary:            result.Summary,
		FocusAreas:         focusAreas,
		RecommendedTaskIDs: recommended,
		AIGenerated:        result.AIGenerated,
		AIModel:            result.AIModel,
	}, nil
}
