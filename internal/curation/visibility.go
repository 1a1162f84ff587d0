package curation

import (
	"fmt"

	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"go.uber.org/zap"
)

// VisibilityResolver computes which projects and open tasks a user may be
// curated into. Organization members see a shared pool: tasks any user
// already claimed today are excluded. Individuals see all their open tasks.
type VisibilityResolver struct {
	projects repository.ProjectRepository
	curation repository.CurationRepository
	clk      clock.Clock
	log      *zap.Logger
}

// NewVisibilityResolver creates a VisibilityResolver.
func NewVisibilityResolver(projects repository.ProjectRepository, curation repository.CurationRepository, clk clock.Clock, log *zap.Logger) *VisibilityResolver {
	return &VisibilityResolver{
		projects: projects,
		curation: curation,
		clk:      clk,
		log:      log.Named("visibility"),
	}
}

// Resolve returns the user's visible projects with curatable open tasks.
// A failure here is fatal for the run; the caller re-raises it.
func (r *VisibilityResolver) Resolve(user *models.User) ([]ProjectTasks, error) {
	projects, err := r.projects.VisibleToUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visible projects for user %d: %w", user.ID, err)
	}

	var claimed map[uint64]struct{}
	if user.IsOrganizationMember() {
		ids, err := r.curation.ClaimedTaskIDs(clock.Today(r.clk))
		if err != nil {
			return nil, fmt.Errorf("failed to load today's claimed tasks: %w", err)
		}
		claimed = make(map[uint64]struct{}, len(ids))
		for _, id := range ids {
			claimed[id] = struct{}{}
		}
	}

	result := make([]ProjectTasks, 0, len(projects))
	for _, project := range projects {
		tasks := project.Tasks
		if claimed != nil {
			filtered := make([]models.Task, 0, len(tasks))
			for _, t := range tasks {
				if _, taken := claimed[t.ID]; taken {
					continue
				}
				filtered = append(filtered, t)
			}
			tasks = filtered
		}
		project.Tasks = nil
		result = append(result, ProjectTasks{Project: project, Tasks: tasks})
	}

	r.log.Debug("visibility resolved",
		zap.Uint64("user_id", user.ID),
		zap.Int("projects", len(result)))
	return result, nil
}
