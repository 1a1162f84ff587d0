package curation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"go.uber.org/zap"
)

// UserCurationJob runs one user's daily curation end to end: prompt-log
// cleanup, visibility resolution, history analysis, per-project curation and
// persistence, then weight metrics. Jobs for different users are independent
// and safe to run in parallel.
type UserCurationJob struct {
	resolver *VisibilityResolver
	history  *HistoryAnalyzer
	engine   *Engine
	store    *AssignmentStore
	weights  *WeightCalculator
	curation repository.CurationRepository
	log      *zap.Logger
}

// NewUserCurationJob creates a UserCurationJob.
func NewUserCurationJob(
	resolver *VisibilityResolver,
	history *HistoryAnalyzer,
	engine *Engine,
	store *AssignmentStore,
	weights *WeightCalculator,
	curation repository.CurationRepository,
	log *zap.Logger,
) *UserCurationJob {
	return &UserCurationJob{
		resolver: resolver,
		history:  history,
		engine:   engine,
		store:    store,
		weights:  weights,
		curation: curation,
		log:      log.Named("curation"),
	}
}

// Run curates every visible project for the user. Per-project failures are
// isolated: they are logged and the remaining projects still run. A
// visibility failure is fatal and re-raised for the scheduler to handle.
func (j *UserCurationJob) Run(ctx context.Context, user *models.User) error {
	return j.run(ctx, user, 0)
}

// RunProject curates a single project for the user (on-demand trigger).
func (j *UserCurationJob) RunProject(ctx context.Context, user *models.User, projectID uint64) error {
	return j.run(ctx, user, projectID)
}

func (j *UserCurationJob) run(ctx context.Context, user *models.User, onlyProjectID uint64) error {
	log := j.log.With(
		zap.String("run_id", uuid.NewString()),
		zap.Uint64("user_id", user.ID))

	// Prompt logs are ephemeral debugging records scoped to a single cycle.
	if err := j.curation.ClearPromptLogs(user.ID); err != nil {
		log.Warn("failed to clear prompt logs", zap.Error(err))
	}

	projects, err := j.resolver.Resolve(user)
	if err != nil {
		log.Error("visibility resolution failed", zap.Error(err))
		return fmt.Errorf("curation run for user %d: %w", user.ID, err)
	}

	stats := j.history.Analyze(user)

	curated := 0
	for _, pt := range projects {
		if onlyProjectID != 0 && pt.Project.ID != onlyProjectID {
			continue
		}
		if j.curateProject(ctx, log, user, stats, pt) {
			curated++
		}
	}

	if _, err := j.weights.Compute(user, projects); err != nil {
		log.Error("weight metric computation failed", zap.Error(err))
	}

	log.Info("curation run finished",
		zap.Int("projects_visible", len(projects)),
		zap.Int("projects_curated", curated))
	return nil
}

// curateProject isolates one project behind a failure boundary: an error or
// panic here must not abort the user's other projects.
func (j *UserCurationJob) curateProject(ctx context.Context, log *zap.Logger, user *models.User, stats UserStats, pt ProjectTasks) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during project curation",
				zap.Uint64("project_id", pt.Project.ID),
				zap.Any("panic", r))
			ok = false
		}
	}()

	result, err := j.engine.Curate(ctx, user, stats, pt)
	if err != nil {
		log.Error("project curation failed",
			zap.Uint64("project_id", pt.Project.ID), zap.Error(err))
		return false
	}
	if result == nil {
		// No curatable leaf tasks; skip without writing a record.
		return false
	}

	if err := j.store.Persist(user, pt.Project, result); err != nil {
		log.Error("project curation persistence failed",
			zap.Uint64("project_id", pt.Project.ID), zap.Error(err))
		return false
	}
	return true
}
