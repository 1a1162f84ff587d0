package curation

import (
	"context"
	"fmt"
	"time"

	"github.com/hokkaidev/task-curation-api/internal/ai"
	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/config"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/repository"
	"go.uber.org/zap"
)

// Engine orchestrates AI-assisted recommendation generation with a
// deterministic fallback scorer. The AI capability is best-effort: any call
// failure or unparsable response degrades to the fallback, never a retry.
type Engine struct {
	chat     ai.ChatClient
	cfg      config.AIConfig
	curation repository.CurationRepository
	clk      clock.Clock
	log      *zap.Logger
}

// NewEngine creates a curation Engine. chat may be nil when no AI capability
// is configured; every project then takes the fallback path.
func NewEngine(chat ai.ChatClient, cfg config.AIConfig, curation repository.CurationRepository, clk clock.Clock, log *zap.Logger) *Engine {
	return &Engine{
		chat:     chat,
		cfg:      cfg,
		curation: curation,
		clk:      clk,
		log:      log.Named("engine"),
	}
}

// Curate produces the suggestion set for one (user, project) pair. A nil
// result with nil error means the project has no curatable leaf tasks and no
// record should be written.
func (e *Engine) Curate(ctx context.Context, user *models.User, stats UserStats, pt ProjectTasks) (*Result, error) {
	leaves := pt.LeafTasks(user.ID)
	if len(leaves) == 0 {
		return nil, nil
	}

	if e.aiAvailable() {
		result, err := e.curateWithAI(ctx, user, stats, pt.Project, leaves)
		if err != nil {
			e.log.Warn("AI curation failed, using fallback",
				zap.Uint64("user_id", user.ID),
				zap.Uint64("project_id", pt.Project.ID),
				zap.Error(err))
		} else if len(result.Suggestions) > 0 {
			return result, nil
		}
	}

	result := FallbackScore(leaves, stats, clock.Today(e.clk))
	if len(result.Suggestions) == 0 {
		result = genericResult()
	}
	return &result, nil
}

func (e *Engine) aiAvailable() bool {
	return e.chat != nil && e.cfg.Enabled()
}

// modelFor resolves the per-project model override against the default.
func (e *Engine) modelFor(project models.Project) string {
	if project.AIModel != "" {
		return project.AIModel
	}
	return e.cfg.Model
}

func (e *Engine) curateWithAI(ctx context.Context, user *models.User, stats UserStats, project models.Project, leaves []models.Task) (*Result, error) {
	model := e.modelFor(project)
	prompt := buildPrompt(user, stats, project, leaves, clock.Today(e.clk))

	// Keep the exact prompt around for debugging; failures here must not
	// block the AI call.
	logErr := e.curation.LogPrompt(&models.CurationPromptLog{
		UserID:    user.ID,
		ProjectID: project.ID,
		Prompt:    prompt,
		Model:     model,
	})
	if logErr != nil {
		e.log.Warn("failed to record prompt log", zap.Error(logErr))
	}

	content, err := e.chat.Chat(ctx, model, []ai.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("AI call failed: %w", err)
	}

	result, err := parseAIResponse(content, leaves)
	if err != nil {
		return nil, fmt.Errorf("AI response unusable: %w", err)
	}
	result.AIGenerated = true
	result.AIModel = model
	return result, nil
}

// FallbackScore is the deterministic scorer used when AI-assisted curation is
// unavailable or unusable. Given identical input it always produces the same
// output.
func FallbackScore(leaves []models.Task, stats UserStats, today time.Time) Result {
	result := Result{
		Suggestions:        []Suggestion{},
		FocusAreas:         []string{},
		RecommendedTaskIDs: []uint64{},
	}

	var anyOverdue, anyDueSoon, anyInProgress, anyUnsized bool
	dueSoonCutoff := today.AddDate(0, 0, DueSoonDays)

	for i := range leaves {
		task := leaves[i]
		taskID := task.ID
		score := 0

		overdue := task.DueDate != nil && task.DueDate.Before(today)
		dueSoon := !overdue && task.DueDate != nil && !task.DueDate.After(dueSoonCutoff)

		if overdue {
			score += ScoreOverdue
			anyOverdue = true
			result.Suggestions = append(result.Suggestions, Suggestion{
				Type:        SuggestionTypeRisk,
				TaskID:      &taskID,
				Title:       fmt.Sprintf("Overdue: %s", task.Title),
				Description: "This task is past its due date and should be handled first.",
				Weight:      ScoreOverdue,
			})
		}
		if dueSoon {
			score += ScoreDueSoon
			anyDueSoon = true
			result.Suggestions = append(result.Suggestions, Suggestion{
				Type:        SuggestionTypePriority,
				TaskID:      &taskID,
				Title:       fmt.Sprintf("Due soon: %s", task.Title),
				Description: fmt.Sprintf("Due within %d days.", DueSoonDays),
				Weight:      ScoreDueSoon,
			})
		}
		if task.Status == models.TaskStatusInProgress {
			score += ScoreInProgress
			anyInProgress = true
			result.Suggestions = append(result.Suggestions, Suggestion{
				Type:        SuggestionTypePriority,
				TaskID:      &taskID,
				Title:       fmt.Sprintf("Finish what you started: %s", task.Title),
				Description: "Already in progress; completing it frees capacity.",
				Weight:      ScoreInProgress,
			})
		}
		if stats.AverageStoryPoints > 0 && task.CurrentStoryPoints != nil {
			delta := *task.CurrentStoryPoints - stats.AverageStoryPoints
			if delta >= -1 && delta <= 1 {
				score += ScorePreferenceMatch
			}
		}
		if task.Size == nil && task.CurrentStoryPoints == nil {
			anyUnsized = true
			result.Suggestions = append(result.Suggestions, Suggestion{
				Type:        SuggestionTypeOptimization,
				TaskID:      &taskID,
				Title:       fmt.Sprintf("Size this task: %s", task.Title),
				Description: "No size or story points set; estimate it to improve planning.",
			})
		}

		if score >= RecommendThreshold {
			result.RecommendedTaskIDs = append(result.RecommendedTaskIDs, task.ID)
		}
	}

	if anyOverdue {
		result.FocusAreas = append(result.FocusAreas, "overdue_risk")
	}
	if anyDueSoon {
		result.FocusAreas = append(result.FocusAreas, "upcoming_deadlines")
	}
	if anyInProgress {
		result.FocusAreas = append(result.FocusAreas, "in_progress_completion")
	}
	if anyUnsized {
		result.FocusAreas = append(result.FocusAreas, "estimation_hygiene")
	}

	result.Summary = fmt.Sprintf("Reviewed %d open tasks; %d recommended for today.",
		len(leaves), len(result.RecommendedTaskIDs))
	return result
}

// genericResult is the last resort when neither the AI nor the fallback
// produced a usable suggestion.
func genericResult() Result {
	return Result{
		Suggestions: []Suggestion{{
			Type:        SuggestionTypeOptimization,
			Title:       "Review your tasks",
			Description: "No specific recommendations today; review your open tasks and pick the most valuable one.",
		}},
		Summary:            "No specific recommendations; review your open tasks.",
		FocusAreas:         []string{"general_review"},
		RecommendedTaskIDs: []uint64{},
	}
}
