package curation

import (
	"github.com/hokkaidev/task-curation-api/internal/models"
)

// Suggestion types, ordered roughly by urgency.
const (
	SuggestionTypeRisk         = "risk"
	SuggestionTypePriority     = "priority"
	SuggestionTypeOptimization = "optimization"
)

// Fallback scorer weights and the recommendation threshold. Hand-tuned;
// tunable, not derived.
const (
	ScoreOverdue         = 100
	ScoreDueSoon         = 80
	ScoreInProgress      = 60
	ScorePreferenceMatch = 40

	RecommendThreshold = 40

	// DueSoonDays is how close a due date must be to count as "due soon".
	DueSoonDays = 2
)

// Suggestion is one curation hint, optionally tied to a task.
type Suggestion struct {
	Type        string  `json:"type"`
	TaskID      *uint64 `json:"task_id,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Weight      int     `json:"weight,omitempty"`
}

// Result is the outcome of curating one project for one user. Suggestions,
// FocusAreas and RecommendedTaskIDs are always non-nil so persisted payloads
// stay structurally valid regardless of which path produced them.
type Result struct {
	Suggestions        []Suggestion `json:"suggestions"`
	Summary            string       `json:"summary"`
	FocusAreas         []string     `json:"focus_areas"`
	RecommendedTaskIDs []uint64     `json:"recommended_tasks"`
	AIGenerated        bool         `json:"ai_generated"`
	AIModel            string       `json:"ai_model,omitempty"`
}

// UserStats summarizes a user's trailing 30-day completion history.
type UserStats struct {
	CompletedLast30Days    int            `json:"completed_last_30_days"`
	TotalStoryPoints       float64        `json:"total_story_points"`
	AverageStoryPoints     float64        `json:"average_story_points"`
	AverageCompletionHours float64        `json:"average_completion_hours"`
	TaskTypeFrequency      map[string]int `json:"task_type_frequency"`
	TopTaskTypes           []string       `json:"top_task_types"`
}

// ProjectTasks pairs a visible project with the open tasks a user may be
// curated into.
type ProjectTasks struct {
	Project models.Project
	Tasks   []models.Task
}

// LeafTasks filters to curatable candidates: open, leaf (no children), and
// either unassigned or already assigned to the given user.
func (p ProjectTasks) LeafTasks(userID uint64) []models.Task {
	leaves := make([]models.Task, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		if !t.IsOpen() || !t.IsLeaf() {
			continue
		}
		if t.AssigneeID != nil && *t.AssigneeID != userID {
			continue
		}
		leaves = append(leaves, t)
	}
	return leaves
}
