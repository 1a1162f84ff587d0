package curation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hokkaidev/task-curation-api/internal/models"
)

// buildPrompt assembles the context bundle sent to the AI provider: project
// metadata, the user's history stats, organization membership, the current
// date and the candidate leaf tasks.
func buildPrompt(user *models.User, stats UserStats, project models.Project, leaves []models.Task, today time.Time) string {
	var b strings.Builder

	b.WriteString("You are a task curation assistant. Choose which tasks the user should work on today.\n\n")
	fmt.Fprintf(&b, "Date: %s\n", today.Format("2006-01-02"))
	fmt.Fprintf(&b, "Project: %q (type: %s", project.Name, project.ProjectType)
	if project.DueDate != nil {
		fmt.Fprintf(&b, ", due: %s", project.DueDate.Format("2006-01-02"))
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Organization member: %t\n\n", user.IsOrganizationMember())

	fmt.Fprintf(&b, "User history (last 30 days): %d tasks completed, %.1f story points total (avg %.1f), avg %.1f hours to complete.\n",
		stats.CompletedLast30Days, stats.TotalStoryPoints, stats.AverageStoryPoints, stats.AverageCompletionHours)
	if len(stats.TopTaskTypes) > 0 {
		fmt.Fprintf(&b, "Most frequent task types: %s\n", strings.Join(stats.TopTaskTypes, ", "))
	}

	b.WriteString("\nCandidate tasks:\n")
	for _, t := range leaves {
		fmt.Fprintf(&b, "- id=%d title=%q status=%s priority=%s", t.ID, t.Title, t.Status, t.Priority)
		if t.DueDate != nil {
			fmt.Fprintf(&b, " due=%s", t.DueDate.Format("2006-01-02"))
		}
		if t.Size != nil {
			fmt.Fprintf(&b, " size=%s", *t.Size)
		}
		if t.CurrentStoryPoints != nil {
			fmt.Fprintf(&b, " points=%.1f", *t.CurrentStoryPoints)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Respond with JSON only, no explanation, in this shape:
{
  "suggestions": [{"type": "risk|priority|optimization", "task_id": 123, "title": "...", "description": "..."}],
  "summary": "one paragraph",
  "focus_areas": ["label", ...],
  "recommended_tasks": [123, ...]
}
recommended_tasks must only contain ids from the candidate list.`)

	return b.String()
}

// aiSuggestion mirrors one suggestion entry in the provider's JSON. task_id
// tolerates both numbers and strings.
type aiSuggestion struct {
	Type        string      `json:"type"`
	TaskID      json.Number `json:"task_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
}

type aiResponse struct {
	Tasks            []aiSuggestion `json:"tasks"`
	Suggestions      []aiSuggestion `json:"suggestions"`
	Summary          string         `json:"summary"`
	FocusAreas       []string       `json:"focus_areas"`
	RecommendedTasks []json.Number  `json:"recommended_tasks"`
}

// parseAIResponse validates the provider content against the expected shape.
// Unknown task ids are dropped rather than failing; a response with no usable
// suggestions is an error so the caller can fall back.
func parseAIResponse(content string, leaves []models.Task) (*Result, error) {
	cleaned := stripCodeFence(content)

	var resp aiResponse
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	known := make(map[uint64]struct{}, len(leaves))
	for _, t := range leaves {
		known[t.ID] = struct{}{}
	}

	raw := resp.Suggestions
	if len(raw) == 0 {
		raw = resp.Tasks
	}

	result := &Result{
		Suggestions:        []Suggestion{},
		Summary:            resp.Summary,
		FocusAreas:         resp.FocusAreas,
		RecommendedTaskIDs: []uint64{},
	}
	if result.FocusAreas == nil {
		result.FocusAreas = []string{}
	}

	for _, s := range raw {
		suggestion := Suggestion{
			Type:        normalizeSuggestionType(s.Type),
			Title:       s.Title,
			Description: s.Description,
		}
		if id, ok := parseTaskID(s.TaskID, known); ok {
			suggestion.TaskID = &id
		}
		if suggestion.Title == "" && suggestion.TaskID == nil {
			continue
		}
		result.Suggestions = append(result.Suggestions, suggestion)
	}

	for _, n := range resp.RecommendedTasks {
		if id, ok := parseTaskID(n, known); ok {
			result.RecommendedTaskIDs = appendUnique(result.RecommendedTaskIDs, id)
		}
	}

	if len(result.Suggestions) == 0 {
		return nil, fmt.Errorf("AI response contained no suggestions")
	}
	return result, nil
}

func normalizeSuggestionType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case SuggestionTypeRisk:
		return SuggestionTypeRisk
	case SuggestionTypePriority:
		return SuggestionTypePriority
	default:
		return SuggestionTypeOptimization
	}
}

func parseTaskID(n json.Number, known map[uint64]struct{}) (uint64, bool) {
	if n.String() == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	if _, ok := known[id]; !ok {
		return 0, false
	}
	return id, true
}

func appendUnique(ids []uint64, id uint64) []uint64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// stripCodeFence removes a surrounding ```json ... ``` block if the provider
// wrapped its output in one.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
