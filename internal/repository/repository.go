package repository

import (
	"time"

	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// FindByID finds a user by ID with the organization preloaded
	FindByID(id uint64) (*models.User, error)

	// ListEligibleForCuration lists approved, verified users
	ListEligibleForCuration() ([]models.User, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// VisibleToUser returns the deduplicated union of projects the user owns
	// and projects belonging to any group the user is a member of, ordered by
	// due date ascending (nulls last) then creation date descending, with open
	// tasks and their children preloaded.
	VisibleToUser(userID uint64) ([]models.Project, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// CompletedByUserSince lists tasks assigned to the user completed on or
	// after the given time, with the project preloaded.
	CompletedByUserSince(userID uint64, since time.Time) ([]models.Task, error)

	// Siblings lists the task's sibling group (same project and parent),
	// ordered by sort_order ascending.
	Siblings(projectID uint64, parentID *uint64) ([]models.Task, error)
}

// ReplaceAssignmentsInput drives one transactional refresh of a user's
// curated assignments for a project and date. TaskIDs carries the merged
// recommendation order; the 1-based position becomes the stored index.
type ReplaceAssignmentsInput struct {
	UserID    uint64
	ProjectID uint64
	WorkDate  time.Time
	TaskIDs   []uint64

	// OrganizationScoped selects the partial-refresh semantics: only rows for
	// tasks being re-curated are deleted, and tasks already claimed today by
	// another user are skipped. When false the full per-project set for the
	// user is replaced.
	OrganizationScoped bool
}

// CurationRepository defines data access for the curation pipeline's owned
// tables: curated assignments, daily curation records, weight metrics and
// prompt logs.
type CurationRepository interface {
	// ClearPromptLogs deletes all prompt logs for a user (run-start lifecycle)
	ClearPromptLogs(userID uint64) error

	// LogPrompt records the exact prompt sent to the AI provider
	LogPrompt(entry *models.CurationPromptLog) error

	// ClaimedTaskIDs returns the IDs of tasks with any curated assignment on
	// the given date, regardless of assignee.
	ClaimedTaskIDs(workDate time.Time) ([]uint64, error)

	// EarliestAssignmentTimes maps each task ID to the creation time of its
	// earliest curated assignment for the user.
	EarliestAssignmentTimes(userID uint64, taskIDs []uint64) (map[uint64]time.Time, error)

	// ReplaceAssignments refreshes the user's curated assignments in a single
	// transaction and returns how many rows were inserted. Tasks claimed by
	// another user are skipped, never stolen.
	ReplaceAssignments(input ReplaceAssignmentsInput) (int, error)

	// ListAssignments lists a user's curated assignments for a date
	ListAssignments(userID uint64, workDate time.Time) ([]models.CuratedAssignment, error)

	// UpsertCurationRecord inserts or overwrites the (user, project, date) row
	UpsertCurationRecord(record *models.DailyCurationRecord) error

	// FindCurationRecord fetches one daily curation record
	FindCurationRecord(userID, projectID uint64, curationDate time.Time) (*models.DailyCurationRecord, error)

	// ListCurationRecords pages through a user's curation records, most
	// recent date first, returning the page and the total row count.
	ListCurationRecords(userID uint64, params utils.PaginationParams) ([]models.DailyCurationRecord, int64, error)

	// UpsertWeightMetric inserts the metric row, retrying once via
	// read-modify-update when the (user, date) uniqueness race is lost.
	UpsertWeightMetric(metric *models.DailyWeightMetric) error

	// FindWeightMetric fetches one daily weight metric
	FindWeightMetric(userID uint64, metricDate time.Time) (*models.DailyWeightMetric, error)

	// TrailingMetrics lists the user's metric rows from the `days` days
	// strictly before the given date, most recent first.
	TrailingMetrics(userID uint64, before time.Time, days int) ([]models.DailyWeightMetric, error)
}
