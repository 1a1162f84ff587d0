package ordering

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hokkaidev/task-curation-api/internal/clock"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrTaskNotFound = errors.New("task not found")

// Conflict types returned when a move needs confirmation.
const (
	ConflictMovingToHigherPriority = "moving_to_higher_priority"
	ConflictMovingToLowerPriority  = "moving_to_lower_priority"
)

// MoveResult reports the outcome of a MoveTo call. When
// RequiresConfirmation is set, nothing was mutated; the caller should repeat
// the call with confirmed=true to proceed.
type MoveResult struct {
	Success              bool                `json:"success"`
	RequiresConfirmation bool                `json:"requires_confirmation"`
	ConflictType         string              `json:"conflict_type,omitempty"`
	NeighborPriorities   []string            `json:"neighbor_priorities,omitempty"`
	FromPosition         int                 `json:"from_position"`
	ToPosition           int                 `json:"to_position"`
	PriorityChanged      bool                `json:"priority_changed"`
	OldPriority          models.TaskPriority `json:"old_priority,omitempty"`
	NewPriority          models.TaskPriority `json:"new_priority,omitempty"`
}

// Engine maintains the dense, gap-free sort_order among sibling tasks. It
// exclusively owns sort_order and the ordering-audit fields.
type Engine struct {
	db  *gorm.DB
	clk clock.Clock
	log *zap.Logger

	mu     sync.Mutex
	groups map[string]*sync.Mutex
}

// NewEngine creates an ordering Engine.
func NewEngine(db *gorm.DB, clk clock.Clock, log *zap.Logger) *Engine {
	return &Engine{
		db:     db,
		clk:    clk,
		log:    log.Named("ordering"),
		groups: make(map[string]*sync.Mutex),
	}
}

// groupLock serializes concurrent moves within one sibling group so the dense
// permutation invariant holds under in-process concurrency. The transaction
// still guards cross-process writers.
func (e *Engine) groupLock(projectID uint64, parentID *uint64) *sync.Mutex {
	key := fmt.Sprintf("%d:root", projectID)
	if parentID != nil {
		key = fmt.Sprintf("%d:%d", projectID, *parentID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.groups[key]
	if !ok {
		lock = &sync.Mutex{}
		e.groups[key] = lock
	}
	return lock
}

// MoveTo moves a task to newPosition within its sibling group. When the new
// neighbors have a strictly different priority and confirmed is false, no
// mutation happens and the result describes the conflict. With confirmed set
// the task adopts the neighborhood's priority as described in the result.
func (e *Engine) MoveTo(taskID uint64, newPosition int, confirmed bool) (*MoveResult, error) {
	var task models.Task
	if err := e.db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to load task %d: %w", taskID, err)
	}

	lock := e.groupLock(task.ProjectID, task.ParentID)
	lock.Lock()
	defer lock.Unlock()

	siblings, err := e.siblings(task.ProjectID, task.ParentID)
	if err != nil {
		return nil, err
	}

	// The pre-lock snapshot can be stale: a concurrent move may have won the
	// lock and committed first. Position and priority come from the sibling
	// read performed under the lock.
	current, ok := findSibling(siblings, task.ID)
	if !ok {
		return nil, ErrTaskNotFound
	}
	task = current

	if newPosition < 1 {
		newPosition = 1
	}
	if newPosition > len(siblings) {
		newPosition = len(siblings)
	}

	oldPosition := task.SortOrder
	result := &MoveResult{
		FromPosition: oldPosition,
		ToPosition:   newPosition,
		OldPriority:  task.Priority,
		NewPriority:  task.Priority,
	}

	// Moving to the current position is always a no-op, regardless of the
	// confirmation state.
	if newPosition == oldPosition {
		result.Success = true
		return result, nil
	}

	neighbors := neighborsAt(siblings, task.ID, oldPosition, newPosition)

	if conflict := priorityConflict(task.Priority, neighbors); conflict != "" && !confirmed {
		result.RequiresConfirmation = true
		result.ConflictType = conflict
		for _, n := range neighbors {
			result.NeighborPriorities = append(result.NeighborPriorities, string(n.Priority))
		}
		return result, nil
	}

	newPriority := task.Priority
	if confirmed {
		newPriority = adoptedPriority(task.Priority, neighbors)
	}

	if err := e.applyMove(&task, oldPosition, newPosition, newPriority); err != nil {
		return nil, err
	}

	// Audit fields are best-effort: a failure is logged and swallowed, never
	// allowed to undo the sort_order mutation.
	e.updateAuditFields(task.ID, oldPosition, newPosition)

	verified, err := e.verifyPosition(task.ID, newPosition)
	if err != nil {
		return nil, err
	}

	result.Success = verified
	result.PriorityChanged = newPriority != task.Priority
	result.NewPriority = newPriority
	return result, nil
}

// findSibling locates a task in its freshly loaded sibling group.
func findSibling(siblings []models.Task, id uint64) (models.Task, bool) {
	for _, s := range siblings {
		if s.ID == id {
			return s, true
		}
	}
	return models.Task{}, false
}

func (e *Engine) siblings(projectID uint64, parentID *uint64) ([]models.Task, error) {
	var tasks []models.Task
	query := e.db.Where("project_id = ?", projectID)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	if err := query.Order("sort_order ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to load sibling group: %w", err)
	}
	return tasks, nil
}

// neighborsAt returns the up-to-two siblings that become adjacent to the
// moving task at its target position. Moving down: the tasks currently at
// newPosition and newPosition+1. Moving up: at newPosition-1 and newPosition.
func neighborsAt(siblings []models.Task, movingID uint64, oldPosition, newPosition int) []models.Task {
	byPosition := make(map[int]models.Task, len(siblings))
	for _, s := range siblings {
		if s.ID == movingID {
			continue
		}
		byPosition[s.SortOrder] = s
	}

	var positions [2]int
	if newPosition > oldPosition {
		positions = [2]int{newPosition, newPosition + 1}
	} else {
		positions = [2]int{newPosition - 1, newPosition}
	}

	var neighbors []models.Task
	for _, pos := range positions {
		if n, ok := byPosition[pos]; ok {
			neighbors = append(neighbors, n)
		}
	}
	return neighbors
}

// priorityConflict reports the confirmation type a move needs, or "" when
// the neighborhood priority matches. A higher-priority neighbor takes
// precedence over a lower one when both exist.
func priorityConflict(priority models.TaskPriority, neighbors []models.Task) string {
	level := models.PriorityLevel(priority)
	higher, lower := false, false
	for _, n := range neighbors {
		nl := models.PriorityLevel(n.Priority)
		if nl > level {
			higher = true
		}
		if nl < level {
			lower = true
		}
	}
	switch {
	case higher:
		return ConflictMovingToHigherPriority
	case lower:
		return ConflictMovingToLowerPriority
	default:
		return ""
	}
}

// adoptedPriority computes the confirmed move's priority adjustment: a
// higher-priority neighborhood lends its highest priority, a lower one its
// lowest.
func adoptedPriority(priority models.TaskPriority, neighbors []models.Task) models.TaskPriority {
	level := models.PriorityLevel(priority)
	highest, lowest := priority, priority
	for _, n := range neighbors {
		nl := models.PriorityLevel(n.Priority)
		if nl > models.PriorityLevel(highest) {
			highest = n.Priority
		}
		if nl < models.PriorityLevel(lowest) {
			lowest = n.Priority
		}
	}
	if models.PriorityLevel(highest) > level {
		return highest
	}
	if models.PriorityLevel(lowest) < level {
		return lowest
	}
	return priority
}

// applyMove shifts the affected sort_order range and repositions the task in
// a single transaction so partial application can never be observed.
func (e *Engine) applyMove(task *models.Task, oldPosition, newPosition int, newPriority models.TaskPriority) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		scope := tx.Model(&models.Task{}).Where("project_id = ?", task.ProjectID)
		if task.ParentID == nil {
			scope = scope.Where("parent_id IS NULL")
		} else {
			scope = scope.Where("parent_id = ?", *task.ParentID)
		}

		if newPosition < oldPosition {
			// Moving up: everything in [new, old-1] slides down by one.
			err := scope.Where("sort_order >= ? AND sort_order <= ?", newPosition, oldPosition-1).
				UpdateColumn("sort_order", gorm.Expr("sort_order + 1")).Error
			if err != nil {
				return fmt.Errorf("failed to shift siblings up: %w", err)
			}
		} else {
			// Moving down: everything in [old+1, new] slides up by one.
			err := scope.Where("sort_order >= ? AND sort_order <= ?", oldPosition+1, newPosition).
				UpdateColumn("sort_order", gorm.Expr("sort_order - 1")).Error
			if err != nil {
				return fmt.Errorf("failed to shift siblings down: %w", err)
			}
		}

		updates := map[string]interface{}{"sort_order": newPosition}
		if newPriority != task.Priority {
			updates["priority"] = newPriority
		}
		err := tx.Model(&models.Task{}).Where("id = ?", task.ID).
			UpdateColumns(updates).Error
		if err != nil {
			return fmt.Errorf("failed to reposition task: %w", err)
		}
		return nil
	})
}

// updateAuditFields records move bookkeeping. initial_order_index captures
// the position the task held before its first move and is never overwritten.
func (e *Engine) updateAuditFields(taskID uint64, oldPosition, newPosition int) {
	now := e.clk.Now()
	err := e.db.Exec(
		`UPDATE tasks
		 SET initial_order_index = COALESCE(initial_order_index, ?),
		     current_order_index = ?,
		     move_count = move_count + 1,
		     last_moved_at = ?
		 WHERE id = ?`,
		oldPosition, newPosition, now, taskID,
	).Error
	if err != nil {
		e.log.Warn("ordering audit update failed",
			zap.Uint64("task_id", taskID), zap.Error(err))
	}
}

// Normalize rewrites a sibling group's sort_order values to a dense 1..N
// permutation. Callers invoke it explicitly after writes that can leave gaps
// (task deletion, reparenting); it is not a save-time hook.
func (e *Engine) Normalize(projectID uint64, parentID *uint64) error {
	lock := e.groupLock(projectID, parentID)
	lock.Lock()
	defer lock.Unlock()

	siblings, err := e.siblings(projectID, parentID)
	if err != nil {
		return err
	}

	return e.db.Transaction(func(tx *gorm.DB) error {
		for i, s := range siblings {
			if s.SortOrder == i+1 {
				continue
			}
			err := tx.Model(&models.Task{}).Where("id = ?", s.ID).
				UpdateColumn("sort_order", i+1).Error
			if err != nil {
				return fmt.Errorf("failed to normalize sort order: %w", err)
			}
		}
		return nil
	})
}

// verifyPosition re-reads the task and confirms its persisted position.
func (e *Engine) verifyPosition(taskID uint64, expected int) (bool, error) {
	var task models.Task
	if err := e.db.First(&task, taskID).Error; err != nil {
		return false, fmt.Errorf("failed to verify task position: %w", err)
	}
	return task.SortOrder == expected, nil
}
