package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hokkaidev/task-curation-api/internal/database"
	"github.com/hokkaidev/task-curation-api/internal/models"
	"github.com/hokkaidev/task-curation-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCurationRepository is a GORM implementation of CurationRepository
type GormCurationRepository struct {
	db *gorm.DB
}

// NewCurationRepository creates a new CurationRepository
func NewCurationRepository(db *gorm.DB) CurationRepository {
	return &GormCurationRepository{db: db}
}

// ClearPromptLogs deletes all prompt logs for a user
func (r *GormCurationRepository) ClearPromptLogs(userID uint64) error {
	return r.db.Where("user_id = ?", userID).
		Delete(&models.CurationPromptLog{}).Error
}

// LogPrompt records the exact prompt sent to the AI provider
func (r *GormCurationRepository) LogPrompt(entry *models.CurationPromptLog) error {
	return r.db.Create(entry).Error
}

// ClaimedTaskIDs returns task IDs with any curated assignment on the date
func (r *GormCurationRepository) ClaimedTaskIDs(workDate time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.Model(&models.CuratedAssignment{}).
		Where("curatable_type = ? AND work_date = ?", models.CuratableTypeTask, workDate).
		Distinct().
		Pluck("curatable_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// EarliestAssignmentTimes maps task IDs to their earliest assignment time
func (r *GormCurationRepository) EarliestAssignmentTimes(userID uint64, taskIDs []uint64) (map[uint64]time.Time, error) {
	result := make(map[uint64]time.Time, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}

	type row struct {
		CuratableID uint64
		FirstSeen   time.Time
	}
	var rows []row
	err := r.db.Model(&models.CuratedAssignment{}).
		Select("curatable_id, MIN(created_at) AS first_seen").
		Where("assigned_to_id = ? AND curatable_type = ? AND curatable_id IN ?",
			userID, models.CuratableTypeTask, taskIDs).
		Group("curatable_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rw := range rows {
		result[rw.CuratableID] = rw.FirstSeen
	}
	return result, nil
}

// replaceAttempts bounds the serialization-failure retry loop.
const replaceAttempts = 3

// ReplaceAssignments refreshes the user's curated assignments in one
// serializable transaction. Organization-scoped refreshes only delete rows
// for tasks being re-curated and skip tasks another user already claimed
// today; default-scope refreshes replace the full per-project set.
//
// The claims pre-check alone cannot see another transaction's uncommitted
// insert, and the unique index includes assigned_to_id, so cross-user
// exclusivity needs serializable isolation: the losing transaction fails at
// commit and the retry's pre-check then sees the winner's claim and skips.
func (r *GormCurationRepository) ReplaceAssignments(input ReplaceAssignmentsInput) (int, error) {
	var inserted int
	var err error
	for attempt := 0; attempt < replaceAttempts; attempt++ {
		inserted, err = r.replaceAssignments(input)
		if err == nil || !retryableTxError(err) {
			return inserted, err
		}
	}
	return 0, err
}

// retryableTxError matches the serialization and deadlock failures a
// serializable transaction may surface under contention.
func retryableTxError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "serialization failure") ||
		strings.Contains(msg, "deadlock")
}

func (r *GormCurationRepository) replaceAssignments(input ReplaceAssignmentsInput) (int, error) {
	inserted := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if input.OrganizationScoped {
			if len(input.TaskIDs) > 0 {
				err := tx.Where("assigned_to_id = ? AND work_date = ? AND curatable_type = ? AND curatable_id IN ?",
					input.UserID, input.WorkDate, models.CuratableTypeTask, input.TaskIDs).
					Delete(&models.CuratedAssignment{}).Error
				if err != nil {
					return fmt.Errorf("failed to refresh curated rows: %w", err)
				}
			}
		} else {
			err := tx.Where("assigned_to_id = ? AND work_date = ? AND project_id = ?",
				input.UserID, input.WorkDate, input.ProjectID).
				Delete(&models.CuratedAssignment{}).Error
			if err != nil {
				return fmt.Errorf("failed to clear curated rows: %w", err)
			}
		}

		if len(input.TaskIDs) == 0 {
			return nil
		}

		// Organization members compete for a shared pool: rows another user
		// already holds today are skipped, never stolen.
		claimed := make(map[uint64]struct{})
		if input.OrganizationScoped {
			var ids []uint64
			err := tx.Model(&models.CuratedAssignment{}).
				Where("work_date = ? AND curatable_type = ? AND curatable_id IN ? AND assigned_to_id <> ?",
					input.WorkDate, models.CuratableTypeTask, input.TaskIDs, input.UserID).
				Distinct().
				Pluck("curatable_id", &ids).Error
			if err != nil {
				return fmt.Errorf("failed to check existing claims: %w", err)
			}
			for _, id := range ids {
				claimed[id] = struct{}{}
			}
		}

		for i, taskID := range input.TaskIDs {
			if _, taken := claimed[taskID]; taken {
				continue
			}
			assignment := models.CuratedAssignment{
				CuratableType: models.CuratableTypeTask,
				CuratableID:   taskID,
				WorkDate:      input.WorkDate,
				AssignedToID:  input.UserID,
				ProjectID:     input.ProjectID,
				InitialIndex:  i + 1,
				CurrentIndex:  i + 1,
				MovedCount:    0,
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&assignment)
			if res.Error != nil {
				// A losing concurrent writer skips the row rather than
				// failing the whole refresh.
				if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
					continue
				}
				return fmt.Errorf("failed to insert curated row: %w", res.Error)
			}
			// RowsAffected is 0 when the conflict clause swallowed the row.
			inserted += int(res.RowsAffected)
		}
		return nil
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListAssignments lists a user's curated assignments for a date
func (r *GormCurationRepository) ListAssignments(userID uint64, workDate time.Time) ([]models.CuratedAssignment, error) {
	var assignments []models.CuratedAssignment
	err := r.db.
		Where("assigned_to_id = ? AND work_date = ?", userID, workDate).
		Order("current_index ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpsertCurationRecord inserts or overwrites the (user, project, date) row
func (r *GormCurationRepository) UpsertCurationRecord(record *models.DailyCurationRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "project_id"}, {Name: "curation_date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"suggestions", "summary", "focus_areas", "recommended_task_ids",
			"ai_generated", "ai_model", "updated_at",
		}),
	}).Create(record).Error
}

// FindCurationRecord fetches one daily curation record
func (r *GormCurationRepository) FindCurationRecord(userID, projectID uint64, curationDate time.Time) (*models.DailyCurationRecord, error) {
	var record models.DailyCurationRecord
	err := r.db.
		Where("user_id = ? AND project_id = ? AND curation_date = ?", userID, projectID, curationDate).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListCurationRecords pages through a user's curation records, newest first
func (r *GormCurationRepository) ListCurationRecords(userID uint64, params utils.PaginationParams) ([]models.DailyCurationRecord, int64, error) {
	var total int64
	err := r.db.Model(&models.DailyCurationRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var records []models.DailyCurationRecord
	err = r.db.
		Where("user_id = ?", userID).
		Order("curation_date DESC, project_id ASC").
		Scopes(database.Paginate(params)).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// UpsertWeightMetric inserts the metric row, falling back to a
// read-modify-update when the uniqueness race is lost.
func (r *GormCurationRepository) UpsertWeightMetric(metric *models.DailyWeightMetric) error {
	err := r.db.Create(metric).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("failed to insert weight metric: %w", err)
	}

	var existing models.DailyWeightMetric
	findErr := r.db.
		Where("user_id = ? AND metric_date = ?", metric.UserID, metric.MetricDate).
		First(&existing).Error
	if findErr != nil {
		return fmt.Errorf("failed to re-fetch weight metric after conflict: %w", findErr)
	}

	metric.ID = existing.ID
	metric.CreatedAt = existing.CreatedAt
	if saveErr := r.db.Save(metric).Error; saveErr != nil {
		return fmt.Errorf("failed to update weight metric: %w", saveErr)
	}
	return nil
}

// FindWeightMetric fetches one daily weight metric
func (r *GormCurationRepository) FindWeightMetric(userID uint64, metricDate time.Time) (*models.DailyWeightMetric, error) {
	var metric models.DailyWeightMetric
	err := r.db.
		Where("user_id = ? AND metric_date = ?", userID, metricDate).
		First(&metric).Error
	if err != nil {
		return nil, err
	}
	return &metric, nil
}

// TrailingMetrics lists metric rows from the window strictly before the date
func (r *GormCurationRepository) TrailingMetrics(userID uint64, before time.Time, days int) ([]models.DailyWeightMetric, error) {
	from := before.AddDate(0, 0, -days)
	var metrics []models.DailyWeightMetric
	err := r.db.
		Where("user_id = ? AND metric_date >= ? AND metric_date < ?", userID, from, before).
		Order("metric_date DESC").
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}
