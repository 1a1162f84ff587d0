package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes beyond what AutoMigrate
// derives from struct tags. Safe to call repeatedly.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Visibility resolution scans these heavily.
		{"projects", "idx_projects_owner_id", "owner_id"},
		{"projects", "idx_projects_group_id", "group_id"},
		{"tasks", "idx_tasks_project_status", "project_id, status"},
		{"tasks", "idx_tasks_parent_id", "parent_id"},
		{"tasks", "idx_tasks_due_date", "due_date"},

		// Daily-row lookups by date.
		{"curated_assignments", "idx_curated_work_date", "work_date"},
		{"daily_curation_records", "idx_curation_records_date", "curation_date"},
		{"daily_weight_metrics", "idx_weight_metrics_date", "metric_date"},
		{"curation_prompt_logs", "idx_prompt_logs_user_id", "user_id"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
