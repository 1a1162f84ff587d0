package models

import (
	"time"

	"gorm.io/datatypes"
)

// DailyWeightMetric aggregates a user's open workload for one day,
// independent of what curation recommended. One row per (user, date).
type DailyWeightMetric struct {
	ID         uint64    `gorm:"primarykey" json:"id"`
	UserID     uint64    `gorm:"not null;uniqueIndex:idx_weight_metric_day" json:"user_id"`
	MetricDate time.Time `gorm:"type:date;not null;uniqueIndex:idx_weight_metric_day" json:"metric_date"`

	TotalTasks           int     `gorm:"not null;default:0" json:"total_tasks"`
	SignedTasks          int     `gorm:"not null;default:0" json:"signed_tasks"`
	UnsignedTasks        int     `gorm:"not null;default:0" json:"unsigned_tasks"`
	TotalStoryPoints     float64 `gorm:"not null;default:0" json:"total_story_points"`
	AveragePointsPerTask float64 `gorm:"not null;default:0" json:"average_points_per_task"`
	VelocitySevenDay     float64 `gorm:"not null;default:0" json:"velocity_seven_day"`

	ProjectBreakdown datatypes.JSON `gorm:"not null" json:"project_breakdown"`
	SizeBreakdown    datatypes.JSON `gorm:"not null" json:"size_breakdown"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
