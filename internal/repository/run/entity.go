package run

import (
	"time"

	"github.com/google/uuid"
	"github.com/xpanvictor/ava/internal/domains/pipeline"
)

// RunEntity represents the database entity for a pipeline run outcome
type RunEntity struct {
	ID         string    `gorm:"primaryKey;type:char(36);not null"`
	DeviceID   string    `gorm:"column:device_id;type:varchar(64);index:idx_runs_device_started,priority:1;not null"`
	FinalState string    `gorm:"column:final_state;type:varchar(32);not null"`
	Decision   string    `gorm:"column:decision;type:varchar(32)"`
	ErrorCode  string    `gorm:"column:error_code;type:varchar(64)"`
	DurationMs int64     `gorm:"column:duration_ms"`
	StartedAt  time.Time `gorm:"column:started_at;index:idx_runs_device_started,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime(3)"`
}

// TableName returns the table name for GORM
func (RunEntity) TableName() string {
	return "pipeline_runs"
}

func NewRunEntityFromDomain(rec pipeline.RunRecord) *RunEntity {
	return &RunEntity{
		ID:         rec.ID.String(),
		DeviceID:   rec.DeviceID,
		FinalState: string(rec.FinalState),
		Decision:   string(rec.Decision),
		ErrorCode:  rec.ErrorCode,
		DurationMs: rec.Duration.Milliseconds(),
		StartedAt:  rec.StartedAt.UTC(),
	}
}

// ToDomain converts RunEntity to a pipeline.RunRecord
func (r *RunEntity) ToDomain() pipeline.RunRecord {
	id, _ := uuid.Parse(r.ID)
	return pipeline.RunRecord{
		ID:         id,
		DeviceID:   r.DeviceID,
		FinalState: pipeline.RunState(r.FinalState),
		Decision:   pipeline.DecisionKind(r.Decision),
		ErrorCode:  r.ErrorCode,
		StartedAt:  r.StartedAt,
		Duration:   time.Duration(r.DurationMs) * time.Millisecond,
	}
}
