package run

import (
	"context"
	"fmt"

	"github.com/xpanvictor/ava/internal/domains/pipeline"
	"gorm.io/gorm"
)

const maxRecent = 100

type GormRunRepo struct {
	db *gorm.DB
}

// Record implements pipeline.Journal
func (g *GormRunRepo) Record(ctx context.Context, rec pipeline.RunRecord) error {
	if err := g.db.WithContext(ctx).Create(NewRunEntityFromDomain(rec)).Error; err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Recent implements pipeline.Journal
func (g *GormRunRepo) Recent(ctx context.Context, deviceID string, limit int) ([]pipeline.RunRecord, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	var entities []RunEntity
	err := g.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("started_at DESC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	out := make([]pipeline.RunRecord, 0, len(entities))
	for i := range entities {
		out = append(out, entities[i].ToDomain())
	}
	return out, nil
}

func NewGormRunRepo(db *gorm.DB) pipeline.Journal {
	return &GormRunRepo{db: db}
}
