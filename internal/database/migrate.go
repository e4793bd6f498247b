package database

import (
	"fmt"

	"github.com/xpanvictor/ava/internal/repository/run"
	"gorm.io/gorm"
)

func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&run.RunEntity{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
