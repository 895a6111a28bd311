package migrations

import (
	"fmt"

	"github.com/Anvoria/scanly/internal/domain/user"
	"gorm.io/gorm"
)

// RunMigrations runs all database migrations. Scene sessions live purely in
// memory; only the user directory is persisted.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&user.User{}); err != nil {
		return fmt.Errorf("failed to make migrations: %w", err)
	}
	return nil
}
