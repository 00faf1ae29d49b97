package auth

import (
	"fmt"

	"gorm.io/gorm"
)

// Init creates the session table.
func Init(d *gorm.DB) error {
	if err := d.AutoMigrate(&Session{}); err != nil {
		return fmt.Errorf("auto-migrate admin_sessions: %w", err)
	}
	return nil
}
