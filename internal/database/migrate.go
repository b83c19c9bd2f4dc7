package database

import (
	"docverify/internal/domain"

	"gorm.io/gorm"
)

// Migrate creates or updates the tables the service reads and writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Profile{},
		&domain.Document{},
		&domain.Verification{},
		&domain.VerificationLog{},
		&domain.DocumentRejection{},
		&domain.Notification{},
		&domain.AuditLog{},
	)
}
