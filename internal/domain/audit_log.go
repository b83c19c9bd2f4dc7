package domain

import (
	"time"

	"gorm.io/datatypes"
)

const ResourceDocument = "document"

// AuditLog is an append-only record of who did what.
type AuditLog struct {
	ID           string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID       string         `gorm:"column:user_id;size:36;index" json:"user_id"`
	Action       string         `gorm:"column:action;size:32;not null" json:"action"`
	ResourceType string         `gorm:"column:resource_type;size:32" json:"resource_type"`
	ResourceID   string         `gorm:"column:resource_id;size:36;index" json:"resource_id"`
	Details      datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }
