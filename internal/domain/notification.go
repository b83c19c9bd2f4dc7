package domain

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationInfo    NotificationType = "info"
)

type Notification struct {
	ID        string           `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"column:user_id;size:36;index:idx_notifications_user_read" json:"user_id"`
	Title     string           `gorm:"column:title;not null" json:"title"`
	Message   string           `gorm:"column:message" json:"message"`
	Type      NotificationType `gorm:"column:type;size:16;not null" json:"type"`
	Read      bool             `gorm:"column:read;not null;default:false;index:idx_notifications_user_read" json:"read"`
	Data      datatypes.JSON   `gorm:"column:data" json:"data,omitempty"`
	CreatedAt time.Time        `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
