package repository

import (
	"context"

	"docverify/internal/domain"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return conn(ctx, r.db).Create(entry).Error
}

type AuditLogFilter struct {
	ResourceID string
	UserID     string
	Limit      int
	Offset     int
}

func (r *AuditLogRepository) List(ctx context.Context, f AuditLogFilter) ([]domain.AuditLog, int64, error) {
	q := conn(ctx, r.db).Model(&domain.AuditLog{})
	if f.ResourceID != "" {
		q = q.Where("resource_id = ?", f.ResourceID)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []domain.AuditLog
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Find(&items).Error
	return items, total, err
}
