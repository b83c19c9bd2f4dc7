package repository

import (
	"context"

	"docverify/internal/domain"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return conn(ctx, r.db).Create(n).Error
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	q := conn(ctx, r.db).Where(map[string]any{"user_id": userID})
	if unreadOnly {
		q = q.Where(map[string]any{"read": false})
	}
	var items []domain.Notification
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := conn(ctx, r.db).
		Model(&domain.Notification{}).
		Where(map[string]any{"user_id": userID, "read": false}).
		Count(&n).Error
	return n, err
}

// MarkAsRead reports whether a notification owned by userID was updated.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, userID, id string) (bool, error) {
	res := conn(ctx, r.db).
		Model(&domain.Notification{}).
		Where(map[string]any{"id": id, "user_id": userID}).
		Update("read", true)
	return res.RowsAffected > 0, res.Error
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	res := conn(ctx, r.db).
		Model(&domain.Notification{}).
		Where(map[string]any{"user_id": userID, "read": false}).
		Update("read", true)
	return res.RowsAffected, res.Error
}
