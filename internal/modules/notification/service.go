package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docverify/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

var ErrNotFound = errors.New("notification not found")

type Repository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, userID, id string) (bool, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
}

// Pusher delivers a stored notification to a live connection, if any.
type Pusher interface {
	SendToUser(userID string, message any) bool
}

type Service struct {
	repo   Repository
	pusher Pusher
	log    *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, pusher Pusher, log *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		pusher: pusher,
		log:    log.With(zap.String("service", "notification")),
		now:    time.Now,
	}
}

func (s *Service) NotifyDocumentApproved(ctx context.Context, ownerID string, doc domain.Document) error {
	return s.create(ctx, ownerID, domain.NotificationSuccess,
		"Document Approved!",
		fmt.Sprintf(`Your document "%s" has been verified and approved.`, doc.Title),
		doc)
}

func (s *Service) NotifyDocumentRejected(ctx context.Context, ownerID string, doc domain.Document, reason string) error {
	return s.create(ctx, ownerID, domain.NotificationError,
		"Document Rejected",
		fmt.Sprintf(`Your document "%s" was rejected. Reason: %s`, doc.Title, reason),
		doc)
}

func (s *Service) create(ctx context.Context, userID string, typ domain.NotificationType, title, message string, doc domain.Document) error {
	data, err := json.Marshal(map[string]string{
		"document_id":    doc.ID,
		"document_title": doc.Title,
		"file_url":       doc.FileURL,
	})
	if err != nil {
		return err
	}

	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		Data:      datatypes.JSON(data),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if s.pusher != nil && s.pusher.SendToUser(userID, NewNotificationEvent(n)) {
		s.log.Debug("notification pushed", zap.String("user_id", userID), zap.String("notification_id", n.ID))
	}
	return nil
}

func (s *Service) GetUserNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, int64, error) {
	list, err := s.repo.ListByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, userID, id string) error {
	ok, err := s.repo.MarkAsRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}
