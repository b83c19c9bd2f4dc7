package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docverify/internal/domain"
	"docverify/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Repository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
	List(ctx context.Context, f repository.AuditLogFilter) ([]domain.AuditLog, int64, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record appends one audit entry.
func (s *Service) Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]any) error {
	var raw datatypes.JSON
	if len(details) > 0 {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		raw = datatypes.JSON(b)
	}

	return s.repo.Create(ctx, &domain.AuditLog{
		ID:           uuid.NewString(),
		UserID:       actorID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      raw,
		CreatedAt:    s.now().UTC(),
	})
}

type Page struct {
	Items []domain.AuditLog `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

func (s *Service) List(ctx context.Context, resourceID, userID string, page, limit int) (*Page, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	items, total, err := s.repo.List(ctx, repository.AuditLogFilter{
		ResourceID: resourceID,
		UserID:     userID,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}
