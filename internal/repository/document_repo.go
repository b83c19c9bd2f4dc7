package repository

import (
	"context"
	"errors"
	"time"

	"docverify/internal/domain"

	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// DocumentState is the part of a document the verification flow mutates.
type DocumentState struct {
	IsPublic    bool
	StoragePath string
	FileURL     string
	UpdatedAt   time.Time
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	return conn(ctx, r.db).Create(d).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var d domain.Document
	err := conn(ctx, r.db).Where("id = ?", id).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpdateState writes visibility and artifact location. Empty path/url keep
// the stored values.
func (r *DocumentRepository) UpdateState(ctx context.Context, id string, s DocumentState) error {
	updates := map[string]any{
		"is_public":  s.IsPublic,
		"updated_at": s.UpdatedAt,
	}
	if s.StoragePath != "" {
		updates["storage_path"] = s.StoragePath
	}
	if s.FileURL != "" {
		updates["file_url"] = s.FileURL
	}

	res := conn(ctx, r.db).Model(&domain.Document{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// ListAwaitingReview returns hidden documents that were never decided or are
// explicitly pending, oldest first.
func (r *DocumentRepository) ListAwaitingReview(ctx context.Context, limit, offset int) ([]domain.Document, int64, error) {
	q := conn(ctx, r.db).
		Model(&domain.Document{}).
		Joins("LEFT JOIN verifications v ON v.document_id = documents.id").
		Where("documents.is_public = ?", false).
		Where("(v.id IS NULL OR v.status = ?)", domain.VerificationPending).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []domain.Document
	if err := q.
		Select("documents.*").
		Order("documents.created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error; err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// StateMismatch is a document whose visibility disagrees with its
// verification row.
type StateMismatch struct {
	DocumentID string
	UserID     string
	IsPublic   bool
	Status     *string
}

func (r *DocumentRepository) ListStateMismatches(ctx context.Context) ([]StateMismatch, error) {
	var rows []StateMismatch
	err := conn(ctx, r.db).
		Table("documents").
		Select("documents.id AS document_id, documents.user_id AS user_id, documents.is_public AS is_public, v.status AS status").
		Joins("LEFT JOIN verifications v ON v.document_id = documents.id").
		Where("(documents.is_public = ? AND (v.status IS NULL OR v.status <> ?)) OR (documents.is_public = ? AND v.status = ?)",
			true, domain.VerificationApproved, false, domain.VerificationApproved).
		Order("documents.id").
		Scan(&rows).Error
	return rows, err
}
