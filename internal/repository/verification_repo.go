package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"docverify/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrVerificationNotFound = errors.New("verification not found")
	ErrEmptyReason          = errors.New("rejection reason is required")
)

// VerificationRepository owns the verifications, verification_logs and
// document_rejections tables. There is at most one verification row per
// document; writes upsert on document_id.
type VerificationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db, now: time.Now}
}

func (r *VerificationRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.Verification, error) {
	var v domain.Verification
	err := conn(ctx, r.db).Where("document_id = ?", documentID).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVerificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// GetStatus returns the stored status; a document without a row is pending.
func (r *VerificationRepository) GetStatus(ctx context.Context, documentID string) (domain.VerificationStatus, error) {
	v, err := r.GetByDocumentID(ctx, documentID)
	if errors.Is(err, ErrVerificationNotFound) {
		return domain.VerificationPending, nil
	}
	if err != nil {
		return "", err
	}
	return v.Status, nil
}

func (r *VerificationRepository) RecordApproval(ctx context.Context, documentID, verifierID string) error {
	return r.upsert(ctx, documentID, verifierID, domain.VerificationApproved, nil)
}

// RecordRejection stores the rejected state and the latest reason.
func (r *VerificationRepository) RecordRejection(ctx context.Context, documentID, verifierID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return ErrEmptyReason
	}
	if err := r.upsert(ctx, documentID, verifierID, domain.VerificationRejected, &reason); err != nil {
		return err
	}

	rej := domain.DocumentRejection{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		RejectedBy:      verifierID,
		RejectionReason: reason,
		RejectedAt:      r.now().UTC(),
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rejected_by", "rejection_reason", "rejected_at"}),
	}).Create(&rej).Error
}

// SetStatus overwrites only the status. Used when repairing drift.
func (r *VerificationRepository) SetStatus(ctx context.Context, documentID string, status domain.VerificationStatus) error {
	now := r.now().UTC()
	v := domain.Verification{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(&v).Error
}

func (r *VerificationRepository) upsert(ctx context.Context, documentID, verifierID string, status domain.VerificationStatus, reason *string) error {
	now := r.now().UTC()
	v := domain.Verification{
		ID:              uuid.NewString(),
		DocumentID:      documentID,
		Status:          status,
		VerifierID:      verifierID,
		RejectionReason: reason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "verifier_id", "rejection_reason", "updated_at"}),
	}).Create(&v).Error
}

// AppendLog inserts a history entry inside its own savepoint when called
// within a transaction, so a failed insert leaves the outer work intact.
func (r *VerificationRepository) AppendLog(ctx context.Context, entry *domain.VerificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}
	return conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return tx.Create(entry).Error
	})
}

// ListLogs returns the history of a document, newest first.
func (r *VerificationRepository) ListLogs(ctx context.Context, documentID string) ([]domain.VerificationLog, error) {
	var logs []domain.VerificationLog
	err := conn(ctx, r.db).
		Where("verification_id = ?", documentID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

func (r *VerificationRepository) GetRejection(ctx context.Context, documentID string) (*domain.DocumentRejection, error) {
	var rej domain.DocumentRejection
	err := conn(ctx, r.db).Where("document_id = ?", documentID).First(&rej).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rej, nil
}
