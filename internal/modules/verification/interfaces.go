package verification

import (
	"context"
	"time"

	"docverify/internal/domain"
	"docverify/internal/repository"
)

type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateState(ctx context.Context, id string, s repository.DocumentState) error
	ListAwaitingReview(ctx context.Context, limit, offset int) ([]domain.Document, int64, error)
	ListStateMismatches(ctx context.Context) ([]repository.StateMismatch, error)
}

type StateStore interface {
	GetByDocumentID(ctx context.Context, documentID string) (*domain.Verification, error)
	RecordApproval(ctx context.Context, documentID, verifierID string) error
	RecordRejection(ctx context.Context, documentID, verifierID, reason string) error
	SetStatus(ctx context.Context, documentID string, status domain.VerificationStatus) error
	AppendLog(ctx context.Context, entry *domain.VerificationLog) error
	ListLogs(ctx context.Context, documentID string) ([]domain.VerificationLog, error)
}

type ProfileRepository interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Profile, error)
}

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Stamper interface {
	Stamp(ctx context.Context, pdf []byte) ([]byte, bool)
}

type Relocator interface {
	Relocate(ctx context.Context, data []byte, originalPath, originalFileName, contentType string) (string, string, error)
}

// Notifier tells a document owner about a decision.
type Notifier interface {
	NotifyDocumentApproved(ctx context.Context, ownerID string, doc domain.Document) error
	NotifyDocumentRejected(ctx context.Context, ownerID string, doc domain.Document, reason string) error
}

type Auditor interface {
	Record(ctx context.Context, actorID, action, resourceType, resourceID string, details map[string]any) error
}

// StatusCache holds rendered status views. A nil StatusCache disables caching.
type StatusCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
