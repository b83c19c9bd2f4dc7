package domain

import (
	"time"

	"gorm.io/datatypes"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

type LogAction string

const (
	LogActionVerified LogAction = "verified"
	LogActionRejected LogAction = "rejected"
)

const (
	ScoreApproved = 100
	ScoreRejected = 0
)

// Verification is the single current review state of a document.
type Verification struct {
	ID              string             `gorm:"column:id;primaryKey;size:36" json:"id"`
	DocumentID      string             `gorm:"column:document_id;size:36;uniqueIndex;not null" json:"document_id"`
	Status          VerificationStatus `gorm:"column:status;size:16;not null;default:pending" json:"status"`
	VerifierID      string             `gorm:"column:verifier_id;size:36" json:"verifier_id"`
	RejectionReason *string            `gorm:"column:rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time          `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"column:updated_at" json:"updated_at"`
}

func (Verification) TableName() string { return "verifications" }

// VerificationLog is an immutable history entry. VerificationID holds the
// document id.
type VerificationLog struct {
	ID             string         `gorm:"column:id;primaryKey;size:36" json:"id"`
	VerificationID string         `gorm:"column:verification_id;size:36;index;not null" json:"verification_id"`
	Action         LogAction      `gorm:"column:action;size:16;not null" json:"action"`
	PerformerID    string         `gorm:"column:performer_id;size:36" json:"performer_id"`
	PerformerRole  string         `gorm:"column:performer_role;size:16" json:"performer_role"`
	Details        datatypes.JSON `gorm:"column:details" json:"details,omitempty"`
	Score          int            `gorm:"column:score" json:"score"`
	CreatedAt      time.Time      `gorm:"column:created_at;index" json:"created_at"`
}

func (VerificationLog) TableName() string { return "verification_logs" }

// DocumentRejection keeps the reason of the latest rejection. Its absence
// means "never rejected", not "approved".
type DocumentRejection struct {
	ID              string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	DocumentID      string    `gorm:"column:document_id;size:36;uniqueIndex;not null" json:"document_id"`
	RejectedBy      string    `gorm:"column:rejected_by;size:36" json:"rejected_by"`
	RejectionReason string    `gorm:"column:rejection_reason;not null" json:"rejection_reason"`
	RejectedAt      time.Time `gorm:"column:rejected_at" json:"rejected_at"`
}

func (DocumentRejection) TableName() string { return "document_rejections" }

// DeriveStatus resolves the effective status of a document. IsPublic wins;
// the verification row only distinguishes rejected from pending for documents
// that are not public.
func DeriveStatus(isPublic bool, rec *Verification) VerificationStatus {
	if isPublic {
		return VerificationApproved
	}
	if rec != nil && rec.Status == VerificationRejected {
		return VerificationRejected
	}
	return VerificationPending
}
