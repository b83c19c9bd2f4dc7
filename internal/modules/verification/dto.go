package verification

import (
	"strings"
	"time"

	"docverify/internal/domain"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction maps the wire action to an Action. "verify" is the public name
// of approval.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "verify", "approve":
		return ActionApprove, true
	case "reject":
		return ActionReject, true
	default:
		return "", false
	}
}

type VerifyRequest struct {
	Action string `json:"action" validate:"max=32"`
	Reason string `json:"reason" validate:"max=2000"`
}

type VerifyInput struct {
	DocumentID string
	ActorID    string
	ActorRole  domain.Role
	Action     string
	Reason     string
}

type VerifyResult struct {
	DocumentID string                    `json:"document_id"`
	Status     domain.VerificationStatus `json:"status"`
	IsPublic   bool                      `json:"is_public"`
	FileURL    string                    `json:"file_url"`
	Stamped    bool                      `json:"stamped"`
}

type Viewer struct {
	UserID string
	Role   domain.Role
}

type HistoryEntry struct {
	ID        string         `json:"id"`
	Action    string         `json:"action"`
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Details   map[string]any `json:"details,omitempty"`
}

type StatusView struct {
	ID                string         `json:"id"`
	DocumentID        string         `json:"documentId"`
	StudentName       string         `json:"studentName"`
	StudentEmail      string         `json:"studentEmail"`
	DocumentName      string         `json:"documentName"`
	DocumentType      string         `json:"documentType"`
	Status            string         `json:"status"`
	RequestedAt       time.Time      `json:"requestedAt"`
	VerificationNotes string         `json:"verificationNotes"`
	History           []HistoryEntry `json:"history"`
}

type PendingDocument struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	OwnerID     string    `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type PendingList struct {
	Items []PendingDocument `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
