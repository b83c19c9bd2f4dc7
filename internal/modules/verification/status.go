package verification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"docverify/internal/cache"
	"docverify/internal/database"
	"docverify/internal/domain"
	"docverify/internal/repository"

	"go.uber.org/zap"
)

// GetVerificationStatus renders the review state and history of a document
// for its owner or a reviewer.
func (s *Service) GetVerificationStatus(ctx context.Context, documentID string, viewer Viewer) (*StatusView, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !canView(doc, viewer) {
		return nil, ErrForbidden
	}

	key := statusKeyPrefix + doc.ID
	if s.cache != nil {
		var cached StatusView
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("status cache read failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}

	view, err := s.buildStatus(ctx, doc)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, view, s.opts.StatusCacheTTL); err != nil {
			s.log.Warn("status cache write failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	return view, nil
}

func (s *Service) buildStatus(ctx context.Context, doc *domain.Document) (*StatusView, error) {
	rec, err := s.states.GetByDocumentID(ctx, doc.ID)
	if errors.Is(err, repository.ErrVerificationNotFound) {
		rec, err = nil, nil
	}
	if err != nil {
		s.log.Error("load verification failed", database.ErrorFields(err)...)
		return nil, dependencyError("load verification", err)
	}

	logs, err := s.states.ListLogs(ctx, doc.ID)
	if err != nil {
		s.log.Error("load verification history failed", database.ErrorFields(err)...)
		return nil, dependencyError("load history", err)
	}

	ids := []string{doc.UserID}
	for _, l := range logs {
		if l.PerformerID != "" {
			ids = append(ids, l.PerformerID)
		}
	}
	profiles := map[string]domain.Profile{}
	if s.profiles != nil {
		if profiles, err = s.profiles.GetByIDs(ctx, ids); err != nil {
			// names are cosmetic
			s.log.Warn("load profiles failed", zap.Error(err))
			profiles = map[string]domain.Profile{}
		}
	}

	status := domain.DeriveStatus(doc.IsPublic, rec)
	view := &StatusView{
		DocumentID:   doc.ID,
		StudentName:  profiles[doc.UserID].FullName,
		StudentEmail: profiles[doc.UserID].Email,
		DocumentName: doc.Title,
		DocumentType: doc.Category,
		Status:       string(status),
		RequestedAt:  doc.CreatedAt,
		History:      make([]HistoryEntry, 0, len(logs)),
	}
	if view.DocumentName == "" {
		view.DocumentName = doc.FileName
	}
	if rec != nil {
		view.ID = rec.ID
		if status == domain.VerificationRejected && rec.RejectionReason != nil {
			view.VerificationNotes = *rec.RejectionReason
		}
	}

	for _, l := range logs {
		entry := HistoryEntry{
			ID:        l.ID,
			Action:    string(l.Action),
			Timestamp: l.CreatedAt,
			User:      performerName(profiles, l),
		}
		if len(l.Details) > 0 {
			_ = json.Unmarshal(l.Details, &entry.Details)
		}
		view.History = append(view.History, entry)
	}
	return view, nil
}

func performerName(profiles map[string]domain.Profile, l domain.VerificationLog) string {
	if p, ok := profiles[l.PerformerID]; ok && p.FullName != "" {
		return p.FullName
	}
	if l.PerformerRole != "" {
		return l.PerformerRole
	}
	return "system"
}

// ListPending returns documents waiting for a reviewer, oldest first.
func (s *Service) ListPending(ctx context.Context, viewer Viewer, page, limit int) (*PendingList, error) {
	if !viewer.Role.CanVerify() {
		return nil, ErrForbidden
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	docs, total, err := s.docs.ListAwaitingReview(ctx, limit, (page-1)*limit)
	if err != nil {
		s.log.Error("list pending documents failed", database.ErrorFields(err)...)
		return nil, dependencyError("list pending", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.UserID)
	}
	profiles := map[string]domain.Profile{}
	if s.profiles != nil && len(ids) > 0 {
		if profiles, err = s.profiles.GetByIDs(ctx, ids); err != nil {
			s.log.Warn("load profiles failed", zap.Error(err))
			profiles = map[string]domain.Profile{}
		}
	}

	out := &PendingList{Items: make([]PendingDocument, 0, len(docs)), Total: total, Page: page, Limit: limit}
	for _, d := range docs {
		out.Items = append(out.Items, PendingDocument{
			ID:          d.ID,
			Title:       d.Title,
			Category:    d.Category,
			FileName:    d.FileName,
			FileType:    d.FileType,
			OwnerID:     d.UserID,
			OwnerName:   profiles[d.UserID].FullName,
			Status:      string(domain.VerificationPending),
			SubmittedAt: d.CreatedAt,
		})
	}
	return out, nil
}

// PreviewURL issues a short lived link to the current artifact.
func (s *Service) PreviewURL(ctx context.Context, documentID string, viewer Viewer) (string, time.Time, error) {
	doc, err := s.loadDocument(ctx, documentID)
	if err != nil {
		return "", time.Time{}, err
	}
	if !canView(doc, viewer) {
		return "", time.Time{}, ErrForbidden
	}
	if doc.StoragePath == "" || s.store == nil {
		return "", time.Time{}, ErrNotFound
	}

	expires := s.now().Add(s.opts.SignedURLTTL)
	url, err := s.store.SignedURL(ctx, doc.StoragePath, s.opts.SignedURLTTL)
	if err != nil {
		s.log.Error("sign preview url failed", zap.String("document_id", doc.ID), zap.Error(err))
		return "", time.Time{}, dependencyError("sign url", err)
	}
	return url, expires, nil
}
