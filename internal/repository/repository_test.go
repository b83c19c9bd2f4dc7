package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"docverify/internal/database"
	"docverify/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "repo.db"), database.Options{MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedDocument(t *testing.T, db *gorm.DB, isPublic bool) *domain.Document {
	t.Helper()
	doc := &domain.Document{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		Title:       "Transcript",
		FileName:    "transcript.pdf",
		FileType:    domain.ContentTypePDF,
		StoragePath: "u/transcript.pdf",
		FileURL:     "/files/u/transcript.pdf",
		IsPublic:    isPublic,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, NewDocumentRepository(db).Create(context.Background(), doc))
	return doc
}

func TestDocumentRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	doc := seedDocument(t, db, false)

	got, err := repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, got.Title)

	_, err = repo.GetByID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentRepository_UpdateStateKeepsLocationWhenEmpty(t *testing.T) {
	db := newTestDB(t)
	repo := NewDocumentRepository(db)
	doc := seedDocument(t, db, false)
	ctx := context.Background()

	require.NoError(t, repo.UpdateState(ctx, doc.ID, DocumentState{IsPublic: true, UpdatedAt: time.Now()}))
	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPublic)
	assert.Equal(t, "u/transcript.pdf", got.StoragePath)

	require.NoError(t, repo.UpdateState(ctx, doc.ID, DocumentState{
		IsPublic:    true,
		StoragePath: "u/transcript_verified_1.pdf",
		FileURL:     "/files/u/transcript_verified_1.pdf",
		UpdatedAt:   time.Now(),
	}))
	got, err = repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "u/transcript_verified_1.pdf", got.StoragePath)

	err = repo.UpdateState(ctx, uuid.NewString(), DocumentState{UpdatedAt: time.Now()})
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestDocumentRepository_ListAwaitingReview(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepository(db)
	ver := NewVerificationRepository(db)
	ctx := context.Background()

	fresh := seedDocument(t, db, false)
	rejected := seedDocument(t, db, false)
	seedDocument(t, db, true)
	require.NoError(t, ver.RecordRejection(ctx, rejected.ID, "v1", "blurry"))

	items, total, err := docs.ListAwaitingReview(ctx, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, fresh.ID, items[0].ID)
}

func TestDocumentRepository_ListStateMismatches(t *testing.T) {
	db := newTestDB(t)
	docs := NewDocumentRepository(db)
	ver := NewVerificationRepository(db)
	ctx := context.Background()

	publicNoRow := seedDocument(t, db, true)
	hiddenApproved := seedDocument(t, db, false)
	consistent := seedDocument(t, db, true)
	require.NoError(t, ver.RecordApproval(ctx, hiddenApproved.ID, "v1"))
	require.NoError(t, ver.RecordApproval(ctx, consistent.ID, "v1"))

	rows, err := docs.ListStateMismatches(ctx)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, r := range rows {
		ids[r.DocumentID] = true
	}
	assert.Len(t, rows, 2)
	assert.True(t, ids[publicNoRow.ID])
	assert.True(t, ids[hiddenApproved.ID])
}

func TestVerificationRepository_StatusDefaultsToPending(t *testing.T) {
	repo := NewVerificationRepository(newTestDB(t))

	status, err := repo.GetStatus(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationPending, status)
}

func TestVerificationRepository_UpsertKeepsSingleRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewVerificationRepository(db)
	ctx := context.Background()
	docID := uuid.NewString()

	require.NoError(t, repo.RecordRejection(ctx, docID, "v1", "missing signature"))
	v, err := repo.GetByDocumentID(ctx, docID)
	require.NoError(t, err)
	require.NotNil(t, v.RejectionReason)
	assert.Equal(t, "missing signature", *v.RejectionReason)

	require.NoError(t, repo.RecordApproval(ctx, docID, "v2"))
	require.NoError(t, repo.RecordApproval(ctx, docID, "v2"))

	var count int64
	require.NoError(t, db.Model(&domain.Verification{}).Where("document_id = ?", docID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	v, err = repo.GetByDocumentID(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationApproved, v.Status)
	assert.Equal(t, "v2", v.VerifierID)
	assert.Nil(t, v.RejectionReason)

	rej, err := repo.GetRejection(ctx, docID)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, "missing signature", rej.RejectionReason)
}

func TestVerificationRepository_RejectionReasonUpdated(t *testing.T) {
	db := newTestDB(t)
	repo := NewVerificationRepository(db)
	ctx := context.Background()
	docID := uuid.NewString()

	require.NoError(t, repo.RecordRejection(ctx, docID, "v1", "first"))
	require.NoError(t, repo.RecordRejection(ctx, docID, "v1", "second"))

	var count int64
	require.NoError(t, db.Model(&domain.DocumentRejection{}).Where("document_id = ?", docID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	rej, err := repo.GetRejection(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "second", rej.RejectionReason)
}

func TestVerificationRepository_RejectionRequiresReason(t *testing.T) {
	repo := NewVerificationRepository(newTestDB(t))

	err := repo.RecordRejection(context.Background(), uuid.NewString(), "v1", "   ")
	assert.ErrorIs(t, err, ErrEmptyReason)
}

func TestVerificationRepository_LogsNewestFirst(t *testing.T) {
	repo := NewVerificationRepository(newTestDB(t))
	ctx := context.Background()
	docID := uuid.NewString()
	base := time.Now().UTC()

	require.NoError(t, repo.AppendLog(ctx, &domain.VerificationLog{
		VerificationID: docID, Action: domain.LogActionRejected, CreatedAt: base,
	}))
	require.NoError(t, repo.AppendLog(ctx, &domain.VerificationLog{
		VerificationID: docID, Action: domain.LogActionVerified, Score: domain.ScoreApproved, CreatedAt: base.Add(time.Second),
	}))

	logs, err := repo.ListLogs(ctx, docID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, domain.LogActionVerified, logs[0].Action)
	assert.Equal(t, domain.LogActionRejected, logs[1].Action)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactor(db)
	docs := NewDocumentRepository(db)
	ver := NewVerificationRepository(db)
	doc := seedDocument(t, db, false)
	boom := errors.New("boom")

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, docs.UpdateState(ctx, doc.ID, DocumentState{IsPublic: true, UpdatedAt: time.Now()}))
		require.NoError(t, ver.RecordApproval(ctx, doc.ID, "v1"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.False(t, got.IsPublic)

	status, err := ver.GetStatus(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationPending, status)
}

func TestTransactor_FailedLogDoesNotAbortOuterWork(t *testing.T) {
	db := newTestDB(t)
	tx := NewTransactor(db)
	ver := NewVerificationRepository(db)
	docID := uuid.NewString()
	dupID := uuid.NewString()

	require.NoError(t, ver.AppendLog(context.Background(), &domain.VerificationLog{ID: dupID, VerificationID: docID, Action: domain.LogActionVerified}))

	err := tx.WithinTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, ver.RecordApproval(ctx, docID, "v1"))
		logErr := ver.AppendLog(ctx, &domain.VerificationLog{ID: dupID, VerificationID: docID, Action: domain.LogActionVerified})
		assert.Error(t, logErr)
		return nil
	})
	require.NoError(t, err)

	status, err := ver.GetStatus(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationApproved, status)
}

func TestNotificationRepository_ReadFlags(t *testing.T) {
	repo := NewNotificationRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.NewString()

	first := &domain.Notification{ID: uuid.NewString(), UserID: userID, Title: "a", Type: domain.NotificationSuccess, CreatedAt: time.Now()}
	second := &domain.Notification{ID: uuid.NewString(), UserID: userID, Title: "b", Type: domain.NotificationError, CreatedAt: time.Now().Add(time.Second)}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	n, err := repo.CountUnread(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ok, err := repo.MarkAsRead(ctx, userID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkAsRead(ctx, uuid.NewString(), second.ID)
	require.NoError(t, err)
	assert.False(t, ok, "other users cannot mark it")

	unread, err := repo.ListByUser(ctx, userID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)

	updated, err := repo.MarkAllAsRead(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)
}

func TestAuditLogRepository_ListFilters(t *testing.T) {
	repo := NewAuditLogRepository(newTestDB(t))
	ctx := context.Background()
	docID := uuid.NewString()

	require.NoError(t, repo.Create(ctx, &domain.AuditLog{ID: uuid.NewString(), UserID: "v1", Action: "document_approved", ResourceType: domain.ResourceDocument, ResourceID: docID, CreatedAt: time.Now()}))
	require.NoError(t, repo.Create(ctx, &domain.AuditLog{ID: uuid.NewString(), UserID: "v1", Action: "document_rejected", ResourceType: domain.ResourceDocument, ResourceID: uuid.NewString(), CreatedAt: time.Now()}))

	items, total, err := repo.List(ctx, AuditLogFilter{ResourceID: docID, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "document_approved", items[0].Action)

	_, total, err = repo.List(ctx, AuditLogFilter{UserID: "v1", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestProfileRepository_GetByIDs(t *testing.T) {
	repo := NewProfileRepository(newTestDB(t))
	ctx := context.Background()

	p := &domain.Profile{ID: uuid.NewString(), FullName: "Dr. Lee", Email: "lee@uni.edu", Role: domain.RoleFaculty}
	require.NoError(t, repo.Upsert(ctx, p))

	got, err := repo.GetByIDs(ctx, []string{p.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Dr. Lee", got[p.ID].FullName)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}
