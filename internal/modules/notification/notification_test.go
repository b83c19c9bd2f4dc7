package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docverify/internal/database"
	"docverify/internal/domain"
	"docverify/internal/middleware"
	"docverify/internal/pkg/jwt"
	"docverify/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRepo(t *testing.T) *repository.NotificationRepository {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "n.db"), database.Options{MaxOpenConns: 1}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return repository.NewNotificationRepository(db)
}

type recordingPusher struct {
	sent []string
}

func (p *recordingPusher) SendToUser(userID string, _ any) bool {
	p.sent = append(p.sent, userID)
	return true
}

func TestService_Templates(t *testing.T) {
	repo := newRepo(t)
	pusher := &recordingPusher{}
	svc := NewService(repo, pusher, zap.NewNop())
	ctx := context.Background()
	doc := domain.Document{ID: "d1", UserID: "s1", Title: "Diploma", FileURL: "/files/d.pdf"}

	require.NoError(t, svc.NotifyDocumentApproved(ctx, "s1", doc))
	require.NoError(t, svc.NotifyDocumentRejected(ctx, "s1", doc, "Blurry scan"))

	list, unread, err := svc.GetUserNotifications(ctx, "s1", false, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)
	require.Len(t, list, 2)

	byTitle := map[string]domain.Notification{}
	for _, n := range list {
		byTitle[n.Title] = n
	}
	approved := byTitle["Document Approved!"]
	assert.Equal(t, domain.NotificationSuccess, approved.Type)
	assert.Contains(t, approved.Message, `"Diploma"`)

	rejected := byTitle["Document Rejected"]
	assert.Equal(t, domain.NotificationError, rejected.Type)
	assert.Contains(t, rejected.Message, "Reason: Blurry scan")

	var data map[string]string
	require.NoError(t, json.Unmarshal(rejected.Data, &data))
	assert.Equal(t, "d1", data["document_id"])
	assert.Equal(t, "Diploma", data["document_title"])

	assert.Equal(t, []string{"s1", "s1"}, pusher.sent)
}

func TestService_MarkAsRead(t *testing.T) {
	svc := NewService(newRepo(t), nil, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, svc.NotifyDocumentApproved(ctx, "s1", domain.Document{ID: "d1", Title: "T"}))

	list, _, err := svc.GetUserNotifications(ctx, "s1", true, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.ErrorIs(t, svc.MarkAsRead(ctx, "someone-else", list[0].ID), ErrNotFound)
	require.NoError(t, svc.MarkAsRead(ctx, "s1", list[0].ID))

	_, unread, err := svc.GetUserNotifications(ctx, "s1", false, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestHandler_REST(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(newRepo(t), nil, zap.NewNop())
	jwtService := jwt.New("secret", time.Hour)
	h := NewHandler(svc, NewHub(), jwtService, nil, zap.NewNop())

	r := gin.New()
	api := r.Group("/api/v1", middleware.JWTAuth(jwtService))
	h.RegisterRoutes(api)

	require.NoError(t, svc.NotifyDocumentApproved(context.Background(), "s1", domain.Document{ID: "d1", Title: "T"}))
	token, _ := jwtService.GenerateToken("s1", "student")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?unread=true", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread_count":1`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/read-all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":1`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/notifications/missing/read", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_WebSocketPush(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	defer hub.Close()
	svc := NewService(newRepo(t), hub, zap.NewNop())
	jwtService := jwt.New("secret", time.Hour)
	h := NewHandler(svc, hub, jwtService, nil, zap.NewNop())

	r := gin.New()
	h.RegisterWebSocket(r.Group("/api/v1"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/notifications?token="

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"bad", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, _ := jwtService.GenerateToken("s1", "student")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+token, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.IsOnline("s1") }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.NotifyDocumentRejected(context.Background(), "s1", domain.Document{ID: "d1", Title: "T"}, "Blurry scan"))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "notification", ev.Type)
	require.NotNil(t, ev.Notification)
	assert.Equal(t, "Document Rejected", ev.Notification.Title)

	assert.False(t, hub.SendToUser("nobody", ev))
}

func TestService_TitleWithQuotesIsNotEscaped(t *testing.T) {
	repo := newRepo(t)
	svc := NewService(repo, nil, zap.NewNop())
	ctx := context.Background()
	doc := domain.Document{ID: "d2", UserID: "s2", Title: `My "final" CV`}

	require.NoError(t, svc.NotifyDocumentApproved(ctx, "s2", doc))

	list, _, err := svc.GetUserNotifications(ctx, "s2", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, `Your document "My "final" CV" has been verified and approved.`, list[0].Message)
	assert.NotContains(t, list[0].Message, `\"`)
}
