package notification

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"docverify/internal/middleware"
	"docverify/internal/pkg/jwt"
	"docverify/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const pongWait = 60 * time.Second

type Handler struct {
	service  *Service
	hub      *Hub
	jwt      *jwt.Service
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHandler builds the REST and websocket handlers. allowedOrigins limits
// websocket upgrades; an empty list accepts any origin.
func NewHandler(service *Service, hub *Hub, jwtService *jwt.Service, allowedOrigins []string, log *zap.Logger) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &Handler{
		service: service,
		hub:     hub,
		jwt:     jwtService,
		log:     log.With(zap.String("handler", "notification")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	g := protected.Group("/notifications")
	{
		g.GET("", h.GetNotifications)
		g.PATCH("/:id/read", h.MarkAsRead)
		g.PATCH("/read-all", h.MarkAllAsRead)
	}
}

// RegisterWebSocket mounts the push endpoint. Browsers cannot set headers on
// websocket requests, so the token travels in the query string.
func (h *Handler) RegisterWebSocket(rg *gin.RouterGroup) {
	rg.GET("/ws/notifications", h.HandleWebSocket)
}

func (h *Handler) GetNotifications(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	limit := 20
	if s := c.Query("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = min(v, 100)
		}
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	unreadOnly := c.Query("unread") == "true"

	list, unread, err := h.service.GetUserNotifications(c.Request.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		h.log.Error("list notifications failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get notifications")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"notifications": list,
		"unread_count":  unread,
	})
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	if err := h.service.MarkAsRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Notification not found")
			return
		}
		h.log.Error("mark notification read failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark as read")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "read"})
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	userID, _, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "User not authenticated")
		return
	}

	n, err := h.service.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("mark all notifications read failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "UPDATE_FAILED", "Failed to mark as read")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "all_read", "updated": n})
}

// HandleWebSocket serves GET /ws/notifications?token=JWT. The connection is
// push only; client frames are read and dropped to keep pongs flowing.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Token is required. Use ?token=YOUR_JWT_TOKEN")
		return
	}
	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	userID := claims.UserID
	cl := h.hub.Register(userID, conn)
	h.log.Debug("websocket connected", zap.String("user_id", userID))
	defer func() {
		h.hub.Unregister(userID, cl)
		h.log.Debug("websocket disconnected", zap.String("user_id", userID))
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(cl, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.String("user_id", userID), zap.Error(err))
			}
			return
		}
	}
}

func pingLoop(cl *Client, done <-chan struct{}) {
	ticker := time.NewTicker(pongWait / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
