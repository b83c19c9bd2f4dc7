package audit

import (
	"net/http"
	"strconv"

	"docverify/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes expects an admin-only group.
func (h *Handler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/audit-logs", h.List)
}

// List godoc
// @Summary List audit log entries
// @Tags admin
// @Param resource_id query string false "Filter by document"
// @Param user_id query string false "Filter by actor"
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Router /admin/audit-logs [get]
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	res, err := h.service.List(c.Request.Context(), c.Query("resource_id"), c.Query("user_id"), page, limit)
	if err != nil {
		h.log.Error("list audit logs failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "FETCH_FAILED", "Failed to get audit logs")
		return
	}
	response.Success(c, http.StatusOK, res)
}
