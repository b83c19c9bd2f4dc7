package verification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"docverify/internal/domain"
	"docverify/internal/middleware"
	"docverify/internal/pkg/response"
	"docverify/internal/pkg/validator"

	"github.com/OneOfOne/xxhash"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	docs := rg.Group("/documents")
	{
		docs.GET("/pending", h.ListPending)
		docs.POST("/:id/verify", h.Verify)
		docs.GET("/:id/verification-status", h.GetStatus)
		docs.GET("/:id/preview-url", h.PreviewURL)
	}
}

// Verify godoc
// @Summary Approve or reject a document
// @Tags verification
// @Param id path string true "Document ID"
// @Param body body VerifyRequest true "Decision"
// @Success 200 {object} VerifyResult
// @Router /documents/{id}/verify [post]
func (h *Handler) Verify(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, ErrUnauthorized)
		return
	}
	// role first: the body of a forbidden caller is never inspected
	if !role.CanVerify() {
		writeError(c, ErrForbidden)
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", errs)
		return
	}

	res, err := h.service.Verify(c.Request.Context(), VerifyInput{
		DocumentID: c.Param("id"),
		ActorID:    userID,
		ActorRole:  role,
		Action:     req.Action,
		Reason:     req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	message := "Document verified successfully"
	if res.Status != domain.VerificationApproved {
		message = "Document rejected"
	}
	response.SuccessMessage(c, http.StatusOK, message, res)
}

// GetStatus returns the review state with an ETag over the rendered body.
func (h *Handler) GetStatus(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, ErrUnauthorized)
		return
	}

	view, err := h.service.GetVerificationStatus(c.Request.Context(), c.Param("id"), Viewer{UserID: userID, Role: role})
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"success": true, "verification": view})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to render verification status")
		return
	}

	etag := `"` + strconv.FormatUint(xxhash.Checksum64(body), 16) + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", "private, no-cache")
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func (h *Handler) ListPending(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, ErrUnauthorized)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	list, err := h.service.ListPending(c.Request.Context(), Viewer{UserID: userID, Role: role}, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

func (h *Handler) PreviewURL(c *gin.Context) {
	userID, role, ok := middleware.CurrentUser(c)
	if !ok {
		writeError(c, ErrUnauthorized)
		return
	}

	url, expires, err := h.service.PreviewURL(c.Request.Context(), c.Param("id"), Viewer{UserID: userID, Role: role})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url, "expires_at": expires})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to access this document")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Document not found")
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Rejection reason is required")
	case errors.Is(err, ErrInvalidAction):
		response.Error(c, http.StatusBadRequest, "INVALID_ACTION", "Action must be 'verify' or 'reject'")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to process verification")
	}
}
