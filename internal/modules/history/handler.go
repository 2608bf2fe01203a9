package history

import (
	"net/http"
	"strconv"

	"filmrental/internal/domain"
	"filmrental/internal/pkg/response"
	"filmrental/internal/repository"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes mounts the audit log under an admin-only group.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/history", h.List)
	admin.GET("/history/batches/:batchId", h.Batch)
}

func (h *Handler) List(c *gin.Context) {
	targetID, _ := strconv.ParseInt(c.Query("target_id"), 10, 64)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	out, err := h.service.List(c.Request.Context(), repository.HistoryFilter{
		TargetType: domain.TargetType(c.Query("target_type")),
		TargetID:   targetID,
		BatchID:    c.Query("batch_id"),
		Page:       page,
		PageSize:   size,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Batch(c *gin.Context) {
	items, err := h.service.Batch(c.Request.Context(), c.Param("batchId"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"batch_id": c.Param("batchId"), "items": items})
}
