package inventory

import (
	"net/http"
	"strconv"

	"filmrental/internal/middleware"
	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the student-facing catalog.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/equipment", h.Catalog)
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	// equipment types
	admin.GET("/equipment", h.ListEquipment)
	admin.POST("/equipment", h.CreateEquipment)
	admin.PUT("/equipment/:id", h.UpdateEquipment)
	admin.DELETE("/equipment/:id", h.DeleteEquipment)
	admin.PATCH("/equipment/:id/category", h.MoveCategory)

	// assets
	admin.GET("/equipment/:id/assets", h.ListAssets)
	admin.POST("/equipment/:id/assets", h.CreateAsset)
	admin.POST("/equipment/:id/assets/batch", h.CreateAssetsBatch)
	admin.PUT("/assets/:id", h.UpdateAsset)
	admin.DELETE("/assets/:id", h.DeleteAsset)
	admin.PATCH("/assets/:id/status", h.SetAssetStatus)
	admin.GET("/assets/:id/history", h.AssetHistory)

	admin.POST("/inventory/import", h.Import)
}

func (h *Handler) Catalog(c *gin.Context) {
	list, err := h.service.ListEquipment(c.Request.Context(), false)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"equipment": list})
}

func (h *Handler) ListEquipment(c *gin.Context) {
	includeHidden := c.DefaultQuery("include_hidden", "true") == "true"
	list, err := h.service.ListEquipment(c.Request.Context(), includeHidden)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"equipment": list})
}

func (h *Handler) CreateEquipment(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	var req CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	eq, err := h.service.CreateEquipment(c.Request.Context(), actor, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"equipment": eq})
}

func (h *Handler) UpdateEquipment(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	eq, err := h.service.UpdateEquipment(c.Request.Context(), actor, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"equipment": eq})
}

func (h *Handler) DeleteEquipment(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteEquipment(c.Request.Context(), actor, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) MoveCategory(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MoveCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	eq, err := h.service.MoveEquipmentToCategory(c.Request.Context(), actor, id, req.CategoryID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"equipment": eq})
}

// ListAssets lists the units of an equipment type.
// @Summary  List assets
// @Tags     Admin - Inventory
// @Security BearerAuth
// @Param    id path int true "Equipment ID"
// @Success  200 {object} map[string]interface{} "assets with assigned_to_active flag"
// @Router   /admin/equipment/{id}/assets [GET]
func (h *Handler) ListAssets(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	assets, err := h.service.ListAssets(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assets": assets})
}

func (h *Handler) CreateAsset(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	a, err := h.service.CreateAsset(c.Request.Context(), actor, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"asset": a})
}

func (h *Handler) CreateAssetsBatch(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req BatchAssetsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	assets, batchID, err := h.service.CreateAssetsBatch(c.Request.Context(), actor, id, req.Serials)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"assets": assets, "batch_id": batchID})
}

func (h *Handler) UpdateAsset(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	a, err := h.service.UpdateAsset(c.Request.Context(), actor, id, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"asset": a})
}

func (h *Handler) DeleteAsset(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteAsset(c.Request.Context(), actor, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) SetAssetStatus(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	a, err := h.service.SetAssetStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"asset": a})
}

func (h *Handler) AssetHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	lines, err := h.service.AssetHistory(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"history": lines})
}

// Import registers already-parsed spreadsheet rows.
// @Summary  Bulk import assets
// @Tags     Admin - Inventory
// @Security BearerAuth
// @Param    body body ImportRequest true "Rows"
// @Success  200 {object} ImportResult "Per-row errors are reported, not fatal"
// @Router   /admin/inventory/import [POST]
func (h *Handler) Import(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	res, err := h.service.ImportRows(c.Request.Context(), actor, req.Rows)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}
