package allocation

import (
	"net/http"
	"strconv"

	"filmrental/internal/middleware"
	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type AssignRequest struct {
	Assignments []Assignment `json:"assignments" binding:"required,min=1,dive"`
}

type ReassignRequest struct {
	EquipmentID int64   `json:"equipment_id" binding:"required,gt=0"`
	OldAssetIDs []int64 `json:"old_asset_ids"`
	NewAssetIDs []int64 `json:"new_asset_ids"`
}

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.PUT("/reservations/:id/assignments", h.Assign)
	admin.PATCH("/reservations/:id/assignments", h.Reassign)
	admin.GET("/equipment/:id/occupied-assets", h.OccupiedAssets)
}

// Assign binds assets to reservation lines.
// @Summary  Assign assets to a reservation
// @Tags     Admin - Allocation
// @Security BearerAuth
// @Param    id   path int           true "Reservation ID"
// @Param    body body AssignRequest true "Full asset list per line"
// @Success  200 {object} map[string]interface{}
// @Failure  409 {object} map[string]interface{} "Asset held by another reservation"
// @Router   /admin/reservations/{id}/assignments [PUT]
func (h *Handler) Assign(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	r, err := h.engine.Assign(c.Request.Context(), actor, id, req.Assignments)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Reassign(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	r, err := h.engine.Reassign(c.Request.Context(), actor, id, req.EquipmentID, req.OldAssetIDs, req.NewAssetIDs)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) OccupiedAssets(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	exclude, _ := strconv.ParseInt(c.Query("exclude_reservation_id"), 10, 64)

	ids, err := h.engine.OccupiedAssets(c.Request.Context(), id, exclude)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"equipment_id": id, "asset_ids": ids})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID")
		return 0, false
	}
	return id, true
}
