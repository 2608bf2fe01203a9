package repair

import (
	"net/http"
	"strconv"

	"filmrental/internal/domain"
	"filmrental/internal/middleware"
	"filmrental/internal/pkg/response"
	"filmrental/internal/repository"

	"github.com/gin-gonic/gin"
)

type RevertRequest struct {
	Stage domain.RepairStage `json:"stage" binding:"required"`
}

type CompleteRequest struct {
	Result domain.RepairResult `json:"repair_result" binding:"required"`
	Memo   string              `json:"admin_memo"`
}

type FixedRequest struct {
	IsFixed *bool `json:"is_fixed" binding:"required"`
}

type MemoRequest struct {
	Memo string `json:"admin_memo"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/repairs", h.List)
	admin.POST("/repairs", h.Create)
	admin.GET("/repairs/:id", h.Get)
	admin.DELETE("/repairs/:id", h.Delete)
	admin.POST("/repairs/:id/advance", h.Advance)
	admin.POST("/repairs/:id/revert", h.Revert)
	admin.POST("/repairs/:id/complete", h.Complete)
	admin.PATCH("/repairs/:id/fixed", h.SetFixed)
	admin.PATCH("/repairs/:id/memo", h.UpdateMemo)
}

func (h *Handler) List(c *gin.Context) {
	f := repository.RepairFilter{Stage: domain.RepairStage(c.Query("stage"))}
	f.ReservationID, _ = strconv.ParseInt(c.Query("reservation_id"), 10, 64)
	f.AssetID, _ = strconv.ParseInt(c.Query("asset_id"), 10, 64)
	if v := c.Query("is_fixed"); v != "" {
		fixed, err := strconv.ParseBool(v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "is_fixed must be true or false")
			return
		}
		f.IsFixed = &fixed
	}

	cases, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"repairs": cases})
}

func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	var req CreateRepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	rc, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"repair": rc})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"repair": rc})
}

func (h *Handler) Delete(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

// Advance moves a repair case one stage forward.
// @Summary  Advance repair stage
// @Tags     Admin - Repairs
// @Security BearerAuth
// @Param    id   path int               true "Repair case ID"
// @Param    body body domain.StageInput true "Input required by the next stage"
// @Success  200 {object} map[string]interface{}
// @Failure  409 {object} map[string]interface{} "Missing input or no next stage"
// @Router   /admin/repairs/{id}/advance [POST]
func (h *Handler) Advance(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in domain.StageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	h.respond(c)(h.service.Advance(c.Request.Context(), actor, id, in))
}

func (h *Handler) Revert(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req RevertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	h.respond(c)(h.service.Revert(c.Request.Context(), actor, id, req.Stage))
}

func (h *Handler) Complete(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	h.respond(c)(h.service.Complete(c.Request.Context(), actor, id, req.Result, req.Memo))
}

func (h *Handler) SetFixed(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req FixedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	h.respond(c)(h.service.SetFixed(c.Request.Context(), actor, id, *req.IsFixed))
}

func (h *Handler) UpdateMemo(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req MemoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	h.respond(c)(h.service.UpdateMemo(c.Request.Context(), actor, id, req.Memo))
}

func (h *Handler) respond(c *gin.Context) func(*domain.RepairCase, error) {
	return func(rc *domain.RepairCase, err error) {
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"repair": rc})
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid repair case ID")
		return 0, false
	}
	return id, true
}
