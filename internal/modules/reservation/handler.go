package reservation

import (
	"net/http"
	"strconv"
	"time"

	"filmrental/internal/domain"
	"filmrental/internal/middleware"
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

// RegisterRoutes mounts the routes every authenticated user may call.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/reservations", h.Create)
	rg.GET("/reservations/my", h.ListMine)
	rg.GET("/reservations/:id", h.Get)
	rg.PUT("/reservations/:id/items", h.UpdateItems)
	rg.POST("/reservations/:id/cancel", h.Cancel)
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/reservations", h.List)
	admin.PATCH("/reservations/:id/status", h.ChangeStatus)
	admin.POST("/reservations/:id/return", h.Return)
}

// Create files a reservation request.
// @Summary  Create reservation
// @Tags     Reservations
// @Security BearerAuth
// @Param    body body CreateReservationRequest true "Dates, purpose and equipment lines"
// @Success  201 {object} map[string]interface{}
// @Failure  409 {object} map[string]interface{} "Not enough units on some day"
// @Router   /reservations [POST]
func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	r, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"reservation": r})
}

func (h *Handler) ListMine(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	out, err := h.service.ListMine(c.Request.Context(), actor, page, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Get(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	r, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) UpdateItems(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	r, err := h.service.UpdateItems(c.Request.Context(), actor, id, req.Items)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"reservation": r})
}

func (h *Handler) Cancel(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	out, err := h.service.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// List returns all reservations for the admin desk.
// @Summary  List reservations
// @Tags     Admin - Reservations
// @Security BearerAuth
// @Param    status    query string false "pending|approved|rented|returned|rejected|cancelled"
// @Param    user_id   query string false "Owner subject"
// @Param    from      query string false "YYYY-MM-DD"
// @Param    to        query string false "YYYY-MM-DD"
// @Param    page      query int    false "Page (default 1)"
// @Param    page_size query int    false "Page size (default 20)"
// @Success  200 {object} map[string]interface{}
// @Router   /admin/reservations [GET]
func (h *Handler) List(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	f := repository.ReservationFilter{
		Status: domain.ReservationStatus(c.Query("status")),
		UserID: c.Query("user_id"),
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	var err error
	if f.From, err = optionalDate(c.Query("from")); err != nil {
		response.FromError(c, err)
		return
	}
	if f.To, err = optionalDate(c.Query("to")); err != nil {
		response.FromError(c, err)
		return
	}

	out, err := h.service.List(c.Request.Context(), actor, f)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	status, err := domain.ParseReservationStatus(req.Status)
	if err != nil {
		response.FromError(c, err)
		return
	}

	out, err := h.service.ChangeStatus(c.Request.Context(), actor, id, status, req.RepairNote)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func (h *Handler) Return(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	out, err := h.service.ReturnAssets(c.Request.Context(), actor, id, req.Returns, req.RepairNote)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid reservation ID")
		return 0, false
	}
	return id, true
}

func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := domain.ParseDateTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
