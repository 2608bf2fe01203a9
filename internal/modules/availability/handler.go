package availability

import (
	"net/http"
	"strconv"

	"filmrental/internal/domain"
	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	calc *Calculator
}

func NewHandler(calc *Calculator) *Handler {
	return &Handler{calc: calc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/equipment/:id/availability", h.Get)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid equipment ID")
		return
	}
	start, err := domain.ParseDateTime(c.Query("start"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	end, err := domain.ParseDateTime(c.DefaultQuery("end", c.Query("start")))
	if err != nil {
		response.FromError(c, err)
		return
	}

	out, err := h.calc.GetAvailability(c.Request.Context(), id, start, end)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}
