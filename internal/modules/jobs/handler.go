// Package jobs exposes the periodic maintenance tasks to an external scheduler.
package jobs

import (
	"context"
	"net/http"
	"time"

	"filmrental/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Sweeper interface {
	SweepStale(ctx context.Context, now time.Time) (int, error)
}

type Cleaner interface {
	Cleanup(ctx context.Context, keepDays int, now time.Time) (int64, error)
}

type Handler struct {
	sweeper  Sweeper
	cleaner  Cleaner
	keepDays int
	now      func() time.Time
}

func NewHandler(sweeper Sweeper, cleaner Cleaner, keepDays int) *Handler {
	return &Handler{sweeper: sweeper, cleaner: cleaner, keepDays: keepDays, now: time.Now}
}

func (h *Handler) RegisterRoutes(internal *gin.RouterGroup) {
	internal.POST("/jobs/sweep-reservations", h.SweepReservations)
	internal.POST("/jobs/cleanup-notifications", h.CleanupNotifications)
}

func (h *Handler) SweepReservations(c *gin.Context) {
	n, err := h.sweeper.SweepStale(c.Request.Context(), h.now())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"cancelled": n})
}

func (h *Handler) CleanupNotifications(c *gin.Context) {
	n, err := h.cleaner.Cleanup(c.Request.Context(), h.keepDays, h.now())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": n})
}
