package response

import (
	"errors"
	"log"
	"net/http"

	"filmrental/internal/domain"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the envelope for a service error.
func FromError(c *gin.Context, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.Is(err, domain.ErrValidation):
		Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		Error(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.As(err, &conflict):
		code := conflict.Code
		if code == "" {
			code = "CONFLICT"
		}
		ErrorWithDetails(c, http.StatusConflict, code, err.Error(), gin.H{"asset_ids": conflict.AssetIDs})
	case errors.Is(err, domain.ErrConflict):
		Error(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		_ = c.Error(err)
		log.Printf("[ERROR] %s %s: %v", c.Request.Method, c.FullPath(), err)
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
