package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-site/internal/auctionerrors"
	"auction-site/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, auctionerrors.ErrUnauthorized):
		return http.StatusForbidden, "operation not permitted"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusConflict, "entity in invalid state"
	case errors.Is(err, auctionerrors.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auctionerrors.ErrUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
