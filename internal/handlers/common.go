package handlers

import (
	"errors"
	"net/http"

	"github.com/Adriano-Lengruber/flowtasks/internal/services"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the shared error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse is the shared success envelope for operations without a body.
type SuccessResponse struct {
	Message string `json:"message"`
}

// currentUserID reads the authenticated user injected by the auth middleware.
func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// statusForError maps service sentinels to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// abortUnauthorized writes the shared 401 response.
func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Message: "missing user identity"})
}
