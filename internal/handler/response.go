package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medimeet/consult-api/internal/model"
	apperrors "github.com/medimeet/consult-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// AbortWithError maps the application error taxonomy onto HTTP statuses.
// Slot-full, not-found and not-allowed are deliberately distinct: each
// implies a different corrective action for the client.
func AbortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch apperrors.CodeOf(err) {
	case apperrors.ErrBadRequest:
		status = http.StatusBadRequest
		message = err.Error()
	case apperrors.ErrUnauthorized:
		status = http.StatusUnauthorized
		message = err.Error()
	case apperrors.ErrForbidden:
		status = http.StatusForbidden
		message = err.Error()
	case apperrors.ErrNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case apperrors.ErrCapacityExceeded:
		status = http.StatusConflict
		message = err.Error()
	case apperrors.ErrConflict:
		status = http.StatusConflict
		message = err.Error()
	}

	c.AbortWithStatusJSON(status, NewErrorResponse(message))
}

// CallerIdentity reads the identity the auth middleware stored on the
// request context.
func CallerIdentity(c *gin.Context) (uuid.UUID, model.Role, bool) {
	rawID, ok := c.Get("userID")
	if !ok {
		return uuid.Nil, "", false
	}
	rawRole, ok := c.Get("userRole")
	if !ok {
		return uuid.Nil, "", false
	}

	userID, ok := rawID.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	role, ok := rawRole.(model.Role)
	if !ok {
		return uuid.Nil, "", false
	}
	return userID, role, true
}
