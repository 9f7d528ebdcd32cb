package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-editions/internal/api/shared/errors"
	"github.com/feral-file/ff-editions/internal/logger"
)

// respondError writes an executor error, hiding anything that is not an API error
func respondError(c *gin.Context, err error, message string) {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		apiErr = apierrors.NewInternalError(message)
	}
	if apiErr.StatusCode() >= http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
	}
	c.JSON(apiErr.StatusCode(), apiErr)
}

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, details ...string) {
	c.JSON(http.StatusUnprocessableEntity, apierrors.NewValidationError(details...))
}

// respondUnauthorized responds with an unauthorized error
func respondUnauthorized(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnauthorized, apierrors.NewUnauthorizedError(message, details...))
}
