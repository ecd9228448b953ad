package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stridefit/admin-gateway/errors"
	"github.com/stridefit/admin-gateway/logger"
)

// ErrorResponse is the JSON body rendered for errors attached to the context.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler converts errors attached via c.Error into JSON responses.
// AppError carries its own status; anything else is a 500 with a sanitized
// body. Auth failures inside the guard core never reach this handler — they
// become state transitions — so anything landing here is a handler-level
// fault.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		if appError, ok := err.(*errors.AppError); ok {
			statusCode := appError.GetHTTPStatus()
			logger.LogHTTPError(c, err, statusCode, appError.Message)

			if !c.Writer.Written() {
				c.JSON(statusCode, ErrorResponse{
					Type:    string(appError.Type),
					Message: appError.Message,
					Details: appError.Detail,
				})
			}
			return
		}

		logger.LogHTTPError(c, err, http.StatusInternalServerError, "Unhandled error")
		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Type:    string(errors.ServerError),
				Message: "Internal server error",
			})
		}
	}
}
