package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/iam-archie/school-chatbot/pkg/logger"
)

// ErrBind is returned by Run when the listener cannot start.
var ErrBind = errors.New("server bind error")

// Error codes.
const (
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrEmptyCorpusCode        = "EMPTY_CORPUS"
	ErrPayloadTooLargeCode    = "PAYLOAD_TOO_LARGE"
	ErrRequestTimeoutCode     = "REQUEST_TIMEOUT"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
	ErrInternalCode           = "INTERNAL_ERROR"
)

// APIError is the body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code, message string, err error) {
	log := logger.FromContext(c.Request.Context())
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "code", code, "route", route, "error", err)
	} else {
		log.Debug("request rejected", "status", status, "code", code, "route", route, "error", err)
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: APIError{Code: code, Message: message}})
}
