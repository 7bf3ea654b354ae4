package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bugline/bugline"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// fail maps a dispatch error to an HTTP status. Concurrency conflicts
// are flagged retryable so clients know a plain retry may succeed.
func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	retryable := false

	switch {
	case errors.Is(err, bugline.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, bugline.ErrItemNotFound), errors.Is(err, bugline.ErrHandlerNotFound):
		status = http.StatusNotFound
	case errors.Is(err, bugline.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, bugline.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, bugline.ErrDuplicateRecord):
		status = http.StatusConflict
	case errors.Is(err, bugline.ErrConcurrency):
		status = http.StatusConflict
		retryable = true
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, errorBody{Error: "internal error"})
		return
	}
	c.JSON(status, errorBody{Error: err.Error(), Retryable: retryable})
}

// badRequest reports an unparseable body or path parameter.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
}
