package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bull/syllabus-coach/internal/coach"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Kind   string `json:"kind,omitempty"`
}

// statusFor maps a service error kind to its HTTP status.
func statusFor(kind coach.Kind) int {
	switch kind {
	case coach.KindInvalidInput:
		return http.StatusBadRequest
	case coach.KindUnknownSession:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, kind string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: msg, Kind: kind})
}

// respondServiceError translates a coach error; anything untyped is a 500.
func respondServiceError(c *gin.Context, err error) {
	kind, ok := coach.KindOf(err)
	if !ok {
		respondError(c, http.StatusInternalServerError, "", err)
		return
	}
	respondError(c, statusFor(kind), kind.String(), err)
}

func respondInvalid(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, coach.KindInvalidInput.String(), err)
}

var errMissingFile = errors.New("multipart field \"file\" is required")
