package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const problemContentType = "application/problem+json"

// Problem is an RFC 7807 error body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance"`
}

func abortWithProblem(c *gin.Context, status int, detail string) {
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(status, Problem{
		Type:     "about:blank",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: c.Request.URL.Path,
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	abortWithProblem(c, http.StatusNotFound, "route not found")
}

func (h *Handler) Recover(c *gin.Context, recovered any) {
	h.logger.Error("Recovered from panic",
		zap.String("path", c.Request.URL.Path),
		zap.Any("panic", recovered))
	abortWithProblem(c, http.StatusInternalServerError, "internal server error")
}
