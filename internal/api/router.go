// Package api exposes the coach service over HTTP with gin.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bull/syllabus-coach/internal/logger"
)

type RouterConfig struct {
	Handler        *Handler
	MCP            http.Handler // mounted at /mcp when set
	Log            *logger.Logger
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Log))
	r.Use(CORS(cfg.AllowedOrigins))

	h := cfg.Handler
	r.GET("/", h.Root)
	r.GET("/favicon.ico", h.Favicon)
	r.GET("/health", h.Health)
	r.GET("/health/ready", h.Ready)

	r.POST("/upload", h.Upload)
	r.POST("/chat", h.Chat)

	if cfg.MCP != nil {
		r.Any("/mcp", gin.WrapH(cfg.MCP))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
	})
	return r
}
