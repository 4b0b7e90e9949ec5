package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/handlers"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
)

// NewRouter wires middleware and routes. staticDir, when non-empty, is served
// under /uploads for the local-disk upload backend.
func NewRouter(h *handlers.Handler, rl *middleware.RateLimiter, staticDir string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	if rl != nil {
		r.Use(rl.Middleware())
	}

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)

	if staticDir != "" {
		r.Static("/uploads", staticDir)
	}

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(h.Auth))
	authGroup.GET("/auth/me", h.Me)
	authGroup.GET("/users", h.ListUsers)
	authGroup.GET("/conversations", h.ListConversations)
	authGroup.POST("/conversations", h.CreateConversation)
	authGroup.POST("/messages", h.SendMessage)
	authGroup.GET("/conversations/:conversation_id/messages", h.ListMessages)
	authGroup.POST("/upload", h.Upload)
	authGroup.GET("/events/:channel", h.Events)

	return r
}
