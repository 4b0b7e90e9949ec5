package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/auth"
	"github.com/suPer8Hu/gopherchat/internal/bus"
	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/config"
	"github.com/suPer8Hu/gopherchat/internal/store"
	"github.com/suPer8Hu/gopherchat/internal/upload"
)

type Handler struct {
	Cfg      config.Config
	Repo     *chat.Repo
	Auth     *auth.Service
	Bus      bus.Bus
	Uploader upload.Uploader
}

func NewHandler(cfg config.Config, s store.Store, b bus.Bus, up upload.Uploader) *Handler {
	repo := chat.NewRepo(s)
	return &Handler{
		Cfg:      cfg,
		Repo:     repo,
		Auth:     auth.NewService(repo, cfg.JWTSecret),
		Bus:      b,
		Uploader: up,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(200, gin.H{"message": "pong"})
}
