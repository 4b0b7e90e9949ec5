package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
)

// ListUsers returns every other stored user. Store failures degrade to an
// empty list: the peer list is a read path and fails open.
func (h *Handler) ListUsers(c *gin.Context) {
	me, ok := middleware.UserFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	users, err := h.Repo.ListOtherUsers(c.Request.Context(), me.ID)
	if err != nil {
		log.Printf("[ListUsers] failed user=%s err=%v", me.ID, err)
		users = []chat.User{}
	}

	common.OK(c, gin.H{"users": users})
}
