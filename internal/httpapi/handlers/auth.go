package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/auth"
	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/common"
	"github.com/suPer8Hu/gopherchat/internal/httpapi/middleware"
)

var cookieMaxAge = int(auth.TokenTTL.Seconds())

// Login upserts the asserted profile and sets the identity cookie. An empty
// body falls back to the default development identity.
func (h *Handler) Login(c *gin.Context) {
	var profile auth.Profile
	if err := c.ShouldBindJSON(&profile); err != nil || profile.Email == "" {
		profile = auth.DefaultProfile()
	}

	user, token, err := h.Auth.Login(c.Request.Context(), profile)
	if err != nil {
		log.Printf("[Login] failed email=%s err=%v", profile.Email, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "login failed")
		return
	}

	c.SetCookie(auth.CookieName, token, cookieMaxAge, "/", "", false, true)

	// presence is best-effort; a bus failure must not fail the login
	if err := h.Bus.Publish(c.Request.Context(), chat.UserKey(user.ID), "user:online", user); err != nil {
		log.Printf("[Login] presence publish failed user=%s err=%v", user.ID, err)
	}

	common.OK(c, user)
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	common.OK(c, nil)
}

func (h *Handler) Me(c *gin.Context) {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	common.OK(c, user)
}
