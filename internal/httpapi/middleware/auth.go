package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/gopherchat/internal/auth"
	"github.com/suPer8Hu/gopherchat/internal/chat"
	"github.com/suPer8Hu/gopherchat/internal/common"
)

const CurrentUserKey = "current_user"

// AuthRequired resolves the identity cookie to a user record. A present but
// unverifiable cookie is cleared; either way the request is rejected with 401
// rather than an error.
func AuthRequired(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(auth.CookieName)
		if err != nil || token == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		user, ok := svc.UserFromToken(token)
		if !ok {
			c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		c.Set(CurrentUserKey, user)
		c.Next()
	}
}

// UserFromContext fetches the authenticated user stored by AuthRequired.
func UserFromContext(c *gin.Context) (chat.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return chat.User{}, false
	}
	u, ok := v.(chat.User)
	return u, ok
}
