package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/suPer8Hu/gopherchat/internal/chat"
)

// TokenTTL is the fixed identity token lifetime.
const TokenTTL = 7 * 24 * time.Hour

// CookieName carries the identity token as an http-only cookie.
const CookieName = "local-auth-token"

var ErrInvalidToken = errors.New("invalid token")

// Claims embeds the full user record in the token so handlers can resolve the
// caller without a store read.
type Claims struct {
	chat.User
	jwt.RegisteredClaims
}

func SignUserToken(u chat.User, secret string) (string, error) {
	now := time.Now()
	claims := Claims{
		User: u,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseUserToken verifies signature and expiry. Any failure means "not
// authenticated"; callers must not treat it as a server error.
func ParseUserToken(token, secret string) (chat.User, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return chat.User{}, ErrInvalidToken
	}
	return claims.User, nil
}
