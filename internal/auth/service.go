package auth

import (
	"context"
	"log"

	"github.com/suPer8Hu/gopherchat/internal/chat"
)

// Profile is the identity asserted at login; the provider upserts it into the
// store and issues a token for the resulting user record.
type Profile struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// DefaultProfile is the quick-start identity for local development.
func DefaultProfile() Profile {
	return Profile{
		Email:      "dev@example.com",
		GivenName:  "Dev",
		FamilyName: "User",
		Picture:    "/user-placeholder.png",
	}
}

type Service struct {
	repo   *chat.Repo
	secret string
}

func NewService(repo *chat.Repo, secret string) *Service {
	return &Service{repo: repo, secret: secret}
}

// Login resolves the profile to a user record. An existing user (matched by
// email, full keyspace scan) keeps its identifier and gets its name fields
// refreshed; a previously unseen email mints a new record. Either way a signed
// token embedding the record is returned.
func (s *Service) Login(ctx context.Context, p Profile) (chat.User, string, error) {
	existing, found, err := s.repo.FindUserByEmail(ctx, p.Email)
	if err != nil {
		// fall through to creating a new user, matching the original
		// fail-open lookup behavior
		log.Printf("[Auth] email lookup failed email=%s err=%v", p.Email, err)
		found = false
	}

	var user chat.User
	if found {
		user = existing
		if p.GivenName != "" {
			user.GivenName = p.GivenName
		}
		if p.FamilyName != "" {
			user.FamilyName = p.FamilyName
		}
		if p.Picture != "" {
			user.Picture = p.Picture
		}
		user.Name = user.GivenName + " " + user.FamilyName
	} else {
		id, err := chat.NewLocalUserID()
		if err != nil {
			return chat.User{}, "", err
		}
		user = chat.User{
			ID:         id,
			Email:      p.Email,
			GivenName:  p.GivenName,
			FamilyName: p.FamilyName,
			Picture:    p.Picture,
			Name:       p.GivenName + " " + p.FamilyName,
		}
	}

	if err := s.repo.PutUser(ctx, user); err != nil {
		return chat.User{}, "", err
	}

	token, err := SignUserToken(user, s.secret)
	if err != nil {
		return chat.User{}, "", err
	}
	return user, token, nil
}

// UserFromToken resolves a presented token to its embedded user record.
// Invalid or expired tokens return ok=false, never an error.
func (s *Service) UserFromToken(token string) (chat.User, bool) {
	u, err := ParseUserToken(token, s.secret)
	if err != nil {
		return chat.User{}, false
	}
	return u, true
}
