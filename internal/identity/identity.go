// Package identity models the identity-provider collaborator. The challenge
// core only needs a stable user id plus optional display fields.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrNotAuthenticated is returned when no user is signed in.
var ErrNotAuthenticated = errors.New("no authenticated user")

// User describes the signed-in user as supplied by the identity provider.
type User struct {
	ID          string
	DisplayName string
	Email       string
	PhotoURL    string
}

// Name returns the display name, falling back to the local part of the email
// address, then to "Anonymous".
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		if at := strings.Index(u.Email, "@"); at > 0 {
			return u.Email[:at]
		}
		if !strings.Contains(u.Email, "@") {
			return u.Email
		}
	}
	return "Anonymous"
}

// Provider supplies the current user to the challenge core.
type Provider interface {
	CurrentUser(ctx context.Context) (User, error)
}

// StaticProvider returns a fixed user; used by demos and tests.
type StaticProvider struct {
	User User
}

func (p StaticProvider) CurrentUser(_ context.Context) (User, error) {
	if p.User.ID == "" {
		return User{}, ErrNotAuthenticated
	}
	return p.User, nil
}
