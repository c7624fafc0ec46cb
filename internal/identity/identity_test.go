package identity

import (
	"context"
	"errors"
	"testing"
)

func TestNameFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		user User
		want string
	}{
		{"display name wins", User{DisplayName: "Alice", Email: "alice@example.com"}, "Alice"},
		{"email local part", User{Email: "bob@example.com"}, "bob"},
		{"email without at sign", User{Email: "carol"}, "carol"},
		{"empty local part", User{Email: "@example.com"}, "Anonymous"},
		{"nothing set", User{}, "Anonymous"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.Name(); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestStaticProvider(t *testing.T) {
	p := StaticProvider{User: User{ID: "u1", DisplayName: "Alice"}}
	user, err := p.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if user.ID != "u1" {
		t.Fatalf("unexpected user %+v", user)
	}

	empty := StaticProvider{}
	if _, err := empty.CurrentUser(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected not-authenticated, got %v", err)
	}
}
