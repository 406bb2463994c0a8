package identity

import (
	"context"

	"github.com/MrSnakeDoc/banners/internal/auth"
)

// Unavailable stands in for the provider when the configuration is not
// ready. Every sign-in fails with a NotReady error carrying the reason.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	return &auth.AuthError{Kind: auth.KindNotReady, Message: "identity provider not configured: " + u.Reason}
}

func (u Unavailable) SignIn(context.Context, string, string) (*auth.Identity, error) {
	return nil, u.err()
}

func (u Unavailable) SignOut(context.Context) error { return nil }

func (u Unavailable) Subscribe(fn func(*auth.Identity)) func() {
	fn(nil)
	return func() {}
}

func (u Unavailable) RefreshClaims(context.Context, auth.Identity, bool) (auth.Claims, error) {
	return nil, u.err()
}

func (u Unavailable) Credential() string { return "" }

func (u Unavailable) VerifyCredential(string) (auth.Identity, error) {
	return auth.Identity{}, u.err()
}
