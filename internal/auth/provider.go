package auth

import (
	"context"
	"errors"
	"fmt"
)

// Identity is the subject handle reported by the identity provider.
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
}

// Claims are provider-issued attributes attached to an identity's credential.
type Claims map[string]any

// Provider is the identity provider the state machine listens to.
type Provider interface {
	// SignIn authenticates with email/password. Subscribers are notified
	// with the new identity on success.
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	// SignOut drops the current identity and notifies subscribers with nil.
	SignOut(ctx context.Context) error
	// Subscribe registers fn for identity changes. fn is called once right
	// away with the current identity (nil when signed out).
	Subscribe(fn func(*Identity)) (unsubscribe func())
	// RefreshClaims returns the claims of the identity's credential.
	// force skips any cached credential.
	RefreshClaims(ctx context.Context, id Identity, force bool) (Claims, error)
}

// ErrorKind classifies an AuthError.
type ErrorKind string

const (
	KindBadCredentials ErrorKind = "BadCredentials"
	KindDenied         ErrorKind = "Denied"
	KindNotReady       ErrorKind = "NotReady"
)

// ErrBadCredentials is returned by providers for unknown users or wrong passwords.
var ErrBadCredentials = &AuthError{Kind: KindBadCredentials, Message: "invalid email or password"}

// AuthError blocks access. Denials always come with a forced sign-out.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any AuthError of the same kind.
func (e *AuthError) Is(target error) bool {
	var t *AuthError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}
