// Package authtest provides trivial Authenticator implementations for tests
// and development environments where real token validation is not required.
package authtest

import (
	"context"

	"github.com/martzmakes/mcp-gateway/auth"
)

// NoAuth is an Authenticator that accepts every token and reports a fixed
// user identity. Never use it outside tests and local development.
type NoAuth struct {
	UserID string
}

// NewNoAuth creates a NoAuth authenticator with the specified user ID.
// If userID is empty, it defaults to "test-user".
func NewNoAuth(userID string) *NoAuth {
	if userID == "" {
		userID = "test-user"
	}
	return &NoAuth{UserID: userID}
}

func (n *NoAuth) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	return noAuthUserInfo{userID: n.UserID}, nil
}

type noAuthUserInfo struct {
	userID string
}

func (n noAuthUserInfo) UserID() string       { return n.userID }
func (n noAuthUserInfo) Claims(ref any) error { return nil }

var _ auth.Authenticator = (*NoAuth)(nil)
