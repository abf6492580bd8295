package domain

import "time"

// UserContext is the authenticated caller of a batch operation. The registry
// token is forwarded to the attendance registry, which authenticates as the
// user rather than as a service account.
type UserContext struct {
	UserID        string
	Email         string
	RegistryToken string
	ExpiresAt     time.Time
}

// Valid reports whether the context can be used for external calls.
func (u UserContext) Valid() bool {
	return u.UserID != "" && time.Now().Before(u.ExpiresAt)
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(user UserContext, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user context.
type TokenVerifier interface {
	Verify(token string) (UserContext, error)
}
