package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"committeesync/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	RegistryToken string `json:"registry_token,omitempty"`
}

type jwtCodec struct {
	secret []byte
}

// NewJWTCodec returns a TokenIssuer/TokenVerifier pair that signs JWTs with
// HS256 using the given secret. The registry session token rides inside the
// claims so breakout calls can authenticate as the user.
func NewJWTCodec(secret string) *jwtCodec {
	return &jwtCodec{secret: []byte(secret)}
}

var _ domain.TokenIssuer = (*jwtCodec)(nil)
var _ domain.TokenVerifier = (*jwtCodec)(nil)

func (c *jwtCodec) Issue(user domain.UserContext, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email:         user.Email,
		RegistryToken: user.RegistryToken,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

func (c *jwtCodec) Verify(token string) (domain.UserContext, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.UserContext{}, fmt.Errorf("%w: invalid token", domain.ErrAuth)
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || claims.Subject == "" {
		return domain.UserContext{}, fmt.Errorf("%w: malformed claims", domain.ErrAuth)
	}
	user := domain.UserContext{
		UserID:        claims.Subject,
		Email:         claims.Email,
		RegistryToken: claims.RegistryToken,
	}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Time
	}
	return user, nil
}
