package controllers

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	h "committeesync/internal/delivery/http/helpers"
	"committeesync/internal/domain"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// TokenRequest is the request body for POST /auth/token. The registry token
// is the caller's attendance-registry session; it rides inside the issued JWT
// so breakout operations can act as the user.
type TokenRequest struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	RegistryToken string `json:"registry_token"`
}

// Validate implements Validator.
func (t TokenRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(t.UserID) == "" {
		errs = append(errs, "user_id is required")
	}
	email := strings.TrimSpace(strings.ToLower(t.Email))
	if email == "" {
		errs = append(errs, "email is required")
	} else if !emailRegexp.MatchString(email) {
		errs = append(errs, "invalid email format")
	}
	if t.RegistryToken == "" {
		errs = append(errs, "registry_token is required")
	}
	return errs
}

// TokenResponse is the response body for POST /auth/token.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthController struct {
	Logger *slog.Logger
	Issuer domain.TokenIssuer
	Expiry time.Duration
}

func NewAuthController(logger *slog.Logger, issuer domain.TokenIssuer, expiry time.Duration) *AuthController {
	return &AuthController{
		Logger: logger,
		Issuer: issuer,
		Expiry: expiry,
	}
}

// IssueToken godoc
// @Summary Issue an API token
// @Description Exchange an attendance-registry session for a bearer JWT. The registry session is embedded in the token and forwarded on breakout operations.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body TokenRequest true "Registry session"
// @Success 200 {object} helpers.APIResponse "data contains token, token_type, and expires_at"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/token [post]
func (c *AuthController) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if !h.DecodeAndValidate(w, r, &req) {
		return
	}
	user := domain.UserContext{
		UserID:        strings.TrimSpace(req.UserID),
		Email:         strings.TrimSpace(strings.ToLower(req.Email)),
		RegistryToken: req.RegistryToken,
	}
	token, err := c.Issuer.Issue(user, c.Expiry)
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, err.Error())
		return
	}
	h.WriteJSONSuccess(w, http.StatusOK, TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(c.Expiry),
	})
}
