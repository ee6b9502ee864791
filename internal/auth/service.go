// Package auth exchanges the shared admin password for a session token.
// Core operations never see the credential, only the authenticated fact
// established by the middleware.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filedrop/service/internal/config"
)

const sessionTTL = 24 * time.Hour

// ErrInvalidPassword is returned when the supplied password does not match.
var ErrInvalidPassword = errors.New("invalid password")

// ErrNotConfigured is returned when no admin password is set, which keeps
// the gated endpoints closed rather than open.
var ErrNotConfigured = errors.New("admin password not configured")

// Service contains the business logic for password-based session auth.
type Service struct {
	cfg *config.Config
}

// NewService creates a new auth Service.
func NewService(cfg *config.Config) *Service {
	return &Service{cfg: cfg}
}

// Login validates the password in constant time and issues a session JWT.
func (s *Service) Login(password string) (string, error) {
	if s.cfg.AdminPassword == "" {
		return "", ErrNotConfigured
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) != 1 {
		return "", ErrInvalidPassword
	}
	return s.issueToken()
}

// issueToken signs a session JWT valid for sessionTTL.
func (s *Service) issueToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "admin",
		"iat": now.Unix(),
		"exp": now.Add(sessionTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
