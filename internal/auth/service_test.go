package auth

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/filedrop/service/internal/config"
)

func testService(password string) *Service {
	return NewService(&config.Config{JWTSecret: "test-secret", AdminPassword: password})
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := testService("hunter2")

	signed, err := svc.Login("hunter2")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	token, err := jwt.Parse(signed, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("issued token does not validate: %v", err)
	}

	claims := token.Claims.(jwt.MapClaims)
	if sub, _ := claims["sub"].(string); sub != "admin" {
		t.Errorf("sub = %q, want admin", sub)
	}
	if _, ok := claims["exp"]; !ok {
		t.Error("token has no expiry")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := testService("hunter2")

	if _, err := svc.Login("hunter3"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("err = %v, want ErrInvalidPassword", err)
	}
	if _, err := svc.Login(""); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("empty password err = %v, want ErrInvalidPassword", err)
	}
}

func TestLoginUnconfiguredPasswordStaysClosed(t *testing.T) {
	svc := testService("")

	// An unset admin password must not make the empty string a valid credential.
	if _, err := svc.Login(""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
