package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService() *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: 2 * time.Hour,
		TokenIssuer:    "xuexinwang",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()

	token, expiresAt, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if d := time.Until(expiresAt); d < 119*time.Minute || d > 121*time.Minute {
		t.Errorf("unexpected expiry in %v", d)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Username() != "admin" {
		t.Errorf("Username = %q", claims.Username())
	}
}

func TestValidateTokenExpired(t *testing.T) {
	svc := newTestService()
	token, _, err := svc.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, err := newTestService().GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour, TokenIssuer: "xuexinwang"})
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := other.ValidateToken(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	if _, err := ExtractBearerToken(""); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
	if tok, _ := ExtractBearerToken("Bearer abc"); tok != "abc" {
		t.Errorf("got %q", tok)
	}
	if tok, _ := ExtractBearerToken("abc"); tok != "abc" {
		t.Errorf("got %q", tok)
	}
}

func TestPasswordHashing(t *testing.T) {
	BcryptCost = bcrypt.MinCost

	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "s3cret-pass") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("expected mismatch for wrong password")
	}
}
