package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateAndParseJWT(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()

	token, err := GenerateJWT(secret, userID, "student@studyhub.app", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}

	claims, err := ParseJWT(secret, token)
	if err != nil {
		t.Fatalf("ParseJWT() error: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "student@studyhub.app" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Issuer != "studyhub-adserver" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT("secret-a", uuid.New(), "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret-b", token); err == nil {
		t.Fatal("token signed with a different secret must not parse")
	}
}

func TestParseJWT_Garbage(t *testing.T) {
	if _, err := ParseJWT("secret", "not.a.token"); err == nil {
		t.Fatal("garbage token must not parse")
	}
}

func TestGenerateJWT_ExpirationFallback(t *testing.T) {
	// Non-positive expiration falls back to 24h rather than minting an
	// already-expired token.
	token, err := GenerateJWT("secret", uuid.New(), "", -time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseJWT("secret", token); err != nil {
		t.Fatalf("fallback-expiration token should parse: %v", err)
	}
}
