package auth

import (
	"errors"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123"

func TestTokens_RoundTrip(t *testing.T) {
	tokens := NewTokens(secret, time.Hour)

	signed, exp, err := tokens.Issue("u-1", "jane", "admin")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.Subject != "u-1" || claims.Username != "jane" || claims.Role != "admin" {
		t.Errorf("claims = %+v, want sub=u-1 username=jane role=admin", claims)
	}
}

func TestTokens_Rejects(t *testing.T) {
	issuer := NewTokens(secret, time.Hour)
	signed, _, err := issuer.Issue("u-1", "jane", "user")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expired := NewTokens(secret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("u-1", "jane", "user")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
		with  *Tokens
	}{
		{"wrong secret", signed, NewTokens("another-secret-value!", time.Hour)},
		{"expired", old, NewTokens(secret, time.Hour)},
		{"garbage", "not.a.token", NewTokens(secret, time.Hour)},
		{"empty", "", NewTokens(secret, time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.with.Parse(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("HashPassword(short) error = %v, want ErrPasswordTooShort", err)
	}

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("CheckPassword(correct) = false, want true")
	}
	if CheckPassword(hash, "wrong horse") {
		t.Error("CheckPassword(wrong) = true, want false")
	}
	if CheckPassword("not-a-hash", "correct horse") {
		t.Error("CheckPassword(bad hash) = true, want false")
	}
}
