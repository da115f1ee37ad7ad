package session

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestMintAndParseRoundTrip(t *testing.T) {
	m := New("test-secret", "https://app.example.com", "", 0)
	token, err := m.Mint("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}
	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "user@example.com" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := New("test-secret", "https://app.example.com", "", 0)
	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, _ := token.SignedString([]byte("test-secret"))

	if _, err := m.Parse(signed); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	minted, _ := New("secret-a", "https://app.example.com", "", 0).Mint("user-1", "u@example.com")
	if _, err := New("secret-b", "https://app.example.com", "", 0).Parse(minted); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestSetCookieIsSecureForHTTPSBaseURL(t *testing.T) {
	m := New("test-secret", "https://app.example.com", "", 0)
	w := httptest.NewRecorder()
	m.SetCookie(w, "token-value")

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected exactly one cookie, got %d", len(cookies))
	}
	if !cookies[0].Secure {
		t.Errorf("expected Secure cookie for https base URL")
	}
	if !cookies[0].HttpOnly {
		t.Errorf("expected HttpOnly cookie")
	}
}

func TestSetCookieIsInsecureForHTTPBaseURL(t *testing.T) {
	m := New("test-secret", "http://localhost:8080", "", 0)
	w := httptest.NewRecorder()
	m.SetCookie(w, "token-value")

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected exactly one cookie, got %d", len(cookies))
	}
	if cookies[0].Secure {
		t.Errorf("expected non-Secure cookie for http base URL (development)")
	}
}
