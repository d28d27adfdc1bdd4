package helpers

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour, 10*time.Minute)
	tok, jti, exp, err := m.GenerateSessionToken("user-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if jti == "" || exp.Before(time.Now()) {
		t.Fatalf("bad jti/exp: %q %v", jti, exp)
	}
	claims, err := m.ParseSessionToken(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.ID != jti {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSessionTokenRejectsOtherSecret(t *testing.T) {
	a := NewJWTManager("secret-a", time.Hour, time.Minute)
	b := NewJWTManager("secret-b", time.Hour, time.Minute)
	tok, _, _, _ := a.GenerateSessionToken("u")
	if _, err := b.ParseSessionToken(tok); err == nil {
		t.Fatal("expected signature failure")
	}
}

func TestSessionTokenExpired(t *testing.T) {
	m := NewJWTManager("s", -time.Minute, time.Minute)
	tok, _, _, _ := m.GenerateSessionToken("u")
	if _, err := m.ParseSessionToken(tok); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestActivationTokenCannotBeUsedAsSession(t *testing.T) {
	m := NewJWTManager("s", time.Hour, time.Minute)
	tok, _, err := m.GenerateActivationToken("Ann", "ann@example.com", "hash", "123456")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ParseSessionToken(tok); err == nil {
		t.Fatal("activation token accepted as session")
	}
}

func TestActivationTokenCode(t *testing.T) {
	m := NewJWTManager("s", time.Hour, time.Minute)
	tok, _, _ := m.GenerateActivationToken("Ann", "ann@example.com", "hash", "123456")

	if _, err := m.ParseActivationToken(tok, "654321"); err == nil {
		t.Fatal("wrong code accepted")
	}
	c, err := m.ParseActivationToken(tok, "123456")
	if err != nil {
		t.Fatalf("valid code rejected: %v", err)
	}
	if c.Email != "ann@example.com" || c.Name != "Ann" || c.PasswordHash != "hash" {
		t.Fatalf("payload lost: %+v", c)
	}
}

func TestActivationTokenSealsPasswordHash(t *testing.T) {
	m := NewJWTManager("s", time.Hour, time.Minute)
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	tok, _, err := m.GenerateActivationToken("Ann", "ann@example.com", hash, "123456")
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(tok, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(payload), hash) || strings.Contains(string(payload), "$2a$") {
		t.Fatalf("password hash readable in token payload: %s", payload)
	}
	c, err := m.ParseActivationToken(tok, "123456")
	if err != nil || c.PasswordHash != hash {
		t.Fatalf("hash not recovered: %v", err)
	}

	other := NewJWTManager("other-secret", time.Hour, time.Minute)
	if _, err := other.open("ann@example.com", c.SealedHash); err == nil {
		t.Fatal("sealed hash opened with a different secret")
	}
	if _, err := m.open("eve@example.com", c.SealedHash); err == nil {
		t.Fatal("sealed hash opened for a different email")
	}
}

func TestActivationTokenExpired(t *testing.T) {
	m := NewJWTManager("s", time.Hour, -time.Second)
	tok, _, _ := m.GenerateActivationToken("Ann", "ann@example.com", "hash", "123456")
	if _, err := m.ParseActivationToken(tok, "123456"); err == nil {
		t.Fatal("expired activation accepted")
	}
}
