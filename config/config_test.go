package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	c := Load()
	if c.DBDriver != "postgres" || c.PageSize != 8 {
		t.Fatalf("defaults: %+v", c)
	}
	if c.SessionTTL != 720*time.Hour || c.ActivationTTL != 10*time.Minute {
		t.Fatalf("ttl defaults: %v %v", c.SessionTTL, c.ActivationTTL)
	}
	if c.JWTSecret == "" {
		t.Fatal("development should have a jwt secret")
	}
	if c.StripeSecretKey != "" || c.IyzicoSecretKey != "" {
		t.Fatal("payment secrets must not have defaults")
	}
}

func TestLoadProductionHasNoSecretDefault(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	c := Load()
	if c.JWTSecret != "" {
		t.Fatal("production must not fall back to a compiled-in secret")
	}
	if !c.CookieSecure {
		t.Fatal("production cookies should be secure by default")
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAGE_SIZE", "lots")
	t.Setenv("SESSION_TTL", "forever")
	c := Load()
	if c.PageSize != 8 || c.SessionTTL != 720*time.Hour {
		t.Fatalf("got %d %v", c.PageSize, c.SessionTTL)
	}
}

func TestSplitLists(t *testing.T) {
	c := &Config{CORSAllowedOrigins: " http://a , ,http://b", ElasticsearchAddrs: ""}
	if got := c.CORSOrigins(); len(got) != 2 || got[1] != "http://b" {
		t.Fatalf("cors %v", got)
	}
	if len(c.ESAddrs()) != 0 {
		t.Fatal("empty es addrs should be empty")
	}
}
