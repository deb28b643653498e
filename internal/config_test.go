package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", URL: "http://localhost:9000", JWTSecret: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with url and secret should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeSecretFile(t *testing.T) {
	cfg := AuthConfig{Mode: "token", URL: "http://localhost:9000", JWTSecretFile: "/run/secrets/jwt"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with secret file should pass: %v", err)
	}
}

func TestAuthConfig_TokenModeMissingURL(t *testing.T) {
	cfg := AuthConfig{Mode: "token", JWTSecret: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode without url should fail")
	}
	if !strings.Contains(err.Error(), "url is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_TokenModeMissingSecret(t *testing.T) {
	cfg := AuthConfig{Mode: "token", URL: "http://localhost:9000"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode without a secret source should fail")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", URL: "http://localhost:9000", JWTSecret: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestDataConfig_RequiresAPIURL(t *testing.T) {
	cfg := DataConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty api_url should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 8080}
	if got := cfg.Address(); got != ":8080" {
		t.Errorf("address = %q", got)
	}
}
