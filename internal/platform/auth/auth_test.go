package auth

import (
	"os"
	"reflect"
	"testing"
)

func TestConfigFromEnv_DefaultsToDisabled(t *testing.T) {
	_ = os.Unsetenv("DATAPACT_AUTH_MODE")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.Mode != ModeDisabled {
		t.Fatalf("Mode=%q, want disabled", cfg.Mode)
	}
	if cfg.RolesClaim != "roles" {
		t.Fatalf("RolesClaim=%q, want roles", cfg.RolesClaim)
	}
	if cfg.EmailClaim != "email" {
		t.Fatalf("EmailClaim=%q, want email", cfg.EmailClaim)
	}
}

func TestConfigFromEnv_Dev(t *testing.T) {
	t.Setenv("DATAPACT_AUTH_MODE", "dev")
	t.Setenv("DATAPACT_DEV_AUTH_SUBJECT", "dev")
	t.Setenv("DATAPACT_DEV_AUTH_EMAIL", "dev@example.local")
	t.Setenv("DATAPACT_DEV_AUTH_ROLES", "admin,viewer")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv() err=%v", err)
	}
	if cfg.Mode != ModeDev {
		t.Fatalf("Mode=%q, want dev", cfg.Mode)
	}
	if cfg.DevSubject != "dev" {
		t.Fatalf("DevSubject=%q, want dev", cfg.DevSubject)
	}
	if len(cfg.DevRoles) != 2 {
		t.Fatalf("DevRoles=%v, want 2 roles", cfg.DevRoles)
	}
}

func TestConfigFromEnv_OIDCRequiresIssuerAndClientID(t *testing.T) {
	_ = os.Unsetenv("DATAPACT_OIDC_ISSUER_URL")
	_ = os.Unsetenv("DATAPACT_OIDC_CLIENT_ID")
	t.Setenv("DATAPACT_AUTH_MODE", "oidc")

	_, err := ConfigFromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestConfigFromEnv_RejectsUnknownMode(t *testing.T) {
	t.Setenv("DATAPACT_AUTH_MODE", "saml")

	_, err := ConfigFromEnv()
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseCSV_DedupesAndLowercases(t *testing.T) {
	got := parseCSV("Admin, viewer ,admin,,VIEWER")
	want := []string{"admin", "viewer"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parseCSV=%v, want %v", got, want)
	}
}
