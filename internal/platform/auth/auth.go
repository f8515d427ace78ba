// Package auth authenticates requests to the report API. Three modes:
// disabled for local use, dev for a static identity, oidc for verified
// bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grewanderer/datapact/internal/platform/env"
)

type Mode string

const (
	ModeDisabled Mode = "disabled"
	ModeDev      Mode = "dev"
	ModeOIDC     Mode = "oidc"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Config struct {
	Mode Mode

	RolesClaim string
	EmailClaim string

	OIDCIssuerURL string
	OIDCClientID  string

	DevSubject string
	DevEmail   string
	DevRoles   []string
}

func ConfigFromEnv() (Config, error) {
	modeRaw := strings.ToLower(strings.TrimSpace(env.String("DATAPACT_AUTH_MODE", string(ModeDisabled))))
	var mode Mode
	switch modeRaw {
	case string(ModeDisabled):
		mode = ModeDisabled
	case string(ModeDev):
		mode = ModeDev
	case string(ModeOIDC):
		mode = ModeOIDC
	default:
		return Config{}, fmt.Errorf("DATAPACT_AUTH_MODE must be one of: disabled, dev, oidc (got %q)", modeRaw)
	}

	cfg := Config{
		Mode:          mode,
		RolesClaim:    env.String("DATAPACT_AUTH_ROLES_CLAIM", "roles"),
		EmailClaim:    env.String("DATAPACT_AUTH_EMAIL_CLAIM", "email"),
		OIDCIssuerURL: env.String("DATAPACT_OIDC_ISSUER_URL", ""),
		OIDCClientID:  env.String("DATAPACT_OIDC_CLIENT_ID", ""),
		DevSubject:    env.String("DATAPACT_DEV_AUTH_SUBJECT", "dev-user"),
		DevEmail:      env.String("DATAPACT_DEV_AUTH_EMAIL", "dev-user@example.local"),
		DevRoles:      parseCSV(env.String("DATAPACT_DEV_AUTH_ROLES", "admin")),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(string(c.Mode)) == "" {
		return errors.New("DATAPACT_AUTH_MODE is required")
	}
	if strings.TrimSpace(c.RolesClaim) == "" {
		return errors.New("DATAPACT_AUTH_ROLES_CLAIM is required")
	}
	if strings.TrimSpace(c.EmailClaim) == "" {
		return errors.New("DATAPACT_AUTH_EMAIL_CLAIM is required")
	}

	switch c.Mode {
	case ModeOIDC:
		if strings.TrimSpace(c.OIDCIssuerURL) == "" {
			return errors.New("DATAPACT_OIDC_ISSUER_URL is required when DATAPACT_AUTH_MODE=oidc")
		}
		if strings.TrimSpace(c.OIDCClientID) == "" {
			return errors.New("DATAPACT_OIDC_CLIENT_ID is required when DATAPACT_AUTH_MODE=oidc")
		}
	case ModeDev:
		if strings.TrimSpace(c.DevSubject) == "" {
			return errors.New("DATAPACT_DEV_AUTH_SUBJECT is required when DATAPACT_AUTH_MODE=dev")
		}
		if len(c.DevRoles) == 0 {
			return errors.New("DATAPACT_DEV_AUTH_ROLES must be non-empty when DATAPACT_AUTH_MODE=dev")
		}
	case ModeDisabled:
	default:
		return fmt.Errorf("unsupported auth mode: %q", c.Mode)
	}

	return nil
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := strings.ToLower(strings.TrimSpace(part))
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
