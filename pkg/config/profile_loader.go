package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SigningProfile tightens who may sign a run. It never loosens the built-in rules.
type SigningProfile struct {
	Name         string   `yaml:"name" json:"name"`
	AllowedRoles []string `yaml:"allowed_roles,omitempty" json:"allowed_roles,omitempty"`
	// Rule is a CEL expression over signer and run that must also hold.
	Rule               string `yaml:"rule,omitempty" json:"rule,omitempty"`
	RequireAttestation bool   `yaml:"require_attestation" json:"require_attestation"`
	// AllowLegacy overrides RISKMATE_ALLOW_LEGACY_HASHES when set.
	AllowLegacy *bool `yaml:"allow_legacy,omitempty" json:"allow_legacy,omitempty"`
}

// LoadSigningProfile reads a signing profile from a YAML file.
func LoadSigningProfile(path string) (*SigningProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load signing profile %q: %w", path, err)
	}
	return ParseSigningProfile(data)
}

// ParseSigningProfile decodes YAML profile bytes.
func ParseSigningProfile(data []byte) (*SigningProfile, error) {
	var profile SigningProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse signing profile: %w", err)
	}
	if profile.Name == "" {
		return nil, fmt.Errorf("parse signing profile: name is required")
	}
	for i, role := range profile.AllowedRoles {
		profile.AllowedRoles[i] = strings.ToLower(strings.TrimSpace(role))
	}
	return &profile, nil
}

// LegacyAllowed resolves the legacy digest policy against the environment default.
func (p *SigningProfile) LegacyAllowed(fallback bool) bool {
	if p == nil || p.AllowLegacy == nil {
		return fallback
	}
	return *p.AllowLegacy
}
