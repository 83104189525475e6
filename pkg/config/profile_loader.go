package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trustfabric/replayseal/pkg/tether"
)

// EngineProfile is a deployment-specific YAML profile: the contract
// expectations each engine module asserts against the lock file, plus
// presentation policy for bindings.
type EngineProfile struct {
	Name            string                   `yaml:"name" json:"name"`
	Code            string                   `yaml:"code" json:"code"`
	ContractVersion string                   `yaml:"contract_version" json:"contract_version"`
	Modules         map[string]ModuleProfile `yaml:"modules" json:"modules"`
	Binding         BindingPolicy            `yaml:"binding" json:"binding"`
}

// ModuleProfile carries one module's clause and schema expectations.
type ModuleProfile struct {
	Clauses []string `yaml:"clauses,omitempty" json:"clauses,omitempty"`
	Schemas []string `yaml:"schemas,omitempty" json:"schemas,omitempty"`
}

// BindingPolicy controls trust log binding presentation defaults.
type BindingPolicy struct {
	RequiredRoles []string `yaml:"required_roles,omitempty" json:"required_roles,omitempty"`
	Order         string   `yaml:"order,omitempty" json:"order,omitempty"`
}

// Expectation materializes the tether expectation for moduleID from the
// profile. Modules absent from the profile still inherit the contract
// version, so version drift fails closed everywhere.
func (p *EngineProfile) Expectation(moduleID string) tether.Expectation {
	exp := tether.Expectation{
		ModuleID:        moduleID,
		ContractVersion: p.ContractVersion,
	}
	if m, ok := p.Modules[moduleID]; ok {
		exp.Clauses = append([]string(nil), m.Clauses...)
		exp.Schemas = append([]string(nil), m.Schemas...)
	}
	return exp
}

// LoadProfile loads an engine profile YAML by code. It searches the
// profiles directory for profile_<code>.yaml.
func LoadProfile(profilesDir, code string) (*EngineProfile, error) {
	code = strings.ToLower(code)
	path := filepath.Join(profilesDir, fmt.Sprintf("profile_%s.yaml", code))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", code, err)
	}

	var profile EngineProfile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse profile %q: %w", code, err)
	}
	if profile.ContractVersion == "" {
		return nil, fmt.Errorf("profile %q: contract_version is required", code)
	}
	if profile.Code == "" {
		profile.Code = code
	}
	return &profile, nil
}

// LoadAllProfiles loads every profile_*.yaml under the profiles directory,
// keyed by profile code.
func LoadAllProfiles(profilesDir string) (map[string]*EngineProfile, error) {
	matches, err := filepath.Glob(filepath.Join(profilesDir, "profile_*.yaml"))
	if err != nil {
		return nil, err
	}

	profiles := make(map[string]*EngineProfile, len(matches))
	for _, path := range matches {
		var profile EngineProfile
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &profile); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if profile.Code == "" {
			base := filepath.Base(path)
			profile.Code = strings.TrimSuffix(strings.TrimPrefix(base, "profile_"), ".yaml")
		}
		profiles[profile.Code] = &profile
	}
	return profiles, nil
}
