package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// Profile is an optional browser profile file that overrides the
// user-agent pool, extra launch flags and wait timings.
//
//	user_agents:
//	  - "Mozilla/5.0 ..."
//	extra_flags:
//	  lang: en-US
//	navigation_timeout: 30s
type Profile struct {
	UserAgents        []string          `yaml:"user_agents" toml:"user_agents"`
	ExtraFlags        map[string]string `yaml:"extra_flags" toml:"extra_flags"`
	Headless          *bool             `yaml:"headless" toml:"headless"`
	NavigationTimeout string            `yaml:"navigation_timeout" toml:"navigation_timeout"`
	StabilizeTimeout  string            `yaml:"stabilize_timeout" toml:"stabilize_timeout"`
	SettleDelay       string            `yaml:"settle_delay" toml:"settle_delay"`

	navigationTimeout time.Duration
	stabilizeTimeout  time.Duration
	settleDelay       time.Duration
}

// LoadProfile reads a profile from path. The format is chosen by extension:
// .yaml/.yml or .toml.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read browser profile: %w", err)
	}
	return ParseProfile(data, filepath.Ext(path))
}

// ParseProfile decodes profile data in the format named by ext.
func ParseProfile(data []byte, ext string) (*Profile, error) {
	var p Profile
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse yaml profile: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse toml profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q", ext)
	}

	var err error
	if p.navigationTimeout, err = parseOptionalDuration("navigation_timeout", p.NavigationTimeout); err != nil {
		return nil, err
	}
	if p.stabilizeTimeout, err = parseOptionalDuration("stabilize_timeout", p.StabilizeTimeout); err != nil {
		return nil, err
	}
	if p.settleDelay, err = parseOptionalDuration("settle_delay", p.SettleDelay); err != nil {
		return nil, err
	}
	return &p, nil
}

// Apply overlays the non-empty profile fields onto cfg.
func (p *Profile) Apply(cfg *Config) {
	if len(p.UserAgents) > 0 {
		cfg.Browser.UserAgents = append([]string(nil), p.UserAgents...)
	}
	if len(p.ExtraFlags) > 0 {
		cfg.Browser.ExtraFlags = make(map[string]string, len(p.ExtraFlags))
		for k, v := range p.ExtraFlags {
			cfg.Browser.ExtraFlags[strings.TrimLeft(k, "-")] = v
		}
	}
	if p.Headless != nil {
		cfg.Browser.Headless = *p.Headless
	}
	if p.navigationTimeout > 0 {
		cfg.Fetch.NavigationTimeout = p.navigationTimeout
	}
	if p.stabilizeTimeout > 0 {
		cfg.Fetch.StabilizeTimeout = p.stabilizeTimeout
	}
	if p.settleDelay > 0 {
		cfg.Fetch.SettleDelay = p.settleDelay
	}
}

func parseOptionalDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	return d, nil
}
