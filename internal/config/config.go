// Package config loads and validates the server's endpoint/group
// configuration: the set of endpoints to open at startup, the groups
// that share exclusivity tokens, and whether to auto-open unconfigured
// serial ports.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nugget/serial-keel/internal/endpoint"
)

// DefaultSearchPaths returns the config file search order. An explicit
// path (from a CLI argument) is checked first by FindConfig; these are
// the fallbacks when none is given.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml", "serial-keel.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "serial-keel", "config.yaml"))
	}

	paths = append(paths, "/etc/serial-keel/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must
// exist. Otherwise DefaultSearchPaths is searched in order and the first
// existing path wins.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// EndpointConfig describes one endpoint known at startup.
type EndpointConfig struct {
	ID     endpoint.ID
	Labels endpoint.Labels
}

// GroupConfig describes a set of same-variant endpoints that share a
// single exclusivity token, plus labels that propagate to every member.
type GroupConfig struct {
	Labels    endpoint.Labels
	Endpoints []EndpointConfig
}

// Config is the full server configuration.
type Config struct {
	Endpoints           []EndpointConfig
	Groups              []GroupConfig
	AutoOpenSerialPorts bool

	// ShareMocks controls the mock identity policy (spec §9's open
	// question): false (default) scopes an ad-hoc mock's identity to the
	// requesting user, matching the original's mocks-share-endpoints
	// Cargo feature being off by default; true hashes mock ids by name
	// alone, so two different users naming the same mock reach the same
	// endpoint. Not exposed in the YAML schema (spec §6 doesn't list it
	// there) — set it on Config directly for tests or embedders that need
	// cross-user mock sharing.
	ShareMocks bool
}

// Load reads, parses, and validates a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg, err := raw.toConfig()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns an empty, already-valid configuration: no pre-opened
// endpoints, no groups, auto-open enabled.
func Default() *Config {
	return &Config{AutoOpenSerialPorts: true}
}

// Validate checks the three invariants spec §4.5/§9 name: groups
// partition their member ids (no id in two groups), every group is
// non-empty, and every group is variant-homogeneous (all tty or all
// mock, never mixed).
func (c *Config) Validate() error {
	if err := c.checkEmptyGroups(); err != nil {
		return err
	}
	if err := c.checkGroupHomogeneity(); err != nil {
		return err
	}
	if err := c.checkDuplicateIDs(); err != nil {
		return err
	}
	return nil
}

func (c *Config) checkEmptyGroups() error {
	for i, g := range c.Groups {
		if len(g.Endpoints) == 0 {
			return fmt.Errorf("group %d is empty: groups must contain at least one endpoint", i)
		}
	}
	return nil
}

func (c *Config) checkGroupHomogeneity() error {
	for i, g := range c.Groups {
		var mocks, ttys int
		for _, e := range g.Endpoints {
			if e.ID.Kind == endpoint.KindMock {
				mocks++
			} else {
				ttys++
			}
		}
		if mocks > 0 && ttys > 0 {
			return fmt.Errorf("group %d mixes tty and mock endpoints: a group must be all one variant", i)
		}
	}
	return nil
}

func (c *Config) checkDuplicateIDs() error {
	seen := make(map[endpoint.ID]int)
	for gi, g := range c.Groups {
		for _, e := range g.Endpoints {
			if first, ok := seen[e.ID]; ok {
				return fmt.Errorf("endpoint %s appears in both group %d and group %d: groups must partition their members", e.ID, first, gi)
			}
			seen[e.ID] = gi
		}
	}
	return nil
}
