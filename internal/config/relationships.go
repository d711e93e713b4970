package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/tallyhq/tally/internal/domain"

	"gopkg.in/yaml.v3"
)

// Relationship is one configured link to an institution. Name doubles as the
// secret namespace and the display identity, so it must be unique; it
// defaults to the provider identifier when unset. Provider-specific fields
// (e.g. a property value, a linked loan account) land in Extra.
type Relationship struct {
	Name     string         `yaml:"name"`
	Provider string         `yaml:"provider"`
	Extra    map[string]any `yaml:",inline"`
}

// Decode unmarshals the provider-specific fields of the relationship into
// out, letting each provider define its own config struct.
func (r Relationship) Decode(out any) error {
	raw, err := yaml.Marshal(r.Extra)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("relationship %q: %w", r.Name, err)
	}
	return nil
}

// Relationships is the parsed relationships configuration file.
type Relationships struct {
	Relationships []Relationship `yaml:"relationships"`
}

// LoadRelationships reads and validates the relationships config. Missing
// file, unparseable YAML, a relationship without a provider, or duplicate
// names are all fatal: the whole run aborts before any provider is invoked.
func LoadRelationships(path string) (*Relationships, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no config file found at %s; try running `tally init` first", path)
		}
		return nil, err
	}

	var cfg Relationships
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	for i := range cfg.Relationships {
		if cfg.Relationships[i].Provider == "" {
			return nil, &domain.ErrValidation{
				Field:   fmt.Sprintf("relationships[%d].provider", i),
				Message: "provider is required",
			}
		}
		if cfg.Relationships[i].Name == "" {
			cfg.Relationships[i].Name = cfg.Relationships[i].Provider
		}
	}

	if err := cfg.validateUniqueNames(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Relationships) validateUniqueNames() error {
	seen := make(map[string]int, len(c.Relationships))
	for _, r := range c.Relationships {
		seen[r.Name]++
	}

	var dupes []string
	for name, n := range seen {
		if n > 1 {
			dupes = append(dupes, name)
		}
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		return &domain.ErrDuplicateRelationship{Names: dupes}
	}
	return nil
}
