// Package config loads search-and-replace rules from YAML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gnoswap-labs/ssr/internal/pattern"
	"github.com/gnoswap-labs/ssr/internal/types"
)

// DefaultPath is where `ssr init` writes its file and where the CLI looks
// when no --rules flag is given.
const DefaultPath = ".ssr.yaml"

// Rule is one named query, optionally with a replacement.
type Rule struct {
	Name          string `yaml:"name"`
	Pattern       string `yaml:"pattern"`
	Replacement   string `yaml:"replacement,omitempty"`
	CaseSensitive bool   `yaml:"case_sensitive,omitempty"`
	Loose         bool   `yaml:"loose,omitempty"`
	Reformat      bool   `yaml:"reformat,omitempty"`
	Mode          string `yaml:"mode,omitempty"`
	Severity      string `yaml:"severity,omitempty"`
	Message       string `yaml:"message,omitempty"`

	// Imports are added to files the replacement rewrites.
	Imports []string `yaml:"imports,omitempty"`

	Variables            []pattern.VariableSpec        `yaml:"variables,omitempty"`
	ReplacementVariables []pattern.ReplacementVariable `yaml:"replacement_variables,omitempty"`
}

// Config is the content of a rules file.
type Config struct {
	Name    string   `yaml:"name"`
	Exclude []string `yaml:"exclude,omitempty"`
	Rules   []Rule   `yaml:"rules"`
}

// Load reads and validates a rules file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses and validates rules from r.
func Decode(r io.Reader) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the parts of a rule that do not need compiling.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		switch {
		case r.Name == "":
			return fmt.Errorf("rule %d has no name", i+1)
		case seen[r.Name]:
			return fmt.Errorf("duplicate rule %q", r.Name)
		case strings.TrimSpace(r.Pattern) == "":
			return fmt.Errorf("rule %q has no pattern", r.Name)
		}
		seen[r.Name] = true

		for _, v := range r.ReplacementVariables {
			if v.Name == "" || v.Script == "" {
				return fmt.Errorf("rule %q: replacement variables need a name and a script", r.Name)
			}
		}
	}
	return nil
}

// Options returns the query a rule describes.
func (r Rule) Options() pattern.MatchOptions {
	return pattern.MatchOptions{
		Pattern:              r.Pattern,
		Replacement:          r.Replacement,
		FileType:             "go",
		CaseSensitive:        r.CaseSensitive,
		Mode:                 pattern.ParseSearchMode(r.Mode),
		Loose:                r.Loose,
		Reformat:             r.Reformat,
		Variables:            r.Variables,
		ReplacementVariables: r.ReplacementVariables,
	}
}

// Level returns the severity issues of this rule are reported with.
func (r Rule) Level() types.Severity {
	return types.ParseSeverity(r.Severity)
}

// Select returns the rules whose names are listed, all of them when names
// is empty.
func (c *Config) Select(names ...string) ([]Rule, error) {
	if len(names) == 0 {
		return c.Rules, nil
	}
	byName := make(map[string]Rule, len(c.Rules))
	for _, r := range c.Rules {
		byName[r.Name] = r
	}
	rules := make([]Rule, 0, len(names))
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Default is the file `ssr init` writes.
func Default() *Config {
	return &Config{
		Name:    "ssr",
		Exclude: []string{"**/vendor/**", "**/testdata/**"},
		Rules: []Rule{
			{
				Name:        "errors-new-sprintf",
				Pattern:     "errors.New(fmt.Sprintf('args+))",
				Replacement: "fmt.Errorf($args$)",
				Severity:    "warning",
				Message:     "use fmt.Errorf",
			},
		},
	}
}

// Write stores cfg as YAML at path.
func Write(path string, cfg *Config) error {
	d, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}
