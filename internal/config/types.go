// Package config defines the terminal content catalog and runtime settings.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"hackterm/internal/hackterm"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the complete scripted content of the terminal.
type Catalog struct {
	Servers  []hackterm.ServerRecord `yaml:"servers"`
	Files    []File                  `yaml:"files"`
	Secrets  []Secret                `yaml:"secrets"`
	Missions []Mission               `yaml:"missions"`
	Contacts []Contact               `yaml:"contacts"`
	Themes   []string                `yaml:"themes"`
}

// File is a simulated file system entry.
type File struct {
	Path       string   `yaml:"path"`
	Content    string   `yaml:"content,omitempty"`
	Run        []string `yaml:"run,omitempty"` // output printed when executed
	Locked     bool     `yaml:"locked,omitempty"`
	Executable bool     `yaml:"executable,omitempty"`
}

// TriggerRule matches one command invocation.
// Command is a comma-separated list of command names, or "*" for any.
// Args and Output are case-insensitive regular expressions; empty means no constraint.
type TriggerRule struct {
	Command string `yaml:"command"`
	Args    string `yaml:"args,omitempty"`
	Output  string `yaml:"output,omitempty"`
	Mission string `yaml:"mission,omitempty"` // mission that must already be complete
}

// Commands returns the command names the rule applies to.
func (r TriggerRule) Commands() []string {
	var names []string
	for _, part := range strings.Split(r.Command, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// Secret is a hidden discovery.
type Secret struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Trigger     TriggerRule `yaml:"trigger"`
}

// Mission is an ordered list of objectives.
type Mission struct {
	ID           string      `yaml:"id"`
	Title        string      `yaml:"title"`
	Description  string      `yaml:"description,omitempty"`
	Notification string      `yaml:"notification,omitempty"`
	Objectives   []Objective `yaml:"objectives"`
}

// Objective is one step of a mission.
type Objective struct {
	Description string      `yaml:"description"`
	Trigger     TriggerRule `yaml:"trigger"`
}

// Contact is a story character who writes in some commands after a trigger fires.
type Contact struct {
	ID      string      `yaml:"id"`
	Name    string      `yaml:"name"`
	Trigger TriggerRule `yaml:"trigger"`
	Delay   int         `yaml:"delay"` // commands to wait after the trigger
	Message string      `yaml:"message"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Load(defaultCatalog)
}

// LoadFile reads and validates a catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Load(data)
}

// Load parses and validates catalog YAML.
func Load(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks catalog consistency.
func (c *Catalog) Validate() error {
	var errs []error

	paths := make(map[string]bool, len(c.Files))
	for _, f := range c.Files {
		if !strings.HasPrefix(f.Path, "/") {
			errs = append(errs, fmt.Errorf("file %q: path must be absolute", f.Path))
		}
		if paths[f.Path] {
			errs = append(errs, fmt.Errorf("file %q: duplicate path", f.Path))
		}
		paths[f.Path] = true
	}

	ips := make(map[string]bool, len(c.Servers))
	for _, s := range c.Servers {
		if s.IP == "" {
			errs = append(errs, errors.New("server with empty ip"))
			continue
		}
		if ips[s.IP] {
			errs = append(errs, fmt.Errorf("server %s: duplicate ip", s.IP))
		}
		ips[s.IP] = true
		if !s.Difficulty.Valid() {
			errs = append(errs, fmt.Errorf("server %s: unknown difficulty %q", s.IP, s.Difficulty))
		}
		if s.RequiresCracking && s.Password == "" {
			errs = append(errs, fmt.Errorf("server %s: requires cracking but has no password", s.IP))
		}
		for _, p := range append(append([]string(nil), s.HintFiles...), s.UnlockFiles...) {
			if !paths[p] {
				errs = append(errs, fmt.Errorf("server %s: references unknown file %q", s.IP, p))
			}
		}
	}

	missions := make(map[string]bool, len(c.Missions))
	for _, m := range c.Missions {
		if missions[m.ID] {
			errs = append(errs, fmt.Errorf("mission %q: duplicate id", m.ID))
		}
		missions[m.ID] = true
		if len(m.Objectives) == 0 {
			errs = append(errs, fmt.Errorf("mission %q: no objectives", m.ID))
		}
		for i, o := range m.Objectives {
			if err := o.Trigger.validate(); err != nil {
				errs = append(errs, fmt.Errorf("mission %q objective %d: %w", m.ID, i+1, err))
			}
		}
	}

	secrets := make(map[string]bool, len(c.Secrets))
	for _, s := range c.Secrets {
		if secrets[s.ID] {
			errs = append(errs, fmt.Errorf("secret %q: duplicate id", s.ID))
		}
		secrets[s.ID] = true
		if err := s.Trigger.validate(); err != nil {
			errs = append(errs, fmt.Errorf("secret %q: %w", s.ID, err))
		}
		if s.Trigger.Mission != "" && !missions[s.Trigger.Mission] {
			errs = append(errs, fmt.Errorf("secret %q: unknown mission %q", s.ID, s.Trigger.Mission))
		}
	}

	for _, ct := range c.Contacts {
		if err := ct.Trigger.validate(); err != nil {
			errs = append(errs, fmt.Errorf("contact %q: %w", ct.ID, err))
		}
		if ct.Delay < 0 {
			errs = append(errs, fmt.Errorf("contact %q: negative delay", ct.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

func (r TriggerRule) validate() error {
	if len(r.Commands()) == 0 {
		return errors.New("trigger has no command")
	}
	for _, expr := range []string{r.Args, r.Output} {
		if expr == "" {
			continue
		}
		if _, err := regexp.Compile("(?i)" + expr); err != nil {
			return fmt.Errorf("invalid trigger regex %q: %w", expr, err)
		}
	}
	return nil
}
