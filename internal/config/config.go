package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const appName = "nimbus"

// File represents the configuration file
type File struct {
	CurrentContext string              `yaml:"current_context,omitempty"`
	Contexts       map[string]*Context `yaml:"contexts,omitempty"`
	Aliases        map[string]string   `yaml:"aliases,omitempty"`
}

// DefaultPath returns $XDG_CONFIG_HOME/nimbus/config.yaml, falling back to
// ~/.config/nimbus/config.yaml
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("."+appName, "config.yaml")
	}
	return filepath.Join(home, ".config", appName, "config.yaml")
}

// Store reads and writes a configuration file
type Store struct {
	path string
}

// NewStore creates a Store for path. An empty path uses DefaultPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	return &Store{path: path}
}

// Path returns the file the store operates on
func (s *Store) Path() string {
	return s.path
}

// Load reads the configuration. A missing file yields an empty configuration.
func (s *Store) Load() (*File, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return newFile(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := newFile()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", s.path, err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	if cfg.Aliases == nil {
		cfg.Aliases = make(map[string]string)
	}

	return cfg, nil
}

// Save writes the configuration, creating its directory when needed
func (s *Store) Save(cfg *File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Current returns the named context, or the current one when name is empty.
// Aliases are resolved and defaults applied.
func (s *Store) Current(name string) (*Context, string, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, "", err
	}

	if name == "" {
		name = cfg.CurrentContext
	}
	if name == "" {
		return nil, "", fmt.Errorf("no context selected (run 'nmb use <context>')")
	}
	name = cfg.resolve(name)

	ctx, ok := cfg.Contexts[name]
	if !ok {
		return nil, "", fmt.Errorf("context %q not found", name)
	}
	ctx.ApplyDefaults()

	return ctx, name, nil
}

// Use sets the current context
func (s *Store) Use(name string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}

	name = cfg.resolve(name)
	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}

	cfg.CurrentContext = name
	return s.Save(cfg)
}

// Add validates ctx and adds or replaces it under name
func (s *Store) Add(name string, ctx *Context) error {
	if name == "" {
		return fmt.Errorf("context name is required")
	}
	if err := ctx.Validate(); err != nil {
		return err
	}

	cfg, err := s.Load()
	if err != nil {
		return err
	}

	cfg.Contexts[name] = ctx
	if cfg.CurrentContext == "" {
		cfg.CurrentContext = name
	}
	return s.Save(cfg)
}

// Delete removes a context and any alias pointing at it
func (s *Store) Delete(name string) error {
	cfg, err := s.Load()
	if err != nil {
		return err
	}

	if _, ok := cfg.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(cfg.Contexts, name)

	for alias, target := range cfg.Aliases {
		if target == name {
			delete(cfg.Aliases, alias)
		}
	}
	if cfg.CurrentContext == name {
		cfg.CurrentContext = ""
	}

	return s.Save(cfg)
}

// Names returns the context names in sorted order and the current one
func (s *Store) Names() ([]string, string, error) {
	cfg, err := s.Load()
	if err != nil {
		return nil, "", err
	}

	names := make([]string, 0, len(cfg.Contexts))
	for name := range cfg.Contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, cfg.CurrentContext, nil
}

// ParseContextName parses a context name like "aws:prod" into provider and name
func ParseContextName(name string) (provider, contextName string) {
	parts := strings.SplitN(name, ":", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return "", name
}

func (f *File) resolve(name string) string {
	if target, ok := f.Aliases[name]; ok {
		return target
	}
	return name
}

func newFile() *File {
	return &File{
		Contexts: make(map[string]*Context),
		Aliases:  make(map[string]string),
	}
}
