package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/dshills/taphold/internal/config/loader"
)

// Config is the merged configuration: built-in defaults, then the config
// file, then the environment. It is read once at startup.
type Config struct {
	mu sync.RWMutex

	data    map[string]any
	path    string
	sources []string

	fs        loader.FileSystem
	envPrefix string
	useEnv    bool

	// overrides are applied last, above the environment.
	overrides map[string]any

	// configErrors stores errors encountered during typed access.
	configErrors map[string]error
}

// Option configures loading.
type Option func(*Config)

// WithFS reads config files from fsys.
func WithFS(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithoutEnv skips the environment layer.
func WithoutEnv() Option {
	return func(c *Config) {
		c.useEnv = false
	}
}

// WithOverrides layers m over everything else, e.g. command-line flags.
// Keys are dotted paths such as "source.device".
func WithOverrides(m map[string]any) Option {
	return func(c *Config) {
		if c.overrides == nil {
			c.overrides = make(map[string]any)
		}
		for path, v := range m {
			loader.SetByPath(c.overrides, path, v)
		}
	}
}

// Load builds the configuration. An empty path searches the user config
// directory for config.toml then config.lua and accepts neither existing;
// an explicit path must exist.
func Load(path string, opts ...Option) (*Config, error) {
	c := &Config{
		data:      Defaults(),
		fs:        loader.DefaultFS(),
		envPrefix: loader.DefaultEnvPrefix,
		useEnv:    true,
		sources:   []string{"defaults"},
	}
	for _, opt := range opts {
		opt(c)
	}

	if path == "" {
		path = c.findDefaultFile()
	} else if _, err := c.fs.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, err
	}

	if path != "" {
		l, err := loader.ForFile(c.fs, path)
		if err != nil {
			return nil, err
		}
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		if m != nil {
			c.data = loader.DeepMerge(c.data, m)
			c.path = path
			c.sources = append(c.sources, path)
		}
	}

	if c.useEnv {
		m, err := loader.NewEnvLoader(c.envPrefix).Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		if len(m) > 0 {
			c.data = loader.DeepMerge(c.data, m)
			c.sources = append(c.sources, "env")
		}
	}

	if len(c.overrides) > 0 {
		c.data = loader.DeepMerge(c.data, c.overrides)
		c.sources = append(c.sources, "flags")
	}

	return c, nil
}

// FromMap builds a configuration from defaults overlaid with m.
func FromMap(m map[string]any) *Config {
	return &Config{
		data:    loader.DeepMerge(Defaults(), m),
		sources: []string{"defaults", "map"},
	}
}

func (c *Config) findDefaultFile() string {
	dir := DefaultDir()
	for _, name := range []string{"config.toml", "config.lua"} {
		p := filepath.Join(dir, name)
		if _, err := c.fs.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultDir returns the user configuration directory.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "taphold")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "taphold")
}

// Path returns the config file that was loaded, or "".
func (c *Config) Path() string {
	return c.path
}

// Sources lists the layers that contributed, lowest first.
func (c *Config) Sources() []string {
	out := make([]string, len(c.sources))
	copy(out, c.sources)
	return out
}

// Merged returns a copy of the merged configuration map.
func (c *Config) Merged() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.Clone(c.data)
}

// Get returns the value at the given path.
func (c *Config) Get(path string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return loader.GetByPath(c.data, path)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		if val != float64(int64(val)) {
			return 0, &TypeError{Path: path, Expected: "int", Actual: "float64"}
		}
		return int(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
	}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetDuration returns a duration at the given path.
// Accepts both duration strings (e.g., "170ms") and integers (milliseconds).
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	return toDuration(path, v)
}

// GetStringMap returns a table of strings at the given path.
func (c *Config) GetStringMap(path string) (map[string]string, error) {
	v, ok := c.Get(path)
	if !ok {
		return nil, ErrSettingNotFound
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &TypeError{Path: path, Expected: "table", Actual: typeName(v)}
	}
	out := make(map[string]string, len(m))
	for k, item := range m {
		s, ok := item.(string)
		if !ok {
			return nil, &TypeError{Path: path + "." + k, Expected: "string", Actual: typeName(item)}
		}
		out[k] = s
	}
	return out, nil
}

func toDuration(path string, v any) (time.Duration, error) {
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &ValidationError{Path: path, Message: "invalid duration", Value: val}
		}
		return d, nil
	case int:
		return time.Duration(val) * time.Millisecond, nil
	case int64:
		return time.Duration(val) * time.Millisecond, nil
	case float64:
		return time.Duration(val * float64(time.Millisecond)), nil
	default:
		return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
	}
}

// The getXOr helpers return the default only for ErrSettingNotFound.
// Other errors are recorded and reported by Validate.

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	v, err := c.GetBool(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

func (c *Config) getDurationOr(path string, defaultValue time.Duration) time.Duration {
	v, err := c.GetDuration(path)
	if err != nil {
		c.recordConfigError(path, err)
		return defaultValue
	}
	return v
}

// recordConfigError keeps the first error for each path.
func (c *Config) recordConfigError(path string, err error) {
	if err == ErrSettingNotFound {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configErrors == nil {
		c.configErrors = make(map[string]error)
	}
	if _, exists := c.configErrors[path]; !exists {
		c.configErrors[path] = err
	}
}

// ConfigErrors returns the errors recorded during typed access, sorted
// by path.
func (c *Config) ConfigErrors() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.configErrors))
	for p := range c.configErrors {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]error, len(paths))
	for i, p := range paths {
		out[i] = c.configErrors[p]
	}
	return out
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case []any:
		return "array"
	case map[string]any:
		return "table"
	default:
		return fmt.Sprintf("%T", v)
	}
}
