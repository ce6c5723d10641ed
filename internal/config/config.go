// Package config handles loading, saving, and resolving the LockKeeper
// settings file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.yaml.in/yaml/v3"
)

const (
	// LocalConfigFilename is the per-repository LockKeeper config file.
	LocalConfigFilename = ".lockkeeper.yaml"
	// ConfigAPIVersion is the current config schema apiVersion.
	ConfigAPIVersion = "skaphos.io/lockkeeper/v1beta1"
	// ConfigKind is the current config schema kind.
	ConfigKind = "LockKeeperConfig"
	// EnvConfigPath overrides config resolution when set.
	EnvConfigPath = "LOCKKEEPER_CONFIG"
)

// Config represents the LockKeeper settings for one repository session.
type Config struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`

	// GitBin is the path to the git binary. Empty means "git" from PATH.
	GitBin string `yaml:"git_bin,omitempty"`
	// ExtraPath entries are prepended to PATH for spawned git processes.
	ExtraPath []string `yaml:"extra_path,omitempty"`
	// LFSUserName is the lock username reported for locks taken by this
	// session. Empty falls back to git user.name.
	LFSUserName string `yaml:"lfs_user,omitempty"`
	// UseLocking enables LFS file locking. Defaults to true.
	UseLocking *bool `yaml:"use_locking,omitempty"`
	// StatusBranches are remote branches checked for divergence in
	// addition to the tracked upstream.
	StatusBranches []string `yaml:"status_branches,omitempty"`
	// LockablePatterns are doublestar globs selecting files subject to
	// check-out locking.
	LockablePatterns []string `yaml:"lockable_patterns"`
	// Concurrency bounds the command worker pool.
	Concurrency int `yaml:"concurrency"`
	// LockCacheTTLSeconds bounds how long the lock snapshot stays fresh.
	LockCacheTTLSeconds int `yaml:"lock_cache_ttl_seconds"`
	// RefreshSeconds is the background status refresh interval.
	RefreshSeconds int `yaml:"refresh_seconds"`
	// WatchRoots are directories watched for content changes, relative to
	// the repo root.
	WatchRoots []string `yaml:"watch_roots,omitempty"`
	// WatchDebounceMs coalesces bursts of filesystem events.
	WatchDebounceMs int `yaml:"watch_debounce_ms"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() Config {
	return Config{
		APIVersion:          ConfigAPIVersion,
		Kind:                ConfigKind,
		LockablePatterns:    []string{"**/*.uasset", "**/*.umap"},
		Concurrency:         4,
		LockCacheTTLSeconds: 30,
		RefreshSeconds:      30,
		WatchDebounceMs:     400,
	}
}

// LockingEnabled reports whether LFS locking is active.
func (c *Config) LockingEnabled() bool {
	return c.UseLocking == nil || *c.UseLocking
}

// LockCacheTTL returns the lock cache TTL as a duration.
func (c *Config) LockCacheTTL() time.Duration {
	return time.Duration(c.LockCacheTTLSeconds) * time.Second
}

// RefreshInterval returns the background refresh period as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshSeconds) * time.Second
}

// WatchDebounce returns the watcher coalescing window as a duration.
func (c *Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}

// Lockable reports whether a repo-relative path matches any lockable
// pattern.
func (c *Config) Lockable(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range c.LockablePatterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

// ResolveConfigPath resolves the config file for runtime commands.
// Order: explicit override, LOCKKEEPER_CONFIG, nearest local dotfile in
// cwd/parents. Empty return means "no config file, use defaults".
func ResolveConfigPath(override, cwd string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env, nil
	}
	if strings.TrimSpace(cwd) == "" {
		var err error
		cwd, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return FindNearestConfigPath(cwd)
}

// FindNearestConfigPath searches cwd and each parent directory for
// .lockkeeper.yaml. It returns an empty string when none is found.
func FindNearestConfigPath(cwd string) (string, error) {
	dir := cwd
	for {
		candidate := filepath.Join(dir, LocalConfigFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if err != nil && !os.IsNotExist(err) {
			return "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Load reads the config file from the given path. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigGVK(&cfg)
	if err := validateConfigGVK(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	applyConfigGVK(cfg)
	if err := validateConfigGVK(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if len(cfg.LockablePatterns) == 0 {
		cfg.LockablePatterns = defaults.LockablePatterns
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaults.Concurrency
	}
	if cfg.LockCacheTTLSeconds <= 0 {
		cfg.LockCacheTTLSeconds = defaults.LockCacheTTLSeconds
	}
	if cfg.RefreshSeconds <= 0 {
		cfg.RefreshSeconds = defaults.RefreshSeconds
	}
	if cfg.WatchDebounceMs <= 0 {
		cfg.WatchDebounceMs = defaults.WatchDebounceMs
	}
}

func applyConfigGVK(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = ConfigAPIVersion
	}
	if strings.TrimSpace(cfg.Kind) == "" {
		cfg.Kind = ConfigKind
	}
}

func validateConfigGVK(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.APIVersion != ConfigAPIVersion {
		return fmt.Errorf("unsupported config apiVersion %q (expected %q)", cfg.APIVersion, ConfigAPIVersion)
	}
	if cfg.Kind != ConfigKind {
		return fmt.Errorf("unsupported config kind %q (expected %q)", cfg.Kind, ConfigKind)
	}
	return nil
}
