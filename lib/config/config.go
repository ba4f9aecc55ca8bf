// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "AUDITBOX_CONFIG"

// Config is the master configuration for audit-box.
type Config struct {
	// Session configures where the active session is recorded and
	// where new overlay directories are created.
	Session SessionConfig `yaml:"session"`

	// Scan configures overlay scanning.
	Scan ScanConfig `yaml:"scan"`

	// Apply configures write-back into the base.
	Apply ApplyConfig `yaml:"apply"`

	// Diff configures diff rendering.
	Diff DiffConfig `yaml:"diff"`

	// Review configures the interactive reviewer.
	Review ReviewConfig `yaml:"review"`

	// Sandbox configures the bubblewrap launch used by "audit-box run".
	Sandbox SandboxConfig `yaml:"sandbox"`
}

// SessionConfig configures session storage.
type SessionConfig struct {
	// Directory holds session.json and journal.cbor.
	// Default: ${XDG_CONFIG_HOME:-${HOME}/.config}/audit-box
	Directory string `yaml:"directory"`

	// TempRoot is where "audit-box new" creates overlay and work
	// directories.
	// Default: /tmp
	TempRoot string `yaml:"temp_root"`
}

// ScanConfig configures overlay scanning.
type ScanConfig struct {
	// Exclude lists entry names skipped wherever they appear in the
	// overlay, with their subtrees.
	Exclude []string `yaml:"exclude"`

	// FollowWhiteouts reports overlayfs whiteouts (deletions made
	// inside the sandbox) in status output. Whiteouts are never
	// applied either way.
	// Default: true
	FollowWhiteouts bool `yaml:"follow_whiteouts"`
}

// ApplyConfig configures write-back.
type ApplyConfig struct {
	// Workers is how many files are committed concurrently.
	// Default: 1
	Workers int `yaml:"workers"`

	// Fsync flushes each written file before it is renamed into
	// place.
	// Default: true
	Fsync bool `yaml:"fsync"`

	// Journal appends every apply and discard outcome to the session
	// journal.
	// Default: true
	Journal bool `yaml:"journal"`
}

// DiffConfig configures diff rendering.
type DiffConfig struct {
	// ContextLines is the number of unchanged lines around a change.
	// Default: 3
	ContextLines int `yaml:"context_lines"`

	// MaxBytes is the largest file that is diffed line by line.
	// Default: 4194304
	MaxBytes int64 `yaml:"max_bytes"`
}

// ReviewConfig configures the interactive reviewer.
type ReviewConfig struct {
	// HighlightStyle is the chroma style used for new-file previews.
	// Default: monokai
	HighlightStyle string `yaml:"highlight_style"`

	// Watch rescans automatically when the overlay changes.
	// Default: true
	Watch bool `yaml:"watch"`
}

// SandboxConfig configures the bubblewrap launch.
type SandboxConfig struct {
	// Bwrap is the bubblewrap binary, a path or a name found in PATH.
	// Default: bwrap
	Bwrap string `yaml:"bwrap"`

	// Shell is run when "audit-box run" is given no command.
	// Default: /bin/bash
	Shell string `yaml:"shell"`

	// ExtraArgs are passed to bwrap before the command.
	ExtraArgs []string `yaml:"extra_args"`
}

// Default returns the configuration used when no file is named. It is
// also the base that a loaded file is merged over, so a file only needs
// the keys it changes.
func Default() *Config {
	cfg := &Config{
		Session: SessionConfig{
			Directory: "${XDG_CONFIG_HOME:-${HOME}/.config}/audit-box",
			TempRoot:  "/tmp",
		},
		Scan: ScanConfig{
			FollowWhiteouts: true,
		},
		Apply: ApplyConfig{
			Workers: 1,
			Fsync:   true,
			Journal: true,
		},
		Diff: DiffConfig{
			ContextLines: 3,
			MaxBytes:     4 << 20,
		},
		Review: ReviewConfig{
			HighlightStyle: "monokai",
			Watch:          true,
		},
		Sandbox: SandboxConfig{
			Bwrap: "bwrap",
			Shell: "/bin/bash",
		},
	}
	cfg.expandVariables()
	return cfg
}

// Load loads configuration from the file named by AUDITBOX_CONFIG, or
// returns [Default] when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults. The result is validated.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Session.Directory = expandVars(c.Session.Directory, vars)
	c.Session.TempRoot = expandVars(c.Session.TempRoot, vars)
	c.Sandbox.Bwrap = expandVars(c.Sandbox.Bwrap, vars)
	c.Sandbox.Shell = expandVars(c.Sandbox.Shell, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-((?:[^{}]|\$\{[^}]*\})*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. A default
// may itself contain one level of ${VAR}.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Provided vars first, then the environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return expandVars(defaultValue, vars)
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Session.Directory == "" {
		errs = append(errs, errors.New("session.directory is required"))
	} else if !filepath.IsAbs(c.Session.Directory) {
		errs = append(errs, fmt.Errorf("session.directory must be absolute, got %q", c.Session.Directory))
	}
	if c.Session.TempRoot == "" {
		errs = append(errs, errors.New("session.temp_root is required"))
	}

	if slices.Contains(c.Scan.Exclude, "") {
		errs = append(errs, errors.New("scan.exclude must not contain an empty path"))
	}

	if c.Apply.Workers < 1 {
		errs = append(errs, fmt.Errorf("apply.workers must be at least 1, got %d", c.Apply.Workers))
	}

	if c.Diff.ContextLines < 0 {
		errs = append(errs, fmt.Errorf("diff.context_lines must not be negative, got %d", c.Diff.ContextLines))
	}
	if c.Diff.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("diff.max_bytes must be positive, got %d", c.Diff.MaxBytes))
	}

	if c.Review.HighlightStyle == "" {
		errs = append(errs, errors.New("review.highlight_style is required"))
	}

	if c.Sandbox.Bwrap == "" {
		errs = append(errs, errors.New("sandbox.bwrap is required"))
	}
	if c.Sandbox.Shell == "" {
		errs = append(errs, errors.New("sandbox.shell is required"))
	}

	return errors.Join(errs...)
}

// EnsurePaths creates the session directory if it does not exist. The
// directory holds the session record, so it is private to the user.
func (c *Config) EnsurePaths() error {
	if err := os.MkdirAll(c.Session.Directory, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", c.Session.Directory, err)
	}
	return nil
}

// BwrapPath resolves Sandbox.Bwrap to an executable path. A value
// containing a slash is used as given; a bare name is looked up in
// PATH.
func (c *Config) BwrapPath() (string, error) {
	if filepath.Base(c.Sandbox.Bwrap) != c.Sandbox.Bwrap {
		if _, err := os.Stat(c.Sandbox.Bwrap); err != nil {
			return "", fmt.Errorf("sandbox.bwrap: %w", err)
		}
		return c.Sandbox.Bwrap, nil
	}
	path, err := exec.LookPath(c.Sandbox.Bwrap)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH (install bubblewrap or set sandbox.bwrap)", c.Sandbox.Bwrap)
	}
	return path, nil
}
