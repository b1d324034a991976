// Package config provides parsing, validation, and access to the scog
// tracked-file configuration and to the application settings.
//
// The tracked-file configuration is a YAML document stored inside the
// repository, so every machine syncing the repository tracks the same paths:
//
//	sections:
//	  - path: /home/u/.bashrc
//	  - path: /home/u/.config/nvim
//
// # Basic Usage
//
//	fs := billy.NewOSFS(repoRoot)
//
//	cfg, err := config.Load(ctx, fs, config.DefaultConfigName)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, p := range cfg.Paths() {
//	    fmt.Println(p)
//	}
package config

import (
	"context"

	"github.com/b1zzu/scog/fs"
)

// DefaultConfigName is the tracked-file configuration inside the repository.
const DefaultConfigName = "config.yaml"

// TrackedConfig lists the host paths kept in sync with the repository.
type TrackedConfig struct {
	Sections []Section `yaml:"sections"`
}

// Section is one tracked file or directory.
type Section struct {
	// Path is an absolute host path.
	Path string `yaml:"path"`
}

// Paths returns the tracked paths in configuration order.
func (c *TrackedConfig) Paths() []string {
	paths := make([]string, 0, len(c.Sections))
	for _, s := range c.Sections {
		paths = append(paths, s.Path)
	}
	return paths
}

// Validate checks every tracked path.
func (c *TrackedConfig) Validate() error {
	return validateTrackedConfig(c)
}

// LoadOptions configures the behavior of configuration loading operations.
type LoadOptions struct {
	// SkipValidation disables automatic validation after loading.
	SkipValidation bool
}

// Load reads and validates the tracked-file configuration at path.
//
// Parameters:
//   - ctx: Context for cancellation
//   - filesystem: Filesystem to read the configuration from
//   - path: Path to the configuration file (e.g., "config.yaml")
func Load(ctx context.Context, filesystem fs.Filesystem, path string) (*TrackedConfig, error) {
	return loadTrackedConfig(ctx, filesystem, path, LoadOptions{})
}

// LoadWithOptions reads the tracked-file configuration with custom options.
func LoadWithOptions(ctx context.Context, filesystem fs.Filesystem, path string, opts LoadOptions) (*TrackedConfig, error) {
	return loadTrackedConfig(ctx, filesystem, path, opts)
}

// Source reloads the tracked paths from a configuration file on every call.
// The configuration lives in the working copy, so it can change whenever a
// branch is fast-forwarded or switched.
type Source struct {
	FS   fs.Filesystem
	Path string
}

// Tracked loads the configuration and returns its paths.
func (s Source) Tracked(ctx context.Context) ([]string, error) {
	cfg, err := Load(ctx, s.FS, s.Path)
	if err != nil {
		return nil, err
	}
	return cfg.Paths(), nil
}
