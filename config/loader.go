package config

import (
	"bytes"
	"context"
	"errors"
	"io"

	"gopkg.in/yaml.v3"

	scogerr "github.com/b1zzu/scog/errors"
	"github.com/b1zzu/scog/fs"
)

// loadTrackedConfig loads a tracked-file configuration from the specified path.
//
// The function performs the following steps:
// 1. Reads the file from the filesystem
// 2. Decodes the YAML document, rejecting unknown fields
// 3. Validates the configuration (unless SkipValidation is set)
//
// Every failure is reported as CONFIG_LOAD_FAILED with the path as context.
func loadTrackedConfig(ctx context.Context, filesystem fs.Filesystem, path string, opts LoadOptions) (*TrackedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := filesystem.ReadFile(path)
	if err != nil {
		msg := "failed to read configuration"
		if fs.IsNotExist(err) {
			msg = "configuration file does not exist"
		}
		return nil, scogerr.WrapWithContext(err, scogerr.CodeConfigLoadFailed, msg,
			map[string]interface{}{"path": path})
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, scogerr.WrapWithContext(err, scogerr.CodeConfigLoadFailed, "failed to parse configuration",
			map[string]interface{}{"path": path})
	}

	if !opts.SkipValidation {
		if err := cfg.Validate(); err != nil {
			return nil, scogerr.WrapWithContext(err, scogerr.CodeConfigLoadFailed, "invalid configuration",
				map[string]interface{}{"path": path})
		}
	}

	return cfg, nil
}

// Parse decodes a tracked-file configuration without validating it.
// An empty document yields a configuration that tracks nothing.
func Parse(data []byte) (*TrackedConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg TrackedConfig
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}
