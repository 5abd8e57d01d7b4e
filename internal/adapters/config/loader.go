// Package config provides the specimen configuration loader.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/gobwas/glob"
	"go.trai.ch/bom/internal/core/domain"
	"go.trai.ch/bom/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// DefaultFilename is the configuration file looked up when none is given.
const DefaultFilename = "bom.yaml"

const supportedVersion = "1"

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	logger ports.Logger
}

// NewLoader creates a new configuration loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads the configuration file at path. Relative paths inside the file are
// resolved against the directory that contains it.
func (l *Loader) Load(path string) (*domain.ScanConfig, error) {
	if path == "" {
		path = DefaultFilename
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
	}

	var bomfile Bomfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&bomfile); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
	}

	cfg, err := build(&bomfile, filepath.Dir(path))
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}

	l.logger.Debug("configuration loaded", "path", path, "specimens", len(cfg.Specimens))
	return cfg, nil
}

func build(f *Bomfile, baseDir string) (*domain.ScanConfig, error) {
	if f.Version != "" && f.Version != supportedVersion {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "unsupported config version"), "version", f.Version)
	}
	if f.Workers < 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "workers must not be negative"), "workers", f.Workers)
	}
	if len(f.Specimens) == 0 {
		return nil, zerr.Wrap(domain.ErrInvalidConfig, "no specimens configured")
	}
	for _, pattern := range f.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "invalid exclude pattern"), "pattern", pattern)
		}
	}

	cfg := &domain.ScanConfig{
		Workers:          f.Workers,
		Exclude:          slices.Clone(f.Exclude),
		OmitUnrecognized: f.OmitUnrecognized,
	}
	for i, dto := range f.Specimens {
		if len(dto.ExtractPaths) == 0 {
			return nil, zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "specimen has no extract paths"), "specimen", i)
		}
		spec := domain.Specimen{
			InstallPrefix: dto.InstallPrefix,
			ExtractPaths:  make([]string, 0, len(dto.ExtractPaths)),
		}
		if dto.Archive != "" {
			spec.Archive = resolve(baseDir, dto.Archive)
		}
		for _, p := range dto.ExtractPaths {
			spec.ExtractPaths = append(spec.ExtractPaths, resolve(baseDir, p))
		}
		cfg.Specimens = append(cfg.Specimens, spec)
	}
	return cfg, nil
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}
