package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Initialize writes the default configuration into dir. Existing files are
// left untouched.
func Initialize(dir string, logger zerolog.Logger) error {
	return InitializeFs(afero.NewOsFs(), dir, logger)
}

// InitializeFs is Initialize on an arbitrary filesystem.
func InitializeFs(base afero.Fs, dir string, logger zerolog.Logger) error {
	if err := base.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	target := filepath.Join(dir, ConfigurationName)
	exists, err := afero.Exists(base, target)
	if err != nil {
		return err
	}
	if exists {
		logger.Info().Str("path", target).Msg("config already exists, skipping")
		return nil
	}

	if err := afero.WriteFile(base, target, defaultConfigData, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", ConfigurationName, err)
	}
	logger.Info().Str("path", target).Msg("wrote default config")
	return nil
}

// DefaultDir returns the default configuration directory.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "visionsh")
	}
	return ".visionsh"
}
