package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

func dirFs(path string) (afero.Fs, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}

	// The shell can change directory, so pin the path.
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return afero.NewBasePathFs(afero.NewOsFs(), abs), nil
}

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	afs, err := dirFs(path)
	if err != nil {
		return nil, err
	}
	return LoadFs(afs)
}

// LoadFs loads the configuration from the root of afs.
func LoadFs(afs afero.Fs) (*Configuration, error) {
	configContents, err := afero.ReadFile(afs, ConfigurationName)
	if err != nil {
		return nil, err
	}

	var out Configuration
	if err := yaml.UnmarshalStrict(configContents, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", ConfigurationName, err)
	}
	out.configFs = afs
	return &out, nil
}

// Initialize writes the default configuration into the directory if one
// doesn't already exist and loads it.
func Initialize(path string, logger *log.Logger) (*Configuration, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	afs, err := dirFs(path)
	if err != nil {
		return nil, err
	}
	if err := InitializeFs(afs, logger); err != nil {
		return nil, err
	}
	return LoadFs(afs)
}

// InitializeFs writes the default configuration into the root of afs.
func InitializeFs(afs afero.Fs, logger *log.Logger) error {
	switch _, err := afs.Stat(ConfigurationName); {
	case err == nil:
		logger.Printf("- %s already exists, skipping", ConfigurationName)
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	logger.Printf("- Writing %s", ConfigurationName)
	return afero.WriteFile(afs, ConfigurationName, defaultConfigData, 0600)
}
