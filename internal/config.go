package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Templates TemplatesConfig   `yaml:"templates"`
	Dataset   DatasetConfig     `yaml:"dataset"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Templates.Validate(); err != nil {
		return err
	}
	return c.Dataset.Validate()
}

// Version returns the working version for the dataset: the dataset's own
// version when set, otherwise the templates default.
func (c *Config) Version() string {
	if c.Dataset.Version != "" {
		return c.Dataset.Version
	}
	return c.Templates.DefaultVersion
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return nil
}

// TemplatesConfig holds the location of the bundled template trees and the
// version used when a dataset does not pin one.
type TemplatesConfig struct {
	ResourcesDir   string `yaml:"resources_dir"`
	DefaultVersion string `yaml:"default_version"`
}

// Validate validates the templates configuration.
func (c *TemplatesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ResourcesDir, validation.Required),
		validation.Field(&c.DefaultVersion, validation.Required),
	)
}

// DatasetConfig holds the path to the dataset directory tree.
//
// Version may be left empty, in which case the templates default applies.
type DatasetConfig struct {
	Path    string `yaml:"path"`
	Version string `yaml:"version"`
}

// Validate validates the dataset configuration.
func (c *DatasetConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Templates: TemplatesConfig{
			ResourcesDir:   "./resources",
			DefaultVersion: "2.0.0",
		},
		Dataset: DatasetConfig{
			Path: "./dataset",
		},
	}
}
