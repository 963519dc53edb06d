// Package config loads the organizer configuration with Viper: defaults, then
// a YAML or JSON file, then a .env file, then SFO_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lexandro/fileorganizer-mcp/category"
	"github.com/lexandro/fileorganizer-mcp/extension"
	"github.com/lexandro/fileorganizer-mcp/logging"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SFO_LOG_LEVEL.
const EnvPrefix = "SFO"

// Category is a configured category. Extensions may be listed one per item
// or as a single space or comma separated string.
type Category struct {
	Name       string   `mapstructure:"name" yaml:"name" json:"name"`
	Extensions []string `mapstructure:"extensions" yaml:"extensions" json:"extensions"`
}

// Config is the complete configuration.
type Config struct {
	Categories []Category `mapstructure:"categories" yaml:"categories"`
	// CategoriesSet is true when the categories key is present, even as an
	// empty list. Only an absent key falls back to the built-in presets.
	CategoriesSet bool     `mapstructure:"-" yaml:"-"`
	Columns       []string `mapstructure:"columns" yaml:"columns"`

	Scan struct {
		MaxDepth         int      `mapstructure:"max_depth" yaml:"max_depth"`
		FollowSymlinks   bool     `mapstructure:"follow_symlinks" yaml:"follow_symlinks"`
		RespectGitignore bool     `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
		Exclude          []string `mapstructure:"exclude" yaml:"exclude"`
	} `mapstructure:"scan" yaml:"scan"`

	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
		File   string `mapstructure:"file" yaml:"file"`
		Buffer int    `mapstructure:"buffer" yaml:"buffer"`
	} `mapstructure:"log" yaml:"log"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

// LogOptions returns the logging settings.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
		Buffer: c.Log.Buffer,
	}
}

// Load reads the configuration. An empty path searches for fileorganizer.yaml
// (or .json) in the working directory and $HOME/.config/fileorganizer; a
// missing file is not an error then. An explicit path must exist.
func Load(path string) (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("fileorganizer")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/fileorganizer")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.CategoriesSet = v.IsSet("categories")
	cfg.Scan.Exclude = splitEnvList(cfg.Scan.Exclude)
	cfg.Columns = splitEnvList(cfg.Columns)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("columns", results.DefaultColumns)

	v.SetDefault("scan.max_depth", 0)
	v.SetDefault("scan.follow_symlinks", false)
	v.SetDefault("scan.respect_gitignore", false)
	v.SetDefault("scan.exclude", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.buffer", logging.DefaultBuffer)
}

// Validate checks value ranges and names.
func Validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", cfg.Log.Level)
	}
	format := strings.ToLower(cfg.Log.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", cfg.Log.Format)
	}
	if cfg.Log.Buffer < 0 {
		return fmt.Errorf("log.buffer must not be negative, got: %d", cfg.Log.Buffer)
	}
	if cfg.Scan.MaxDepth < 0 {
		return fmt.Errorf("scan.max_depth must not be negative, got: %d", cfg.Scan.MaxDepth)
	}
	for _, column := range cfg.Columns {
		if !results.KnownColumn(column) {
			return fmt.Errorf("unknown column: %q", column)
		}
	}
	return nil
}

// splitEnvList accepts a list given as one comma separated string, which is
// how environment variables arrive.
func splitEnvList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ApplyCategories adds the configured categories to the registry in order.
// Without a categories key the built-in presets are used; an explicitly
// empty list registers nothing. The first
// failure aborts with an error naming the category; categories added before
// it stay registered.
func ApplyCategories(registry *category.Registry, cfg *Config) error {
	cats := cfg.Categories
	if len(cats) == 0 && !cfg.CategoriesSet {
		cats = make([]Category, 0, len(extension.DefaultCategories))
		for _, preset := range extension.DefaultCategories {
			cats = append(cats, Category{Name: preset.Name, Extensions: preset.Extensions})
		}
	}

	for _, cat := range cats {
		var exts []string
		for _, item := range cat.Extensions {
			exts = append(exts, extension.ParseList(item)...)
		}
		if err := registry.Add(cat.Name, exts); err != nil {
			return fmt.Errorf("category %q: %w", cat.Name, err)
		}
	}
	return nil
}

// WriteCategories writes categories as a YAML configuration document that
// Load reads back.
func WriteCategories(w io.Writer, cats []category.Category) error {
	doc := struct {
		Categories []Category `yaml:"categories"`
	}{Categories: make([]Category, 0, len(cats))}

	for _, cat := range cats {
		exts := make([]string, len(cat.Extensions))
		copy(exts, cat.Extensions)
		doc.Categories = append(doc.Categories, Category{Name: cat.Name, Extensions: exts})
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}
	return encoder.Close()
}

// SaveCategories writes categories to path, replacing the file.
func SaveCategories(path string, cats []category.Category) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCategories(f, cats); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
