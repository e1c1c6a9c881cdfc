// Package config loads run defaults from .cachemon.yaml and CACHEMON_*
// environment variables. Command-line flags override anything loaded here.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pwalsh/cachemon/internal/errors"
)

// ConfigFileName is the name of the configuration file.
const ConfigFileName = ".cachemon.yaml"

// Config holds the run defaults for monitoring.
type Config struct {
	// Interval is the polling interval in 100 ms units (10 = 1 s).
	Interval int `yaml:"interval" mapstructure:"interval"`

	// Time is the run duration in seconds, or "inf" for unbounded.
	Time string `yaml:"time" mapstructure:"time"`

	// Top enables the continuously re-sorted, screen-refreshing display.
	Top bool `yaml:"top" mapstructure:"top"`

	// Format is the output encoding: text, xml, or csv.
	Format string `yaml:"format" mapstructure:"format"`

	// File is the output destination; empty means stdout.
	File string `yaml:"file" mapstructure:"file"`
}

// Default returns a Config with sensible defaults: poll every second,
// run forever, plain text to stdout.
func Default() *Config {
	return &Config{
		Interval: 10,
		Time:     "inf",
		Format:   "text",
	}
}

// Load reads .cachemon.yaml from the current directory or the home
// directory, layered under CACHEMON_* environment variables. A missing
// config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".cachemon")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.SetEnvPrefix("CACHEMON")
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("interval", def.Interval)
	v.SetDefault("time", def.Time)
	v.SetDefault("top", def.Top)
	v.SetDefault("format", def.Format)
	v.SetDefault("file", def.File)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"failed to read .cachemon.yaml",
				"Fix or remove the config file and try again.")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"invalid values in .cachemon.yaml", "")
	}
	return cfg, nil
}

// Save writes the configuration to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"failed to encode configuration", "")
	}
	header := "# cachemon configuration\n# Flags and CACHEMON_* environment variables override these values.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrOutput,
			fmt.Sprintf("failed to write %s", path),
			"Check the directory permissions.")
	}
	return nil
}

// ParseTime parses a run duration: a non-negative number of seconds, or
// "inf"/"infinite" for unbounded (-1).
func ParseTime(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "inf") || strings.EqualFold(s, "infinite") {
		return -1, nil
	}
	secs, err := strconv.Atoi(s)
	if err != nil || secs < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("%q doesn't look like a valid monitoring time", s),
			"Use a number of seconds, or inf for unbounded.")
	}
	return secs, nil
}

// Validate checks the loaded values that have constrained domains.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("invalid monitoring interval %d", c.Interval),
			"The interval is given in 100 ms units and must be positive.")
	}
	if _, err := ParseTime(c.Time); err != nil {
		return err
	}
	return nil
}
