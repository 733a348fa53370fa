// Package config loads the job file for the regular command.
//
// Configuration is loaded from a single file specified by:
//   - the REGULAR_CONFIG environment variable, or
//   - the --config flag passed to the command
//
// There is no discovery and no merging of several files. Path fields may
// use ${VAR} and ${VAR:-default}; relative paths are taken from the
// directory of the config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/regular/codec"
)

// EnvVar names the environment variable Load reads.
const EnvVar = "REGULAR_CONFIG"

// Config is the job file.
type Config struct {
	// LogLevel is one of debug, info, warn, error. Default: info
	LogLevel string `yaml:"log_level"`

	// Concurrency bounds how many jobs run at once. 0 means one per CPU.
	Concurrency int `yaml:"concurrency"`

	// OutputFormat is the default format for job output written to stdout.
	// Default: json
	OutputFormat string `yaml:"output_format"`

	// Jobs run independently of each other.
	Jobs []Job `yaml:"jobs"`
}

// Job is one match, format or match-and-format run.
type Job struct {
	// Name identifies the job in logs. Required and unique.
	Name string `yaml:"name"`

	// Match is the template file matched against Data.
	Match string `yaml:"match"`

	// Data is the data file.
	Data string `yaml:"data"`

	// Format is the output template file. Without it the job writes the
	// binding sets of the match.
	Format string `yaml:"format"`

	// Bindings is a bindings file formatted into Format instead of a
	// match.
	Bindings string `yaml:"bindings"`

	// Symbols restricts the binding sets of a match-only job.
	Symbols []string `yaml:"symbols"`

	// Single requires a match-only job to produce exactly one binding
	// set, written as a map.
	Single bool `yaml:"single"`

	// All writes every result of a non-list output template instead of
	// requiring exactly one.
	All bool `yaml:"all"`

	// Clean strips unresolved placeholders from the output.
	Clean bool `yaml:"clean"`

	// Output is the output file. Empty writes to stdout.
	Output string `yaml:"output"`

	// OutputFormat overrides the top-level format for stdout output.
	OutputFormat string `yaml:"output_format"`
}

// Default returns the defaults applied before the file is read.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		OutputFormat: string(codec.JSON),
	}
}

// Load loads the file named by REGULAR_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your job file, or use --config flag", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads and validates a config file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads a config from YAML. Relative job paths are joined to dir.
// Unknown keys are an error.
func Parse(data []byte, dir string) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	cfg.expandPaths(dir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) expandPaths(dir string) {
	for i := range c.Jobs {
		j := &c.Jobs[i]
		for _, p := range []*string{&j.Match, &j.Data, &j.Format, &j.Bindings, &j.Output} {
			*p = resolvePath(expandVars(*p), dir)
		}
	}
}

func resolvePath(p, dir string) string {
	if p == "" || filepath.IsAbs(p) || dir == "" {
		return p
	}
	return filepath.Join(dir, p)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// JobFormat returns the output format of job j.
func (c *Config) JobFormat(j Job) (codec.Format, error) {
	if j.OutputFormat != "" {
		return codec.ParseFormat(j.OutputFormat)
	}
	return codec.ParseFormat(c.OutputFormat)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency))
	}
	if _, err := codec.ParseFormat(c.OutputFormat); err != nil {
		errs = append(errs, fmt.Errorf("output_format: %w", err))
	}
	if len(c.Jobs) == 0 {
		errs = append(errs, errors.New("no jobs defined"))
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, j := range c.Jobs {
		where := fmt.Sprintf("jobs[%d]", i)
		if j.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		} else {
			where = fmt.Sprintf("jobs[%d] (%s)", i, j.Name)
			if seen[j.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate job name", where))
			}
			seen[j.Name] = true
		}

		switch {
		case j.Bindings != "":
			if j.Match != "" || j.Data != "" {
				errs = append(errs, fmt.Errorf("%s: bindings cannot be combined with match or data", where))
			}
			if j.Format == "" {
				errs = append(errs, fmt.Errorf("%s: bindings need a format template", where))
			}
		case j.Match == "" || j.Data == "":
			errs = append(errs, fmt.Errorf("%s: match and data are required", where))
		}
		if len(j.Symbols) > 0 && j.Format != "" {
			errs = append(errs, fmt.Errorf("%s: symbols only apply to match-only jobs", where))
		}
		if j.Single && j.Format != "" {
			errs = append(errs, fmt.Errorf("%s: single only applies to match-only jobs", where))
		}
		if j.Single && j.All {
			errs = append(errs, fmt.Errorf("%s: single and all are exclusive", where))
		}
		if j.OutputFormat != "" {
			if _, err := codec.ParseFormat(j.OutputFormat); err != nil {
				errs = append(errs, fmt.Errorf("%s: output_format: %w", where, err))
			}
		}
	}

	return errors.Join(errs...)
}
