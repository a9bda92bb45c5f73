// Package config resolves run settings from built-in defaults, an optional
// YAML file and TABULATE_* environment variables, in that order. Command-line
// flags are applied last by the CLI.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/palantir/survey-tabulator/pkg/pipeline/io/local"
)

// EnvConfigPath names the variable holding the config file path.
const EnvConfigPath = "TABULATE_CONFIG"

type Config struct {
	Encoding  string `yaml:"encoding"`
	Delimiter string `yaml:"delimiter"`
	InferRows int    `yaml:"infer_rows"`
	Format    string `yaml:"format"`

	MergeDuplicates bool `yaml:"merge_duplicates"`
	CoerceBooleans  bool `yaml:"coerce_booleans"`
	RedactPII       bool `yaml:"redact_pii"`

	Workers      int     `yaml:"workers"`
	MaxRetries   int     `yaml:"max_retries"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
	FailFast     bool    `yaml:"fail_fast"`

	LogJSON bool `yaml:"log_json"`
	Verbose bool `yaml:"verbose"`
}

func Defaults() Config {
	return Config{
		Encoding:        local.DefaultEncoding,
		Delimiter:       ",",
		InferRows:       local.DefaultInferRows,
		Format:          "json",
		MergeDuplicates: true,
		CoerceBooleans:  true,
		Workers:         4,
		MaxRetries:      2,
	}
}

// Load applies the file at path (skipped when empty) and then the
// environment on top of Defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		var err error
		cfg, err = LoadFile(path, cfg)
		if err != nil {
			return Config{}, err
		}
	}
	cfg, err := FromEnv(cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML document at path onto base. Keys absent from
// the file keep their base value; unknown keys are rejected.
func LoadFile(path string, base Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays TABULATE_* variables onto base.
func FromEnv(base Config) (Config, error) {
	cfg := base
	var err error
	cfg.Encoding = envString("TABULATE_ENCODING", cfg.Encoding)
	cfg.Delimiter = envString("TABULATE_DELIMITER", cfg.Delimiter)
	cfg.Format = envString("TABULATE_FORMAT", cfg.Format)
	if cfg.InferRows, err = envInt("TABULATE_INFER_ROWS", cfg.InferRows); err != nil {
		return Config{}, err
	}
	if cfg.MergeDuplicates, err = envBool("TABULATE_MERGE_DUPLICATES", cfg.MergeDuplicates); err != nil {
		return Config{}, err
	}
	if cfg.CoerceBooleans, err = envBool("TABULATE_COERCE_BOOLEANS", cfg.CoerceBooleans); err != nil {
		return Config{}, err
	}
	if cfg.RedactPII, err = envBool("TABULATE_REDACT_PII", cfg.RedactPII); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = envInt("TABULATE_WORKERS", cfg.Workers); err != nil {
		return Config{}, err
	}
	if cfg.MaxRetries, err = envInt("TABULATE_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitRPS, err = envFloat("TABULATE_RATE_LIMIT_RPS", cfg.RateLimitRPS); err != nil {
		return Config{}, err
	}
	if cfg.FailFast, err = envBool("TABULATE_FAIL_FAST", cfg.FailFast); err != nil {
		return Config{}, err
	}
	if cfg.LogJSON, err = envBool("TABULATE_LOG_JSON", cfg.LogJSON); err != nil {
		return Config{}, err
	}
	if cfg.Verbose, err = envBool("TABULATE_VERBOSE", cfg.Verbose); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no run can use.
func (c Config) Validate() error {
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	if _, err := local.LookupEncoding(c.Encoding); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must be >= 0, got %g", c.RateLimitRPS)
	}
	return nil
}

// DelimiterRune returns the configured delimiter; "\t" and "tab" mean a tab.
func (c Config) DelimiterRune() (rune, error) {
	d := c.Delimiter
	switch strings.ToLower(d) {
	case "", ",":
		return ',', nil
	case `\t`, "tab", "\t":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(d)
	if size != len(d) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q", d)
	}
	return r, nil
}

// ReadOptions is the loader configuration implied by c.
func (c Config) ReadOptions() (local.ReadOptions, error) {
	delim, err := c.DelimiterRune()
	if err != nil {
		return local.ReadOptions{}, err
	}
	return local.ReadOptions{
		Encoding:  c.Encoding,
		Delimiter: delim,
		InferRows: c.InferRows,
	}, nil
}

func envString(varName, fallback string) string {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(varName string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envFloat(varName string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}

func envBool(varName string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(varName))
	if v == "" {
		return fallback, nil
	}
	out, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s=%q: %w", varName, v, err)
	}
	return out, nil
}
