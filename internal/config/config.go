// Package config provides the typograf client configuration.
//
// Values can come from several sources, highest priority first:
//  1. Command-line flags (applied by the caller)
//  2. Environment variables (TYPOGRAF_*)
//  3. The file named by --config, else .typografrc.yaml in the working
//     directory, else typograf/config.yaml in the user config directory
//  4. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cheyinl/typograf/internal/charset"
	"github.com/cheyinl/typograf/soap"
)

// Parser names accepted by Config.Parser.
const (
	ParserMarkers = "markers"
	ParserTree    = "tree"
)

// Environment variable names
const (
	EnvHost        = "TYPOGRAF_HOST"
	EnvPort        = "TYPOGRAF_PORT"
	EnvPath        = "TYPOGRAF_PATH"
	EnvEncoding    = "TYPOGRAF_ENCODING"
	EnvParser      = "TYPOGRAF_PARSER"
	EnvDialTimeout = "TYPOGRAF_DIAL_TIMEOUT"
	EnvReadTimeout = "TYPOGRAF_READ_TIMEOUT"
	EnvLogLevel    = "TYPOGRAF_LOG_LEVEL"
	EnvLogFormat   = "TYPOGRAF_LOG_FORMAT"
)

// Config file names searched when no path is given.
const (
	LocalConfigFileName  = ".typografrc.yaml"
	GlobalConfigDir      = "typograf"
	GlobalConfigFileName = "config.yaml"
)

type Config struct {
	// Service endpoint
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"`

	// ProcessText options
	Encoding   string `yaml:"encoding"`
	EntityType int    `yaml:"entityType"`
	UseBr      int    `yaml:"useBr"`
	UseP       int    `yaml:"useP"`
	MaxNobr    int    `yaml:"maxNobr"`

	// Parser selects the response extractor: "markers" or "tree".
	Parser string `yaml:"parser"`

	DialTimeout time.Duration `yaml:"dialTimeout"`
	// ReadTimeout of zero waits for the service to close the connection.
	ReadTimeout time.Duration `yaml:"readTimeout"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// File is the config file that was loaded, if any.
	File string `yaml:"-"`
}

// NewDefault returns the built-in configuration.
func NewDefault() *Config {
	ep := soap.DefaultEndpoint()
	ro := soap.DefaultRequestOptions()
	return &Config{
		Host:       ep.Host,
		Port:       ep.Port,
		Path:       ep.Path,
		Encoding:   ro.Encoding,
		EntityType: ro.EntityType,
		UseBr:      ro.UseBr,
		UseP:       ro.UseP,
		MaxNobr:    ro.MaxNobr,
		Parser:     ParserMarkers,
		LogLevel:   "warn",
		LogFormat:  "text",
	}
}

// Load builds the configuration from defaults, a config file and the
// environment. path may be empty to search the default locations.
func Load(path string) (*Config, error) {
	cfg := NewDefault()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{LocalConfigFileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, GlobalConfigDir, GlobalConfigFileName))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// mergeFile overlays the keys present in the YAML file at path.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &FileError{Path: path, Err: err}
	}
	c.File = path
	return nil
}

// mergeEnv sets values present in the environment. Unparsable numbers and
// durations are ignored.
func (c *Config) mergeEnv() {
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(EnvPath); v != "" {
		c.Path = v
	}
	if v := os.Getenv(EnvEncoding); v != "" {
		c.Encoding = v
	}
	if v := os.Getenv(EnvParser); v != "" {
		c.Parser = v
	}
	if v := os.Getenv(EnvDialTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DialTimeout = d
		}
	}
	if v := os.Getenv(EnvReadTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ReadTimeout = d
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.LogFormat = v
	}
}

// Validate checks the values the client cannot work without. ProcessText
// option codes are left to the service.
func (c *Config) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("host is empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	if c.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("dialTimeout %s is negative", c.DialTimeout))
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("readTimeout %s is negative", c.ReadTimeout))
	}
	if _, err := charset.Lookup(c.Encoding); err != nil {
		errs = append(errs, err)
	}
	if c.Parser != ParserMarkers && c.Parser != ParserTree {
		errs = append(errs, fmt.Errorf("unknown parser %q", c.Parser))
	}
	return errors.Join(errs...)
}

// Endpoint returns the service endpoint.
func (c *Config) Endpoint() soap.Endpoint {
	return soap.Endpoint{Host: c.Host, Port: c.Port, Path: c.Path}
}

// RequestOptions returns the ProcessText options.
func (c *Config) RequestOptions() soap.RequestOptions {
	return soap.RequestOptions{
		Encoding:   c.Encoding,
		EntityType: c.EntityType,
		UseBr:      c.UseBr,
		UseP:       c.UseP,
		MaxNobr:    c.MaxNobr,
	}
}

// Extractor returns the response extractor named by Parser.
func (c *Config) Extractor() soap.Extractor {
	if c.Parser == ParserTree {
		return soap.TreeExtractor{}
	}
	return soap.MarkerExtractor{}
}

// FileError is a config file that could not be decoded.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}
