package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheyinl/typograf/soap"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, k := range []string{EnvHost, EnvPort, EnvPath, EnvEncoding, EnvParser, EnvDialTimeout, EnvReadTimeout, EnvLogLevel, EnvLogFormat} {
		t.Setenv(k, "")
	}
}

func TestNewDefault(t *testing.T) {
	cfg := NewDefault()

	assert.Equal(t, soap.DefaultEndpoint(), cfg.Endpoint())
	assert.Equal(t, soap.DefaultRequestOptions(), cfg.RequestOptions())
	assert.Equal(t, ParserMarkers, cfg.Parser)
	assert.Zero(t, cfg.ReadTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, NewDefault(), cfg)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := writeFile(t, "typograf.yaml", `
host: localhost
port: 8080
encoding: windows-1251
maxNobr: 5
parser: tree
readTimeout: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, soap.DefaultPath, cfg.Path)
	assert.Equal(t, "windows-1251", cfg.Encoding)
	assert.Equal(t, 4, cfg.EntityType)
	assert.Equal(t, 5, cfg.MaxNobr)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.IsType(t, soap.TreeExtractor{}, cfg.Extractor())
}

func TestLoad_LocalFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(LocalConfigFileName, []byte("host: local.test\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "local.test", cfg.Host)
	assert.Equal(t, LocalConfigFileName, cfg.File)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeFile(t, "typograf.yaml", "host: from-file\nport: 8080\n")
	t.Setenv(EnvHost, "from-env")
	t.Setenv(EnvPort, "not-a-number")
	t.Setenv(EnvDialTimeout, "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.DialTimeout)
}

func TestLoad_BadYAML(t *testing.T) {
	isolate(t)
	path := writeFile(t, "typograf.yaml", "port: [1, 2\n")

	_, err := Load(path)
	require.Error(t, err)

	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, path, fe.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty host", func(c *Config) { c.Host = "" }, "host is empty"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "port 70000 is out of range"},
		{"port zero", func(c *Config) { c.Port = 0 }, "port 0 is out of range"},
		{"negative dial timeout", func(c *Config) { c.DialTimeout = -time.Second }, "dialTimeout -1s is negative"},
		{"negative read timeout", func(c *Config) { c.ReadTimeout = -time.Second }, "readTimeout -1s is negative"},
		{"unknown encoding", func(c *Config) { c.Encoding = "klingon" }, `unknown encoding "klingon"`},
		{"unknown parser", func(c *Config) { c.Parser = "regex" }, `unknown parser "regex"`},
		{"cp1251", func(c *Config) { c.Encoding = "cp1251" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
