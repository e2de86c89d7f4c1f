package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	var cfg Config
	require.NoError(t, envconfig.Process("MDE_TEST_UNSET", &cfg))
	return &cfg
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "Apartments", cfg.PropertyType)
	assert.Equal(t, 1, cfg.Quarter)
	assert.Equal(t, 5, cfg.MinSampleSize)
	assert.Equal(t, 10*time.Second, cfg.PageTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("MDE_QUARTER", "3")
	t.Setenv("MDE_YEAR", "2024")
	t.Setenv("MDE_PROPERTY_TYPE", "Offices")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Quarter)
	assert.Equal(t, 2024, cfg.Year)
	assert.Equal(t, "Offices", cfg.PropertyType)
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	t.Setenv("MDE_QUARTER", "9")

	cfg, err := Load()
	require.NoError(t, err, "an out-of-range value can still be overridden")
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalid))

	cfg.Quarter = 2
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		message string
	}{
		{"quarter zero", func(c *Config) { c.Quarter = 0 }, "MDE_QUARTER must be at least 1, got 0"},
		{"quarter five", func(c *Config) { c.Quarter = 5 }, "MDE_QUARTER must be at most 4, got 5"},
		{"negative threshold", func(c *Config) { c.MinSampleSize = -1 }, "MDE_MIN_SAMPLE_SIZE must be at least 0"},
		{"unknown type", func(c *Config) { c.PropertyType = "Lots" }, "MDE_PROPERTY_TYPE must be one of"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "MDE_LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoadRegionOfInterest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poblado.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
slug: ElPoblado
boundaries:
  path: shp/barrios.shp
parent:
  path: /abs/comunas.geojson
  name: El Poblado
allow_list:
  - La Aguacatala
  - El Tesoro
`), 0o644))

	roi, err := LoadRegionOfInterest(path)
	require.NoError(t, err)

	assert.Equal(t, "El Poblado", roi.Title, "title defaults to the parent name")
	assert.Equal(t, filepath.Join(dir, "shp/barrios.shp"), roi.Boundaries.Path)
	assert.Equal(t, "/abs/comunas.geojson", roi.Parent.Path)
	assert.Equal(t, "nombre", roi.Boundaries.NameField)
	assert.Equal(t, "utf-8", roi.Boundaries.Encoding)
	assert.Equal(t, []string{"La Aguacatala", "El Tesoro"}, roi.AllowList)
}

func TestLoadRegionOfInterestRejectsMissingParentName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
slug: X
boundaries:
  path: a.shp
parent:
  path: b.shp
`), 0o644))

	_, err := LoadRegionOfInterest(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadRegionOfInterestRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
slug: X
boundaries: {path: a.shp}
parent: {path: b.shp, name: P}
allowlist: [A]
`), 0o644))

	_, err := LoadRegionOfInterest(path)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestShippedRegionFileIsValid(t *testing.T) {
	roi, err := LoadRegionOfInterest(filepath.Join("..", "configs", "el_poblado.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "El Poblado", roi.Parent.Name)
	assert.Contains(t, roi.AllowList, "Santa María de Los Ángeles")
}
