package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobayes/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"GOBAYES_SEED", "GOBAYES_PARALLELISM", "GOBAYES_HEAVY_LIMIT", "GOBAYES_BOOTSTRAP_N",
		"GOBAYES_NOISE_TRIALS", "GOBAYES_PRIOR", "GOBAYES_CATALOG", "GOBAYES_WORKBOOK",
		"PORT", "GIN_MODE", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Engine.Seed)
	assert.Equal(t, 4, cfg.Engine.Parallelism)
	assert.Equal(t, 1, cfg.Engine.HeavyLimit)
	assert.Equal(t, 1000, cfg.Engine.BootstrapN)
	assert.Equal(t, 100, cfg.Engine.NoiseTrials)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Data.Catalog)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("GOBAYES_SEED", "-7")
	t.Setenv("GOBAYES_PARALLELISM", "8")
	t.Setenv("GOBAYES_BOOTSTRAP_N", "250")
	t.Setenv("GOBAYES_PRIOR", "skeptical")
	t.Setenv("GOBAYES_CATALOG", "/etc/gobayes/catalog.yaml")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(-7), cfg.Engine.Seed)
	assert.Equal(t, 8, cfg.Engine.Parallelism)
	assert.Equal(t, 250, cfg.Engine.BootstrapN)
	assert.Equal(t, "skeptical", cfg.Engine.Prior)
	assert.Equal(t, "/etc/gobayes/catalog.yaml", cfg.Data.Catalog)
	assert.Equal(t, ":9090", cfg.Addr())
}

func TestLoad_UnparsableNumberFallsBack(t *testing.T) {
	t.Setenv("GOBAYES_SEED", "forty-two")
	t.Setenv("PORT", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Engine.Seed)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Engine: EngineConfig{Parallelism: 1, HeavyLimit: 1, BootstrapN: 1, NoiseTrials: 1},
			Server: ServerConfig{Port: "8080"},
			Log:    LogConfig{Level: "INFO", Format: "json"},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"parallelism": func(c *Config) { c.Engine.Parallelism = 0 },
		"heavy":       func(c *Config) { c.Engine.HeavyLimit = -1 },
		"bootstrap":   func(c *Config) { c.Engine.BootstrapN = 0 },
		"trials":      func(c *Config) { c.Engine.NoiseTrials = 0 },
		"port":        func(c *Config) { c.Server.Port = "http" },
		"format":      func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeConfigInvalid))
		})
	}
}
