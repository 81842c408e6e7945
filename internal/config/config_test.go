package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/lcaprommis/internal/config"
	"github.com/rshade/lcaprommis/internal/provider"
)

// isolate points the config home at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("LCAPROMMIS_HOME", home)
	for _, k := range []string{
		"LCAPROMMIS_OLCA_ENDPOINT", "LCAPROMMIS_LOG_LEVEL", "LCAPROMMIS_LOG_FORMAT",
		"LCAPROMMIS_PRODUCT_SYSTEM", "LCAPROMMIS_IMPACT_METHOD", "LCAPROMMIS_PROJECT_DIR", "LCAPROMMIS_OUTPUT_DIR",
		"LCAPROMMIS_CACHE_TTL_SECONDS", "LCAPROMMIS_CACHE_ENABLED", "LCAPROMMIS_CACHE_DIR",
	} {
		t.Setenv(k, "")
	}
	config.ResetGlobalConfigForTest()
	t.Cleanup(config.ResetGlobalConfigForTest)
	return home
}

func TestNew_Defaults(t *testing.T) {
	home := isolate(t)

	cfg := config.New()
	assert.Equal(t, config.DefaultEndpoint, cfg.OpenLCA.Endpoint)
	assert.Equal(t, config.DefaultTimeout, cfg.OpenLCA.Timeout)
	assert.Equal(t, "Baseline", cfg.Analysis.ParameterSet)
	assert.Equal(t, "1.0.0", cfg.Process.Version)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, filepath.Join(home, "cache"), cfg.Cache.Directory)
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.ConfigPath())
	require.NoError(t, cfg.Validate())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	isolate(t)

	cfg := config.New()
	cfg.OpenLCA.Endpoint = "http://lca.internal:9000"
	cfg.OpenLCA.PollInterval = 2 * time.Second
	cfg.Analysis.ProductSystem = "ps-1"
	cfg.Providers.Pins = map[string]provider.Pin{"Electricity, medium voltage": {Flow: "flow-elec", Provider: "proc-grid"}}
	cfg.Model.Variables = []string{"feed_rate"}
	require.NoError(t, cfg.Save())

	raw, err := os.ReadFile(cfg.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "poll_interval: 2s")

	loaded := config.New()
	assert.Equal(t, "http://lca.internal:9000", loaded.OpenLCA.Endpoint)
	assert.Equal(t, 2*time.Second, loaded.OpenLCA.PollInterval)
	assert.Equal(t, "ps-1", loaded.Analysis.ProductSystem)
	assert.Equal(t, cfg.Providers.Pins, loaded.Providers.Pins)
	assert.Equal(t, []string{"feed_rate"}, loaded.Model.Variables)
}

func TestNew_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("LCAPROMMIS_OLCA_ENDPOINT", "http://env:8080")
	t.Setenv("LCAPROMMIS_LOG_LEVEL", "debug")
	t.Setenv("LCAPROMMIS_CACHE_ENABLED", "false")
	t.Setenv("LCAPROMMIS_CACHE_TTL_SECONDS", "600")
	t.Setenv("LCAPROMMIS_OUTPUT_DIR", "/tmp/results")

	cfg := config.New()
	assert.Equal(t, "/tmp/results", cfg.Analysis.OutputDir)
	assert.Equal(t, "http://env:8080", cfg.OpenLCA.Endpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 600, cfg.Cache.TTLSeconds)
}

func TestNew_BrokenFileFallsBackToDefaults(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte("openlca: [not, a, map"), 0o600))

	cfg := config.New()
	assert.Equal(t, config.DefaultEndpoint, cfg.OpenLCA.Endpoint)
}

func TestValidate(t *testing.T) {
	isolate(t)
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty endpoint", func(c *config.Config) { c.OpenLCA.Endpoint = "" }, "openlca.endpoint"},
		{"bad version", func(c *config.Config) { c.Process.Version = "one" }, "process.version"},
		{"ttl too small", func(c *config.Config) { c.Cache.TTLSeconds = 5 }, "cache.ttl_seconds"},
		{"batch too big", func(c *config.Config) { c.Sweep.BatchSize = 5000 }, "sweep.batch_size"},
		{"half pin", func(c *config.Config) { c.Providers.Pins = map[string]provider.Pin{"Steel": {Flow: "x"}} }, "providers.pins.Steel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, config.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetSetList(t *testing.T) {
	isolate(t)
	cfg := config.Default()

	v, err := cfg.Get("openlca.endpoint")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEndpoint, v)

	require.NoError(t, cfg.Set("sweep.samples", "250"))
	assert.Equal(t, 250, cfg.Sweep.Samples)
	require.NoError(t, cfg.Set("openlca.timeout", "1m"))
	assert.Equal(t, time.Minute, cfg.OpenLCA.Timeout)
	require.NoError(t, cfg.Set("model.variables", "[feed_rate, temperature]"))
	assert.Equal(t, []string{"feed_rate", "temperature"}, cfg.Model.Variables)

	v, err = cfg.Get("sweep.samples")
	require.NoError(t, err)
	assert.Equal(t, "250", v)

	_, err = cfg.Get("openlca.nope")
	require.ErrorIs(t, err, config.ErrUnknownKey)
	require.ErrorIs(t, cfg.Set("nope", "1"), config.ErrUnknownKey)
	require.Error(t, cfg.Set("sweep.samples", "many"))
	assert.Equal(t, 250, cfg.Sweep.Samples)

	lines, err := cfg.List()
	require.NoError(t, err)
	assert.Contains(t, lines, "sweep.samples = 250")
	assert.Contains(t, lines, "openlca.endpoint = "+config.DefaultEndpoint)
	assert.IsNonDecreasing(t, lines)
}

func TestGlobalConfig(t *testing.T) {
	isolate(t)
	t.Setenv("LCAPROMMIS_LOG_FORMAT", "json")

	cfg := config.GetGlobalConfig()
	require.NotNil(t, cfg)
	assert.Same(t, cfg, config.GetGlobalConfig())
	assert.Equal(t, "json", config.GetLoggingConfig().Format)

	other := config.Default()
	config.SetGlobalConfig(other)
	assert.Same(t, other, config.GetGlobalConfig())
}

func TestLoggingConfig_ToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "warn", Format: "json"}
	out := lc.ToLoggingConfig()
	assert.Equal(t, "stderr", out.Output)

	lc.File = "/tmp/x.log"
	out = lc.ToLoggingConfig()
	assert.Equal(t, "file", out.Output)
	assert.Equal(t, "/tmp/x.log", out.File)
}

func TestResolveProjectDir(t *testing.T) {
	isolate(t)
	ctx := context.Background()

	flagDir := t.TempDir()
	assert.Equal(t, filepath.Join(flagDir, ".lcaprommis"), config.ResolveProjectDir(ctx, flagDir, "/does/not/matter"))

	envDir := t.TempDir()
	t.Setenv("LCAPROMMIS_PROJECT_DIR", envDir)
	assert.Equal(t, filepath.Join(envDir, ".lcaprommis"), config.ResolveProjectDir(ctx, "", "/does/not/matter"))
	t.Setenv("LCAPROMMIS_PROJECT_DIR", "")

	root := t.TempDir()
	project := filepath.Join(root, ".lcaprommis")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(project, 0o750))
	require.NoError(t, os.MkdirAll(nested, 0o750))
	assert.Equal(t, project, config.ResolveProjectDir(ctx, "", nested))

	assert.Empty(t, config.ResolveProjectDir(ctx, "", t.TempDir()))
}

func TestNewWithProjectDir_ReplacesSections(t *testing.T) {
	home := isolate(t)
	global := []byte("openlca:\n  endpoint: http://global:1\n  timeout: 5s\nanalysis:\n  product_system: ps-global\n")
	require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), global, 0o600))

	project := filepath.Join(t.TempDir(), ".lcaprommis")
	require.NoError(t, os.MkdirAll(project, 0o750))
	overlay := []byte("openlca:\n  endpoint: http://project:2\nunknown_section: 1\n")
	require.NoError(t, os.WriteFile(filepath.Join(project, "config.yaml"), overlay, 0o600))

	cfg := config.NewWithProjectDir(context.Background(), project)
	assert.Equal(t, "http://project:2", cfg.OpenLCA.Endpoint)
	assert.Zero(t, cfg.OpenLCA.Timeout, "overlay replaces the whole section")
	assert.Equal(t, "ps-global", cfg.Analysis.ProductSystem)

	t.Setenv("LCAPROMMIS_OLCA_ENDPOINT", "http://env:3")
	cfg = config.NewWithProjectDir(context.Background(), project)
	assert.Equal(t, "http://env:3", cfg.OpenLCA.Endpoint)

	cfg = config.NewWithProjectDir(context.Background(), "")
	assert.Equal(t, "http://env:3", cfg.OpenLCA.Endpoint)
}
