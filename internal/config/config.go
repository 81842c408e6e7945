// Package config loads lcaprommis settings from ~/.lcaprommis/config.yaml,
// an optional project overlay and LCAPROMMIS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/rshade/lcaprommis/internal/cache"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/provider"
)

// Defaults.
const (
	DefaultEndpoint     = olca.DefaultEndpoint
	DefaultTimeout      = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultParameterSet = "Baseline"
	DefaultOutputDir    = "output"
	DefaultVersion      = "1.0.0"
	DefaultSamples      = 100
	DefaultSweepBatch   = 10
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "console"
	configFileName      = "config.yaml"
	configFilePerm      = 0o600
	configDirPerm       = 0o700
	homeDirName         = ".lcaprommis"
	envHome             = "LCAPROMMIS_HOME"
	envEndpoint         = "LCAPROMMIS_OLCA_ENDPOINT"
	envLogLevel         = "LCAPROMMIS_LOG_LEVEL"
	envLogFormat        = "LCAPROMMIS_LOG_FORMAT"
	envLogFile          = "LCAPROMMIS_LOG_FILE"
	envProductSystem    = "LCAPROMMIS_PRODUCT_SYSTEM"
	envImpactMethod     = "LCAPROMMIS_IMPACT_METHOD"
	envOutputDir        = "LCAPROMMIS_OUTPUT_DIR"
	maxSweepBatch       = 1000
	defaultSweepSeed    = 1
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// OpenLCAConfig locates the IPC server.
type OpenLCAConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// AnalysisConfig names the product system and impact method to calculate.
type AnalysisConfig struct {
	ProductSystem string `yaml:"product_system"`
	ImpactMethod  string `yaml:"impact_method"`
	ParameterSet  string `yaml:"parameter_set"`
	OutputDir     string `yaml:"output_dir"`
}

// ProcessConfig holds defaults for process creation.
type ProcessConfig struct {
	Version string `yaml:"version"`
}

// ProvidersConfig pins technosphere rows to providers, keyed by the flow
// name used in flow tables.
type ProvidersConfig struct {
	Pins map[string]provider.Pin `yaml:"pins"`
}

// CacheConfig controls the file cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	Directory  string `yaml:"directory"`
}

// ModelConfig is the external process simulation.
type ModelConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
	// Variables lists the inputs the model accepts.
	Variables []string `yaml:"variables"`
}

// SweepConfig holds defaults for sweeps.
type SweepConfig struct {
	Samples   int    `yaml:"samples"`
	Seed      uint64 `yaml:"seed"`
	BatchSize int    `yaml:"batch_size"`
	FailFast  bool   `yaml:"fail_fast"`
}

// Config is the whole configuration file.
type Config struct {
	OpenLCA   OpenLCAConfig   `yaml:"openlca"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Process   ProcessConfig   `yaml:"process"`
	Providers ProvidersConfig `yaml:"providers"`
	Cache     CacheConfig     `yaml:"cache"`
	Model     ModelConfig     `yaml:"model"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Logging   LoggingConfig   `yaml:"logging"`

	configPath string
}

// Default returns the built-in configuration.
func Default() *Config {
	dir, _ := GetConfigDir()
	return &Config{
		OpenLCA: OpenLCAConfig{
			Endpoint:     DefaultEndpoint,
			Timeout:      DefaultTimeout,
			PollInterval: DefaultPollInterval,
		},
		Analysis: AnalysisConfig{ParameterSet: DefaultParameterSet, OutputDir: DefaultOutputDir},
		Process:  ProcessConfig{Version: DefaultVersion},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: cache.DefaultTTLSeconds,
			Directory:  filepath.Join(dir, "cache"),
		},
		Sweep: SweepConfig{
			Samples:   DefaultSamples,
			Seed:      defaultSweepSeed,
			BatchSize: DefaultSweepBatch,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			File:   filepath.Join(dir, "logs", "lcaprommis.log"),
		},
		configPath: filepath.Join(dir, configFileName),
	}
}

// New returns the defaults overlaid with the config file, when one exists,
// and then with environment variables. A broken config file is reported on
// stderr and ignored.
func New() *Config {
	cfg := Default()
	if err := cfg.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: ignoring config file %s: %v\n", cfg.configPath, err)
		cfg = Default()
	}
	cfg.applyEnv()
	return cfg
}

// ConfigPath returns where Save writes.
func (c *Config) ConfigPath() string { return c.configPath }

// SetConfigPath changes where Load reads and Save writes.
func (c *Config) SetConfigPath(path string) { c.configPath = path }

// Load reads the config file over the current values.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return err
	}
	path := c.configPath
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	c.configPath = path
	return nil
}

// Save writes the configuration file, creating its directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), configDirPerm); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(c.configPath, data, configFilePerm); err != nil {
		return fmt.Errorf("writing %s: %w", c.configPath, err)
	}
	return nil
}

// applyEnv overrides values from LCAPROMMIS_* variables.
func (c *Config) applyEnv() {
	if v := os.Getenv(envEndpoint); v != "" {
		c.OpenLCA.Endpoint = v
	}
	if v := os.Getenv(envProductSystem); v != "" {
		c.Analysis.ProductSystem = v
	}
	if v := os.Getenv(envImpactMethod); v != "" {
		c.Analysis.ImpactMethod = v
	}
	if v := os.Getenv(envOutputDir); v != "" {
		c.Analysis.OutputDir = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(envLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v, ok := os.LookupEnv(envLogFile); ok {
		c.Logging.File = v
	}
	c.Cache.Enabled = cache.EnabledFromEnv(c.Cache.Enabled)
	c.Cache.TTLSeconds = cache.TTLFromEnv(c.Cache.TTLSeconds)
	if dir := cache.DirFromEnv(); dir != "" {
		c.Cache.Directory = dir
	}
}

// Validate checks values that would fail later in a less helpful place.
func (c *Config) Validate() error {
	var errs []error
	if c.OpenLCA.Endpoint == "" {
		errs = append(errs, errors.New("openlca.endpoint is empty"))
	}
	if c.OpenLCA.Timeout < 0 {
		errs = append(errs, errors.New("openlca.timeout is negative"))
	}
	if c.OpenLCA.PollInterval < 0 {
		errs = append(errs, errors.New("openlca.poll_interval is negative"))
	}
	if c.Process.Version != "" {
		if _, err := semver.NewVersion(c.Process.Version); err != nil {
			errs = append(errs, fmt.Errorf("process.version %q: %w", c.Process.Version, err))
		}
	}
	if c.Cache.TTLSeconds != 0 && (c.Cache.TTLSeconds < cache.MinTTLSeconds || c.Cache.TTLSeconds > cache.MaxTTLSeconds) {
		errs = append(errs, fmt.Errorf("cache.ttl_seconds %d outside [%d, %d]",
			c.Cache.TTLSeconds, cache.MinTTLSeconds, cache.MaxTTLSeconds))
	}
	if c.Sweep.Samples < 0 {
		errs = append(errs, errors.New("sweep.samples is negative"))
	}
	if c.Sweep.BatchSize < 0 || c.Sweep.BatchSize > maxSweepBatch {
		errs = append(errs, errors.New("sweep.batch_size must be between 0 and "+strconv.Itoa(maxSweepBatch)))
	}
	for _, name := range slices.Sorted(maps.Keys(c.Providers.Pins)) {
		if p := c.Providers.Pins[name]; p.Flow == "" || p.Provider == "" {
			errs = append(errs, fmt.Errorf("providers.pins.%s needs flow and provider", name))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
