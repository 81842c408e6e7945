package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rshade/lcaprommis/internal/logging"
)

const envProjectDir = "LCAPROMMIS_PROJECT_DIR"

// resolvedProjectDir holds the resolved project directory path for use
// by other config functions during the lifetime of a CLI invocation.
var (
	resolvedProjectDir   string       //nolint:gochecknoglobals // Set once at startup, read by config loaders
	resolvedProjectDirMu sync.RWMutex //nolint:gochecknoglobals // Protects resolvedProjectDir
)

// SetResolvedProjectDir stores the resolved project directory for use by other config functions.
func SetResolvedProjectDir(dir string) {
	resolvedProjectDirMu.Lock()
	defer resolvedProjectDirMu.Unlock()
	resolvedProjectDir = dir
}

// GetResolvedProjectDir returns the stored resolved project directory.
func GetResolvedProjectDir() string {
	resolvedProjectDirMu.RLock()
	defer resolvedProjectDirMu.RUnlock()
	return resolvedProjectDir
}

// ResolveProjectDir determines the project-local .lcaprommis directory.
// It checks (in order):
//  1. flagValue (--project-dir CLI flag)
//  2. LCAPROMMIS_PROJECT_DIR env var
//  3. the nearest .lcaprommis directory at or above startDir
//
// The global home directory never counts as a project. Returns "" when no
// project is found. Nothing is created.
func ResolveProjectDir(ctx context.Context, flagValue, startDir string) string {
	if flagValue != "" {
		return toAbsProjectDir(ctx, flagValue)
	}
	if envDir := os.Getenv(envProjectDir); envDir != "" {
		return toAbsProjectDir(ctx, envDir)
	}
	return findProjectDir(startDir)
}

func findProjectDir(startDir string) string {
	current, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	home, _ := GetConfigDir()
	for {
		candidate := filepath.Join(current, homeDirName)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() && candidate != home {
			return candidate
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}

// NewWithProjectDir loads the global config, shallow-merges the project
// config on top and then applies environment overrides. If projectDir is
// empty or has no config.yaml, it behaves like New().
func NewWithProjectDir(ctx context.Context, projectDir string) *Config {
	cfg := New()
	if projectDir == "" {
		return cfg
	}

	overlayPath := filepath.Join(projectDir, configFileName)
	if _, err := os.Stat(overlayPath); err != nil {
		return cfg
	}

	merged := New()
	if err := ShallowMergeYAML(merged, overlayPath); err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Str("operation", "merge_project_config").
			Err(err).
			Str("overlay_path", overlayPath).
			Msg("failed to merge project config, using global defaults")
		return cfg
	}
	merged.applyEnv()
	return merged
}

// toAbsProjectDir converts dir to an absolute path ending in .lcaprommis.
func toAbsProjectDir(ctx context.Context, dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		logging.FromContext(ctx).Warn().
			Str("component", "config").
			Err(err).
			Str("dir", dir).
			Msg("failed to resolve absolute path for project directory")
		abs = dir
	}

	if filepath.Base(abs) == homeDirName {
		return abs
	}
	return filepath.Join(abs, homeDirName)
}
