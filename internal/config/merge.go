package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyOpenLCA   = "openlca"
	keyAnalysis  = "analysis"
	keyProcess   = "process"
	keyProviders = "providers"
	keyCache     = "cache"
	keyModel     = "model"
	keySweep     = "sweep"
	keyLogging   = "logging"
)

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target. Keys absent in the overlay are left unchanged. Unknown keys
// are ignored.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]yaml.Node
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	for key, node := range overlay {
		if err = unmarshalSection(target, key, &node); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}
	return nil
}

// unmarshalSection decodes one section into a fresh value so the overlay
// replaces the section instead of merging into it.
func unmarshalSection(target *Config, key string, node *yaml.Node) error {
	switch key {
	case keyOpenLCA:
		return replace(&target.OpenLCA, node)
	case keyAnalysis:
		return replace(&target.Analysis, node)
	case keyProcess:
		return replace(&target.Process, node)
	case keyProviders:
		return replace(&target.Providers, node)
	case keyCache:
		return replace(&target.Cache, node)
	case keyModel:
		return replace(&target.Model, node)
	case keySweep:
		return replace(&target.Sweep, node)
	case keyLogging:
		return replace(&target.Logging, node)
	default:
		return nil
	}
}

func replace[T any](dst *T, node *yaml.Node) error {
	var v T
	if err := node.Decode(&v); err != nil {
		return err
	}
	*dst = v
	return nil
}
