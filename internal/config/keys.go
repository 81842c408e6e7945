package config

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKey indicates a dotted key that names no setting.
var ErrUnknownKey = errors.New("unknown configuration key")

// toMap renders the config as nested maps keyed like the YAML file.
func (c *Config) toMap() (map[string]any, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// lookup walks a dotted key such as "openlca.endpoint".
func lookup(m map[string]any, key string) (any, error) {
	var cur any = m
	for _, part := range strings.Split(key, ".") {
		section, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		if cur, ok = section[part]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}
	return cur, nil
}

// Get returns the value of a dotted key as YAML text.
func (c *Config) Get(key string) (string, error) {
	m, err := c.toMap()
	if err != nil {
		return "", err
	}
	v, err := lookup(m, key)
	if err != nil {
		return "", err
	}
	return formatValue(v)
}

// Set parses value as YAML and stores it under a dotted key. The result
// must still decode into Config, so type mismatches are rejected.
func (c *Config) Set(key, value string) error {
	m, err := c.toMap()
	if err != nil {
		return err
	}
	if _, err := lookup(m, key); err != nil {
		return err
	}

	var parsed any
	if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
		return fmt.Errorf("parsing value for %s: %w", key, err)
	}
	parts := strings.Split(key, ".")
	section := m
	for _, p := range parts[:len(parts)-1] {
		section, _ = section[p].(map[string]any)
	}
	section[parts[len(parts)-1]] = parsed

	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	updated := *c
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&updated); err != nil {
		return fmt.Errorf("setting %s to %q: %w", key, value, err)
	}
	*c = updated
	return nil
}

// List returns every leaf setting as "key = value", sorted by key.
func (c *Config) List() ([]string, error) {
	m, err := c.toMap()
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(prefix string, v any) error
	walk = func(prefix string, v any) error {
		if section, ok := v.(map[string]any); ok {
			for _, k := range slices.Sorted(maps.Keys(section)) {
				if err := walk(joinKey(prefix, k), section[k]); err != nil {
					return err
				}
			}
			return nil
		}
		s, err := formatValue(v)
		if err != nil {
			return err
		}
		out = append(out, prefix+" = "+s)
		return nil
	}
	if err := walk("", m); err != nil {
		return nil, err
	}
	return out, nil
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
