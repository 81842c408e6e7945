package olca

import (
	"encoding/json"
	"fmt"
)

// knownSystemKeys are the product system fields modelled by ProductSystem.
var knownSystemKeys = []string{"@type", "@id", "name", "description", "refProcess", "parameterSets"} //nolint:gochecknoglobals // fixed key list

type productSystemFields struct {
	Type          EntityType          `json:"@type,omitempty"`
	ID            string              `json:"@id,omitempty"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	RefProcess    *Ref                `json:"refProcess,omitempty"`
	ParameterSets []ParameterRedefSet `json:"parameterSets,omitempty"`
}

// UnmarshalJSON decodes the modelled fields and keeps everything else
// (processes, links, reference exchange...) untouched for the next put.
func (ps *ProductSystem) UnmarshalJSON(data []byte) error {
	var fields productSystemFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range knownSystemKeys {
		delete(raw, k)
	}

	ps.Type = fields.Type
	ps.ID = fields.ID
	ps.Name = fields.Name
	ps.Description = fields.Description
	ps.RefProcess = fields.RefProcess
	ps.ParameterSets = fields.ParameterSets
	ps.extra = raw
	return nil
}

// MarshalJSON writes the modelled fields over the preserved ones.
func (ps ProductSystem) MarshalJSON() ([]byte, error) {
	typ := ps.Type
	if typ == "" {
		typ = TypeProductSystem
	}
	known, err := json.Marshal(productSystemFields{
		Type:          typ,
		ID:            ps.ID,
		Name:          ps.Name,
		Description:   ps.Description,
		RefProcess:    ps.RefProcess,
		ParameterSets: ps.ParameterSets,
	})
	if err != nil {
		return nil, err
	}
	if len(ps.extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(ps.extra)+len(knownSystemKeys))
	for k, v := range ps.extra {
		merged[k] = v
	}
	var knownMap map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownMap); err != nil {
		return nil, fmt.Errorf("re-reading product system: %w", err)
	}
	for k, v := range knownMap {
		merged[k] = v
	}
	return json.Marshal(merged)
}
