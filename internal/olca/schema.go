// Package olca holds the subset of the openLCA schema (olca-schema v2, JSON-LD
// flavour) that lcaprommis reads and writes, together with a client for the
// openLCA IPC server.
package olca

import "encoding/json"

// EntityType is the value of the "@type" field.
type EntityType string

// Entity types used by lcaprommis.
const (
	TypeFlow          EntityType = "Flow"
	TypeFlowProperty  EntityType = "FlowProperty"
	TypeUnitGroup     EntityType = "UnitGroup"
	TypeProcess       EntityType = "Process"
	TypeProductSystem EntityType = "ProductSystem"
	TypeImpactMethod  EntityType = "ImpactMethod"
	TypeImpactCat     EntityType = "ImpactCategory"
)

// FlowType classifies a flow.
type FlowType string

// Flow types.
const (
	ElementaryFlow FlowType = "ELEMENTARY_FLOW"
	ProductFlow    FlowType = "PRODUCT_FLOW"
	WasteFlow      FlowType = "WASTE_FLOW"
)

// ProcessType is either a unit process or an LCI result.
type ProcessType string

// Process types.
const (
	UnitProcess ProcessType = "UNIT_PROCESS"
	LCIResult   ProcessType = "LCI_RESULT"
)

// ParameterScope is where a parameter is defined.
type ParameterScope string

// Parameter scopes.
const (
	ProcessScope ParameterScope = "PROCESS_SCOPE"
	ImpactScope  ParameterScope = "IMPACT_SCOPE"
	GlobalScope  ParameterScope = "GLOBAL_SCOPE"
)

// AllocationType selects the allocation method of a calculation.
type AllocationType string

// Allocation types.
const (
	UseDefaultAllocation AllocationType = "USE_DEFAULT_ALLOCATION"
	NoAllocation         AllocationType = "NO_ALLOCATION"
)

// Ref is a reference to a stored entity. Only @type and @id are required by
// the server; the other fields are descriptive.
type Ref struct {
	Type        EntityType  `json:"@type,omitempty"`
	ID          string      `json:"@id,omitempty"`
	Name        string      `json:"name,omitempty"`
	Category    string      `json:"category,omitempty"`
	Description string      `json:"description,omitempty"`
	FlowType    FlowType    `json:"flowType,omitempty"`
	Library     string      `json:"library,omitempty"`
	Location    string      `json:"location,omitempty"`
	ProcessType ProcessType `json:"processType,omitempty"`
	RefUnit     string      `json:"refUnit,omitempty"`
}

// ProcessRef returns a bare Process reference.
func ProcessRef(id string) *Ref {
	return &Ref{Type: TypeProcess, ID: id}
}

// Unit is a unit inside a unit group.
type Unit struct {
	Type             string   `json:"@type,omitempty"`
	ID               string   `json:"@id,omitempty"`
	Name             string   `json:"name"`
	Description      string   `json:"description,omitempty"`
	ConversionFactor float64  `json:"conversionFactor,omitempty"`
	IsRefUnit        bool     `json:"isRefUnit,omitempty"`
	Synonyms         []string `json:"synonyms,omitempty"`
}

// Ref returns a reference to u.
func (u Unit) Ref() *Ref {
	return &Ref{Type: "Unit", ID: u.ID, Name: u.Name}
}

// UnitGroup is a set of convertible units.
type UnitGroup struct {
	Type                EntityType `json:"@type,omitempty"`
	ID                  string     `json:"@id,omitempty"`
	Name                string     `json:"name"`
	DefaultFlowProperty *Ref       `json:"defaultFlowProperty,omitempty"`
	Units               []Unit     `json:"units,omitempty"`
}

// FlowProperty is a quantity such as mass or volume.
type FlowProperty struct {
	Type      EntityType `json:"@type,omitempty"`
	ID        string     `json:"@id,omitempty"`
	Name      string     `json:"name"`
	UnitGroup *Ref       `json:"unitGroup,omitempty"`
}

// Ref returns a reference to p.
func (p FlowProperty) Ref() *Ref {
	return &Ref{Type: TypeFlowProperty, ID: p.ID, Name: p.Name}
}

// FlowPropertyFactor links a flow to one of its flow properties.
type FlowPropertyFactor struct {
	Type              string  `json:"@type,omitempty"`
	FlowProperty      *Ref    `json:"flowProperty,omitempty"`
	ConversionFactor  float64 `json:"conversionFactor"`
	IsRefFlowProperty bool    `json:"isRefFlowProperty,omitempty"`
}

// Flow is an elementary, product or waste flow.
type Flow struct {
	Type           EntityType           `json:"@type,omitempty"`
	ID             string               `json:"@id,omitempty"`
	Name           string               `json:"name"`
	Description    string               `json:"description,omitempty"`
	Category       string               `json:"category,omitempty"`
	FlowType       FlowType             `json:"flowType,omitempty"`
	FlowProperties []FlowPropertyFactor `json:"flowProperties,omitempty"`
}

// Ref returns a reference to f.
func (f Flow) Ref() *Ref {
	return &Ref{Type: TypeFlow, ID: f.ID, Name: f.Name, FlowType: f.FlowType, Category: f.Category}
}

// RefFlowProperty returns the reference flow property factor, or the first
// one when none is flagged.
func (f Flow) RefFlowProperty() (FlowPropertyFactor, bool) {
	for _, fp := range f.FlowProperties {
		if fp.IsRefFlowProperty {
			return fp, true
		}
	}
	if len(f.FlowProperties) > 0 {
		return f.FlowProperties[0], true
	}
	return FlowPropertyFactor{}, false
}

// Exchange is an input or output of a process.
type Exchange struct {
	Type                    string  `json:"@type,omitempty"`
	InternalID              int     `json:"internalId,omitempty"`
	Flow                    *Ref    `json:"flow,omitempty"`
	FlowProperty            *Ref    `json:"flowProperty,omitempty"`
	Unit                    *Ref    `json:"unit,omitempty"`
	Amount                  float64 `json:"amount"`
	AmountFormula           string  `json:"amountFormula,omitempty"`
	IsInput                 bool    `json:"isInput"`
	IsQuantitativeReference bool    `json:"isQuantitativeReference,omitempty"`
	DefaultProvider         *Ref    `json:"defaultProvider,omitempty"`
	Description             string  `json:"description,omitempty"`
}

// Parameter is a named value that formulas can reference.
type Parameter struct {
	Type             string         `json:"@type,omitempty"`
	ID               string         `json:"@id,omitempty"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Formula          string         `json:"formula,omitempty"`
	IsInputParameter bool           `json:"isInputParameter"`
	ParameterScope   ParameterScope `json:"parameterScope,omitempty"`
	Value            float64        `json:"value"`
	Uncertainty      map[string]any `json:"uncertainty,omitempty"`
}

// Process is a unit process or system process.
type Process struct {
	Type        EntityType  `json:"@type,omitempty"`
	ID          string      `json:"@id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Category    string      `json:"category,omitempty"`
	Library     string      `json:"library,omitempty"`
	Location    *Ref        `json:"location,omitempty"`
	ProcessType ProcessType `json:"processType,omitempty"`
	Version     string      `json:"version,omitempty"`
	LastChange  string      `json:"lastChange,omitempty"`
	Exchanges   []Exchange  `json:"exchanges,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty"`
}

// QuantitativeReference returns the exchange flagged as the quantitative
// reference.
func (p Process) QuantitativeReference() (Exchange, bool) {
	for _, e := range p.Exchanges {
		if e.IsQuantitativeReference {
			return e, true
		}
	}
	return Exchange{}, false
}

// ParameterRedef overrides a parameter value in a calculation.
type ParameterRedef struct {
	Type        string         `json:"@type,omitempty"`
	Context     *Ref           `json:"context,omitempty"`
	Description string         `json:"description,omitempty"`
	IsProtected bool           `json:"isProtected,omitempty"`
	Name        string         `json:"name"`
	Uncertainty map[string]any `json:"uncertainty,omitempty"`
	Value       float64        `json:"value"`
}

// ParameterRedefSet is a named collection of redefinitions stored on a
// product system.
type ParameterRedefSet struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	IsBaseline  bool             `json:"isBaseline,omitempty"`
	Parameters  []ParameterRedef `json:"parameters,omitempty"`
}

// ProductSystem is a linked process network. Fields lcaprommis does not touch
// are carried in extra so a read-modify-put round trip keeps them.
type ProductSystem struct {
	Type          EntityType          `json:"@type,omitempty"`
	ID            string              `json:"@id,omitempty"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	RefProcess    *Ref                `json:"refProcess,omitempty"`
	ParameterSets []ParameterRedefSet `json:"parameterSets,omitempty"`

	extra map[string]json.RawMessage
}

// ParameterSet returns a pointer to the set with the given name.
func (ps *ProductSystem) ParameterSet(name string) *ParameterRedefSet {
	for i := range ps.ParameterSets {
		if ps.ParameterSets[i].Name == name {
			return &ps.ParameterSets[i]
		}
	}
	return nil
}

// CalculationSetup describes an impact calculation.
type CalculationSetup struct {
	Target              *Ref             `json:"target"`
	ImpactMethod        *Ref             `json:"impactMethod,omitempty"`
	NwSet               *Ref             `json:"nwSet,omitempty"`
	Parameters          []ParameterRedef `json:"parameters,omitempty"`
	Allocation          AllocationType   `json:"allocation,omitempty"`
	Amount              *float64         `json:"amount,omitempty"`
	Unit                *Ref             `json:"unit,omitempty"`
	FlowProperty        *Ref             `json:"flowProperty,omitempty"`
	WithCosts           bool             `json:"withCosts"`
	WithRegionalization bool             `json:"withRegionalization"`
}

// ResultState reports the progress of a calculation.
type ResultState struct {
	ID          string `json:"@id"`
	Error       string `json:"error,omitempty"`
	IsReady     bool   `json:"isReady"`
	IsScheduled bool   `json:"isScheduled"`
	Time        int64  `json:"time,omitempty"`
}

// ImpactValue is one total impact of a result.
type ImpactValue struct {
	ImpactCategory *Ref    `json:"impactCategory"`
	Amount         float64 `json:"amount"`
}

// TechFlow is a (provider, flow) pair of the technosphere.
type TechFlow struct {
	Provider *Ref `json:"provider"`
	Flow     *Ref `json:"flow"`
}
