// Package exchange builds openLCA exchanges from flow table rows: elementary
// flows, product and waste flows with a default provider, and the reference
// product of a process.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/rshade/lcaprommis/internal/logging"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/units"
)

// Sentinel errors for exchange construction.
var (
	// ErrFlowNotFound indicates the flow id does not exist in the database.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrWrongFlowType indicates the flow exists but has the wrong type.
	ErrWrongFlowType = errors.New("wrong flow type")

	// ErrInvalidAmount indicates a NaN or infinite amount.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Store is the part of the IPC client the builder needs.
type Store interface {
	GetFlow(ctx context.Context, id string) (*olca.Flow, error)
	Put(ctx context.Context, entity any) (*olca.Ref, error)
}

// Input describes one exchange to build.
type Input struct {
	// FlowID is the id of an existing flow. ReferenceNew ignores it.
	FlowID string
	// FlowName names the flow ReferenceNew creates.
	FlowName string
	// ProviderID is the default provider process of a product or waste flow.
	ProviderID string
	Amount     float64
	// Formula, when set, is stored as the amount formula next to Amount.
	Formula     string
	Unit        string
	IsInput     bool
	Description string
}

// Builder turns inputs into exchanges.
type Builder struct {
	store Store
	units *units.Index
	newID func() string
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDFunc replaces the uuid generator used for new flows.
func WithIDFunc(fn func() string) Option {
	return func(b *Builder) { b.newID = fn }
}

// NewBuilder creates a builder resolving units against idx.
func NewBuilder(store Store, idx *units.Index, opts ...Option) *Builder {
	b := &Builder{store: store, units: idx, newID: uuid.NewString}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Elementary builds an exchange for an existing elementary flow.
func (b *Builder) Elementary(ctx context.Context, in Input) (*olca.Exchange, error) {
	flow, err := b.flow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}
	if flow.FlowType != olca.ElementaryFlow {
		return nil, fmt.Errorf("%w: %s is %s, want %s", ErrWrongFlowType, flowLabel(flow), flow.FlowType, olca.ElementaryFlow)
	}
	return b.build(flow.Ref(), in, false)
}

// ProductOrWaste builds an exchange for an existing product or waste flow and
// links its default provider.
func (b *Builder) ProductOrWaste(ctx context.Context, in Input) (*olca.Exchange, error) {
	flow, err := b.flow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}
	if flow.FlowType != olca.ProductFlow && flow.FlowType != olca.WasteFlow {
		return nil, fmt.Errorf("%w: %s is %s, want %s or %s",
			ErrWrongFlowType, flowLabel(flow), flow.FlowType, olca.ProductFlow, olca.WasteFlow)
	}
	ex, err := b.build(flow.Ref(), in, false)
	if err != nil {
		return nil, err
	}
	if in.ProviderID != "" {
		ex.DefaultProvider = olca.ProcessRef(in.ProviderID)
	}
	return ex, nil
}

// ReferenceExisting builds the quantitative reference exchange for an
// existing flow. The exchange is always an output.
func (b *Builder) ReferenceExisting(ctx context.Context, in Input) (*olca.Exchange, error) {
	flow, err := b.flow(ctx, in.FlowID)
	if err != nil {
		return nil, err
	}
	in.IsInput = false
	return b.build(flow.Ref(), in, true)
}

// ReferenceNew creates a product flow named in.FlowName whose reference flow
// property matches the unit, stores it, and builds the quantitative reference
// exchange for it.
func (b *Builder) ReferenceNew(ctx context.Context, in Input) (*olca.Exchange, error) {
	log := logging.FromContext(ctx)

	if in.FlowName == "" {
		return nil, errors.New("new reference flow needs a name")
	}
	unitRef, err := b.units.UnitRef(in.Unit)
	if err != nil {
		return nil, err
	}
	prop, err := b.units.FlowPropertyForUnit(*unitRef)
	if err != nil {
		return nil, err
	}

	flow := olca.Flow{
		Type:        olca.TypeFlow,
		ID:          b.newID(),
		Name:        in.FlowName,
		Description: "Product flow for " + in.FlowName,
		FlowType:    olca.ProductFlow,
		FlowProperties: []olca.FlowPropertyFactor{{
			Type:              "FlowPropertyFactor",
			FlowProperty:      prop.Ref(),
			ConversionFactor:  1,
			IsRefFlowProperty: true,
		}},
	}
	ref, err := b.store.Put(ctx, flow)
	if err != nil {
		return nil, fmt.Errorf("storing new flow %q: %w", in.FlowName, err)
	}
	if ref.Name == "" {
		ref.Name = flow.Name
	}
	ref.Type = olca.TypeFlow
	ref.FlowType = olca.ProductFlow

	log.Debug().
		Str("component", "exchange").
		Str("flow_id", ref.ID).
		Str("flow_name", in.FlowName).
		Str("flow_property", prop.Name).
		Msg("created reference flow")

	ex, err := b.build(ref, in, true)
	if err != nil {
		return nil, err
	}
	ex.FlowProperty = prop.Ref()
	return ex, nil
}

func (b *Builder) flow(ctx context.Context, id string) (*olca.Flow, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty flow id", ErrFlowNotFound)
	}
	flow, err := b.store.GetFlow(ctx, id)
	if err != nil {
		if errors.Is(err, olca.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrFlowNotFound, id)
		}
		return nil, fmt.Errorf("loading flow %s: %w", id, err)
	}
	return flow, nil
}

func (b *Builder) build(flow *olca.Ref, in Input, isRef bool) (*olca.Exchange, error) {
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) {
		return nil, fmt.Errorf("%w: %v for %s", ErrInvalidAmount, in.Amount, flow.Name)
	}
	entry, err := b.units.Lookup(in.Unit)
	if err != nil {
		return nil, err
	}
	if entry.FlowProperty.ID == "" {
		return nil, fmt.Errorf("%w: %q", units.ErrNoFlowProperty, in.Unit)
	}
	unit := entry.Unit
	prop := entry.FlowProperty

	return &olca.Exchange{
		Type:                    "Exchange",
		Flow:                    flow,
		FlowProperty:            &prop,
		Unit:                    &unit,
		Amount:                  in.Amount,
		AmountFormula:           in.Formula,
		IsInput:                 in.IsInput,
		IsQuantitativeReference: isRef,
		Description:             in.Description,
	}, nil
}

func flowLabel(f *olca.Flow) string {
	if f.Name == "" {
		return f.ID
	}
	return fmt.Sprintf("%q (%s)", f.Name, f.ID)
}
