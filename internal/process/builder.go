// Package process creates an openLCA unit process from a flow table. Every
// row becomes a process parameter and an exchange whose amount formula is
// that parameter, so later iterations only need to redefine parameters.
package process

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rshade/lcaprommis/internal/cache"
	"github.com/rshade/lcaprommis/internal/exchange"
	"github.com/rshade/lcaprommis/internal/flowtable"
	"github.com/rshade/lcaprommis/internal/logging"
	"github.com/rshade/lcaprommis/internal/olca"
	"github.com/rshade/lcaprommis/internal/provider"
	"github.com/rshade/lcaprommis/internal/units"
)

// DefaultVersion is the version of new processes.
const DefaultVersion = "1.0.0"

// Sentinel errors for process creation.
var (
	ErrNoReference     = errors.New("flow table has no reference product")
	ErrInvalidVersion  = errors.New("invalid process version")
	ErrMissingFlowUUID = errors.New("elementary flow rows need a UUID")
)

// Client is the part of the IPC client process creation needs.
type Client interface {
	exchange.Store
	provider.Source
}

// Builder creates processes. Units and Selector are required; Providers is
// built (through Cache) on first use when nil.
type Builder struct {
	Client    Client
	Units     *units.Index
	Providers *provider.Index
	Cache     *cache.FileStore
	Selector  provider.Selector
	Prompter  Prompter

	// NewReference always creates a new reference flow, even when the
	// reference row carries a UUID.
	NewReference bool
	// Version is validated as semver; DefaultVersion when empty.
	Version string

	Now   func() time.Time
	NewID func() string
}

// Result is what Create stored.
type Result struct {
	Process    *olca.Ref
	Parameters *flowtable.ParameterTable
	Exchanges  int
	Skipped    []string
}

// Create builds a unit process named name from table and stores it.
func (b *Builder) Create(ctx context.Context, table *flowtable.Table, name, description string) (*Result, error) {
	log := logging.ComponentLogger(*logging.FromContext(ctx), "process")

	if err := b.validate(table, log); err != nil {
		return nil, err
	}
	version, err := normalizeVersion(b.Version)
	if err != nil {
		return nil, err
	}

	now, newID := b.Now, b.NewID
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}

	proc := olca.Process{
		Type:        olca.TypeProcess,
		ID:          newID(),
		Name:        name,
		Description: description,
		ProcessType: olca.UnitProcess,
		Version:     version,
		LastChange:  now().UTC().Format(time.RFC3339),
	}

	exb := exchange.NewBuilder(b.Client, b.Units, exchange.WithIDFunc(newID))
	params := &flowtable.ParameterTable{}
	res := &Result{Parameters: params}

	for i, row := range table.Rows {
		paramName := fmt.Sprintf("p%d", i+1)
		ex, skipped, err := b.rowWithRetry(ctx, exb, row, paramName)
		if err != nil {
			return nil, err
		}
		if skipped {
			res.Skipped = append(res.Skipped, row.FlowName)
			log.Info().Int("row", row.Number).Str("flow", row.FlowName).Msg("row left out of process")
			continue
		}

		ex.InternalID = len(proc.Exchanges) + 1
		proc.Exchanges = append(proc.Exchanges, *ex)

		proc.Parameters = append(proc.Parameters, olca.Parameter{
			Type:             "Parameter",
			ID:               newID(),
			Name:             paramName,
			Description:      flowtable.ParameterDescription(row.FlowName),
			IsInputParameter: true,
			ParameterScope:   olca.ProcessScope,
			Value:            row.Amount,
		})
		params.Add(flowtable.Parameter{Name: paramName, Description: row.FlowName, Value: row.Amount})

		log.Debug().
			Int("row", row.Number).
			Str("flow", row.FlowName).
			Str("parameter", paramName).
			Bool("is_input", ex.IsInput).
			Bool("is_reference", ex.IsQuantitativeReference).
			Msg("exchange added")
	}

	if _, ok := proc.QuantitativeReference(); !ok {
		return nil, fmt.Errorf("%w: the reference row was left out", ErrNoReference)
	}

	ref, err := b.Client.Put(ctx, proc)
	if err != nil {
		return nil, fmt.Errorf("storing process %q: %w", name, err)
	}
	if ref.Name == "" {
		ref.Name = name
	}
	res.Process = ref
	res.Exchanges = len(proc.Exchanges)

	log.Info().
		Str("process_id", ref.ID).
		Str("process", name).
		Int("exchanges", res.Exchanges).
		Int("skipped", len(res.Skipped)).
		Msg("process created")
	return res, nil
}

func (b *Builder) validate(table *flowtable.Table, log zerolog.Logger) error {
	if table == nil || len(table.Rows) == 0 {
		return flowtable.ErrEmptyTable
	}
	if b.Units == nil {
		return errors.New("process builder needs a unit index")
	}
	refs := table.ReferenceRows()
	if len(refs) == 0 {
		return ErrNoReference
	}
	if len(refs) > 1 {
		names := make([]string, len(refs))
		for i, r := range refs {
			names[i] = r.FlowName
		}
		log.Warn().Strs("flows", names).Msg("more than one reference product; openLCA keeps the last one")
	}

	var bad []string
	for _, r := range table.Rows {
		if r.ReferenceProduct {
			continue
		}
		if _, err := flowtable.ParseCategory(r.Category); err != nil {
			bad = append(bad, fmt.Sprintf("row %d (%s): %q", r.Number, r.FlowName, r.Category))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s; must be one of: elementary flows, product flows, technosphere flows, waste flows",
			flowtable.ErrInvalidCategory, strings.Join(bad, "; "))
	}
	return nil
}

func (b *Builder) rowWithRetry(ctx context.Context, exb *exchange.Builder, row flowtable.Row, paramName string) (*olca.Exchange, bool, error) {
	for {
		ex, skipped, err := b.row(ctx, exb, row, paramName)
		if err == nil {
			return ex, skipped, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}

		prompter := b.Prompter
		if prompter == nil {
			prompter = FailPrompter{}
		}
		retry, perr := prompter.Retry(ctx, row, err)
		if perr != nil {
			return nil, false, perr
		}
		if !retry {
			return nil, true, nil
		}
	}
}

func (b *Builder) row(ctx context.Context, exb *exchange.Builder, row flowtable.Row, paramName string) (*olca.Exchange, bool, error) {
	in := exchange.Input{
		FlowID:      row.UUID,
		FlowName:    row.FlowName,
		Amount:      row.Amount,
		Formula:     paramName,
		Unit:        row.Unit,
		IsInput:     row.IsInput,
		Description: row.Source,
	}

	if row.ReferenceProduct {
		if row.UUID != "" && !b.NewReference {
			ex, err := exb.ReferenceExisting(ctx, in)
			return ex, false, err
		}
		ex, err := exb.ReferenceNew(ctx, in)
		return ex, false, err
	}

	cat, err := flowtable.ParseCategory(row.Category)
	if err != nil {
		return nil, false, err
	}
	switch cat {
	case flowtable.CategoryElementary:
		if row.UUID == "" {
			return nil, false, ErrMissingFlowUUID
		}
		ex, err := exb.Elementary(ctx, in)
		return ex, false, err
	case flowtable.CategoryProduct:
		return b.technosphere(ctx, exb, row, in, olca.ProductFlow)
	case flowtable.CategoryWaste:
		return b.technosphere(ctx, exb, row, in, olca.WasteFlow)
	default:
		return nil, false, fmt.Errorf("%w: %q", flowtable.ErrInvalidCategory, row.Category)
	}
}

func (b *Builder) technosphere(ctx context.Context, exb *exchange.Builder, row flowtable.Row, in exchange.Input, ft olca.FlowType) (*olca.Exchange, bool, error) {
	idx, err := b.providerIndex(ctx)
	if err != nil {
		return nil, false, err
	}

	q := provider.Query{FlowName: row.FlowName, FlowType: ft, Unit: row.Unit}
	candidates := idx.Search(q)
	if row.UUID != "" {
		candidates = byFlowID(idx, row.UUID, ft)
	}

	selector := b.Selector
	if selector == nil {
		selector = provider.FirstSelector{}
	}
	sel, err := selector.Select(ctx, q, candidates)
	if err != nil {
		return nil, false, err
	}
	if sel.Skip {
		return nil, true, nil
	}

	in.FlowID = sel.Candidate.Flow.ID
	in.ProviderID = sel.Candidate.Provider.ID
	ex, err := exb.ProductOrWaste(ctx, in)
	return ex, false, err
}

func (b *Builder) providerIndex(ctx context.Context) (*provider.Index, error) {
	if b.Providers != nil {
		return b.Providers, nil
	}
	idx, err := provider.BuildIndexCached(ctx, b.Client, b.Cache)
	if err != nil {
		return nil, fmt.Errorf("building provider index: %w", err)
	}
	b.Providers = idx
	return idx, nil
}

func byFlowID(idx *provider.Index, flowID string, ft olca.FlowType) []provider.Candidate {
	var out []provider.Candidate
	for _, e := range idx.Entries {
		if e.Flow.ID != flowID || e.Flow.FlowType != ft {
			continue
		}
		if len(e.Providers) == 0 {
			out = append(out, provider.Candidate{Flow: e.Flow, Score: 1})
		}
		for _, p := range e.Providers {
			out = append(out, provider.Candidate{Flow: e.Flow, Provider: p, Score: 1})
		}
	}
	return out
}

func normalizeVersion(v string) (string, error) {
	if strings.TrimSpace(v) == "" {
		return DefaultVersion, nil
	}
	sv, err := semver.NewVersion(strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalidVersion, v, err)
	}
	return fmt.Sprintf("%d.%d.%d", sv.Major(), sv.Minor(), sv.Patch()), nil
}
