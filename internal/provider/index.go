// Package provider finds technosphere flows and the processes that provide
// them, and decides which pair a flow table row should be linked to.
package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/rshade/lcaprommis/internal/cache"
	"github.com/rshade/lcaprommis/internal/logging"
	"github.com/rshade/lcaprommis/internal/olca"
)

// Source is the part of the IPC client the index needs.
type Source interface {
	GetDescriptors(ctx context.Context, typ olca.EntityType) ([]olca.Ref, error)
	GetProviders(ctx context.Context, flow *olca.Ref) ([]olca.TechFlow, error)
	Endpoint() string
}

// Entry is a product or waste flow with the processes providing it.
type Entry struct {
	Flow      olca.Ref   `json:"flow"`
	Providers []olca.Ref `json:"providers,omitempty"`
}

// Index holds every product and waste flow of a database.
type Index struct {
	Entries []Entry `json:"entries"`
}

// BuildIndex lists product and waste flows and attaches their providers.
func BuildIndex(ctx context.Context, src Source) (*Index, error) {
	flows, err := src.GetDescriptors(ctx, olca.TypeFlow)
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}
	techFlows, err := src.GetProviders(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing providers: %w", err)
	}

	byFlow := make(map[string][]olca.Ref)
	for _, tf := range techFlows {
		if tf.Flow == nil || tf.Provider == nil {
			continue
		}
		byFlow[tf.Flow.ID] = append(byFlow[tf.Flow.ID], *tf.Provider)
	}

	idx := &Index{}
	for _, f := range flows {
		if f.FlowType != olca.ProductFlow && f.FlowType != olca.WasteFlow {
			continue
		}
		providers := byFlow[f.ID]
		sort.SliceStable(providers, func(i, j int) bool { return providers[i].Name < providers[j].Name })
		idx.Entries = append(idx.Entries, Entry{Flow: f, Providers: providers})
	}
	sort.SliceStable(idx.Entries, func(i, j int) bool { return idx.Entries[i].Flow.Name < idx.Entries[j].Flow.Name })

	logging.FromContext(ctx).Debug().
		Str("component", "provider").
		Int("flows", len(idx.Entries)).
		Int("tech_flows", len(techFlows)).
		Msg("provider index built")
	return idx, nil
}

// BuildIndexCached is BuildIndex behind the file cache, keyed by endpoint.
func BuildIndexCached(ctx context.Context, src Source, store *cache.FileStore) (*Index, error) {
	return cache.Fetch(ctx, store, cache.Key("providers", src.Endpoint()), func(ctx context.Context) (*Index, error) {
		return BuildIndex(ctx, src)
	})
}

// Query describes what a row is looking for.
type Query struct {
	// FlowName is the row's flow name, used for pins and prompts.
	FlowName string
	// Keywords are matched against flow names; FlowName when empty.
	Keywords string
	FlowType olca.FlowType
	// Unit, when set, filters flows whose reference unit is known and differs.
	Unit string
}

// Candidate is one (flow, provider) pair. Provider is empty when the flow
// has no provider.
type Candidate struct {
	Flow     olca.Ref
	Provider olca.Ref
	Score    float64
}

// Label renders the candidate for menus and logs.
func (c Candidate) Label() string {
	if c.Provider.ID == "" {
		return fmt.Sprintf("%s [no provider]", c.Flow.Name)
	}
	return fmt.Sprintf("%s <- %s", c.Flow.Name, c.Provider.Name)
}

// Search ranks flows of the requested type by the share of query keywords
// found in their name. An exact name match ranks first.
func (idx *Index) Search(q Query) []Candidate {
	keywords := q.Keywords
	if strings.TrimSpace(keywords) == "" {
		keywords = q.FlowName
	}
	want := tokens(keywords)
	if len(want) == 0 {
		return nil
	}

	var out []Candidate
	for _, e := range idx.Entries {
		if q.FlowType != "" && e.Flow.FlowType != q.FlowType {
			continue
		}
		if q.Unit != "" && e.Flow.RefUnit != "" && !strings.EqualFold(e.Flow.RefUnit, q.Unit) {
			continue
		}
		score := overlap(want, tokens(e.Flow.Name))
		if score == 0 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(e.Flow.Name), strings.TrimSpace(keywords)) {
			score++
		}
		if len(e.Providers) == 0 {
			out = append(out, Candidate{Flow: e.Flow, Score: score})
			continue
		}
		for _, p := range e.Providers {
			out = append(out, Candidate{Flow: e.Flow, Provider: p, Score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Flow.Name < out[j].Flow.Name
	})
	return out
}

// Find returns the candidate for an exact flow and provider id pair.
func (idx *Index) Find(flowID, providerID string) (Candidate, bool) {
	for _, e := range idx.Entries {
		if e.Flow.ID != flowID {
			continue
		}
		if providerID == "" {
			return Candidate{Flow: e.Flow}, true
		}
		for _, p := range e.Providers {
			if p.ID == providerID {
				return Candidate{Flow: e.Flow, Provider: p}, true
			}
		}
	}
	return Candidate{}, false
}

func tokens(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}

func overlap(want, have map[string]bool) float64 {
	hits := 0
	for w := range want {
		if have[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(want))
}
