// Package units resolves unit names, as they appear in flow tables, to the
// unit and flow property references of an openLCA database.
package units

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rshade/lcaprommis/internal/cache"
	"github.com/rshade/lcaprommis/internal/olca"
)

// Sentinel errors for unit resolution.
var (
	// ErrUnknownUnit indicates no unit group in the database knows the unit.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrNoFlowProperty indicates no flow property uses the unit's group.
	ErrNoFlowProperty = errors.New("no flow property for unit")
)

// maxConcurrentLookups bounds parallel unit group requests.
const maxConcurrentLookups = 8

// Source is the part of the IPC client the index needs.
type Source interface {
	GetAll(ctx context.Context, typ olca.EntityType, out any) error
	GetUnitGroup(ctx context.Context, id string) (*olca.UnitGroup, error)
}

// Entry is what a unit name resolves to.
type Entry struct {
	Unit         olca.Ref `json:"unit"`
	UnitGroup    olca.Ref `json:"unit_group"`
	FlowProperty olca.Ref `json:"flow_property"`
}

// Index maps unit names and synonyms to entries. The zero value is empty and
// usable.
type Index struct {
	Entries    map[string]Entry    `json:"entries"`
	Properties []olca.FlowProperty `json:"properties"`

	lowerOnce sync.Once
	lower     map[string]string
}

// Load builds an index from every flow property and unit group in the
// database. Unit groups are fetched concurrently.
func Load(ctx context.Context, src Source) (*Index, error) {
	var props []olca.FlowProperty
	if err := src.GetAll(ctx, olca.TypeFlowProperty, &props); err != nil {
		return nil, fmt.Errorf("listing flow properties: %w", err)
	}

	groupIDs := make(map[string]struct{})
	for _, p := range props {
		if p.UnitGroup != nil && p.UnitGroup.ID != "" {
			groupIDs[p.UnitGroup.ID] = struct{}{}
		}
	}

	var (
		mu     sync.Mutex
		groups = make(map[string]*olca.UnitGroup, len(groupIDs))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for id := range groupIDs {
		g.Go(func() error {
			ug, err := src.GetUnitGroup(gctx, id)
			if err != nil {
				return fmt.Errorf("loading unit group %s: %w", id, err)
			}
			mu.Lock()
			groups[id] = ug
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewIndex(props, groups), nil
}

// LoadCached is Load behind the file cache, keyed by endpoint. A nil or
// disabled store always loads.
func LoadCached(ctx context.Context, src Source, endpoint string, store *cache.FileStore) (*Index, error) {
	return cache.Fetch(ctx, store, cache.Key("units", endpoint), func(ctx context.Context) (*Index, error) {
		return Load(ctx, src)
	})
}

// NewIndex builds an index from already loaded data. For each group the
// default flow property wins; otherwise the first property (by name) that
// uses the group.
func NewIndex(props []olca.FlowProperty, groups map[string]*olca.UnitGroup) *Index {
	sorted := append([]olca.FlowProperty(nil), props...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	byGroup := make(map[string]olca.FlowProperty)
	for _, p := range sorted {
		if p.UnitGroup == nil {
			continue
		}
		if _, ok := byGroup[p.UnitGroup.ID]; !ok {
			byGroup[p.UnitGroup.ID] = p
		}
	}

	idx := &Index{Entries: make(map[string]Entry), Properties: sorted}

	groupIDs := make([]string, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Strings(groupIDs)

	for _, id := range groupIDs {
		ug := groups[id]
		prop := byGroup[id]
		propRef := olca.Ref{Type: olca.TypeFlowProperty, ID: prop.ID, Name: prop.Name}
		if ug.DefaultFlowProperty != nil && ug.DefaultFlowProperty.ID != "" {
			propRef = olca.Ref{Type: olca.TypeFlowProperty, ID: ug.DefaultFlowProperty.ID, Name: ug.DefaultFlowProperty.Name}
		}
		groupRef := olca.Ref{Type: olca.TypeUnitGroup, ID: ug.ID, Name: ug.Name}

		for _, u := range ug.Units {
			entry := Entry{Unit: *u.Ref(), UnitGroup: groupRef, FlowProperty: propRef}
			for _, name := range append([]string{u.Name}, u.Synonyms...) {
				if name == "" {
					continue
				}
				if _, taken := idx.Entries[name]; !taken {
					idx.Entries[name] = entry
				}
			}
		}
	}
	return idx
}

// Lookup resolves a unit name: exact match first, then a case-insensitive
// match.
func (idx *Index) Lookup(name string) (Entry, error) {
	name = strings.TrimSpace(name)
	if e, ok := idx.Entries[name]; ok {
		return e, nil
	}
	idx.lowerOnce.Do(idx.buildLower)
	if key, ok := idx.lower[strings.ToLower(name)]; ok {
		return idx.Entries[key], nil
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
}

func (idx *Index) buildLower() {
	idx.lower = make(map[string]string, len(idx.Entries))
	keys := make([]string, 0, len(idx.Entries))
	for k := range idx.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, ok := idx.lower[lk]; !ok {
			idx.lower[lk] = k
		}
	}
}

// UnitRef returns the unit reference for name.
func (idx *Index) UnitRef(name string) (*olca.Ref, error) {
	e, err := idx.Lookup(name)
	if err != nil {
		return nil, err
	}
	ref := e.Unit
	return &ref, nil
}

// PropertyRef returns the flow property reference for name.
func (idx *Index) PropertyRef(name string) (*olca.Ref, error) {
	e, err := idx.Lookup(name)
	if err != nil {
		return nil, err
	}
	if e.FlowProperty.ID == "" {
		return nil, fmt.Errorf("%w: %q", ErrNoFlowProperty, name)
	}
	ref := e.FlowProperty
	return &ref, nil
}

// FlowPropertyForUnit returns the first flow property whose unit group
// contains the unit, compared by id and then by name.
func (idx *Index) FlowPropertyForUnit(unit olca.Ref) (*olca.FlowProperty, error) {
	var groupID string
	for _, e := range idx.Entries {
		if unit.ID != "" && e.Unit.ID == unit.ID {
			groupID = e.UnitGroup.ID
			break
		}
	}
	if groupID == "" {
		if e, err := idx.Lookup(unit.Name); err == nil {
			groupID = e.UnitGroup.ID
		}
	}
	if groupID != "" {
		for i := range idx.Properties {
			p := idx.Properties[i]
			if p.UnitGroup != nil && p.UnitGroup.ID == groupID {
				return &p, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoFlowProperty, unit.Name)
}

// Len returns the number of resolvable names.
func (idx *Index) Len() int {
	return len(idx.Entries)
}
