package flowtable

import (
	"errors"
	"fmt"
)

// ErrNothingToMerge indicates no row matched a merge request.
var ErrNothingToMerge = errors.New("no rows matched merge")

// MergeSpec describes a merge of several rows into one.
type MergeSpec struct {
	// Column is ColSource (default) or ColCategory.
	Column string
	// Match is the value Column must equal.
	Match string
	// NewName is the Flow_Name of the merged row.
	NewName string
	// Only, when set, restricts the merge to these flow names.
	Only []string
}

// Merge sums every matching row into a single row named ms.NewName placed
// where the first match was. All matches must share a unit. The table is
// modified in place.
func (t *Table) Merge(ms MergeSpec) error {
	column := ms.Column
	if column == "" {
		column = ColSource
	}
	if column != ColSource && column != ColCategory {
		return fmt.Errorf("merge on %q: only %s and %s are supported", column, ColSource, ColCategory)
	}
	if !t.HasColumn(column) {
		return fmt.Errorf("merge on %q: %w", column, ErrMissingColumns)
	}

	only := make(map[string]bool, len(ms.Only))
	for _, n := range ms.Only {
		only[n] = true
	}
	matches := func(r Row) bool {
		v := r.Source
		if column == ColCategory {
			v = r.Category
		}
		if v != ms.Match {
			return false
		}
		return len(only) == 0 || only[r.FlowName]
	}

	var (
		merged Row
		first  = -1
		kept   = make([]Row, 0, len(t.Rows))
	)
	for _, r := range t.Rows {
		if !matches(r) {
			kept = append(kept, r)
			continue
		}
		if first < 0 {
			first = len(kept)
			merged = r
			merged.FlowName = ms.NewName
			merged.UUID = ""
			kept = append(kept, merged)
			continue
		}
		if r.Unit != merged.Unit {
			return fmt.Errorf("merging %q into %q: unit %q differs from %q", r.FlowName, ms.NewName, r.Unit, merged.Unit)
		}
		merged.Amount += r.Amount
		merged.ReferenceProduct = merged.ReferenceProduct || r.ReferenceProduct
		kept[first] = merged
	}
	if first < 0 {
		return fmt.Errorf("%w: %s=%q", ErrNothingToMerge, column, ms.Match)
	}

	for i := range kept {
		kept[i].Number = i + 1
	}
	t.Rows = kept
	return nil
}

// SetReference flags the row named flowName (optionally restricted to a
// source) as the only reference product.
func (t *Table) SetReference(flowName, source string) error {
	found := false
	for i := range t.Rows {
		r := &t.Rows[i]
		r.ReferenceProduct = false
		if r.FlowName == flowName && (source == "" || r.Source == source) {
			r.ReferenceProduct = true
			r.IsInput = false
			found = true
		}
	}
	if !found {
		return fmt.Errorf("reference flow %q not found", flowName)
	}
	return nil
}
