package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rshade/lcaprommis/internal/greenops"
	"github.com/rshade/lcaprommis/internal/olca"
)

// ImpactsFileName is the file WriteCSV creates.
const ImpactsFileName = "total_impacts.csv"

// ImpactRow is one impact category of a result.
type ImpactRow struct {
	Name   string  `json:"name"`
	Units  string  `json:"units"`
	UUID   string  `json:"uuid"`
	Amount float64 `json:"amount"`

	// Equivalency is set for climate change rows in kg CO2 eq.
	Equivalency *greenops.Output `json:"equivalency,omitempty"`
}

// ImpactTable is the total impacts of a result in server order.
type ImpactTable struct {
	Rows []ImpactRow `json:"rows"`
}

// NewImpactTable flattens impact values into rows.
func NewImpactTable(values []olca.ImpactValue) *ImpactTable {
	t := &ImpactTable{Rows: make([]ImpactRow, 0, len(values))}
	for _, v := range values {
		row := ImpactRow{Amount: v.Amount}
		if v.ImpactCategory != nil {
			row.Name = v.ImpactCategory.Name
			row.Units = v.ImpactCategory.RefUnit
			row.UUID = v.ImpactCategory.ID
		}
		if eq, ok := greenops.ForImpact(row.Amount, row.Units); ok {
			row.Equivalency = &eq
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ByName returns category name -> amount.
func (t *ImpactTable) ByName() map[string]float64 {
	out := make(map[string]float64, len(t.Rows))
	for _, r := range t.Rows {
		out[r.Name] = r.Amount
	}
	return out
}

// Write serializes the table as CSV with columns amount,name,units,uuid.
func (t *ImpactTable) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"amount", "name", "units", "uuid"}); err != nil {
		return err
	}
	for _, r := range t.Rows {
		rec := []string{strconv.FormatFloat(r.Amount, 'g', -1, 64), r.Name, r.Units, r.UUID}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes dir/total_impacts.csv, creating dir, and returns the path.
func (t *ImpactTable) WriteCSV(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, ImpactsFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", ImpactsFileName, err)
	}
	if err := t.Write(f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("writing %s: %w", ImpactsFileName, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}
