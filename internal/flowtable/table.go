// Package flowtable reads and shapes the finalized flow table produced by the
// process model: one row per flow, in LCA units, flagged as input/output and
// reference product.
package flowtable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Column names of the finalized flow table.
const (
	ColFlowName         = "Flow_Name"
	ColAmount           = "LCA_Amount"
	ColUnit             = "LCA_Unit"
	ColIsInput          = "Is_Input"
	ColReferenceProduct = "Reference_Product"
	ColFlowType         = "Flow_Type"
	ColCategory         = "Category"
	ColUUID             = "UUID"
	ColSource           = "Source"
)

// RequiredColumns must be present in every flow table.
var RequiredColumns = []string{ //nolint:gochecknoglobals // fixed column contract
	ColFlowName, ColAmount, ColUnit, ColIsInput, ColReferenceProduct, ColFlowType,
}

// Sentinel errors for table validation.
var (
	ErrMissingColumns  = errors.New("flow table is missing required columns")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidValue    = errors.New("invalid value")
	ErrEmptyTable      = errors.New("flow table has no rows")
)

// Row is one flow of the table. Number is the 1-based data row number.
type Row struct {
	Number           int
	FlowName         string
	Amount           float64
	Unit             string
	IsInput          bool
	ReferenceProduct bool
	FlowType         string
	Category         string
	UUID             string
	Source           string
}

// Table is a parsed flow table.
type Table struct {
	Columns []string
	Rows    []Row
}

// Load reads a flow table from a CSV file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening flow table: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// Read parses a flow table from CSV and validates its structure.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyTable
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	if missing := missingColumns(pos); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s (required: %s)",
			ErrMissingColumns, strings.Join(missing, ", "), strings.Join(RequiredColumns, ", "))
	}

	t := &Table{Columns: header}
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		row, err := parseRow(n, rec, pos)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func missingColumns(pos map[string]int) []string {
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

func parseRow(n int, rec []string, pos map[string]int) (Row, error) {
	get := func(col string) string {
		i, ok := pos[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	row := Row{
		Number:   n,
		FlowName: get(ColFlowName),
		Unit:     get(ColUnit),
		FlowType: get(ColFlowType),
		Category: get(ColCategory),
		UUID:     get(ColUUID),
		Source:   get(ColSource),
	}

	amount, err := strconv.ParseFloat(get(ColAmount), 64)
	if err != nil {
		return Row{}, fmt.Errorf("row %d (%s): %w: %s %q", n, row.FlowName, ErrInvalidValue, ColAmount, get(ColAmount))
	}
	row.Amount = amount

	if row.IsInput, err = ParseBool(get(ColIsInput)); err != nil {
		return Row{}, fmt.Errorf("row %d (%s): %s: %w", n, row.FlowName, ColIsInput, err)
	}
	if row.ReferenceProduct, err = ParseBool(get(ColReferenceProduct)); err != nil {
		return Row{}, fmt.Errorf("row %d (%s): %s: %w", n, row.FlowName, ColReferenceProduct, err)
	}
	return row, nil
}

// ParseBool accepts the spellings dataframe exports produce: True/False,
// 1/0, yes/no. Empty means false.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "false", "f", "0", "no", "n", "0.0":
		return false, nil
	case "true", "t", "1", "yes", "y", "1.0":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, s)
	}
}

// ReferenceRows returns the rows flagged as reference product.
func (t *Table) ReferenceRows() []Row {
	var refs []Row
	for _, r := range t.Rows {
		if r.ReferenceProduct {
			refs = append(refs, r)
		}
	}
	return refs
}

// HasColumn reports whether the table was read with the given column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Write serializes the table as CSV with the standard column order.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{ColFlowName, ColSource, ColCategory, ColAmount, ColUnit,
		ColIsInput, ColReferenceProduct, ColFlowType, ColUUID}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range t.Rows {
		rec := []string{
			r.FlowName, r.Source, r.Category,
			strconv.FormatFloat(r.Amount, 'g', -1, 64), r.Unit,
			formatBool(r.IsInput), formatBool(r.ReferenceProduct), r.FlowType, r.UUID,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
