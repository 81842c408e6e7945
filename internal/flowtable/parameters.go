package flowtable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Column names of the parameter table.
const (
	ColParameterName        = "Parameter_Name"
	ColParameterDescription = "Parameter_Description"
	ColParameterValue       = "Parameter_Value"
)

// descriptionPrefix starts the description of every flow parameter.
const descriptionPrefix = "Reference parameter for "

// ParameterDescription is the description given to the parameter of a flow.
func ParameterDescription(flowName string) string {
	return descriptionPrefix + flowName
}

// FlowNameOf recovers the flow name from a parameter description.
func FlowNameOf(description string) (string, bool) {
	name, ok := strings.CutPrefix(description, descriptionPrefix)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// ErrDuplicateParameter indicates a parameter name appears twice.
var ErrDuplicateParameter = errors.New("duplicate parameter name")

// Parameter is one process parameter created for a flow row.
type Parameter struct {
	Name string
	// Description is the flow name the parameter stands for.
	Description string
	Value       float64
}

// ParameterTable lists the parameters of a created process in row order.
type ParameterTable struct {
	Parameters []Parameter
}

// Add appends a parameter.
func (pt *ParameterTable) Add(p Parameter) {
	pt.Parameters = append(pt.Parameters, p)
}

// Len returns the number of parameters.
func (pt *ParameterTable) Len() int {
	return len(pt.Parameters)
}

// ByName returns the parameter with the given name.
func (pt *ParameterTable) ByName(name string) (Parameter, bool) {
	for _, p := range pt.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// ByDescription returns the first parameter with the given description.
func (pt *ParameterTable) ByDescription(desc string) (Parameter, bool) {
	for _, p := range pt.Parameters {
		if p.Description == desc {
			return p, true
		}
	}
	return Parameter{}, false
}

// Values returns name -> value. Duplicate names are an error.
func (pt *ParameterTable) Values() (map[string]float64, error) {
	out := make(map[string]float64, len(pt.Parameters))
	for _, p := range pt.Parameters {
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateParameter, p.Name)
		}
		out[p.Name] = p.Value
	}
	return out, nil
}

// ReadParameterTable parses a parameter table CSV.
func ReadParameterTable(r io.Reader) (*ParameterTable, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &ParameterTable{}, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range []string{ColParameterName, ColParameterValue} {
		if _, ok := pos[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, c)
		}
	}

	pt := &ParameterTable{}
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		field := func(col string) string {
			i, ok := pos[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		v, err := strconv.ParseFloat(field(ColParameterValue), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w: %s %q", n, ErrInvalidValue, ColParameterValue, field(ColParameterValue))
		}
		pt.Add(Parameter{
			Name:        field(ColParameterName),
			Description: field(ColParameterDescription),
			Value:       v,
		})
	}
	return pt, nil
}

// LoadParameterTable reads a parameter table file.
func LoadParameterTable(path string) (*ParameterTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening parameter table: %w", err)
	}
	defer f.Close()
	return ReadParameterTable(f)
}

// Write serializes the table as CSV.
func (pt *ParameterTable) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColParameterName, ColParameterDescription, ColParameterValue}); err != nil {
		return err
	}
	for _, p := range pt.Parameters {
		if err := cw.Write([]string{p.Name, p.Description, strconv.FormatFloat(p.Value, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes the table to path, creating parent directories.
func (pt *ParameterTable) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating parameter table: %w", err)
	}
	if err := pt.Write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
