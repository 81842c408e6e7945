package sweep

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/lcaprommis/internal/logging"
)

// Batch size limits.
const (
	DefaultBatchSize = 10
	MaxBatchSize     = 1000
)

// ResultsFileName is the file WriteCSV creates.
const ResultsFileName = "sweep_results.csv"

// ErrInvalidBatchSize indicates a batch size outside [1, MaxBatchSize].
var ErrInvalidBatchSize = fmt.Errorf("batch size must be between 1 and %d", MaxBatchSize)

// Evaluator computes impacts for one set of decision values.
type Evaluator interface {
	Evaluate(ctx context.Context, values map[string]float64) (map[string]float64, error)
}

// Options control a sweep.
type Options struct {
	// BatchSize is how many samples run between progress reports.
	BatchSize int
	// FailFast stops at the first failed sample.
	FailFast bool
	// OnProgress is called after each batch.
	OnProgress func(Snapshot)
}

// Outcome is the evaluation of one sample.
type Outcome struct {
	Sample
	Impacts map[string]float64
	Err     error
}

// Result holds every evaluated sample in sample order.
type Result struct {
	RunID     string
	Variables []string
	Outcomes  []Outcome
}

// Failed counts outcomes with an error.
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Run evaluates samples one at a time. Samples share remote state, so they
// never run in parallel. A failed sample is recorded and the sweep goes on
// unless opts.FailFast is set; the partial result is returned either way.
func Run(ctx context.Context, ev Evaluator, vars []string, samples []Sample, opts Options) (*Result, error) {
	size := opts.BatchSize
	if size == 0 {
		size = DefaultBatchSize
	}
	if size < 1 || size > MaxBatchSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, size)
	}
	if len(samples) == 0 {
		return nil, errors.New("no samples to evaluate")
	}

	res := &Result{RunID: ulid.Make().String(), Variables: slices.Clone(vars)}
	log := logging.FromContext(ctx).With().
		Str("component", "sweep").
		Str("run_id", res.RunID).
		Logger()

	totalBatches := (len(samples) + size - 1) / size
	progress := NewProgress(len(samples), totalBatches)
	log.Info().Int("samples", len(samples)).Int("batches", totalBatches).Msg("sweep started")

	for b := range totalBatches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		start := b * size
		end := min(start+size, len(samples))

		failed := 0
		for _, s := range samples[start:end] {
			impacts, err := ev.Evaluate(ctx, s.Values)
			res.Outcomes = append(res.Outcomes, Outcome{Sample: s, Impacts: impacts, Err: err})
			if err == nil {
				continue
			}
			failed++
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn().Err(err).Int("sample", s.Index).Msg("sample failed")
			if opts.FailFast {
				progress.addBatch(len(res.Outcomes)-start, failed)
				return res, fmt.Errorf("sample %d: %w", s.Index, err)
			}
		}

		progress.addBatch(end-start, failed)
		snap := progress.Snapshot()
		log.Debug().
			Int("batch", b+1).
			Float64("percent", snap.PercentComplete).
			Dur("remaining", snap.Remaining).
			Msg("batch done")
		if opts.OnProgress != nil {
			opts.OnProgress(snap)
		}
	}

	log.Info().Int("samples", len(res.Outcomes)).Int("failed", res.Failed()).Msg("sweep finished")
	return res, nil
}

// impactNames is the sorted union of impact names over all outcomes.
func (r *Result) impactNames() []string {
	seen := map[string]bool{}
	for _, o := range r.Outcomes {
		for k := range o.Impacts {
			seen[k] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Write serializes the result as CSV: sample, decision variables, impacts,
// error. Impacts missing from a failed sample are left empty.
func (r *Result) Write(w io.Writer) error {
	impacts := r.impactNames()
	cw := csv.NewWriter(w)

	header := append([]string{"sample"}, r.Variables...)
	header = append(header, impacts...)
	header = append(header, "error")
	if err := cw.Write(header); err != nil {
		return err
	}

	format := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, o := range r.Outcomes {
		rec := make([]string, 0, len(header))
		rec = append(rec, strconv.Itoa(o.Index))
		for _, v := range r.Variables {
			rec = append(rec, format(o.Values[v]))
		}
		for _, name := range impacts {
			v, ok := o.Impacts[name]
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, format(v))
		}
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		rec = append(rec, errText)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes ResultsFileName into dir and returns its path.
func (r *Result) WriteCSV(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, ResultsFileName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating sweep results: %w", err)
	}
	if err := r.Write(f); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
