package sweep_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/lcaprommis/internal/flowsheet"
	"github.com/rshade/lcaprommis/internal/sweep"
)

func vars() []flowsheet.NodeVar {
	return []flowsheet.NodeVar{
		{Name: "feed", Value: 10, Min: 5, Max: 20, Dist: flowsheet.Uniform},
		{Name: "temp", Value: 300, Min: 270, Max: 330, Dist: flowsheet.Normal},
		{Name: "yield", Value: 0.8, Min: 0.4, Max: 1.6, Dist: flowsheet.Lognormal},
		{Name: "ratio", Value: 2, Min: 1, Max: 4, Dist: flowsheet.Triangle},
	}
}

func TestDraw_DeterministicAndBounded(t *testing.T) {
	a, err := sweep.Draw(vars(), 200, 42)
	require.NoError(t, err)
	b, err := sweep.Draw(vars(), 200, 42)
	require.NoError(t, err)
	c, err := sweep.Draw(vars(), 200, 43)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	require.Len(t, a, 200)
	assert.Equal(t, 1, a[0].Index)

	for _, s := range a {
		assert.GreaterOrEqual(t, s.Values["feed"], 5.0)
		assert.LessOrEqual(t, s.Values["feed"], 20.0)
		assert.GreaterOrEqual(t, s.Values["ratio"], 1.0)
		assert.LessOrEqual(t, s.Values["ratio"], 4.0)
		assert.Greater(t, s.Values["yield"], 0.0)
	}
}

func TestDraw_Degenerate(t *testing.T) {
	samples, err := sweep.Draw([]flowsheet.NodeVar{
		{Name: "fixed", Value: 3, Min: 3, Max: 3},
		{Name: "flat", Value: 7, Min: 7, Max: 7, Dist: flowsheet.Normal},
	}, 3, 1)
	require.NoError(t, err)
	for _, s := range samples {
		assert.InDelta(t, 3.0, s.Values["fixed"], 0)
		assert.InDelta(t, 7.0, s.Values["flat"], 0)
	}
}

func TestDraw_Errors(t *testing.T) {
	tests := []struct {
		name string
		v    flowsheet.NodeVar
	}{
		{"inverted bounds", flowsheet.NodeVar{Name: "x", Min: 2, Max: 1}},
		{"lognormal at zero", flowsheet.NodeVar{Name: "x", Value: 1, Min: 0, Max: 2, Dist: flowsheet.Lognormal}},
		{"triangle mode outside", flowsheet.NodeVar{Name: "x", Value: 5, Min: 0, Max: 2, Dist: flowsheet.Triangle}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sweep.Draw([]flowsheet.NodeVar{tt.v}, 1, 1)
			require.ErrorIs(t, err, sweep.ErrInvalidBounds)
		})
	}

	_, err := sweep.Draw([]flowsheet.NodeVar{{Name: "x", Dist: "cauchy"}}, 1, 1)
	require.ErrorIs(t, err, flowsheet.ErrUnknownDistribution)
	_, err = sweep.Draw(vars(), 0, 1)
	require.Error(t, err)
	_, err = sweep.Draw(nil, 1, 1)
	require.Error(t, err)
}

type fakeEvaluator struct {
	calls  int
	failOn map[int]bool
}

func (f *fakeEvaluator) Evaluate(_ context.Context, values map[string]float64) (map[string]float64, error) {
	f.calls++
	if f.failOn[f.calls] {
		return nil, errors.New("solver diverged")
	}
	return map[string]float64{"Climate change": values["feed"] * 2, "Acidification": 1}, nil
}

func samples(n int) []sweep.Sample {
	out := make([]sweep.Sample, n)
	for i := range out {
		out[i] = sweep.Sample{Index: i + 1, Values: map[string]float64{"feed": float64(i + 1)}}
	}
	return out
}

func TestRun_RecordsFailuresAndContinues(t *testing.T) {
	ev := &fakeEvaluator{failOn: map[int]bool{3: true}}
	var snaps []sweep.Snapshot

	res, err := sweep.Run(context.Background(), ev, []string{"feed"}, samples(7), sweep.Options{
		BatchSize:  3,
		OnProgress: func(s sweep.Snapshot) { snaps = append(snaps, s) },
	})
	require.NoError(t, err)
	assert.Len(t, res.RunID, 26)
	require.Len(t, res.Outcomes, 7)
	assert.Equal(t, 1, res.Failed())
	require.Error(t, res.Outcomes[2].Err)
	assert.InDelta(t, 14.0, res.Outcomes[6].Impacts["Climate change"], 1e-12)

	require.Len(t, snaps, 3)
	assert.Equal(t, 3, snaps[0].Processed)
	assert.Equal(t, 1, snaps[0].Failed)
	assert.InDelta(t, 100.0, snaps[2].PercentComplete, 1e-9)
	assert.Equal(t, 3, snaps[2].ProcessedBatches)
}

func TestRun_FailFast(t *testing.T) {
	ev := &fakeEvaluator{failOn: map[int]bool{2: true}}
	res, err := sweep.Run(context.Background(), ev, []string{"feed"}, samples(5), sweep.Options{FailFast: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample 2")
	assert.Len(t, res.Outcomes, 2)
	assert.Equal(t, 2, ev.calls)
}

func TestRun_Validation(t *testing.T) {
	ev := &fakeEvaluator{}
	_, err := sweep.Run(context.Background(), ev, nil, samples(1), sweep.Options{BatchSize: -1})
	require.ErrorIs(t, err, sweep.ErrInvalidBatchSize)
	_, err = sweep.Run(context.Background(), ev, nil, samples(1), sweep.Options{BatchSize: sweep.MaxBatchSize + 1})
	require.ErrorIs(t, err, sweep.ErrInvalidBatchSize)
	_, err = sweep.Run(context.Background(), ev, nil, nil, sweep.Options{})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sweep.Run(ctx, ev, nil, samples(2), sweep.Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, ev.calls)
}

func TestResult_WriteCSV(t *testing.T) {
	ev := &fakeEvaluator{failOn: map[int]bool{2: true}}
	res, err := sweep.Run(context.Background(), ev, []string{"feed"}, samples(2), sweep.Options{})
	require.NoError(t, err)

	path, err := res.WriteCSV(t.TempDir())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, sweep.ResultsFileName))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "sample,feed,Acidification,Climate change,error", lines[0])
	assert.Equal(t, "1,1,1,2,", lines[1])
	assert.Equal(t, "2,2,,,solver diverged", lines[2])
}
