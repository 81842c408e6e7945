// Package sweep samples decision variables from their distributions and
// evaluates each sample through a flowsheet, producing one row of impacts
// per sample for an optimizer or a sensitivity study.
package sweep

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/rshade/lcaprommis/internal/flowsheet"
)

// sigmaDivisor maps a [Min, Max] range to a standard deviation: the range
// covers plus or minus three sigma.
const sigmaDivisor = 6

// ErrInvalidBounds indicates bounds a distribution cannot be built from.
var ErrInvalidBounds = errors.New("invalid bounds")

// Sample is one set of decision values.
type Sample struct {
	Index  int
	Values map[string]float64
}

// drawer returns one value per call.
type drawer func() float64

// newDrawer builds the sampler of one decision variable.
func newDrawer(v flowsheet.NodeVar, src rand.Source) (drawer, error) {
	for _, x := range []float64{v.Value, v.Min, v.Max} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%s: %w: non-finite value", v.Name, ErrInvalidBounds)
		}
	}
	if v.Min > v.Max {
		return nil, fmt.Errorf("%s: %w: min %g > max %g", v.Name, ErrInvalidBounds, v.Min, v.Max)
	}

	switch v.Dist {
	case flowsheet.Uniform, "":
		if v.Min == v.Max {
			return constant(v.Min), nil
		}
		return distuv.Uniform{Min: v.Min, Max: v.Max, Src: src}.Rand, nil

	case flowsheet.Normal:
		sigma := (v.Max - v.Min) / sigmaDivisor
		if sigma == 0 {
			return constant(v.Value), nil
		}
		return distuv.Normal{Mu: v.Value, Sigma: sigma, Src: src}.Rand, nil

	case flowsheet.Lognormal:
		if v.Value <= 0 || v.Min <= 0 {
			return nil, fmt.Errorf("%s: %w: lognormal needs positive value and bounds", v.Name, ErrInvalidBounds)
		}
		sigma := (math.Log(v.Max) - math.Log(v.Min)) / sigmaDivisor
		if sigma == 0 {
			return constant(v.Value), nil
		}
		return distuv.LogNormal{Mu: math.Log(v.Value), Sigma: sigma, Src: src}.Rand, nil

	case flowsheet.Triangle:
		if v.Min == v.Max {
			return constant(v.Min), nil
		}
		if v.Value < v.Min || v.Value > v.Max {
			return nil, fmt.Errorf("%s: %w: mode %g outside [%g, %g]", v.Name, ErrInvalidBounds, v.Value, v.Min, v.Max)
		}
		return distuv.NewTriangle(v.Min, v.Max, v.Value, src).Rand, nil

	default:
		return nil, fmt.Errorf("%s: %w: %q", v.Name, flowsheet.ErrUnknownDistribution, v.Dist)
	}
}

func constant(x float64) drawer {
	return func() float64 { return x }
}

// Draw returns n samples of vars. The same seed always gives the same
// samples.
func Draw(vars []flowsheet.NodeVar, n int, seed uint64) ([]Sample, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample count must be positive, got %d", n)
	}
	if len(vars) == 0 {
		return nil, errors.New("no decision variables to sample")
	}

	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	drawers := make([]drawer, len(vars))
	for i, v := range vars {
		d, err := newDrawer(v, src)
		if err != nil {
			return nil, err
		}
		drawers[i] = d
	}

	samples := make([]Sample, n)
	for i := range samples {
		values := make(map[string]float64, len(vars))
		for j, v := range vars {
			values[v.Name] = drawers[j]()
		}
		samples[i] = Sample{Index: i + 1, Values: values}
	}
	return samples, nil
}
