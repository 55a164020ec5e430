package forecast

import (
	"context"
	"math"
	"math/rand/v2"

	"IdxLens/internal/services/features"
)

// ctxCheckEvery is how many trajectories run between context checks.
const ctxCheckEvery = 32

// newRand builds an isolated PCG source so concurrent forecasts never share
// random state.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// simulation holds the inputs of the trajectory sampler, all in scaled units.
type simulation struct {
	// future holds the scaled time of each horizon day.
	future []float64
	// rate is the per-day probability of a new slope change.
	rate float64
	// magnitudes are the fitted slope changes, resampled with a random sign.
	magnitudes []float64
	sigma      float64
	samples    int
	width      float64
}

// bands returns, per horizon day, the lower and upper deviations from the
// point forecast. Lower deviations are never positive, upper never negative,
// and both only grow with the horizon.
func (sim simulation) bands(ctx context.Context, rng *rand.Rand) (lower, upper []float64, err error) {
	h := len(sim.future)
	devs := make([][]float64, h)
	for i := range devs {
		devs[i] = make([]float64, sim.samples)
	}

	for k := 0; k < sim.samples; k++ {
		if k%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		var dev, slope float64
		prev := 1.0
		for i, s := range sim.future {
			dev += slope * (s - prev)
			prev = s
			if len(sim.magnitudes) > 0 && rng.Float64() < sim.rate {
				delta := sim.magnitudes[rng.IntN(len(sim.magnitudes))]
				if rng.IntN(2) == 0 {
					delta = -delta
				}
				slope += delta
			}
			devs[i][k] = dev + sim.sigma*rng.NormFloat64()
		}
	}

	lower = make([]float64, h)
	upper = make([]float64, h)
	qLo, qHi := (1-sim.width)/2, (1+sim.width)/2
	lo, hi := 0.0, 0.0
	for i := range devs {
		sorted := features.SortedCopy(devs[i])
		lo = math.Min(lo, features.Percentile(sorted, qLo))
		hi = math.Max(hi, features.Percentile(sorted, qHi))
		lower[i], upper[i] = lo, hi
	}
	return lower, upper, nil
}
