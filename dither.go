package scnorm

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// ditherNonzero jitters the nonzero entries of vals in place with uniform
// noise on (-0.5, 0.5), breaking the ties among equal integer counts that
// destabilize quantile regression. Zero counts stay zero. The noise stream
// is a PCG seeded from seed and stream, built sequentially, so results are
// bit-reproducible and independent of worker scheduling.
func ditherNonzero(vals []float64, seed, stream uint64) {
	u := distuv.Uniform{Min: -0.5, Max: 0.5, Src: rand.NewPCG(seed, stream)}
	for i, v := range vals {
		if v > 0 {
			vals[i] = v + u.Rand()
		}
	}
}
