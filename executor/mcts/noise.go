package mcts

import (
	"math"
	"math/rand/v2"

	"github.com/brensch/reversi/game"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distmv"
	"lukechampine.com/frand"
)

// NewRand returns a PCG-backed generator. Seed 0 draws the seed from system entropy.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(frand.Uint64n(math.MaxUint64), frand.Uint64n(math.MaxUint64)))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// mixNoise returns (1-eps)*p + eps*Dir(alpha) over the legal cells,
// renormalised. Illegal cells stay zero.
func mixNoise(rng *rand.Rand, p []float64, legal game.PositionSet, cfg NoiseConfig) []float64 {
	moves := legal.Positions()
	out := make([]float64, game.Cells)
	if len(moves) == 0 {
		return out
	}

	noise := dirichlet(rng, cfg.Alpha, len(moves))
	for i, a := range moves {
		idx := a.Index()
		out[idx] = (1-cfg.Eps)*p[idx] + cfg.Eps*noise[i]
	}

	sum := floats.Sum(out)
	if !(sum > 0) {
		return uniform(legal)
	}
	floats.Scale(1/sum, out)
	return out
}

// dirichlet draws a symmetric Dirichlet sample of size k.
func dirichlet(rng *rand.Rand, alpha float64, k int) []float64 {
	if k == 1 {
		return []float64{1}
	}
	alphas := make([]float64, k)
	for i := range alphas {
		alphas[i] = alpha
	}
	return distmv.NewDirichlet(alphas, rng).Rand(nil)
}
