package mcts

import (
	"math/rand/v2"

	"github.com/brensch/reversi/game"
)

// BestMove returns the legal move with the highest probability in dist.
func BestMove(dist []float64, legal game.PositionSet, tb TieBreak, rng *rand.Rand) (game.Position, bool) {
	if legal.Empty() || len(dist) != game.Cells {
		return 0, false
	}
	pick := newPicker(tb, rng)
	for _, a := range legal.Positions() {
		pick.offer(dist[a.Index()], a)
	}
	return pick.best, true
}

// SampleMove draws a legal move proportionally to dist. A distribution with
// no mass on the legal set falls back to a uniform draw.
func SampleMove(dist []float64, legal game.PositionSet, rng *rand.Rand) (game.Position, bool) {
	moves := legal.Positions()
	if len(moves) == 0 || len(dist) != game.Cells {
		return 0, false
	}
	total := 0.0
	for _, a := range moves {
		total += dist[a.Index()]
	}
	if !(total > 0) {
		return moves[rng.IntN(len(moves))], true
	}
	r := rng.Float64() * total
	for _, a := range moves {
		r -= dist[a.Index()]
		if r < 0 {
			return a, true
		}
	}
	return moves[len(moves)-1], true
}
