package agent

import (
	"context"
	"math/bits"
	"math/rand/v2"

	"github.com/brensch/reversi/executor/mcts"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
)

// Greedy maximises its stone count after the move with probability p and
// otherwise plays a uniformly random legal move.
type Greedy struct {
	p        float64
	tieBreak mcts.TieBreak
	rng      *rand.Rand
}

func (g *Greedy) sealed() {}

func (g *Greedy) Name() string { return KindGreedy.String() }

func (g *Greedy) ChooseMove(_ context.Context, b game.Board) (game.Position, error) {
	legal := rules.LegalMoves(b)
	if legal.Empty() {
		return 0, ErrNoLegalMove
	}
	if g.rng.Float64() >= g.p {
		return uniformMove(legal, g.rng), nil
	}

	scores := make([]float64, game.Cells)
	for _, pos := range legal.Positions() {
		flips := rules.Flips(b.Mover(), b.Opponent(), pos)
		scores[pos.Index()] = float64(bits.OnesCount64(b.Mover()) + 1 + bits.OnesCount64(flips))
	}
	pos, _ := mcts.BestMove(scores, legal, g.tieBreak, g.rng)
	return pos, nil
}

func (g *Greedy) Reset() {}
