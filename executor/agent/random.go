package agent

import (
	"context"
	"math/rand/v2"

	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
)

// Random plays uniformly over the legal moves.
type Random struct {
	rng *rand.Rand
}

func (r *Random) sealed() {}

func (r *Random) Name() string { return KindRandom.String() }

func (r *Random) ChooseMove(_ context.Context, b game.Board) (game.Position, error) {
	legal := rules.LegalMoves(b)
	if legal.Empty() {
		return 0, ErrNoLegalMove
	}
	return uniformMove(legal, r.rng), nil
}

func (r *Random) Reset() {}
