package agent

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/brensch/reversi/executor/mcts"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
)

// UCT plays the most visited move of a prior-free tree search.
type UCT struct {
	search      *mcts.UCT
	simulations int
	tieBreak    mcts.TieBreak
	rng         *rand.Rand
}

func (u *UCT) sealed() {}

func (u *UCT) Name() string { return KindUCT.String() }

func (u *UCT) ChooseMove(ctx context.Context, b game.Board) (game.Position, error) {
	legal := rules.LegalMoves(b)
	if legal.Empty() {
		return 0, ErrNoLegalMove
	}
	dist, err := u.search.Search(ctx, b, u.simulations)
	if err != nil {
		return 0, fmt.Errorf("uct search: %w", err)
	}
	pos, _ := mcts.BestMove(dist, legal, u.tieBreak, u.rng)
	return pos, nil
}

func (u *UCT) Reset() { u.search.ClearCache() }
