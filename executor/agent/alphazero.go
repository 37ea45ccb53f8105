package agent

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/brensch/reversi/executor/mcts"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
)

// AlphaZero plays the most visited move of a network-guided PUCT search.
type AlphaZero struct {
	search      *mcts.MCTS
	simulations int
	tieBreak    mcts.TieBreak
	rng         *rand.Rand
}

func (a *AlphaZero) sealed() {}

func (a *AlphaZero) Name() string { return KindAlphaZero.String() }

func (a *AlphaZero) ChooseMove(ctx context.Context, b game.Board) (game.Position, error) {
	legal := rules.LegalMoves(b)
	if legal.Empty() {
		return 0, ErrNoLegalMove
	}
	dist, err := a.search.Search(ctx, b, a.simulations, false)
	if err != nil {
		return 0, fmt.Errorf("alphazero search: %w", err)
	}
	pos, _ := mcts.BestMove(dist, legal, a.tieBreak, a.rng)
	return pos, nil
}

func (a *AlphaZero) Reset() { a.search.ClearCache() }

// Stats exposes the underlying search statistics.
func (a *AlphaZero) Stats() mcts.Stats { return a.search.Stats() }
