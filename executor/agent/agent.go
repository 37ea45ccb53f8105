// Package agent holds the move-choosing players: the network-guided search
// player and the baselines it is measured against.
package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/brensch/reversi/executor/mcts"
	"github.com/brensch/reversi/game"
)

// ErrNoLegalMove is returned when the side to move has nothing to play.
var ErrNoLegalMove = errors.New("no legal move")

// Agent chooses moves for whichever side is to move on the board it is given.
// The set of agents is closed; use New to construct one.
type Agent interface {
	Name() string
	ChooseMove(ctx context.Context, b game.Board) (game.Position, error)
	// Reset forgets per-game state such as search statistics.
	Reset()

	sealed()
}

type Kind int

const (
	KindAlphaZero Kind = iota
	KindGreedy
	KindRandom
	KindUCT
)

var kindNames = map[Kind]string{
	KindAlphaZero: "alphazero",
	KindGreedy:    "greedy",
	KindRandom:    "random",
	KindUCT:       "uct",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown agent kind %q", s)
}

// Options configures New. Zero values fall back to DefaultOptions.
type Options struct {
	// Predictor is required for KindAlphaZero.
	Predictor   mcts.Predictor
	Simulations int
	Search      mcts.Config
	UCT         mcts.UCTConfig
	// GreedyP is the probability that the greedy agent plays greedily.
	GreedyP        float64
	GreedyTieBreak mcts.TieBreak
	// MoveTieBreak resolves equal visit counts when search agents pick a move.
	MoveTieBreak mcts.TieBreak
	// Seed fixes the agent's randomness. Zero seeds from system entropy.
	Seed uint64
}

func DefaultOptions() Options {
	return Options{
		Simulations:    100,
		Search:         mcts.DefaultConfig(),
		UCT:            mcts.DefaultUCTConfig(),
		GreedyP:        0.8,
		GreedyTieBreak: mcts.TieFirst,
		MoveTieBreak:   mcts.TieRandom,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Simulations <= 0 {
		o.Simulations = d.Simulations
	}
	if o.Search == (mcts.Config{}) {
		o.Search = d.Search
	}
	if o.UCT == (mcts.UCTConfig{}) {
		o.UCT = d.UCT
	}
	if o.GreedyP == 0 {
		o.GreedyP = d.GreedyP
	}
	return o
}

// New builds an agent of the given kind.
func New(kind Kind, opts Options) (Agent, error) {
	opts = opts.withDefaults()
	rng := mcts.NewRand(opts.Seed)

	switch kind {
	case KindAlphaZero:
		if opts.Predictor == nil {
			return nil, fmt.Errorf("%s agent needs a predictor", kind)
		}
		return &AlphaZero{
			search:      mcts.New(opts.Predictor, opts.Search, rng),
			simulations: opts.Simulations,
			tieBreak:    opts.MoveTieBreak,
			rng:         rng,
		}, nil
	case KindGreedy:
		return &Greedy{p: opts.GreedyP, tieBreak: opts.GreedyTieBreak, rng: rng}, nil
	case KindRandom:
		return &Random{rng: rng}, nil
	case KindUCT:
		return &UCT{
			search:      mcts.NewUCT(opts.UCT, rng),
			simulations: opts.Simulations,
			tieBreak:    opts.MoveTieBreak,
			rng:         rng,
		}, nil
	}
	return nil, fmt.Errorf("unknown agent kind %d", int(kind))
}

// uniformMove picks uniformly among the legal moves.
func uniformMove(legal game.PositionSet, rng *rand.Rand) game.Position {
	p, _ := legal.Nth(rng.IntN(legal.Count()))
	return p
}
