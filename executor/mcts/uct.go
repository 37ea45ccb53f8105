package mcts

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
)

// UCTConfig configures the prior-free search.
type UCTConfig struct {
	// C is the UCB1 exploration constant.
	C float64
	// Cutoff stops a rollout after this many plies and scores the stone
	// difference instead of playing to the end. Zero plays to the end.
	Cutoff   int
	TieBreak TieBreak
}

func DefaultUCTConfig() UCTConfig {
	return UCTConfig{C: math.Sqrt2, TieBreak: TieRandom}
}

// UCT is Monte Carlo tree search without a learned evaluator: UCB1 selection
// and random rollouts. Statistics share the (mover, opponent) keying of MCTS.
type UCT struct {
	Config UCTConfig

	rng *rand.Rand

	wsa map[edgeKey]float64
	nsa map[edgeKey]int
	ns  map[stateKey]int
}

func NewUCT(cfg UCTConfig, rng *rand.Rand) *UCT {
	if rng == nil {
		rng = NewRand(0)
	}
	u := &UCT{Config: cfg, rng: rng}
	u.ClearCache()
	return u
}

func (u *UCT) ClearCache() {
	u.wsa = make(map[edgeKey]float64)
	u.nsa = make(map[edgeKey]int)
	u.ns = make(map[stateKey]int)
}

// Search runs simulations from b and returns normalised root visit counts.
func (u *UCT) Search(ctx context.Context, b game.Board, simulations int) ([]float64, error) {
	for i := 0; i < simulations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := u.simulate(b, 0); err != nil {
			return nil, fmt.Errorf("simulation %d: %w", i, err)
		}
	}

	root := keyOf(b)
	legal := rules.LegalMoves(b)
	out := make([]float64, game.Cells)
	total := 0
	for _, a := range legal.Positions() {
		n := u.nsa[edgeKey{root, a}]
		out[a.Index()] = float64(n)
		total += n
	}
	if total == 0 {
		return uniform(legal), nil
	}
	for i := range out {
		out[i] /= float64(total)
	}
	return out, nil
}

func (u *UCT) simulate(b game.Board, depth int) (float64, error) {
	if depth > MaxDepth {
		return 0, ErrDepthExceeded
	}
	if rules.IsGameOver(b) {
		return rules.GetResult(b, b.Turn), nil
	}
	legal := rules.LegalMoves(b)
	if legal.Empty() {
		v, err := u.simulate(game.WithSides(b.Turn.Opponent(), b.Opponent(), b.Mover()), depth+1)
		return -v, err
	}

	s := keyOf(b)
	ns, expanded := u.ns[s]
	if !expanded {
		u.ns[s] = 0
		return u.rollout(b)
	}

	logNs := math.Log(float64(max(ns, 1)))
	pick := newPicker(u.Config.TieBreak, u.rng)
	for _, a := range legal.Positions() {
		e := edgeKey{s, a}
		n := u.nsa[e]
		score := math.Inf(1)
		if n > 0 {
			score = u.wsa[e]/float64(n) + u.Config.C*math.Sqrt(logNs/float64(n))
		}
		pick.offer(score, a)
	}

	a := pick.best
	next, err := rules.Put(b, a)
	if err != nil {
		return 0, err
	}
	v, err := u.simulate(next, depth+1)
	if err != nil {
		return 0, err
	}
	if next.Turn != b.Turn {
		v = -v
	}

	e := edgeKey{s, a}
	u.wsa[e] += v
	u.nsa[e]++
	u.ns[s]++
	return v, nil
}

// rollout plays uniformly random moves and scores the result for b's mover.
func (u *UCT) rollout(b game.Board) (float64, error) {
	me := b.Turn
	cur := b
	for ply := 0; !rules.IsGameOver(cur); ply++ {
		if u.Config.Cutoff > 0 && ply >= u.Config.Cutoff {
			return StoneDifference(cur, me), nil
		}
		legal := rules.LegalMoves(cur)
		a, _ := legal.Nth(u.rng.IntN(legal.Count()))
		next, err := rules.Put(cur, a)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	return rules.GetResult(cur, me), nil
}

// StoneDifference scores a position in [-1, 1] by the stone balance for s.
func StoneDifference(b game.Board, s game.Stone) float64 {
	black, white := b.CountStones()
	if black+white == 0 {
		return 0
	}
	d := float64(black-white) / float64(black+white)
	if s == game.White {
		return -d
	}
	return d
}
