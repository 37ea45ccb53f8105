package mcts

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"gonum.org/v1/gonum/floats"
)

// MCTS is a PUCT search whose statistics live in flat maps keyed by
// (mover, opponent) state rather than in a node tree. Positions reached by
// different move orders share statistics. One MCTS belongs to one game at a
// time; it is not safe for concurrent use.
type MCTS struct {
	Config Config
	Client Predictor

	rng *rand.Rand

	qsa    map[edgeKey]float64
	nsa    map[edgeKey]int
	ns     map[stateKey]int
	ps     map[stateKey][]float64
	noised map[stateKey]bool

	evaluations int
}

// Stats describes the current episode's search statistics.
type Stats struct {
	States      int
	Edges       int
	Evaluations int
}

// New creates a search. A nil rng is seeded from system entropy.
func New(client Predictor, cfg Config, rng *rand.Rand) *MCTS {
	if rng == nil {
		rng = NewRand(0)
	}
	m := &MCTS{Config: cfg, Client: client, rng: rng}
	m.ClearCache()
	return m
}

// ClearCache drops every statistic. Call it between games.
func (m *MCTS) ClearCache() {
	m.qsa = make(map[edgeKey]float64)
	m.nsa = make(map[edgeKey]int)
	m.ns = make(map[stateKey]int)
	m.ps = make(map[stateKey][]float64)
	m.noised = make(map[stateKey]bool)
	m.evaluations = 0
}

// Search runs the given number of simulations from b and returns the
// normalised visit counts of the root moves, indexed like game.Position.Index.
// With explore set, Dirichlet noise is mixed into the root prior the first
// time this root is searched in the episode.
func (m *MCTS) Search(ctx context.Context, b game.Board, simulations int, explore bool) ([]float64, error) {
	root := keyOf(b)

	if explore && !m.noised[root] {
		if _, ok := m.ps[root]; !ok {
			if _, err := m.simulate(b, 0); err != nil {
				return nil, err
			}
		}
		if p, ok := m.ps[root]; ok {
			m.ps[root] = mixNoise(m.rng, p, rules.LegalMoves(b), m.Config.Noise)
			m.noised[root] = true
		}
	}

	for i := 0; i < simulations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := m.simulate(b, 0); err != nil {
			return nil, fmt.Errorf("simulation %d: %w", i, err)
		}
	}

	return m.readout(b, root), nil
}

func (m *MCTS) readout(b game.Board, root stateKey) []float64 {
	legal := rules.LegalMoves(b)
	out := make([]float64, game.Cells)
	total := 0
	for _, a := range legal.Positions() {
		n := m.nsa[edgeKey{root, a}]
		out[a.Index()] = float64(n)
		total += n
	}
	if total == 0 {
		return uniform(legal)
	}
	floats.Scale(1/float64(total), out)
	return out
}

// simulate descends once from b and returns the value of b for its mover.
func (m *MCTS) simulate(b game.Board, depth int) (float64, error) {
	if depth > MaxDepth {
		return 0, ErrDepthExceeded
	}
	if rules.IsGameOver(b) {
		return rules.GetResult(b, b.Turn), nil
	}

	legal := rules.LegalMoves(b)
	if legal.Empty() {
		// mover must pass
		v, err := m.simulate(game.WithSides(b.Turn.Opponent(), b.Opponent(), b.Mover()), depth+1)
		return -v, err
	}

	s := keyOf(b)
	prior, ok := m.ps[s]
	if !ok {
		policy, value, err := m.Client.Predict(b)
		m.evaluations++
		if err != nil {
			return 0, fmt.Errorf("evaluate: %w", err)
		}
		if len(policy) != game.Cells {
			return 0, fmt.Errorf("%w: got %d, want %d", ErrPolicyShape, len(policy), game.Cells)
		}
		m.ps[s] = maskPolicy(policy, legal)
		m.ns[s] = 0
		return float64(value), nil
	}

	sqrtNs := math.Sqrt(float64(m.ns[s]))
	pick := newPicker(m.Config.TieBreak, m.rng)
	for _, a := range legal.Positions() {
		e := edgeKey{s, a}
		u := m.Config.Cpuct * prior[a.Index()] * sqrtNs
		if n, ok := m.nsa[e]; ok {
			u = m.qsa[e] + u/(1+float64(n))
		}
		pick.offer(u, a)
	}

	a := pick.best
	next, err := rules.Put(b, a)
	if err != nil {
		return 0, err
	}
	v, err := m.simulate(next, depth+1)
	if err != nil {
		return 0, err
	}
	if next.Turn != b.Turn {
		v = -v
	}

	e := edgeKey{s, a}
	n := m.nsa[e]
	m.qsa[e] = (float64(n)*m.qsa[e] + v) / float64(n+1)
	m.nsa[e] = n + 1
	m.ns[s]++
	return v, nil
}

// Prior returns a copy of the stored prior for b, or nil if b was never expanded.
func (m *MCTS) Prior(b game.Board) []float64 {
	p, ok := m.ps[keyOf(b)]
	if !ok {
		return nil
	}
	return append([]float64(nil), p...)
}

// Visits returns the raw visit count of every root move.
func (m *MCTS) Visits(b game.Board) []int {
	s := keyOf(b)
	out := make([]int, game.Cells)
	for _, a := range rules.LegalMoves(b).Positions() {
		out[a.Index()] = m.nsa[edgeKey{s, a}]
	}
	return out
}

// StateVisits returns Ns for b.
func (m *MCTS) StateVisits(b game.Board) int {
	return m.ns[keyOf(b)]
}

func (m *MCTS) Stats() Stats {
	return Stats{States: len(m.ps), Edges: len(m.nsa), Evaluations: m.evaluations}
}

// maskPolicy zeroes illegal cells and renormalises. A policy with no usable
// mass on the legal cells becomes uniform over them.
func maskPolicy(policy []float32, legal game.PositionSet) []float64 {
	out := make([]float64, game.Cells)
	for _, a := range legal.Positions() {
		v := float64(policy[a.Index()])
		if v > 0 && !math.IsInf(v, 0) {
			out[a.Index()] = v
		}
	}
	sum := floats.Sum(out)
	if !(sum > 0) || math.IsInf(sum, 0) {
		return uniform(legal)
	}
	floats.Scale(1/sum, out)
	return out
}

func uniform(legal game.PositionSet) []float64 {
	out := make([]float64, game.Cells)
	n := legal.Count()
	if n == 0 {
		return out
	}
	for _, a := range legal.Positions() {
		out[a.Index()] = 1 / float64(n)
	}
	return out
}

// picker keeps the best scored move seen so far.
type picker struct {
	mode  TieBreak
	rng   *rand.Rand
	score float64
	best  game.Position
	ties  int
}

func newPicker(mode TieBreak, rng *rand.Rand) *picker {
	return &picker{mode: mode, rng: rng, score: math.Inf(-1)}
}

func (p *picker) offer(score float64, a game.Position) {
	switch {
	case p.ties == 0 || score > p.score:
		p.score, p.best, p.ties = score, a, 1
	case score == p.score:
		p.ties++
		// reservoir sampling keeps each tied move with probability 1/ties
		if p.mode == TieRandom && p.rng.IntN(p.ties) == 0 {
			p.best = a
		}
	}
}
