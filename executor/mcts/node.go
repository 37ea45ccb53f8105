package mcts

import (
	"errors"

	"github.com/brensch/reversi/game"
)

var (
	// ErrPolicyShape is returned when the evaluator's policy is not one entry per cell.
	ErrPolicyShape = errors.New("policy has wrong length")
	// ErrDepthExceeded guards the recursive descent against malformed boards.
	ErrDepthExceeded = errors.New("search depth exceeded")
)

// MaxDepth bounds one simulation. A legal game never exceeds 60 plies.
const MaxDepth = game.Cells

// TieBreak selects between equally scored moves.
type TieBreak int

const (
	// TieFirst picks the lowest cell index.
	TieFirst TieBreak = iota
	// TieRandom picks uniformly among the tied moves.
	TieRandom
)

func (t TieBreak) String() string {
	if t == TieRandom {
		return "random"
	}
	return "first"
}

// NoiseConfig controls Dirichlet noise mixed into the root prior when exploring.
type NoiseConfig struct {
	Eps   float64
	Alpha float64
}

// Config holds MCTS configuration
type Config struct {
	Cpuct    float64
	TieBreak TieBreak
	Noise    NoiseConfig
}

func DefaultConfig() Config {
	return Config{
		Cpuct:    1.0,
		TieBreak: TieFirst,
		Noise:    NoiseConfig{Eps: 0.25, Alpha: 0.35},
	}
}

// Predictor defines the interface for inference.
// The policy holds one probability per cell (indexed like game.Position.Index)
// and the value is from the point of view of the side to move.
type Predictor interface {
	Predict(b game.Board) (policy []float32, value float32, err error)
}

// stateKey identifies a position by the side to move and the side waiting.
// Two boards with the same stones but different movers are different states.
type stateKey struct {
	mover, opponent uint64
}

func keyOf(b game.Board) stateKey {
	return stateKey{mover: b.Mover(), opponent: b.Opponent()}
}

type edgeKey struct {
	s stateKey
	a game.Position
}
