// Package game defines the core Othello board types.
//
// A Board is two 64-bit occupancy masks plus the side to move. It is a small
// value type: copying it is the clone, which keeps MCTS tree exploration cheap.
// Move legality and application live in the rules package.
package game

import "math/bits"

const (
	Size  = 8
	Cells = Size * Size
)

// Stone is a player colour.
type Stone uint8

const (
	Black Stone = iota
	White
)

// Opponent returns the other colour.
func (s Stone) Opponent() Stone {
	if s == Black {
		return White
	}
	return Black
}

func (s Stone) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Board is the complete state needed for rules + inference.
// Black and White never share a set bit.
type Board struct {
	Turn  Stone
	Black uint64
	White uint64
}

// NewBoard returns the standard opening position with black to move.
func NewBoard() Board {
	return Board{
		Turn:  Black,
		Black: FromXY(4, 3).Mask() | FromXY(3, 4).Mask(),
		White: FromXY(3, 3).Mask() | FromXY(4, 4).Mask(),
	}
}

// Mover returns the stones of the side to move.
func (b Board) Mover() uint64 {
	if b.Turn == Black {
		return b.Black
	}
	return b.White
}

// Opponent returns the stones of the side not to move.
func (b Board) Opponent() uint64 {
	if b.Turn == Black {
		return b.White
	}
	return b.Black
}

// Stones returns the mask for the given colour.
func (b Board) Stones(s Stone) uint64 {
	if s == Black {
		return b.Black
	}
	return b.White
}

// Occupied returns every cell holding a stone.
func (b Board) Occupied() uint64 {
	return b.Black | b.White
}

// Empty returns every free cell.
func (b Board) Empty() uint64 {
	return ^(b.Black | b.White)
}

// CountStones returns the population count of each colour.
func (b Board) CountStones() (black, white int) {
	return bits.OnesCount64(b.Black), bits.OnesCount64(b.White)
}

// At reports which stone occupies a cell, if any.
func (b Board) At(p Position) (Stone, bool) {
	switch {
	case b.Black&p.Mask() != 0:
		return Black, true
	case b.White&p.Mask() != 0:
		return White, true
	}
	return Black, false
}

// WithSides builds a board from mover-relative masks.
func WithSides(turn Stone, mover, opponent uint64) Board {
	if turn == Black {
		return Board{Turn: Black, Black: mover, White: opponent}
	}
	return Board{Turn: White, Black: opponent, White: mover}
}
