package rules

import (
	"errors"
	"fmt"

	"github.com/brensch/reversi/game"
)

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrGameFinished = errors.New("game already finished")
)

// Edge masks keep shifted chains from wrapping across the board edge.
const (
	maskHorizontal = 0x7e7e7e7e7e7e7e7e
	maskVertical   = 0x00ffffffffffff00
	maskDiagonal   = 0x007e7e7e7e7e7e00
)

// shift moves bits by n toward the upper-left (left=true) or lower-right.
func shift(b uint64, n uint, left bool) uint64 {
	if left {
		return b << n
	}
	return b >> n
}

var axes = [4]struct {
	n    uint
	mask uint64
}{
	{1, maskHorizontal},
	{7, maskDiagonal},
	{8, maskVertical},
	{9, maskDiagonal},
}

// LegalMask returns every empty cell where mover flips at least one line.
func LegalMask(mover, opponent uint64) uint64 {
	var candidate uint64
	for _, ax := range axes {
		inner := ax.mask & opponent
		for _, left := range [2]bool{false, true} {
			chain := inner & shift(mover, ax.n, left)
			for i := 0; i < game.Size-3; i++ {
				chain |= inner & shift(chain, ax.n, left)
			}
			candidate |= shift(chain, ax.n, left)
		}
	}
	return candidate &^ (mover | opponent)
}

// LegalMoves returns the legal-move set of the side to move.
func LegalMoves(b game.Board) game.PositionSet {
	return game.PositionSet(LegalMask(b.Mover(), b.Opponent()))
}

// directions pairs each shift with the mask that drops wrapped bits.
var directions = [8]struct {
	n    uint
	left bool
	mask uint64
}{
	{1, true, 0xfefefefefefefefe},
	{1, false, 0x7f7f7f7f7f7f7f7f},
	{7, true, 0x7f7f7f7f7f7f7f00},
	{7, false, 0x00fefefefefefefe},
	{8, true, 0xffffffffffffff00},
	{8, false, 0x00ffffffffffffff},
	{9, true, 0xfefefefefefefe00},
	{9, false, 0x007f7f7f7f7f7f7f},
}

// Flips returns the opponent stones captured by mover playing pos.
func Flips(mover, opponent uint64, pos game.Position) uint64 {
	var flips uint64
	for _, d := range directions {
		var line uint64
		cur := d.mask & shift(pos.Mask(), d.n, d.left)
		for cur&opponent != 0 {
			line |= cur
			cur = d.mask & shift(cur, d.n, d.left)
		}
		if cur&mover != 0 {
			flips |= line
		}
	}
	return flips
}

// IsGameOver reports whether neither side has a legal move.
func IsGameOver(b game.Board) bool {
	return LegalMask(b.Mover(), b.Opponent()) == 0 && LegalMask(b.Opponent(), b.Mover()) == 0
}

// IsPass reports whether the mover must pass while the opponent can still play.
func IsPass(b game.Board) bool {
	return LegalMask(b.Mover(), b.Opponent()) == 0 && LegalMask(b.Opponent(), b.Mover()) != 0
}

// Put plays pos for the side to move and returns the resulting board.
// The turn passes to the opponent only if they have a legal reply.
func Put(b game.Board, pos game.Position) (game.Board, error) {
	mover, opponent := b.Mover(), b.Opponent()
	legal := LegalMask(mover, opponent)
	if legal == 0 && LegalMask(opponent, mover) == 0 {
		return b, ErrGameFinished
	}
	if !pos.Valid() || legal&pos.Mask() == 0 {
		return b, fmt.Errorf("%w: %s to play %s", ErrIllegalMove, b.Turn, pos)
	}

	flips := Flips(mover, opponent, pos)
	mover |= pos.Mask() | flips
	opponent &^= flips

	next := b.Turn
	if LegalMask(opponent, mover) != 0 {
		next = b.Turn.Opponent()
	}
	if b.Turn == game.Black {
		return game.Board{Turn: next, Black: mover, White: opponent}, nil
	}
	return game.Board{Turn: next, Black: opponent, White: mover}, nil
}

// GetResult returns +1, -1 or 0 for the given colour by final stone count.
func GetResult(b game.Board, s game.Stone) float64 {
	black, white := b.CountStones()
	res := 0.0
	switch {
	case black > white:
		res = 1
	case black < white:
		res = -1
	}
	if s == game.White {
		return -res
	}
	return res
}

// Winner returns the colour with more stones; ok is false on a draw.
func Winner(b game.Board) (game.Stone, bool) {
	black, white := b.CountStones()
	switch {
	case black > white:
		return game.Black, true
	case white > black:
		return game.White, true
	}
	return game.Black, false
}
