package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPositionRoundTrip(t *testing.T) {
	for i := 0; i < Cells; i++ {
		p := FromIndex(i)
		require.True(t, p.Valid())
		require.Equal(t, i, p.Index())

		x, y := p.XY()
		require.Equal(t, p, FromXY(x, y))

		parsed, err := ParseSquare(p.String())
		require.NoError(t, err)
		require.Equal(t, p, parsed)
	}
}

func TestPositionCorners(t *testing.T) {
	require.Equal(t, Position(UpperLeft), FromXY(0, 0))
	require.Equal(t, Position(1), FromXY(7, 7))
	require.Equal(t, "a0", FromIndex(0).String())
	require.Equal(t, "h7", FromIndex(63).String())
}

func TestParseSquareRejects(t *testing.T) {
	for _, in := range []string{"", "a", "a8", "i0", "A0", "00", "a00"} {
		_, err := ParseSquare(in)
		require.Error(t, err, "input %q", in)
	}
}

func TestPositionSet(t *testing.T) {
	set := PositionSet(FromXY(2, 3).Mask() | FromXY(0, 0).Mask() | FromXY(7, 7).Mask())
	require.Equal(t, 3, set.Count())
	require.Equal(t, []Position{FromXY(0, 0), FromXY(2, 3), FromXY(7, 7)}, set.Positions())
	require.True(t, set.Contains(FromXY(2, 3)))
	require.False(t, set.Contains(FromXY(3, 2)))

	second, ok := set.Nth(1)
	require.True(t, ok)
	require.Equal(t, FromXY(2, 3), second)
	_, ok = set.Nth(3)
	require.False(t, ok)

	grid := set.Grid()
	require.True(t, grid[3][2])
	require.True(t, grid[0][0])
	require.False(t, grid[2][3])
	require.Equal(t, set, FromGrid(grid))

	mask := set.Mask()
	require.Len(t, mask, Cells)
	require.Equal(t, 1.0, mask[FromXY(2, 3).Index()])
	require.Equal(t, 0.0, mask[1])
}

func TestNewBoard(t *testing.T) {
	b := NewBoard()
	require.Equal(t, Black, b.Turn)
	require.Zero(t, b.Black&b.White)

	black, white := b.CountStones()
	require.Equal(t, 2, black)
	require.Equal(t, 2, white)

	s, ok := b.At(FromXY(3, 3))
	require.True(t, ok)
	require.Equal(t, White, s)
	s, ok = b.At(FromXY(4, 3))
	require.True(t, ok)
	require.Equal(t, Black, s)
	_, ok = b.At(FromXY(0, 0))
	require.False(t, ok)

	require.Equal(t, b.Black, b.Mover())
	require.Equal(t, b.White, b.Opponent())
	require.Equal(t, b, WithSides(Black, b.Black, b.White))
}

func TestBoardString(t *testing.T) {
	out := NewBoard().String()
	require.Contains(t, out, "  a b c d e f g h\n")
	require.Contains(t, out, "3 . . . O X . . .\n")
	require.Contains(t, out, "4 . . . X O . . .\n")
	require.Contains(t, out, "turn=black black=2 white=2")
}
