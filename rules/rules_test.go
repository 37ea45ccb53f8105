package rules

import (
	"math/bits"
	"math/rand/v2"
	"testing"

	"github.com/brensch/reversi/game"
	"github.com/stretchr/testify/require"
)

var dirs = [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

func onBoard(x, y int) bool {
	return x >= 0 && x < game.Size && y >= 0 && y < game.Size
}

func occupant(b game.Board, x, y int) (game.Stone, bool) {
	return b.At(game.FromXY(x, y))
}

// bruteLegal scans every empty cell in all 8 directions.
func bruteLegal(b game.Board) game.PositionSet {
	var out uint64
	for y := 0; y < game.Size; y++ {
		for x := 0; x < game.Size; x++ {
			if _, ok := occupant(b, x, y); ok {
				continue
			}
			if len(bruteFlips(b, x, y)) > 0 {
				out |= game.FromXY(x, y).Mask()
			}
		}
	}
	return game.PositionSet(out)
}

func bruteFlips(b game.Board, x, y int) []game.Position {
	var all []game.Position
	for _, d := range dirs {
		var line []game.Position
		a, c := x+d[0], y+d[1]
		for onBoard(a, c) {
			s, ok := occupant(b, a, c)
			if !ok {
				line = nil
				break
			}
			if s == b.Turn {
				break
			}
			line = append(line, game.FromXY(a, c))
			a, c = a+d[0], c+d[1]
		}
		if !onBoard(a, c) {
			continue
		}
		if s, ok := occupant(b, a, c); ok && s == b.Turn {
			all = append(all, line...)
		}
	}
	return all
}

// randomBoards plays random games from the opening and collects every
// position reached within maxPlies.
func randomBoards(rng *rand.Rand, want, maxPlies int) []game.Board {
	out := make([]game.Board, 0, want)
	for len(out) < want {
		b := game.NewBoard()
		for ply := 0; ply < maxPlies && !IsGameOver(b); ply++ {
			out = append(out, b)
			moves := LegalMoves(b).Positions()
			next, err := Put(b, moves[rng.IntN(len(moves))])
			if err != nil {
				panic(err)
			}
			b = next
		}
	}
	return out
}

func TestOpeningHasFourMoves(t *testing.T) {
	b := game.NewBoard()
	require.Equal(t, game.Black, b.Turn)

	moves := LegalMoves(b)
	require.Equal(t, 4, moves.Count())

	want := map[string]bool{"d2": true, "c3": true, "f4": true, "e5": true}
	for _, p := range moves.Positions() {
		require.True(t, want[p.String()], "unexpected opening move %s", p)
	}
	require.Equal(t, bruteLegal(b), moves)
}

func TestPutFromOpening(t *testing.T) {
	b := game.NewBoard()
	pos, err := game.ParseSquare("d2")
	require.NoError(t, err)

	next, err := Put(b, pos)
	require.NoError(t, err)

	black, white := next.CountStones()
	require.Equal(t, 4, black)
	require.Equal(t, 1, white)
	require.Equal(t, game.White, next.Turn)
	require.Equal(t, bruteLegal(next), LegalMoves(next))
	require.Equal(t, 3, LegalMoves(next).Count())
}

func TestLegalMovesMatchBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	boards := randomBoards(rng, 10000, 30)
	for i, b := range boards {
		got := LegalMoves(b)
		want := bruteLegal(b)
		if got != want {
			t.Fatalf("sample %d: bit-trick=%x brute=%x\n%s", i, uint64(got), uint64(want), b)
		}
	}
}

func TestPutInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	for _, b := range randomBoards(rng, 3000, 60) {
		for _, pos := range LegalMoves(b).Positions() {
			x, y := pos.XY()
			wantFlips := len(bruteFlips(b, x, y))
			require.Equal(t, wantFlips, bits.OnesCount64(Flips(b.Mover(), b.Opponent(), pos)))

			next, err := Put(b, pos)
			require.NoError(t, err)
			require.Zero(t, next.Black&next.White, "masks overlap")

			before := bits.OnesCount64(b.Occupied())
			after := bits.OnesCount64(next.Occupied())
			require.Equal(t, before+1, after)

			moverBefore := bits.OnesCount64(b.Mover())
			moverAfter := bits.OnesCount64(next.Stones(b.Turn))
			require.Equal(t, moverBefore+1+wantFlips, moverAfter)
		}
	}
}

func TestPutRejectsIllegal(t *testing.T) {
	b := game.NewBoard()

	_, err := Put(b, game.FromXY(0, 0))
	require.ErrorIs(t, err, ErrIllegalMove)

	// occupied cell
	_, err = Put(b, game.FromXY(3, 3))
	require.ErrorIs(t, err, ErrIllegalMove)

	// not a single cell
	_, err = Put(b, game.Position(game.FromXY(2, 3).Mask()|game.FromXY(3, 2).Mask()))
	require.ErrorIs(t, err, ErrIllegalMove)
}

func TestPutAfterGameOver(t *testing.T) {
	full := game.Board{Turn: game.Black, Black: ^uint64(0) &^ 1, White: 0}
	require.True(t, IsGameOver(full))

	_, err := Put(full, game.FromIndex(63))
	require.ErrorIs(t, err, ErrGameFinished)
}

func TestPutEndsGame(t *testing.T) {
	// X O . . . . . .  black plays c0 and white is wiped out.
	b := game.Board{
		Turn:  game.Black,
		Black: game.FromXY(0, 0).Mask(),
		White: game.FromXY(1, 0).Mask(),
	}
	next, err := Put(b, game.FromXY(2, 0))
	require.NoError(t, err)
	require.Zero(t, next.White)
	require.True(t, IsGameOver(next))

	_, err = Put(next, game.FromXY(3, 0))
	require.ErrorIs(t, err, ErrGameFinished)
}

func TestSilentPass(t *testing.T) {
	// X O . . . . . .
	// . . . . . . . .
	// X O . . . . . .
	// After black c0, white has no capture but black can still play c2.
	b := game.Board{
		Turn:  game.Black,
		Black: game.FromXY(0, 0).Mask() | game.FromXY(0, 2).Mask(),
		White: game.FromXY(1, 0).Mask() | game.FromXY(1, 2).Mask(),
	}
	next, err := Put(b, game.FromXY(2, 0))
	require.NoError(t, err)
	require.Equal(t, game.Black, next.Turn, "white has no reply so black moves again")
	require.False(t, IsGameOver(next))
	require.False(t, IsPass(next))
	require.True(t, LegalMoves(next).Contains(game.FromXY(2, 2)))

	// Seen from white's side the same position is a pass.
	require.True(t, IsPass(game.WithSides(game.White, next.White, next.Black)))
}

func TestGetResult(t *testing.T) {
	b := game.Board{Black: 0b111, White: 0b11000}
	require.Equal(t, 1.0, GetResult(b, game.Black))
	require.Equal(t, -1.0, GetResult(b, game.White))

	draw := game.Board{Black: 0b11, White: 0b1100}
	require.Equal(t, 0.0, GetResult(draw, game.Black))
	_, ok := Winner(draw)
	require.False(t, ok)
}

func BenchmarkLegalMoves(b *testing.B) {
	rng := rand.New(rand.NewPCG(5, 6))
	boards := randomBoards(rng, 1024, 60)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = LegalMoves(boards[i%len(boards)])
	}
}

func BenchmarkPut(b *testing.B) {
	rng := rand.New(rand.NewPCG(7, 8))
	boards := randomBoards(rng, 1024, 50)
	moves := make([]game.Position, len(boards))
	for i, bd := range boards {
		moves[i] = LegalMoves(bd).Positions()[0]
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		j := i % len(boards)
		_, _ = Put(boards[j], moves[j])
	}
}
