// visualize.go - Console visualization for debugging self-play games.
//
// PrintBoard outputs an ASCII representation of the board and the network
// input planes at debug level.
package selfplay

import (
	"fmt"
	"strings"

	"github.com/brensch/reversi/executor/convert"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/rs/zerolog/log"
)

func PrintBoard(b game.Board) {
	if e := log.Debug(); e.Enabled() {
		e.Msg(FormatBoard(b))
	}
}

// FormatBoard renders the board, the legal moves and both input planes.
func FormatBoard(b game.Board) string {
	var sb strings.Builder
	black, white := b.CountStones()
	sb.WriteString(fmt.Sprintf("\n=== TRACE %s to move (black=%d white=%d) ===\n", b.Turn, black, white))

	legal := rules.LegalMoves(b)
	sb.WriteString("  a b c d e f g h\n")
	for y := 0; y < game.Size; y++ {
		sb.WriteString(fmt.Sprintf("%d", y))
		for x := 0; x < game.Size; x++ {
			p := game.FromXY(x, y)
			c := "."
			if s, ok := b.At(p); ok {
				c = "X"
				if s == game.White {
					c = "O"
				}
			} else if legal.Contains(p) {
				c = "*"
			}
			sb.WriteString(" " + c)
		}
		sb.WriteString("\n")
	}

	ptr := convert.BoardToFloat32(b)
	defer convert.PutFloatBuffer(ptr)
	data := *ptr
	for c, name := range []string{"mover", "opponent"} {
		sb.WriteString(fmt.Sprintf("-- channel %d (%s) --\n", c, name))
		for y := 0; y < convert.Height; y++ {
			for x := 0; x < convert.Width; x++ {
				sb.WriteString(fmt.Sprintf("%.0f ", data[c*convert.Height*convert.Width+y*convert.Width+x]))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
