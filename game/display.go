package game

import (
	"strconv"
	"strings"
)

// String renders the board with column letters and row digits, e.g.
//
//	  a b c d e f g h
//	0 . . . . . . . .
//	...
//	3 . . . O X . . .
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")
	for y := 0; y < Size; y++ {
		sb.WriteByte(byte('0' + y))
		for x := 0; x < Size; x++ {
			sb.WriteByte(' ')
			s, ok := b.At(FromXY(x, y))
			switch {
			case !ok:
				sb.WriteByte('.')
			case s == Black:
				sb.WriteByte('X')
			default:
				sb.WriteByte('O')
			}
		}
		sb.WriteByte('\n')
	}
	black, white := b.CountStones()
	sb.WriteString("turn=")
	sb.WriteString(b.Turn.String())
	sb.WriteString(" black=")
	sb.WriteString(strconv.Itoa(black))
	sb.WriteString(" white=")
	sb.WriteString(strconv.Itoa(white))
	return sb.String()
}
