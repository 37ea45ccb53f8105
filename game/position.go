package game

import (
	"fmt"
	"math/bits"
)

// UpperLeft is the mask of cell (0,0). Index i maps to UpperLeft >> i.
const UpperLeft uint64 = 1 << 63

// Position is a single cell as a one-bit mask.
type Position uint64

// FromIndex converts a row-major index 0..63.
func FromIndex(i int) Position {
	return Position(UpperLeft >> uint(i))
}

// FromXY converts column x and row y.
func FromXY(x, y int) Position {
	return FromIndex(y*Size + x)
}

// ParseSquare reads "[a-h][0-7]": column letter then row digit.
func ParseSquare(s string) (Position, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("invalid square %q: must be [a-h][0-7]", s)
	}
	x := int(s[0]) - 'a'
	y := int(s[1]) - '0'
	if x < 0 || x >= Size || y < 0 || y >= Size {
		return 0, fmt.Errorf("invalid square %q: must be [a-h][0-7]", s)
	}
	return FromXY(x, y), nil
}

func (p Position) Mask() uint64 { return uint64(p) }

// Index returns the row-major index. Only meaningful for single-bit positions.
func (p Position) Index() int {
	return bits.LeadingZeros64(uint64(p))
}

func (p Position) XY() (x, y int) {
	i := p.Index()
	return i % Size, i / Size
}

// Valid reports whether exactly one bit is set.
func (p Position) Valid() bool {
	return bits.OnesCount64(uint64(p)) == 1
}

func (p Position) String() string {
	if !p.Valid() {
		return "--"
	}
	x, y := p.XY()
	return string([]byte{byte('a' + x), byte('0' + y)})
}

// PositionSet is a mask of cells, typically the legal moves of the mover.
type PositionSet uint64

func (s PositionSet) Count() int { return bits.OnesCount64(uint64(s)) }

func (s PositionSet) Empty() bool { return s == 0 }

func (s PositionSet) Contains(p Position) bool {
	return uint64(s)&uint64(p) != 0
}

// Positions lists members in ascending index order (upper-left first).
func (s PositionSet) Positions() []Position {
	out := make([]Position, 0, s.Count())
	rest := uint64(s)
	for rest != 0 {
		top := UpperLeft >> uint(bits.LeadingZeros64(rest))
		out = append(out, Position(top))
		rest &^= top
	}
	return out
}

// Nth returns the n-th member in ascending index order.
func (s PositionSet) Nth(n int) (Position, bool) {
	rest := uint64(s)
	for rest != 0 {
		top := UpperLeft >> uint(bits.LeadingZeros64(rest))
		if n == 0 {
			return Position(top), true
		}
		n--
		rest &^= top
	}
	return 0, false
}

// Grid expands the set into [y][x] booleans.
func (s PositionSet) Grid() [Size][Size]bool {
	var g [Size][Size]bool
	for i := 0; i < Cells; i++ {
		if uint64(s)&(UpperLeft>>uint(i)) != 0 {
			g[i/Size][i%Size] = true
		}
	}
	return g
}

// Mask returns a 64-entry 0/1 vector indexed like Position.Index.
func (s PositionSet) Mask() []float64 {
	out := make([]float64, Cells)
	for i := range out {
		if uint64(s)&(UpperLeft>>uint(i)) != 0 {
			out[i] = 1
		}
	}
	return out
}

// FromGrid packs a [y][x] grid back into a set.
func FromGrid(g [Size][Size]bool) PositionSet {
	var s uint64
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if g[y][x] {
				s |= FromXY(x, y).Mask()
			}
		}
	}
	return PositionSet(s)
}
