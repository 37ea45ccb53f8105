package convert

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/brensch/reversi/game"
)

const (
	Width         = game.Size
	Height        = game.Size
	Channels      = 2
	BytesPerFloat = 4
	BufferSize    = Channels * Width * Height * BytesPerFloat
	FloatSize     = Channels * Width * Height
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, BufferSize)
		return &b
	},
}

var floatPool = sync.Pool{
	New: func() interface{} {
		b := make([]float32, FloatSize)
		return &b
	},
}

// GetBuffer returns a buffer from the pool.
func GetBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

// PutBuffer returns a buffer to the pool.
func PutBuffer(b *[]byte) {
	bufferPool.Put(b)
}

func GetFloatBuffer() *[]float32 {
	return floatPool.Get().(*[]float32)
}

func PutFloatBuffer(b *[]float32) {
	floatPool.Put(b)
}

// BoardToFloat32 encodes the board into a pooled float32 slice suitable for ONNX input.
// Output shape: [Channels, Height, Width] (C, H, W)
// Channel 0 holds the stones of the side to move, channel 1 the opponent's.
// Returns a pointer to the float slice. Caller must return it to pool using PutFloatBuffer.
func BoardToFloat32(b game.Board) *[]float32 {
	dataPtr := GetFloatBuffer()
	data := *dataPtr
	clear(data)

	mover, opponent := b.Mover(), b.Opponent()
	for i := 0; i < game.Cells; i++ {
		bit := game.UpperLeft >> uint(i)
		if mover&bit != 0 {
			data[i] = 1
		}
		if opponent&bit != 0 {
			data[game.Cells+i] = 1
		}
	}
	return dataPtr
}

// BoardToBytes flattens the board into the same (C, H, W) layout as BoardToFloat32.
// Format: Float32 (Little Endian)
// Returns a pointer to the byte slice. Caller must return it to pool using PutBuffer.
func BoardToBytes(b game.Board) *[]byte {
	dataPtr := GetBuffer()
	data := *dataPtr
	clear(data)

	one := math.Float32bits(1)
	mover, opponent := b.Mover(), b.Opponent()
	for i := 0; i < game.Cells; i++ {
		bit := game.UpperLeft >> uint(i)
		if mover&bit != 0 {
			binary.LittleEndian.PutUint32(data[i*BytesPerFloat:], one)
		}
		if opponent&bit != 0 {
			binary.LittleEndian.PutUint32(data[(game.Cells+i)*BytesPerFloat:], one)
		}
	}
	return dataPtr
}

// BytesToFloat32 decodes a buffer produced by BoardToBytes.
func BytesToFloat32(data []byte) []float32 {
	out := make([]float32, len(data)/BytesPerFloat)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*BytesPerFloat:]))
	}
	return out
}

// Planes returns the two stone masks (mover, opponent) encoded in a float tensor.
func Planes(data []float32) (mover, opponent uint64) {
	for i := 0; i < game.Cells && game.Cells+i < len(data); i++ {
		bit := game.UpperLeft >> uint(i)
		if data[i] != 0 {
			mover |= bit
		}
		if data[game.Cells+i] != 0 {
			opponent |= bit
		}
	}
	return mover, opponent
}
