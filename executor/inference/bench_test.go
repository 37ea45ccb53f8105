package inference

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/reversi/executor/convert"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/stretchr/testify/require"
)

func TestMissingModelIsEvaluatorError(t *testing.T) {
	_, err := NewOnnxClient(filepath.Join(t.TempDir(), "missing.onnx"))
	require.ErrorIs(t, err, ErrEvaluator)

	_, err = NewOnnxClientPool(filepath.Join(t.TempDir(), "missing.onnx"), 2)
	require.ErrorIs(t, err, ErrEvaluator)

	for _, sessions := range []int{1, 3} {
		ev, err := Open(filepath.Join(t.TempDir(), "missing.onnx"), sessions, OnnxClientConfig{})
		require.ErrorIs(t, err, ErrEvaluator)
		require.Nil(t, ev)
	}
}

func TestEmptyModelBytesIsEvaluatorError(t *testing.T) {
	_, err := NewOnnxClientFromBytes(nil)
	require.ErrorIs(t, err, ErrEvaluator)
}

func TestEmptyPool(t *testing.T) {
	p := &OnnxPool{}
	_, _, err := p.Predict(game.NewBoard())
	require.ErrorIs(t, err, ErrEvaluator)
	require.Zero(t, p.Stats().TotalBatches)
}

func findModel() string {
	candidates := []string{
		"../../models/othello_net.onnx",
		"../../models/model.onnx",
	}
	if p := os.Getenv("REVERSI_ONNX_MODEL"); p != "" {
		candidates = append([]string{p}, candidates...)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func TestOnnxPredictShapes(t *testing.T) {
	modelPath := findModel()
	if modelPath == "" {
		t.Skip("ONNX model not found; set REVERSI_ONNX_MODEL")
	}
	client, err := NewOnnxClientWithConfig(modelPath, OnnxClientConfig{DisableCUDA: true})
	if err != nil {
		t.Skipf("onnx runtime unavailable: %v", err)
	}
	defer client.Close()

	policy, value, err := client.Predict(game.NewBoard())
	require.NoError(t, err)
	require.Len(t, policy, PolicySize)
	require.GreaterOrEqual(t, value, float32(-1))
	require.LessOrEqual(t, value, float32(1))

	st := client.Stats()
	require.Equal(t, int64(1), st.TotalBatches)
	require.Equal(t, int64(1), st.TotalItems)
}

func randomBoards(r *rand.Rand, n int) []game.Board {
	out := make([]game.Board, 0, n)
	for len(out) < n {
		b := game.NewBoard()
		for !rules.IsGameOver(b) && len(out) < n {
			out = append(out, b)
			moves := rules.LegalMoves(b).Positions()
			b, _ = rules.Put(b, moves[r.IntN(len(moves))])
		}
	}
	return out
}

func BenchmarkBoardToFloat32(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 1))
	boards := randomBoards(r, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ptr := convert.BoardToFloat32(boards[i%len(boards)])
		convert.PutFloatBuffer(ptr)
	}
}

func BenchmarkOnnxPredict(b *testing.B) {
	modelPath := findModel()
	if modelPath == "" {
		b.Skip("ONNX model not found; set REVERSI_ONNX_MODEL")
	}
	pool, err := NewOnnxClientPool(modelPath, 1)
	if err != nil {
		b.Skipf("onnx runtime unavailable: %v", err)
	}
	defer pool.Close()

	r := rand.New(rand.NewPCG(2, 2))
	boards := randomBoards(r, 1024)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, _, err := pool.Predict(boards[i%len(boards)]); err != nil {
				b.Fatalf("predict: %v", err)
			}
			i++
		}
	})
	b.StopTimer()
	st := pool.Stats()
	b.ReportMetric(st.AvgBatchSize, "batch")
	b.ReportMetric(st.AvgRunMs, "ms/batch")
}
