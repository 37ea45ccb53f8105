package mcts

import (
	"context"
	"os"
	"testing"

	"github.com/brensch/reversi/executor/inference"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/stretchr/testify/require"
)

// TestSearchWithOnnx runs a short search against a real model when one is
// available through REVERSI_ONNX_MODEL.
func TestSearchWithOnnx(t *testing.T) {
	modelPath := os.Getenv("REVERSI_ONNX_MODEL")
	if modelPath == "" {
		t.Skip("REVERSI_ONNX_MODEL not set")
	}
	client, err := inference.NewOnnxClientWithConfig(modelPath, inference.OnnxClientConfig{DisableCUDA: true})
	if err != nil {
		t.Skipf("onnx runtime unavailable: %v", err)
	}
	defer client.Close()

	m := New(client, DefaultConfig(), NewRand(31))
	b := game.NewBoard()
	for ply := 0; ply < 6; ply++ {
		dist, err := m.Search(context.Background(), b, 32, true)
		require.NoError(t, err)
		requireDistribution(t, dist, rules.LegalMoves(b))

		b, err = rules.Put(b, argmax(dist))
		require.NoError(t, err)
	}
	t.Logf("stats: %+v runtime: %+v", m.Stats(), client.Stats())
}
