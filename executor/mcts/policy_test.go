package mcts

import (
	"testing"

	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/stretchr/testify/require"
)

func TestBestMove(t *testing.T) {
	b := game.NewBoard()
	legal := rules.LegalMoves(b)
	moves := legal.Positions()

	dist := make([]float64, game.Cells)
	dist[moves[2].Index()] = 0.7
	dist[moves[0].Index()] = 0.3
	// illegal cells never win
	dist[0] = 0.99

	got, ok := BestMove(dist, legal, TieFirst, NewRand(1))
	require.True(t, ok)
	require.Equal(t, moves[2], got)

	_, ok = BestMove(dist, 0, TieFirst, NewRand(1))
	require.False(t, ok)
}

func TestSampleMoveFollowsDistribution(t *testing.T) {
	b := game.NewBoard()
	legal := rules.LegalMoves(b)
	moves := legal.Positions()

	dist := make([]float64, game.Cells)
	dist[moves[1].Index()] = 1

	rng := NewRand(2)
	for i := 0; i < 50; i++ {
		got, ok := SampleMove(dist, legal, rng)
		require.True(t, ok)
		require.Equal(t, moves[1], got)
	}

	counts := map[game.Position]int{}
	for i := 0; i < 400; i++ {
		got, _ := SampleMove(make([]float64, game.Cells), legal, rng)
		counts[got]++
	}
	require.Len(t, counts, len(moves))
}
