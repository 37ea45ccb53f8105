package mcts

import (
	"context"
	"testing"

	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/stretchr/testify/require"
)

func TestUCTSearchDistribution(t *testing.T) {
	u := NewUCT(DefaultUCTConfig(), NewRand(21))
	b := game.NewBoard()

	dist, err := u.Search(context.Background(), b, 200)
	require.NoError(t, err)
	requireDistribution(t, dist, rules.LegalMoves(b))

	sums := make(map[stateKey]int)
	for e, n := range u.nsa {
		sums[e.s] += n
	}
	for s, ns := range u.ns {
		require.Equal(t, ns, sums[s])
	}
}

func TestUCTFindsForcedWin(t *testing.T) {
	u := NewUCT(DefaultUCTConfig(), NewRand(22))
	dist, err := u.Search(context.Background(), winningChoice(), 200)
	require.NoError(t, err)
	require.Equal(t, "h7", argmax(dist).String())
}

func TestUCTCutoffRollout(t *testing.T) {
	cfg := DefaultUCTConfig()
	cfg.Cutoff = 4
	u := NewUCT(cfg, NewRand(23))

	b := game.NewBoard()
	dist, err := u.Search(context.Background(), b, 100)
	require.NoError(t, err)
	requireDistribution(t, dist, rules.LegalMoves(b))

	for e := range u.wsa {
		n := u.nsa[e]
		require.LessOrEqual(t, u.wsa[e], float64(n))
		require.GreaterOrEqual(t, u.wsa[e], -float64(n))
	}
}

func TestUCTZeroSimulations(t *testing.T) {
	u := NewUCT(DefaultUCTConfig(), NewRand(24))
	b := game.NewBoard()
	dist, err := u.Search(context.Background(), b, 0)
	require.NoError(t, err)
	require.Equal(t, uniform(rules.LegalMoves(b)), dist)
}

func TestStoneDifference(t *testing.T) {
	b := game.Board{Black: 0b111, White: 0b1}
	require.InDelta(t, 0.5, StoneDifference(b, game.Black), 1e-12)
	require.InDelta(t, -0.5, StoneDifference(b, game.White), 1e-12)
	require.Zero(t, StoneDifference(game.Board{}, game.Black))
}

func BenchmarkUCTSearch(b *testing.B) {
	u := NewUCT(DefaultUCTConfig(), NewRand(25))
	state := game.NewBoard()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		u.ClearCache()
		if _, err := u.Search(context.Background(), state, 200); err != nil {
			b.Fatal(err)
		}
	}
}
