package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/brensch/reversi/executor/inference"
	"github.com/brensch/reversi/executor/selfplay"
	"github.com/brensch/reversi/game"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	a, err := parseArgs([]string{"out", "4", "100", "50"})
	require.NoError(t, err)
	require.Equal(t, args{outDir: "out", workers: 4, games: 100, sims: 50}, a)

	for _, bad := range [][]string{
		{"out", "4", "100"},
		{"out", "four", "100", "50"},
		{"out", "4", "0", "50"},
		{"out", "4", "100", "-1"},
	} {
		_, err := parseArgs(bad)
		require.ErrorIs(t, err, errUsage, strings.Join(bad, " "))
	}
}

func testModel() model {
	progress := &selfplay.Progress{}
	progress.Moves.Store(42)
	stats := func() inference.RuntimeStats { return inference.RuntimeStats{AvgBatchSize: 3.5} }
	return initialModel(5, make(chan selfplay.GameUpdate), progress, stats, nil)
}

func TestModelTracksGames(t *testing.T) {
	var m tea.Model = testModel()
	for i := 0; i < recentGames+2; i++ {
		m, _ = m.Update(selfplay.GameUpdate{
			WorkerID: i % 2,
			Result:   selfplay.GameResult{GameID: "g", Winner: game.Black, Plies: 60, Black: 40, White: 24},
			Examples: 60,
		})
	}
	m, _ = m.Update(tickMsg{})

	got := m.(model)
	require.Equal(t, recentGames+2, got.gamesPlayed)
	require.Equal(t, 60*(recentGames+2), got.totalExamples)
	require.Len(t, got.recentGames, recentGames)
	require.Equal(t, int64(42), got.moves)

	view := got.View()
	require.Contains(t, view, "Games Played:     12 / 5")
	require.Contains(t, view, "black wins 40-24")
	require.Contains(t, view, "Batch avg=3.5")
	require.Contains(t, view, "Press q to quit.")
}

func TestModelQuitCancels(t *testing.T) {
	cancelled := false
	m := testModel()
	m.cancel = func() { cancelled = true }

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.True(t, cancelled)
	require.NotNil(t, cmd)
}

func TestModelDone(t *testing.T) {
	next, cmd := testModel().Update(doneMsg{err: errors.New("evaluator down")})
	require.NotNil(t, cmd)
	require.Contains(t, next.View(), "Failed: evaluator down")
}
