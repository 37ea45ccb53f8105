package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/brensch/reversi/executor/inference"
	"github.com/brensch/reversi/executor/selfplay"
	tea "github.com/charmbracelet/bubbletea"
)

const recentGames = 10

type tickMsg time.Time

// doneMsg arrives once the run has finished, successfully or not.
type doneMsg struct{ err error }

type model struct {
	target        int
	gamesPlayed   int
	totalExamples int
	moves         int64
	inferences    int64
	batch         inference.RuntimeStats
	startTime     time.Time
	recentGames   []string
	done          bool
	err           error

	updates  <-chan selfplay.GameUpdate
	progress *selfplay.Progress
	stats    func() inference.RuntimeStats
	cancel   func()
}

func initialModel(target int, updates <-chan selfplay.GameUpdate, progress *selfplay.Progress, stats func() inference.RuntimeStats, cancel func()) model {
	return model{
		target:    target,
		startTime: time.Now(),
		updates:   updates,
		progress:  progress,
		stats:     stats,
		cancel:    cancel,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(updates <-chan selfplay.GameUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return nil
		}
		return u
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tickMsg:
		m.moves = m.progress.Moves.Load()
		m.inferences = m.progress.Inferences.Load()
		if m.stats != nil {
			m.batch = m.stats()
		}
		return m, tickCmd()
	case selfplay.GameUpdate:
		m.gamesPlayed++
		m.totalExamples += msg.Examples
		line := fmt.Sprintf("Worker %d: %s, Ex %d", msg.WorkerID, msg.Result, msg.Examples)
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > recentGames {
			m.recentGames = m.recentGames[:recentGames]
		}
		return m, waitForUpdate(m.updates)
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func rate(n float64, d time.Duration) float64 {
	if d < time.Second {
		return 0
	}
	return n / d.Seconds()
}

func (m model) View() string {
	duration := time.Since(m.startTime)

	var s strings.Builder
	fmt.Fprintf(&s, "Games Played:     %d / %d\n", m.gamesPlayed, m.target)
	fmt.Fprintf(&s, "Total Examples:   %d\n", m.totalExamples)
	fmt.Fprintf(&s, "Total Moves:      %d\n", m.moves)
	fmt.Fprintf(&s, "Total Inferences: %d\n", m.inferences)
	fmt.Fprintf(&s, "Duration:         %s\n", duration.Round(time.Second))
	fmt.Fprintf(&s, "Games/Sec:        %.2f\n", rate(float64(m.gamesPlayed), duration))
	fmt.Fprintf(&s, "Moves/Sec:        %.2f\n", rate(float64(m.moves), duration))
	fmt.Fprintf(&s, "Inferences/Sec:   %.2f\n", rate(float64(m.inferences), duration))
	fmt.Fprintf(&s, "Batch avg=%.1f last=%d q=%d run avg=%.2fms\n\n", m.batch.AvgBatchSize, m.batch.LastBatchSize, m.batch.QueueLen, m.batch.AvgRunMs)

	s.WriteString("Recent Games:\n")
	for _, g := range m.recentGames {
		s.WriteString(g + "\n")
	}

	switch {
	case m.err != nil:
		fmt.Fprintf(&s, "\nFailed: %v\n", m.err)
	case m.done:
		s.WriteString("\nDone.\n")
	default:
		s.WriteString("\nPress q to quit.\n")
	}
	return s.String()
}
