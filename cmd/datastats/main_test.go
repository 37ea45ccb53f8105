package main

import (
	"bytes"
	"testing"

	"github.com/brensch/reversi/store"
	"github.com/stretchr/testify/require"
)

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, "data", store.Summary{Samples: 10, Games: 2, Wins: 3, Losses: 3, Draws: 4, MeanValue: 0.25})
	out := buf.String()
	require.Contains(t, out, "samples:        10")
	require.Contains(t, out, "wins/losses/draws (mover): 3/3/4")
	require.Contains(t, out, "mean value:     0.2500")
	require.NotContains(t, out, "WARNING")

	buf.Reset()
	printSummary(&buf, "data", store.Summary{MisalignedIDs: 2})
	require.Contains(t, buf.String(), "WARNING: 2 indices")
}
