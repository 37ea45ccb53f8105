package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestSetupJSON(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "warn", false))

	log.Info().Msg("hidden")
	log.Warn().Int("games", 3).Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "shown", entry["message"])
	require.EqualValues(t, 3, entry["games"])
	require.Contains(t, entry, "time")
}

func TestSetupPretty(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	var buf bytes.Buffer
	require.NoError(t, Setup(&buf, "info", true))
	log.Info().Str("worker", "w0").Msg("started")

	out := buf.String()
	require.Contains(t, out, "started")
	require.Contains(t, out, "worker=")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestSetupFile(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	path := filepath.Join(t.TempDir(), "selfplay.log")
	f, err := SetupFile(path, "info")
	require.NoError(t, err)
	log.Info().Msg("to file")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")

	_, err = SetupFile(path, "nope")
	require.Error(t, err)
}
