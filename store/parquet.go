// Package store writes and reads the self-play training artifacts: three
// Parquet files sharing a sample index.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/brensch/reversi/executor/convert"
	"github.com/brensch/reversi/game"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const (
	StatesFile = "states.parquet"
	PolicyFile = "policy.parquet"
	ValuesFile = "values.parquet"
)

// StateRow is one encoded board. State holds the (2, 8, 8) float32
// little-endian planes from convert.BoardToBytes: mover first, opponent second.
type StateRow struct {
	Index  int64  `parquet:"index"`
	GameID string `parquet:"game_id,dict"`
	Ply    int32  `parquet:"ply"`
	Mover  string `parquet:"mover,dict"`
	State  []byte `parquet:"state"`
}

// PolicyRow is the normalised search visit distribution, 64 entries indexed
// like game.Position.Index.
type PolicyRow struct {
	Index  int64     `parquet:"index"`
	Policy []float32 `parquet:"policy"`
}

// ValueRow is the final result from the point of view of the player who
// moved at this sample: +1 win, -1 loss, 0 draw.
type ValueRow struct {
	Index int64   `parquet:"index"`
	Value float32 `parquet:"value"`
}

// Sample is one training example before it is split across the three files.
type Sample struct {
	GameID string
	Ply    int
	Board  game.Board
	Policy []float64
	Value  float64
}

// Rows splits samples into the three row sets, numbering them in order.
func Rows(samples []Sample) ([]StateRow, []PolicyRow, []ValueRow, error) {
	states := make([]StateRow, len(samples))
	policy := make([]PolicyRow, len(samples))
	values := make([]ValueRow, len(samples))
	for i, s := range samples {
		if len(s.Policy) != game.Cells {
			return nil, nil, nil, fmt.Errorf("sample %d: policy has %d entries, want %d", i, len(s.Policy), game.Cells)
		}
		ptr := convert.BoardToBytes(s.Board)
		state := append([]byte(nil), *ptr...)
		convert.PutBuffer(ptr)

		p := make([]float32, game.Cells)
		for j, v := range s.Policy {
			p[j] = float32(v)
		}

		idx := int64(i)
		states[i] = StateRow{Index: idx, GameID: s.GameID, Ply: int32(s.Ply), Mover: s.Board.Turn.String(), State: state}
		policy[i] = PolicyRow{Index: idx, Policy: p}
		values[i] = ValueRow{Index: idx, Value: float32(s.Value)}
	}
	return states, policy, values, nil
}

// WriteSamples writes states.parquet, policy.parquet and values.parquet into
// outDir. Each file is written to outDir/tmp first and renamed into place so
// readers never observe a partial file.
func WriteSamples(outDir string, samples []Sample) error {
	states, policy, values, err := Rows(samples)
	if err != nil {
		return err
	}
	count := strconv.Itoa(len(samples))

	if err := writeAtomic(outDir, StatesFile, states,
		parquet.SkipPageBounds("state"),
		parquet.KeyValueMetadata("schema", "othello_states_v1"),
		parquet.KeyValueMetadata("shape", "2,8,8"),
		parquet.KeyValueMetadata("count", count),
	); err != nil {
		return err
	}
	if err := writeAtomic(outDir, PolicyFile, policy,
		parquet.KeyValueMetadata("schema", "othello_policy_v1"),
		parquet.KeyValueMetadata("count", count),
	); err != nil {
		return err
	}
	return writeAtomic(outDir, ValuesFile, values,
		parquet.KeyValueMetadata("schema", "othello_values_v1"),
		parquet.KeyValueMetadata("count", count),
	)
}

func writeAtomic[T any](outDir, name string, rows []T, opts ...parquet.WriterOption) error {
	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("create tmp dir: %w", err)
	}

	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	opts = append([]parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	}, opts...)
	if err := parquet.WriteFile(tmpPath, rows, opts...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	_ = os.Remove(tmpDir)
	return nil
}

// ReadStates loads states.parquet from dir.
func ReadStates(dir string) ([]StateRow, error) {
	return parquet.ReadFile[StateRow](filepath.Join(dir, StatesFile))
}

// ReadPolicy loads policy.parquet from dir.
func ReadPolicy(dir string) ([]PolicyRow, error) {
	return parquet.ReadFile[PolicyRow](filepath.Join(dir, PolicyFile))
}

// ReadValues loads values.parquet from dir.
func ReadValues(dir string) ([]ValueRow, error) {
	return parquet.ReadFile[ValueRow](filepath.Join(dir, ValuesFile))
}
