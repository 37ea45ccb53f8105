// Command debuggame plays a single traced self-play game and prints the
// board and the root visit distribution at every ply.
package main

import (
	"cmp"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/brensch/reversi/executor/inference"
	"github.com/brensch/reversi/executor/mcts"
	"github.com/brensch/reversi/executor/selfplay"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/logging"
	"github.com/brensch/reversi/rules"
	"github.com/brensch/reversi/store"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type moveProb struct {
	Move game.Position
	Prob float64
}

// topMoves returns the k legal moves with the most visit mass, best first.
func topMoves(dist []float64, legal game.PositionSet, k int) []moveProb {
	moves := lo.Map(legal.Positions(), func(p game.Position, _ int) moveProb {
		return moveProb{Move: p, Prob: dist[p.Index()]}
	})
	slices.SortStableFunc(moves, func(a, b moveProb) int { return cmp.Compare(b.Prob, a.Prob) })
	if len(moves) > k {
		moves = moves[:k]
	}
	return moves
}

func printPly(w io.Writer, ply int, b game.Board, dist []float64, played game.Position) {
	fmt.Fprint(w, selfplay.FormatBoard(b))
	fmt.Fprintf(w, "ply %d: %s plays %s |", ply, b.Turn, played)
	for _, m := range topMoves(dist, rules.LegalMoves(b), 3) {
		fmt.Fprintf(w, " %s=%.3f", m.Move, m.Prob)
	}
	fmt.Fprintln(w)
}

func main() {
	os.Exit(run())
}

func run() int {
	modelPath := flag.String("model", "models/othello_net.onnx", "Path to ONNX model")
	outDir := flag.String("out-dir", "", "If set, write the game's samples as parquet here")
	sims := flag.Int("sims", 100, "Number of MCTS simulations per move")
	cpuct := flag.Float64("cpuct", mcts.DefaultConfig().Cpuct, "MCTS exploration constant")
	seed := flag.Uint64("seed", 0, "Seed (0 = random)")
	flag.Parse()

	if *sims <= 0 || flag.NArg() != 0 {
		flag.Usage()
		return 2
	}
	if err := logging.Setup(os.Stderr, "info", true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ev, err := inference.Open(*modelPath, 1, inference.OnnxClientConfig{})
	if err != nil {
		log.Error().Err(err).Msg("failed to load model")
		return 1
	}
	defer ev.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := mcts.DefaultConfig()
	cfg.Cpuct = *cpuct
	rng := mcts.NewRand(*seed)
	search := mcts.New(ev, cfg, rng)

	var samples []store.Sample
	b := game.NewBoard()
	for ply := 0; !rules.IsGameOver(b); ply++ {
		dist, err := search.Search(ctx, b, *sims, true)
		if err != nil {
			log.Error().Err(err).Int("ply", ply).Msg("search failed")
			return 1
		}
		legal := rules.LegalMoves(b)
		move, _ := mcts.SampleMove(dist, legal, rng)
		if ply >= selfplay.DefaultSamplePlies {
			move, _ = mcts.BestMove(dist, legal, mcts.TieRandom, rng)
		}
		printPly(os.Stdout, ply, b, dist, move)
		samples = append(samples, store.Sample{GameID: "debug", Ply: ply, Board: b, Policy: dist})

		if b, err = rules.Put(b, move); err != nil {
			log.Error().Err(err).Int("ply", ply).Msg("apply move")
			return 1
		}
	}

	fmt.Println(b)
	black, white := b.CountStones()
	log.Info().Int("plies", len(samples)).Int("black", black).Int("white", white).Interface("stats", search.Stats()).Msg("game complete")

	if *outDir != "" {
		for i := range samples {
			samples[i].Value = rules.GetResult(b, samples[i].Board.Turn)
		}
		if err := store.WriteSamples(*outDir, samples); err != nil {
			log.Error().Err(err).Msg("write samples")
			return 1
		}
		log.Info().Str("dir", *outDir).Msg("debug game written")
	}
	return 0
}
