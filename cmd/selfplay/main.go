// Command selfplay generates AlphaZero training data by playing the network
// against itself and writes the states, policy and values parquet files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/brensch/reversi/executor/inference"
	"github.com/brensch/reversi/executor/mcts"
	"github.com/brensch/reversi/executor/selfplay"
	"github.com/brensch/reversi/logging"
	"github.com/brensch/reversi/store"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

const usageLine = "usage: selfplay [flags] <output_dir> <num_workers> <num_games_total> <simulations_per_move>"

var errUsage = errors.New("usage")

type args struct {
	outDir  string
	workers int
	games   int
	sims    int
}

func parseArgs(pos []string) (args, error) {
	if len(pos) != 4 {
		return args{}, fmt.Errorf("%w: expected 4 arguments, got %d", errUsage, len(pos))
	}
	ints, err := parsePositive(pos[1:], []string{"num_workers", "num_games_total", "simulations_per_move"})
	if err != nil {
		return args{}, err
	}
	return args{outDir: pos[0], workers: ints[0], games: ints[1], sims: ints[2]}, nil
}

func parsePositive(vals, names []string) ([]int, error) {
	out := make([]int, len(vals))
	for i, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: %s must be a positive integer, got %q", errUsage, names[i], v)
		}
		out[i] = n
	}
	return out, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	modelPath := flag.String("model", "models/othello_net.onnx", "ONNX model used for evaluation")
	sessions := flag.Int("sessions", 1, "ONNX Runtime sessions run in parallel, each with its own batching loop")
	batchSize := flag.Int("batch-size", inference.DefaultBatchSize, "ONNX inference batch size")
	batchTimeout := flag.Duration("batch-timeout", inference.DefaultBatchTimeout, "Max time to wait for filling an ONNX batch")
	cpuct := flag.Float64("cpuct", mcts.DefaultConfig().Cpuct, "PUCT exploration constant")
	samplePlies := flag.Int("sample-plies", selfplay.DefaultSamplePlies, "Opening plies that sample from the visit distribution")
	seed := flag.Uint64("seed", 0, "Seed for reproducible runs (0 = random)")
	tui := flag.Bool("tui", false, "Show a live progress view; logs go to <output_dir>/selfplay.log")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	trace := flag.Bool("trace", false, "Log every board of worker 0 at debug level")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), usageLine)
		flag.PrintDefaults()
	}
	flag.Parse()

	a, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	}
	if err := os.MkdirAll(a.outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		return 1
	}

	if *tui {
		f, err := logging.SetupFile(filepath.Join(a.outDir, "selfplay.log"), *logLevel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		defer f.Close()
	} else if err := logging.Setup(os.Stderr, *logLevel, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ev, err := inference.Open(*modelPath, *sessions, inference.OnnxClientConfig{BatchSize: *batchSize, BatchTimeout: *batchTimeout})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ONNX client")
		return 1
	}
	defer ev.Close()

	// Each worker has at most one request in flight.
	if *batchSize > a.workers {
		log.Warn().Int("batch_size", *batchSize).Int("workers", a.workers).Msg("batch size exceeds max in-flight requests; batches will stay partially filled")
	}

	cfg := selfplay.DefaultConfig()
	cfg.Simulations = a.sims
	cfg.Search.Cpuct = *cpuct
	cfg.SamplePlies = *samplePlies
	cfg.Seed = *seed
	cfg.Trace = *trace

	progress := &selfplay.Progress{}
	updates := make(chan selfplay.GameUpdate, a.workers)
	rc := selfplay.RunConfig{
		Config:  cfg,
		Workers: a.workers,
		Games:   a.games,
		OnGame: func(u selfplay.GameUpdate) {
			// Never block a worker on a slow consumer.
			select {
			case updates <- u:
			default:
			}
		},
	}

	log.Info().Int("workers", a.workers).Int("games", a.games).Int("sims", a.sims).Str("model", *modelPath).Msg("starting self-play")
	start := time.Now()

	var samples []store.Sample
	if *tui {
		samples, err = runWithTUI(ctx, ev, rc, progress, updates)
	} else {
		samples, err = runWithLog(ctx, ev, rc, progress, updates)
	}
	if err != nil {
		log.Error().Err(err).Msg("self-play failed")
		return 1
	}

	if err := store.WriteSamples(a.outDir, samples); err != nil {
		log.Error().Err(err).Msg("write samples")
		return 1
	}

	values := lo.Map(samples, func(s store.Sample, _ int) float64 { return s.Value })
	counts := lo.CountValues(values)
	log.Info().
		Dur("elapsed", time.Since(start)).
		Int("wins", counts[1]).Int("losses", counts[-1]).Int("draws", counts[0]).
		Msg("self-play finished")
	fmt.Printf("Finished! number of data: %d\n", len(samples))
	return 0
}

func runWithLog(ctx context.Context, ev inference.Evaluator, rc selfplay.RunConfig, progress *selfplay.Progress, updates <-chan selfplay.GameUpdate) ([]store.Sample, error) {
	stopLog := make(chan struct{})
	logDone := make(chan struct{})
	go func() {
		defer close(logDone)
		startTime := time.Now()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopLog:
				return
			case u := <-updates:
				log.Info().Int("worker", u.WorkerID).Int("examples", u.Examples).Msg(u.Result.String())
			case <-ticker.C:
				secs := time.Since(startTime).Seconds()
				st := ev.Stats()
				log.Info().
					Int64("games", progress.Games.Load()).
					Float64("moves_per_sec", float64(progress.Moves.Load())/secs).
					Float64("inf_per_sec", float64(progress.Inferences.Load())/secs).
					Float64("batch_avg", st.AvgBatchSize).
					Int64("batch_last", st.LastBatchSize).
					Int("queue", st.QueueLen).
					Float64("run_avg_ms", st.AvgRunMs).
					Msg("stats")
			}
		}
	}()

	samples, err := selfplay.Run(ctx, ev, rc, progress)
	close(stopLog)
	<-logDone
	return samples, err
}

func runWithTUI(ctx context.Context, ev inference.Evaluator, rc selfplay.RunConfig, progress *selfplay.Progress, updates chan selfplay.GameUpdate) ([]store.Sample, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(initialModel(rc.Games, updates, progress, ev.Stats, cancel), tea.WithAltScreen())

	var samples []store.Sample
	var runErr error
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		samples, runErr = selfplay.Run(ctx, ev, rc, progress)
		p.Send(doneMsg{err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-runDone
		return nil, fmt.Errorf("tui: %w", err)
	}
	<-runDone
	return samples, runErr
}
