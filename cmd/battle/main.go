// Command battle measures the network agent against a baseline agent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brensch/reversi/executor/agent"
	"github.com/brensch/reversi/executor/inference"
	"github.com/brensch/reversi/executor/selfplay"
	"github.com/brensch/reversi/logging"
	"github.com/rs/zerolog/log"
)

const (
	usageLine    = "usage: battle [flags] <num_games> [model_path]"
	defaultModel = "models/othello_net.onnx"
)

var errUsage = errors.New("usage")

type args struct {
	games     int
	modelPath string
}

func parseArgs(pos []string) (args, error) {
	if len(pos) < 1 || len(pos) > 2 {
		return args{}, fmt.Errorf("%w: expected 1 or 2 arguments, got %d", errUsage, len(pos))
	}
	n, err := strconv.Atoi(pos[0])
	if err != nil || n <= 0 {
		return args{}, fmt.Errorf("%w: num_games must be a positive integer, got %q", errUsage, pos[0])
	}
	a := args{games: n, modelPath: defaultModel}
	if len(pos) == 2 {
		a.modelPath = pos[1]
	}
	return a, nil
}

// factory hands out agents with distinct seeds so concurrent games differ.
func factory(kind agent.Kind, base agent.Options) selfplay.AgentFactory {
	var n atomic.Uint64
	return func() (agent.Agent, error) {
		opts := base
		if base.Seed != 0 {
			opts.Seed = base.Seed + n.Add(1)
		}
		return agent.New(kind, opts)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	opponentName := flag.String("opponent", "greedy", "Opponent agent: greedy, random or uct")
	sims := flag.Int("sims", 50, "Simulations per move for search agents")
	workers := flag.Int("workers", 0, "Max concurrent games (0 = all at once)")
	sessions := flag.Int("sessions", 1, "ONNX Runtime sessions")
	seed := flag.Uint64("seed", 0, "Seed for reproducible runs (0 = random)")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
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
	opponent, err := agent.ParseKind(*opponentName)
	if err != nil || opponent == agent.KindAlphaZero {
		fmt.Fprintf(os.Stderr, "invalid -opponent %q: want greedy, random or uct\n", *opponentName)
		return 2
	}
	if *sims <= 0 {
		fmt.Fprintf(os.Stderr, "-sims must be positive, got %d\n", *sims)
		return 2
	}
	if err := logging.Setup(os.Stderr, *logLevel, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ev, err := inference.Open(a.modelPath, *sessions, inference.OnnxClientConfig{})
	if err != nil {
		log.Error().Err(err).Msg("failed to create ONNX client")
		return 1
	}
	defer ev.Close()

	opts := agent.DefaultOptions()
	opts.Predictor = ev
	opts.Simulations = *sims
	opts.Seed = *seed

	log.Info().Int("games", a.games).Stringer("opponent", opponent).Int("sims", *sims).Msg("starting battle")
	start := time.Now()
	res, err := selfplay.Battle(ctx,
		factory(agent.KindAlphaZero, opts),
		factory(opponent, opts),
		selfplay.BattleConfig{Games: a.games, Workers: *workers},
	)
	if err != nil {
		log.Error().Err(err).Msg("battle failed")
		return 1
	}

	log.Info().Dur("elapsed", time.Since(start)).Int("wins", res.Wins).Int("losses", res.Losses).Int("draws", res.Draws).Msg("battle finished")
	fmt.Printf("alphazero vs %s: %d wins, %d losses, %d draws\n", opponent, res.Wins, res.Losses, res.Draws)
	fmt.Printf("win rate: %.3f\n", res.WinRate())
	return 0
}
