// Command othelloserver lets people play against an agent over a websocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/brensch/reversi/executor/agent"
	"github.com/brensch/reversi/executor/inference"
	"github.com/brensch/reversi/logging"
	"github.com/brensch/reversi/server"
	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := server.DefaultConfig()
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	modelPath := flag.String("model", "models/othello_net.onnx", "ONNX model for the alphazero agent")
	agentName := flag.String("agent", "alphazero", "Agent to play against: alphazero, greedy, random or uct")
	sims := flag.Int("sims", 100, "Simulations per move for search agents")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if flag.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "unexpected arguments: %v\n", flag.Args())
		flag.Usage()
		return 2
	}
	kind, err := agent.ParseKind(*agentName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := logging.Setup(os.Stderr, *logLevel, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	opts := agent.DefaultOptions()
	opts.Simulations = *sims
	if kind == agent.KindAlphaZero {
		ev, err := inference.Open(*modelPath, 1, inference.OnnxClientConfig{})
		if err != nil {
			log.Error().Err(err).Msg("failed to create ONNX client")
			return 1
		}
		defer ev.Close()
		opts.Predictor = ev
	}

	// Seed 0: every session draws its own entropy.
	newAgent := func() (agent.Agent, error) {
		return agent.New(kind, opts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, server.NewHandlers(newAgent, kind.String(), version)); err != nil {
		log.Error().Err(err).Msg("server stopped")
		return 1
	}
	return 0
}
