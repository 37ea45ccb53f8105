// Command datastats summarises a self-play output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/brensch/reversi/logging"
	"github.com/brensch/reversi/store"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	logLevel := flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: datastats [flags] <dir>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	if err := logging.Setup(os.Stderr, *logLevel, true); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	dir := flag.Arg(0)
	s, err := store.Summarize(context.Background(), dir)
	if err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("summarize")
		return 1
	}
	printSummary(os.Stdout, dir, s)
	if s.MisalignedIDs > 0 {
		return 1
	}
	return 0
}

func printSummary(w io.Writer, dir string, s store.Summary) {
	fmt.Fprintf(w, "dir:            %s\n", dir)
	fmt.Fprintf(w, "samples:        %d\n", s.Samples)
	fmt.Fprintf(w, "games:          %d\n", s.Games)
	fmt.Fprintf(w, "max ply:        %d\n", s.MaxPly)
	fmt.Fprintf(w, "black to move:  %d\n", s.BlackToMove)
	fmt.Fprintf(w, "wins/losses/draws (mover): %d/%d/%d\n", s.Wins, s.Losses, s.Draws)
	fmt.Fprintf(w, "mean value:     %.4f\n", s.MeanValue)
	if s.MisalignedIDs > 0 {
		fmt.Fprintf(w, "WARNING: %d indices missing from one of the files\n", s.MisalignedIDs)
	}
}
