package selfplay

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/brensch/reversi/executor/mcts"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/brensch/reversi/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DefaultSamplePlies is how many opening plies sample from the visit
// distribution before play switches to the most visited move.
const DefaultSamplePlies = 30

type Config struct {
	Simulations int
	Search      mcts.Config
	SamplePlies int
	// Seed fixes all randomness when non-zero. Worker i uses Seed+i.
	Seed uint64
	// Trace dumps every board of worker 0 at debug level.
	Trace bool
}

func DefaultConfig() Config {
	return Config{
		Simulations: 100,
		Search:      mcts.DefaultConfig(),
		SamplePlies: DefaultSamplePlies,
	}
}

type GameResult struct {
	GameID string
	Winner game.Stone
	Draw   bool
	Plies  int
	Black  int
	White  int
}

func (r GameResult) String() string {
	if r.Draw {
		return fmt.Sprintf("%s: draw %d-%d in %d plies", r.GameID, r.Black, r.White, r.Plies)
	}
	return fmt.Sprintf("%s: %s wins %d-%d in %d plies", r.GameID, r.Winner, r.Black, r.White, r.Plies)
}

// GameUpdate is reported after every finished game.
type GameUpdate struct {
	WorkerID int
	Result   GameResult
	Examples int
}

// Progress holds the counters shared by all workers.
type Progress struct {
	Games      atomic.Int64
	Moves      atomic.Int64
	Inferences atomic.Int64
}

// countingClient counts evaluator calls into Progress.
type countingClient struct {
	mcts.Predictor
	count *atomic.Int64
}

func (c *countingClient) Predict(b game.Board) ([]float32, float32, error) {
	c.count.Add(1)
	return c.Predictor.Predict(b)
}

// PlayGame plays one self-play game with search and returns one sample per
// ply. The search statistics are cleared before and after the game.
func PlayGame(ctx context.Context, search *mcts.MCTS, cfg Config, rng *rand.Rand, gameID string, trace bool, onStep func()) ([]store.Sample, GameResult, error) {
	search.ClearCache()
	defer search.ClearCache()

	samples := make([]store.Sample, 0, game.Cells)
	b := game.NewBoard()

	for ply := 0; !rules.IsGameOver(b); ply++ {
		if err := ctx.Err(); err != nil {
			return nil, GameResult{}, err
		}
		if trace {
			PrintBoard(b)
		}

		legal := rules.LegalMoves(b)
		dist, err := search.Search(ctx, b, cfg.Simulations, true)
		if err != nil {
			return nil, GameResult{}, fmt.Errorf("%s ply %d: %w", gameID, ply, err)
		}

		var move game.Position
		if ply < cfg.SamplePlies {
			move, _ = mcts.SampleMove(dist, legal, rng)
		} else {
			move, _ = mcts.BestMove(dist, legal, mcts.TieRandom, rng)
		}

		samples = append(samples, store.Sample{GameID: gameID, Ply: ply, Board: b, Policy: dist})

		next, err := rules.Put(b, move)
		if err != nil {
			return nil, GameResult{}, fmt.Errorf("%s ply %d: %w", gameID, ply, err)
		}
		if trace {
			log.Debug().Str("game", gameID).Int("ply", ply).Stringer("move", move).Msg("move")
		}
		b = next
		if onStep != nil {
			onStep()
		}
	}

	for i := range samples {
		samples[i].Value = rules.GetResult(b, samples[i].Board.Turn)
	}

	black, white := b.CountStones()
	winner, ok := rules.Winner(b)
	return samples, GameResult{
		GameID: gameID,
		Winner: winner,
		Draw:   !ok,
		Plies:  len(samples),
		Black:  black,
		White:  white,
	}, nil
}

// RunConfig describes a self-play run.
type RunConfig struct {
	Config
	Workers int
	Games   int
	// OnGame is called from worker goroutines after each game.
	OnGame func(GameUpdate)
}

// split divides total games across workers as evenly as possible.
func split(total, workers int) []int {
	out := make([]int, workers)
	for i := range out {
		out[i] = total / workers
		if i < total%workers {
			out[i]++
		}
	}
	return out
}

// Run plays rc.Games games across rc.Workers goroutines. Each worker owns its
// search and plays its share sequentially; samples are gathered per worker and
// concatenated in worker order after every worker has finished. The first
// failing worker cancels the rest and its error is returned.
func Run(ctx context.Context, client mcts.Predictor, rc RunConfig, progress *Progress) ([]store.Sample, error) {
	if rc.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", rc.Workers)
	}
	if rc.Games < 0 {
		return nil, fmt.Errorf("games must not be negative, got %d", rc.Games)
	}
	if progress == nil {
		progress = &Progress{}
	}
	if rc.SamplePlies < 0 {
		rc.SamplePlies = 0
	}

	counted := &countingClient{Predictor: client, count: &progress.Inferences}
	shares := split(rc.Games, rc.Workers)
	results := make([][]store.Sample, rc.Workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < rc.Workers; w++ {
		workerID := w
		g.Go(func() error {
			var rng *rand.Rand
			if rc.Seed != 0 {
				rng = mcts.NewRand(rc.Seed + uint64(workerID))
			} else {
				rng = mcts.NewRand(0)
			}
			search := mcts.New(counted, rc.Search, rng)
			logger := log.With().Int("worker", workerID).Logger()
			logger.Debug().Int("games", shares[workerID]).Msg("worker started")

			for i := 0; i < shares[workerID]; i++ {
				gameID := fmt.Sprintf("selfplay_w%d_g%d", workerID, i)
				trace := rc.Trace && workerID == 0
				samples, result, err := PlayGame(gctx, search, rc.Config, rng, gameID, trace, func() {
					progress.Moves.Add(1)
				})
				if err != nil {
					return fmt.Errorf("worker %d: %w", workerID, err)
				}
				results[workerID] = append(results[workerID], samples...)

				total := progress.Games.Add(1)
				logger.Debug().Int64("total", total).Str("result", result.String()).Msg("game finished")
				if rc.OnGame != nil {
					rc.OnGame(GameUpdate{WorkerID: workerID, Result: result, Examples: len(samples)})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	size := 0
	for _, r := range results {
		size += len(r)
	}
	all := make([]store.Sample, 0, size)
	for _, r := range results {
		all = append(all, r...)
	}
	return all, nil
}
