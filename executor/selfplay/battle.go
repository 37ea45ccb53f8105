package selfplay

import (
	"context"
	"fmt"

	"github.com/brensch/reversi/executor/agent"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// PlayMatch plays black against white from the opening and returns the final board.
func PlayMatch(ctx context.Context, black, white agent.Agent) (game.Board, error) {
	b := game.NewBoard()
	for !rules.IsGameOver(b) {
		if err := ctx.Err(); err != nil {
			return b, err
		}
		player := black
		if b.Turn == game.White {
			player = white
		}
		pos, err := player.ChooseMove(ctx, b)
		if err != nil {
			return b, fmt.Errorf("%s (%s): %w", player.Name(), b.Turn, err)
		}
		next, err := rules.Put(b, pos)
		if err != nil {
			return b, fmt.Errorf("%s (%s): %w", player.Name(), b.Turn, err)
		}
		b = next
	}
	return b, nil
}

// AgentFactory builds a fresh agent for one game.
type AgentFactory func() (agent.Agent, error)

type BattleConfig struct {
	Games int
	// Workers caps concurrent games. Zero runs every game at once.
	Workers int
}

type BattleResult struct {
	Games  int
	Wins   int
	Losses int
	Draws  int
}

// WinRate counts draws as half a win.
func (r BattleResult) WinRate() float64 {
	if r.Games == 0 {
		return 0
	}
	return (float64(r.Wins) + 0.5*float64(r.Draws)) / float64(r.Games)
}

// Battle plays cfg.Games games between the player and the opponent. The
// player takes black in even-numbered games and white in odd ones.
func Battle(ctx context.Context, newPlayer, newOpponent AgentFactory, cfg BattleConfig) (BattleResult, error) {
	outcomes := make([]float64, cfg.Games)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i := 0; i < cfg.Games; i++ {
		idx := i
		g.Go(func() error {
			player, err := newPlayer()
			if err != nil {
				return err
			}
			opponent, err := newOpponent()
			if err != nil {
				return err
			}

			side := game.Black
			black, white := player, opponent
			if idx%2 == 1 {
				side = game.White
				black, white = opponent, player
			}

			final, err := PlayMatch(gctx, black, white)
			if err != nil {
				return fmt.Errorf("game %d: %w", idx, err)
			}
			outcomes[idx] = rules.GetResult(final, side)

			bs, ws := final.CountStones()
			log.Debug().Int("game", idx).Stringer("player", side).Int("black", bs).Int("white", ws).Msg("battle game finished")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BattleResult{}, err
	}

	res := BattleResult{Games: cfg.Games}
	for _, o := range outcomes {
		switch {
		case o > 0:
			res.Wins++
		case o < 0:
			res.Losses++
		default:
			res.Draws++
		}
	}
	return res, nil
}
