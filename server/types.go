package server

import (
	"encoding/json"
	"strings"

	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
)

// WSMessage is a client request.
type WSMessage struct {
	Type    string          `json:"type"` // "new", "move", "state", "ping"
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSResponse is a server reply.
type WSResponse struct {
	Type    string      `json:"type"` // "state", "error", "pong"
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewGameRequest starts a fresh episode. Human is the colour the client plays.
type NewGameRequest struct {
	Human string `json:"human"`
}

// MoveRequest plays a square such as "c4" (column letter, row digit).
type MoveRequest struct {
	Square string `json:"square"`
}

// StateResponse describes the session's board after a request.
type StateResponse struct {
	Rows     []string `json:"rows"`
	Turn     string   `json:"turn"`
	Human    string   `json:"human"`
	Black    int      `json:"black"`
	White    int      `json:"white"`
	Legal    []string `json:"legal"`
	AIMoves  []string `json:"ai_moves,omitempty"`
	GameOver bool     `json:"game_over"`
	Winner   string   `json:"winner,omitempty"`
}

// HealthResponse is served on /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Agent   string `json:"agent"`
}

func parseStone(s string) (game.Stone, bool) {
	switch strings.ToLower(s) {
	case "", "black":
		return game.Black, true
	case "white":
		return game.White, true
	}
	return game.Black, false
}

func stateOf(b game.Board, human game.Stone, aiMoves []game.Position) StateResponse {
	rows := make([]string, game.Size)
	for y := 0; y < game.Size; y++ {
		var sb strings.Builder
		for x := 0; x < game.Size; x++ {
			s, ok := b.At(game.FromXY(x, y))
			switch {
			case !ok:
				sb.WriteByte('.')
			case s == game.Black:
				sb.WriteByte('X')
			default:
				sb.WriteByte('O')
			}
		}
		rows[y] = sb.String()
	}

	black, white := b.CountStones()
	resp := StateResponse{
		Rows:  rows,
		Turn:  b.Turn.String(),
		Human: human.String(),
		Black: black,
		White: white,
		Legal: []string{},
	}
	for _, p := range aiMoves {
		resp.AIMoves = append(resp.AIMoves, p.String())
	}
	if rules.IsGameOver(b) {
		resp.GameOver = true
		if w, ok := rules.Winner(b); ok {
			resp.Winner = w.String()
		} else {
			resp.Winner = "draw"
		}
		return resp
	}
	for _, p := range rules.LegalMoves(b).Positions() {
		resp.Legal = append(resp.Legal, p.String())
	}
	return resp
}
