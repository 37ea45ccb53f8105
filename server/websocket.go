package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brensch/reversi/executor/agent"
	"github.com/brensch/reversi/game"
	"github.com/brensch/reversi/rules"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// session is one connection: one board, one agent, one episode at a time.
type session struct {
	conn     *websocket.Conn
	ai       agent.Agent
	ctx      context.Context
	sendChan chan WSResponse

	board game.Board
	human game.Stone
}

// WebSocket plays games against the configured agent over a websocket.
func (h *Handlers) WebSocket(w http.ResponseWriter, r *http.Request) {
	ai, err := h.newAgent()
	if err != nil {
		log.Error().Err(err).Msg("create agent")
		http.Error(w, "agent unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	s := &session{
		conn:     conn,
		ai:       ai,
		ctx:      r.Context(),
		sendChan: make(chan WSResponse, 16),
		board:    game.NewBoard(),
		human:    game.Black,
	}
	log.Debug().Str("remote", r.RemoteAddr).Str("agent", ai.Name()).Msg("session opened")
	go s.writePump()
	s.readPump()
}

func (s *session) writePump() {
	defer s.conn.Close()
	for msg := range s.sendChan {
		if err := s.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *session) readPump() {
	defer func() { close(s.sendChan); s.conn.Close() }()
	for {
		var msg WSMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		s.handleMessage(msg)
	}
}

func (s *session) handleMessage(msg WSMessage) {
	switch msg.Type {
	case "new":
		s.handleNew(msg)
	case "move":
		s.handleMove(msg)
	case "state":
		s.sendChan <- WSResponse{Type: "state", ID: msg.ID, Payload: stateOf(s.board, s.human, nil)}
	case "ping":
		s.sendChan <- WSResponse{Type: "pong", ID: msg.ID}
	default:
		s.fail(msg.ID, "unknown message type")
	}
}

func (s *session) fail(id, reason string) {
	s.sendChan <- WSResponse{Type: "error", ID: id, Error: reason}
}

func (s *session) handleNew(msg WSMessage) {
	var req NewGameRequest
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.fail(msg.ID, "invalid payload")
			return
		}
	}
	human, ok := parseStone(req.Human)
	if !ok {
		s.fail(msg.ID, fmt.Sprintf("invalid colour %q", req.Human))
		return
	}

	s.ai.Reset()
	s.board = game.NewBoard()
	s.human = human

	aiMoves, err := s.playAI()
	if err != nil {
		s.fail(msg.ID, err.Error())
		return
	}
	s.sendChan <- WSResponse{Type: "state", ID: msg.ID, Payload: stateOf(s.board, s.human, aiMoves)}
}

func (s *session) handleMove(msg WSMessage) {
	var req MoveRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		s.fail(msg.ID, "invalid payload")
		return
	}
	pos, err := game.ParseSquare(req.Square)
	if err != nil {
		s.fail(msg.ID, err.Error())
		return
	}
	if rules.IsGameOver(s.board) {
		s.fail(msg.ID, rules.ErrGameFinished.Error())
		return
	}
	if s.board.Turn != s.human {
		s.fail(msg.ID, "not your turn")
		return
	}

	next, err := rules.Put(s.board, pos)
	if err != nil {
		s.fail(msg.ID, err.Error())
		return
	}
	s.board = next

	aiMoves, err := s.playAI()
	if err != nil {
		s.fail(msg.ID, err.Error())
		return
	}
	s.sendChan <- WSResponse{Type: "state", ID: msg.ID, Payload: stateOf(s.board, s.human, aiMoves)}
}

// playAI moves for the agent until it is the human's turn or the game ends.
// The agent moves repeatedly when the human has to pass.
func (s *session) playAI() ([]game.Position, error) {
	var moves []game.Position
	for !rules.IsGameOver(s.board) && s.board.Turn != s.human {
		pos, err := s.ai.ChooseMove(s.ctx, s.board)
		if err != nil {
			return moves, fmt.Errorf("%s: %w", s.ai.Name(), err)
		}
		next, err := rules.Put(s.board, pos)
		if err != nil {
			return moves, err
		}
		s.board = next
		moves = append(moves, pos)
	}
	return moves, nil
}
