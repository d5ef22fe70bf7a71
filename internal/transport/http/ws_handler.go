package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"puzzler-quiz-service/internal/app"
	"puzzler-quiz-service/internal/domain"
)

// WSHandler exposes the quiz-engine boundary over a websocket. Each
// connection is a plain request/response loop: one inbound message, one
// reply, in order, so a single goroutine owns all writes.
type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	PuzzleIDs []string `json:"puzzleIds"`
	Category  string   `json:"category"`
	Shuffle   bool     `json:"shuffle"`
}

type sessionRefPayload struct {
	SessionID string `json:"sessionId"`
}

type answerPayload struct {
	SessionID string `json:"sessionId"`
	PuzzleID  string `json:"puzzleId"`
	Choices   []int  `json:"choices"`
}

type sessionStarted struct {
	SessionID string              `json:"sessionId"`
	State     domain.SessionState `json:"state"`
	Puzzle    *domain.PuzzleView  `json:"puzzle,omitempty"`
	Completed bool                `json:"completed"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and serves the session message loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, errors.New("invalid start payload"))
				continue
			}
			ids := payload.PuzzleIDs
			if len(ids) == 0 {
				ids, err = h.service.ListPuzzleIDs(ctx, payload.Category)
				if err != nil {
					h.writeError(conn, err)
					continue
				}
			}
			session, err := h.service.StartSession(ctx, ids, payload.Shuffle)
			if err != nil {
				h.writeError(conn, err)
				continue
			}
			started := sessionStarted{
				SessionID: session.ID(),
				State:     session.State(),
			}
			if view, err := h.service.CurrentPuzzle(ctx, session.ID()); err == nil {
				started.Puzzle = &view
			} else {
				started.Completed = true
			}
			h.write(conn, "session", started)

		case "current":
			var payload sessionRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, errors.New("invalid current payload"))
				continue
			}
			view, err := h.service.CurrentPuzzle(ctx, payload.SessionID)
			if err != nil {
				h.writeError(conn, err)
				continue
			}
			h.write(conn, "puzzle", view)

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, errors.New("invalid answer payload"))
				continue
			}
			result, err := h.service.SubmitAnswer(ctx, payload.SessionID, payload.PuzzleID, payload.Choices)
			if err != nil {
				h.writeError(conn, err)
				continue
			}
			h.write(conn, "result", result)

		case "skip":
			var payload sessionRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, errors.New("invalid skip payload"))
				continue
			}
			result, err := h.service.Skip(ctx, payload.SessionID)
			if err != nil {
				h.writeError(conn, err)
				continue
			}
			h.write(conn, "result", result)

		case "summary":
			var payload sessionRefPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.writeError(conn, errors.New("invalid summary payload"))
				continue
			}
			summary, err := h.service.Summary(ctx, payload.SessionID)
			if err != nil {
				h.writeError(conn, err)
				continue
			}
			h.write(conn, "summary", summary)

		default:
			h.writeError(conn, errors.New("unsupported message type"))
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, msgType string, payload any) {
	if err := conn.WriteJSON(outboundMessage[any]{Type: msgType, Payload: payload}); err != nil {
		log.Printf("ws write error: %v", err)
	}
}

func (h *WSHandler) writeError(conn *websocket.Conn, err error) {
	h.write(conn, "error", errorPayload{Code: errorCode(err), Message: err.Error()})
}

// errorCode maps domain errors to stable codes clients can branch on.
func errorCode(err error) string {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return "validation"
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrPuzzleNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, domain.ErrSessionClosed), errors.Is(err, domain.ErrAlreadyTerminal):
		return "session_closed"
	case errors.Is(err, domain.ErrInvalidChoice):
		return "invalid_choice"
	case errors.Is(err, domain.ErrSessionComplete):
		return "session_complete"
	default:
		return "internal"
	}
}
