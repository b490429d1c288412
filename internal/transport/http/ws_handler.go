package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"quizlive/internal/domain"
	"quizlive/internal/engine"
	"quizlive/internal/pubsub"
)

// WSHandler exposes the engine over websockets: one endpoint for the host
// control surface and one for participants.
type WSHandler struct {
	orch     *engine.Orchestrator
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(orch *engine.Orchestrator, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		orch: orch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID    string              `json:"questionId"`
	QuestionType  domain.QuestionType `json:"questionType"`
	Payload       json.RawMessage     `json:"payload"`
	TimeRemaining int                 `json:"timeRemaining"`
}

type joinedPayload struct {
	Participant domain.Participant `json:"participant"`
	Snapshot    domain.Snapshot    `json:"snapshot"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServePlay upgrades a participant connection: join, snapshot, state-event
// relay, and answer submission.
func (h *WSHandler) ServePlay(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	nickname := r.URL.Query().Get("name")
	if sessionID == "" || nickname == "" {
		http.Error(w, "missing sessionId or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	participant, snapshot, err := h.orch.JoinSession(r.Context(), sessionID, nickname)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send, cleanup, err := h.relayStateEvents(r.Context(), conn, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cleanup()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{Participant: participant, Snapshot: snapshot}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			err := h.orch.SubmitAnswer(r.Context(), sessionID, domain.Submission{
				ParticipantID: participant.ID,
				QuestionID:    payload.QuestionID,
				Type:          payload.QuestionType,
				Payload:       payload.Payload,
				TimeRemaining: payload.TimeRemaining,
			})
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "answer not delivered"}}
			}
			// No per-answer result: duplicates and late answers are dropped
			// silently and scores surface on the next leaderboard event.
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}
}

// ServeHost upgrades the host control connection: snapshot, state-event
// relay, and start/next/end controls.
func (h *WSHandler) ServeHost(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	snapshot, err := h.orch.Snapshot(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	send, cleanup, err := h.relayStateEvents(r.Context(), conn, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cleanup()

	send <- outboundMessage[any]{Type: "snapshot", Payload: snapshot}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		var actionErr error
		switch inbound.Type {
		case "start":
			actionErr = h.orch.StartSession(r.Context(), sessionID)
		case "next":
			actionErr = h.orch.AdvanceQuestion(r.Context(), sessionID)
		case "end":
			actionErr = h.orch.EndSession(r.Context(), sessionID)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
			continue
		}
		if actionErr != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: actionErr.Error()}}
		}
	}
}

// relayStateEvents subscribes to the session topic and forwards state events
// to the connection through a single writer goroutine. Action events
// (submit_answer) stay on the wire between participants and the host runtime
// and are not echoed to clients.
func (h *WSHandler) relayStateEvents(ctx context.Context, conn *websocket.Conn, sessionID string) (chan outboundMessage[any], func(), error) {
	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	unsubscribe, err := h.orch.Subscribe(ctx, sessionID, func(event pubsub.Event) {
		if event.Type == pubsub.EventSubmitAnswer {
			return
		}
		select {
		case send <- outboundMessage[any]{Type: event.Type, Payload: json.RawMessage(event.Payload)}:
		case <-closeSignals:
		}
	})
	if err != nil {
		return nil, nil, err
	}

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Debug().Err(err).Msg("ws write error")
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	cleanup := func() {
		unsubscribe()
		close(closeSignals)
		<-writerDone
	}
	return send, cleanup, nil
}
