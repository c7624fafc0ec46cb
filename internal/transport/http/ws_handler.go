package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"mathe-challenge-service/internal/app"
	"mathe-challenge-service/internal/domain"
	"mathe-challenge-service/internal/identity"
)

// WSHandler runs one challenge session per websocket connection: question
// navigation, answer selection, the countdown, submission, and live
// leaderboard pushes.
type WSHandler struct {
	source      app.ChallengeSource
	submitter   app.Submitter
	coordinator *app.Coordinator
	log         *logrus.Logger
	upgrader    websocket.Upgrader
}

func NewWSHandler(source app.ChallengeSource, submitter app.Submitter, coordinator *app.Coordinator, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &WSHandler{
		source:      source,
		submitter:   submitter,
		coordinator: coordinator,
		log:         log,
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

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type sessionView struct {
	State         string          `json:"state"`
	QuestionIndex int             `json:"questionIndex"`
	Question      domain.Question `json:"question"`
	Answered      int             `json:"answered"`
	Total         int             `json:"total"`
	Remaining     int             `json:"remaining"`
	Selected      string          `json:"selected,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and drives the session protocol: start,
// answer, next, prev, submit and restart messages in; session, result,
// leaderboard and error messages out.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	challengeID := r.URL.Query().Get("challengeId")
	userID := r.URL.Query().Get("userId")
	if challengeID == "" || userID == "" {
		http.Error(w, "missing challengeId or userId", http.StatusBadRequest)
		return
	}
	user := identity.User{
		ID:          userID,
		DisplayName: r.URL.Query().Get("name"),
		Email:       r.URL.Query().Get("email"),
		PhotoURL:    r.URL.Query().Get("photo"),
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	challenge, err := h.source.GetChallenge(r.Context(), challengeID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	if err := h.coordinator.LoadChallenge(r.Context(), challengeID); err != nil {
		h.log.WithError(err).Warn("leaderboard load failed")
	}

	updates, cancel := h.coordinator.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// safeSend is for the completion callback, which can fire from the
	// session's countdown goroutine while the connection tears down.
	var sendMu sync.Mutex
	sendClosed := false
	safeSend := func(msg outboundMessage[any]) {
		sendMu.Lock()
		defer sendMu.Unlock()
		if sendClosed {
			return
		}
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	// single writer goroutine; gorilla connections forbid concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	session := app.NewChallengeSession(challenge, user, h.submitter)
	session.OnComplete(func(result domain.AttemptResult) {
		ctx, cancelComplete := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelComplete()
		if err := h.coordinator.MarkCompleted(ctx, result); err != nil {
			h.log.WithError(err).Warn("post-completion refresh failed")
		}
		safeSend(outboundMessage[any]{Type: "result", Payload: result})
	})

	send <- outboundMessage[any]{Type: "challenge", Payload: challenge}

	// a dropped connection must not leave a countdown running toward an
	// unwanted auto submit
	defer func() { session.Abandon() }()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			if err := session.Start(); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- h.viewMessage(session)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if err := session.SelectAnswer(payload.QuestionID, payload.Option); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- h.viewMessage(session)
		case "next":
			session.Next()
			send <- h.viewMessage(session)
		case "prev":
			session.Prev()
			send <- h.viewMessage(session)
		case "submit":
			if _, err := session.Submit(r.Context()); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			// the result message arrives via the completion callback
		case "restart":
			session = session.Restart()
			send <- h.viewMessage(session)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	sendMu.Lock()
	sendClosed = true
	close(send)
	sendMu.Unlock()
	<-writerDone
}

func (h *WSHandler) viewMessage(session *app.ChallengeSession) outboundMessage[any] {
	question, index := session.Question()
	answered, total := session.Progress()
	selected, _ := session.Answer(question.ID)
	return outboundMessage[any]{Type: "session", Payload: sessionView{
		State:         session.State().String(),
		QuestionIndex: index,
		Question:      question,
		Answered:      answered,
		Total:         total,
		Remaining:     session.Remaining(),
		Selected:      selected,
	}}
}
