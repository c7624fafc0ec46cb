package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mathe-challenge-service/internal/app"
	"mathe-challenge-service/internal/docstore"
	"mathe-challenge-service/internal/domain"
	"mathe-challenge-service/internal/infra/memory"
)

func sampleChallenge() domain.Challenge {
	return domain.Challenge{
		Title:       "Arithmetic",
		Description: "Two quick questions",
		TotalPoints: 30,
		Questions: []domain.Question{
			{ID: "q1", Question: "1+1?", Options: []string{"1", "2"}, CorrectAnswer: "2", Points: 10},
			{ID: "q2", Question: "2+2?", Options: []string{"4", "5"}, CorrectAnswer: "4", Points: 20},
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	if _, err := store.Collection(docstore.Challenges).Set(context.Background(), "ch-1", sampleChallenge()); err != nil {
		t.Fatalf("seed challenge: %v", err)
	}

	repo := app.NewChallengeRepository(store, nil)
	submissions := app.NewSubmissionService(store, nil)
	board := app.NewLeaderboardService(store, nil, app.WithRetries(0))
	coordinator := app.NewCoordinator(app.CoordinatorConfig{
		Challenges:  repo,
		Lister:      repo,
		Leaderboard: board,
	})
	wsHandler := NewWSHandler(repo, submissions, coordinator, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dialWS(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads messages until one of the wanted type arrives, skipping
// interleaved leaderboard pushes.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if msg.Type == want {
			var payload map[string]any
			if len(msg.Payload) > 0 {
				if err := json.Unmarshal(msg.Payload, &payload); err != nil {
					t.Fatalf("decode %s payload: %v", want, err)
				}
			}
			return payload
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error message: %s", msg.Payload)
		}
	}
	t.Fatalf("never received %q", want)
	return nil
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocketChallengeFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "challengeId=ch-1&userId=u1&name=Alice")

	challenge := readUntil(t, conn, "challenge")
	if challenge["title"] != "Arithmetic" {
		t.Fatalf("expected challenge first, got %v", challenge)
	}

	send(t, conn, "start", nil)
	session := readUntil(t, conn, "session")
	if session["state"] != "inProgress" {
		t.Fatalf("expected inProgress, got %v", session["state"])
	}

	send(t, conn, "answer", map[string]any{"questionId": "q1", "option": "2"})
	readUntil(t, conn, "session")
	send(t, conn, "next", nil)
	session = readUntil(t, conn, "session")
	if session["questionIndex"] != float64(1) {
		t.Fatalf("expected index 1 after next, got %v", session["questionIndex"])
	}
	send(t, conn, "answer", map[string]any{"questionId": "q2", "option": "5"})
	readUntil(t, conn, "session")

	send(t, conn, "submit", nil)

	// the result and the forced leaderboard refresh arrive in either order
	resultSeen := false
	boardSeen := false
	deadline := time.Now().Add(5 * time.Second)
	for !(resultSeen && boardSeen) {
		var msg struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read after submit: %v", err)
		}
		switch msg.Type {
		case "result":
			var result map[string]any
			if err := json.Unmarshal(msg.Payload, &result); err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if result["score"] != float64(10) {
				t.Fatalf("expected score 10, got %v", result["score"])
			}
			if result["correctAnswers"] != float64(1) || result["totalQuestions"] != float64(2) {
				t.Fatalf("expected 1/2 correct, got %v", result)
			}
			resultSeen = true
		case "leaderboard":
			var entries []map[string]any
			if err := json.Unmarshal(msg.Payload, &entries); err != nil {
				t.Fatalf("decode leaderboard: %v", err)
			}
			if len(entries) == 0 {
				continue
			}
			if entries[0]["userId"] != "u1" {
				t.Fatalf("expected u1 on the board, got %v", entries)
			}
			boardSeen = true
		case "error":
			t.Fatalf("unexpected error message: %s", msg.Payload)
		}
	}
}

func TestWebSocketRestartAfterCompletion(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "challengeId=ch-1&userId=u1&name=Alice")
	readUntil(t, conn, "challenge")

	send(t, conn, "start", nil)
	readUntil(t, conn, "session")
	send(t, conn, "answer", map[string]any{"questionId": "q1", "option": "2"})
	readUntil(t, conn, "session")
	send(t, conn, "answer", map[string]any{"questionId": "q2", "option": "4"})
	readUntil(t, conn, "session")
	send(t, conn, "submit", nil)
	readUntil(t, conn, "result")

	send(t, conn, "restart", nil)
	session := readUntil(t, conn, "session")
	if session["state"] != "idle" {
		t.Fatalf("expected fresh idle session, got %v", session["state"])
	}
	if session["answered"] != float64(0) {
		t.Fatalf("expected no answers after restart, got %v", session["answered"])
	}

	send(t, conn, "start", nil)
	session = readUntil(t, conn, "session")
	if session["state"] != "inProgress" {
		t.Fatalf("expected restarted session to start, got %v", session["state"])
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws?challengeId=ch-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketUnknownChallenge(t *testing.T) {
	server := newTestServer(t)
	conn := dialWS(t, server, "challengeId=nope&userId=u1&name=Alice")

	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "error" {
		t.Fatalf("expected error message, got %s", msg.Type)
	}
}
