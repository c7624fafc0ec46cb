package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"mathe-challenge-service/internal/app"
	"mathe-challenge-service/internal/domain"
)

// APIHandler serves the read-side JSON endpoints: challenge listing and
// detail, ranked leaderboards, and a user's attempt history.
type APIHandler struct {
	repo  *app.ChallengeRepository
	board *app.LeaderboardService
	log   *logrus.Logger
}

func NewAPIHandler(repo *app.ChallengeRepository, board *app.LeaderboardService, log *logrus.Logger) *APIHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &APIHandler{repo: repo, board: board, log: log}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/challenges", h.listChallenges)
	mux.HandleFunc("GET /api/challenges/{id}", h.getChallenge)
	mux.HandleFunc("GET /api/challenges/{id}/leaderboard", h.getLeaderboard)
	mux.HandleFunc("GET /api/users/{userId}/challenges/{challengeId}/attempts", h.getUserAttempts)
	mux.HandleFunc("GET /api/users/{userId}/challenges/{challengeId}/best", h.getUserBestAttempt)
}

func (h *APIHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.repo.GetAllChallenges(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, challenges)
}

func (h *APIHandler) getChallenge(w http.ResponseWriter, r *http.Request) {
	challenge, err := h.repo.GetChallenge(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, challenge)
}

func (h *APIHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	entries, err := h.board.GetLeaderboard(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}

func (h *APIHandler) getUserAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.repo.GetUserChallengeAttempts(r.Context(), r.PathValue("userId"), r.PathValue("challengeId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, attempts)
}

func (h *APIHandler) getUserBestAttempt(w http.ResponseWriter, r *http.Request) {
	best, ok, err := h.repo.GetUserBestAttempt(r.Context(), r.PathValue("userId"), r.PathValue("challengeId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no attempts"})
		return
	}
	h.writeJSON(w, http.StatusOK, best)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("write response failed")
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrChallengeNotFound), errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
