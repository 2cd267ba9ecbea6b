package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ─── Progression Endpoints ──────────────────────────────────────────────────

type creditActionRequest struct {
	UserID         string `json:"user_id"`
	ActionType     string `json:"action_type"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

func (s *Server) handleCreditAction(w http.ResponseWriter, r *http.Request) {
	var req creditActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.progression.Credit(req.UserID, req.ActionType, req.IdempotencyKey)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProgression(w http.ResponseWriter, r *http.Request) {
	snap, err := s.progression.Snapshot(chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := s.progression.History(chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleActionCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"actions": s.progression.Catalog().List(),
	})
}

func (s *Server) handleBadgeCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"badges": s.progression.BadgeDefinitions(),
	})
}

// ─── Notification Endpoints ─────────────────────────────────────────────────

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	pending, err := s.notifications.Pending(chi.URLParam(r, "userID"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": pending})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if err := s.notifications.MarkShown(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─── Challenge Endpoints ────────────────────────────────────────────────────

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := s.challenges.List()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"challenges": challenges})
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := s.challenges.Get(chi.URLParam(r, "challengeID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

type joinChallengeRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

func (s *Server) handleJoinChallenge(w http.ResponseWriter, r *http.Request) {
	var req joinChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.challenges.Join(req.UserID, chi.URLParam(r, "challengeID"), req.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

type completeDayRequest struct {
	UserID string `json:"user_id"`
	Day    int    `json:"day"`
}

func (s *Server) handleCompleteDay(w http.ResponseWriter, r *http.Request) {
	var req completeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.challenges.CompleteDay(req.UserID, chi.URLParam(r, "challengeID"), req.Day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type abandonChallengeRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleAbandonChallenge(w http.ResponseWriter, r *http.Request) {
	var req abandonChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.challenges.Abandon(req.UserID, chi.URLParam(r, "challengeID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleChallengeProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id query parameter required")
		return
	}
	p, err := s.challenges.Progress(userID, chi.URLParam(r, "challengeID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	board, err := s.challenges.Leaderboard(chi.URLParam(r, "challengeID"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": board})
}

type issueCertificateRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleIssueCertificate(w http.ResponseWriter, r *http.Request) {
	var req issueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cert, err := s.challenges.IssueCertificate(req.UserID, chi.URLParam(r, "challengeID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}

func (s *Server) handleCertificateByID(w http.ResponseWriter, r *http.Request) {
	cert, err := s.challenges.CertificateByID(chi.URLParam(r, "certificateID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}
