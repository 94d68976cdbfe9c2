package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"learntrack/internal/cache"
	"learntrack/internal/service"
)

const maxBodySize = 64 * 1024

// ProgressHandler handles the user-progress HTTP API
type ProgressHandler struct {
	progressService *service.ProgressService
	statsCache      *cache.StatsCache
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progressService *service.ProgressService, statsCache *cache.StatsCache) *ProgressHandler {
	return &ProgressHandler{
		progressService: progressService,
		statsCache:      statsCache,
	}
}

// CreateSession mints a new opaque session identifier
func (h *ProgressHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusCreated, map[string]string{
		"session_id": h.progressService.NewSessionID(),
	})
}

// GetProgress returns the merged date -> learned-item map plus the
// flattened summary fields for a session
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing session id", "", nil)
		return
	}

	progress, err := h.progressService.Progress(sessionID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load progress", "Error loading progress", err)
		return
	}

	respondJSON(w, http.StatusOK, progress)
}

// UpdateProgress records an item-learned event
func (h *ProgressHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	date := r.PathValue("date")
	if sessionID == "" || !validDate(date) {
		respondWithError(w, http.StatusBadRequest, "Invalid session id or date", "", nil)
		return
	}

	infoIndex, err := strconv.Atoi(r.PathValue("infoIndex"))
	if err != nil || infoIndex < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid info index", "", nil)
		return
	}

	if err := h.progressService.RecordItem(sessionID, date, infoIndex); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update progress", "Error updating progress", err)
		return
	}

	h.statsCache.Invalidate(r.Context(), sessionID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":            "Progress updated successfully",
		"achievement_gained": true,
	})
}

// UpdateTermProgress records a term-learned event
func (h *ProgressHandler) UpdateTermProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing session id", "", nil)
		return
	}

	var req struct {
		Term      string `json:"term"`
		Date      string `json:"date"`
		InfoIndex int    `json:"info_index"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}
	if req.Term == "" || !validDate(req.Date) || req.InfoIndex < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid term, date or info index", "", nil)
		return
	}

	if err := h.progressService.RecordTerm(sessionID, req.Date, req.InfoIndex, req.Term); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update term progress", "Error updating term progress", err)
		return
	}

	h.statsCache.Invalidate(r.Context(), sessionID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":            "Term progress updated successfully",
		"achievement_gained": true,
	})
}

// GetStats returns the summary record, or a zero-valued default
func (h *ProgressHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing session id", "", nil)
		return
	}

	if payload, ok := h.statsCache.Get(r.Context(), sessionID); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(payload))
		return
	}

	stats, err := h.progressService.Stats(sessionID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load stats", "Error loading stats", err)
		return
	}

	h.statsCache.Set(r.Context(), sessionID, string(stats))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(stats)
}

// UpdateStats overwrites the summary record verbatim. This trusts the
// client; derived counters are reconciled by the next recompute.
func (h *ProgressHandler) UpdateStats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing session id", "", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		respondWithError(w, http.StatusBadRequest, "Request body must be a JSON object", "", nil)
		return
	}

	if err := h.progressService.OverrideStats(sessionID, body); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update stats", "Error updating stats", err)
		return
	}

	h.statsCache.Invalidate(r.Context(), sessionID)

	respondJSON(w, http.StatusOK, map[string]string{"message": "Stats updated successfully"})
}

// UpdateQuizScore records a quiz-submitted event
func (h *ProgressHandler) UpdateQuizScore(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing session id", "", nil)
		return
	}

	var req struct {
		Score          int `json:"score"`
		TotalQuestions int `json:"total_questions"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", nil)
		return
	}

	quizScore, err := h.progressService.SubmitQuiz(sessionID, req.Score, req.TotalQuestions)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to update quiz score", "Error updating quiz score", err)
		return
	}

	h.statsCache.Invalidate(r.Context(), sessionID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Quiz score updated successfully",
		"quiz_score": quizScore,
	})
}

// GetAchievements evaluates and returns the session's achievements
func (h *ProgressHandler) GetAchievements(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing session id", "", nil)
		return
	}

	current, newlyUnlocked, err := h.progressService.EvaluateAchievements(sessionID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to evaluate achievements", "Error evaluating achievements", err)
		return
	}

	if len(newlyUnlocked) > 0 {
		h.statsCache.Invalidate(r.Context(), sessionID)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"current_achievements": current,
		"new_achievements":     newlyUnlocked,
	})
}

// Health reports service liveness
func (h *ProgressHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validDate reports whether s is a calendar date in YYYY-MM-DD form
func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
