package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"learntrack/internal/models"
	"learntrack/internal/service"
)

// memStore is an in-memory service.ProgressStore for handler tests
type memStore struct {
	records map[string]models.LearningRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]models.LearningRecord)}
}

func storeKey(sessionID string, kind models.RecordKind, key string) string {
	return sessionID + "\x00" + string(kind) + "\x00" + key
}

func (m *memStore) GetRecord(sessionID string, kind models.RecordKind, key string) (*models.LearningRecord, error) {
	record, ok := m.records[storeKey(sessionID, kind, key)]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *memStore) ListRecords(sessionID string, kind models.RecordKind) ([]models.LearningRecord, error) {
	var result []models.LearningRecord
	for _, record := range m.records {
		if record.SessionID == sessionID && record.Kind == kind {
			result = append(result, record)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RecordKey < result[j].RecordKey })
	return result, nil
}

func (m *memStore) UpsertRecord(sessionID string, kind models.RecordKind, key, payload string) error {
	m.records[storeKey(sessionID, kind, key)] = models.LearningRecord{
		SessionID: sessionID,
		Kind:      kind,
		RecordKey: key,
		Payload:   payload,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (m *memStore) GetSummary(sessionID string) (string, error) {
	record, ok := m.records[storeKey(sessionID, models.KindStats, models.SummaryKey)]
	if !ok {
		return "", nil
	}
	return record.Payload, nil
}

func (m *memStore) UpsertSummary(sessionID, payload string) error {
	return m.UpsertRecord(sessionID, models.KindStats, models.SummaryKey, payload)
}

// newTestServer wires the full handler stack over an in-memory store
func newTestServer() *httptest.Server {
	store := newMemStore()
	stats := service.NewStatsService(store)
	achievements := service.NewAchievementService(store)
	progressService := service.NewProgressService(store, stats, achievements)

	// nil cache: caching disabled, as when REDIS_ADDR is unset
	handler := NewProgressHandler(progressService, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("POST /api/sessions", handler.CreateSession)
	mux.HandleFunc("GET /api/user-progress/{sessionId}", handler.GetProgress)
	mux.HandleFunc("POST /api/user-progress/{sessionId}/{date}/{infoIndex}", handler.UpdateProgress)
	mux.HandleFunc("POST /api/user-progress/term-progress/{sessionId}", handler.UpdateTermProgress)
	mux.HandleFunc("GET /api/user-progress/stats/{sessionId}", handler.GetStats)
	mux.HandleFunc("POST /api/user-progress/stats/{sessionId}", handler.UpdateStats)
	mux.HandleFunc("POST /api/user-progress/quiz-score/{sessionId}", handler.UpdateQuizScore)
	mux.HandleFunc("GET /api/user-progress/achievements/{sessionId}", handler.GetAchievements)

	return httptest.NewServer(Recover(mux))
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, body := doJSON(t, http.MethodGet, server.URL+"/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestCreateSession(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/sessions", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %v, want 201", resp.StatusCode)
	}
	if id, _ := body["session_id"].(string); id == "" {
		t.Error("session_id should be a non-empty string")
	}
}

func TestUpdateProgressAndStats(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/user-progress/s1/2024-01-01/0", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}
	if body["message"] != "Progress updated successfully" {
		t.Errorf("message = %v", body["message"])
	}
	if body["achievement_gained"] != true {
		t.Errorf("achievement_gained = %v, want true", body["achievement_gained"])
	}

	doJSON(t, http.MethodPost, server.URL+"/api/user-progress/s1/2024-01-02/1", "")

	resp, stats := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/stats/s1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %v, want 200", resp.StatusCode)
	}
	if stats["total_learned"] != float64(2) {
		t.Errorf("total_learned = %v, want 2", stats["total_learned"])
	}
	if stats["streak_days"] != float64(2) {
		t.Errorf("streak_days = %v, want 2", stats["streak_days"])
	}
	if stats["last_learned_date"] != "2024-01-02" {
		t.Errorf("last_learned_date = %v, want 2024-01-02", stats["last_learned_date"])
	}
}

func TestUpdateProgressRejectsBadInput(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	tests := []struct {
		name string
		path string
	}{
		{name: "invalid date", path: "/api/user-progress/s1/not-a-date/0"},
		{name: "invalid index", path: "/api/user-progress/s1/2024-01-01/x"},
		{name: "negative index", path: "/api/user-progress/s1/2024-01-01/-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := doJSON(t, http.MethodPost, server.URL+tt.path, "")
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %v, want 400", resp.StatusCode)
			}
		})
	}
}

func TestTermProgress(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/user-progress/term-progress/s1",
		`{"term":"embedding","date":"2024-01-01","info_index":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}
	if body["message"] != "Term progress updated successfully" {
		t.Errorf("message = %v", body["message"])
	}

	_, stats := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/stats/s1", "")
	if stats["total_terms_learned"] != float64(1) {
		t.Errorf("total_terms_learned = %v, want 1", stats["total_terms_learned"])
	}

	t.Run("missing term is rejected", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/user-progress/term-progress/s1",
			`{"date":"2024-01-01","info_index":0}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %v, want 400", resp.StatusCode)
		}
	})
}

func TestGetStatsDefaults(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, stats := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/stats/nobody", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200 even for unknown sessions", resp.StatusCode)
	}
	if stats["total_learned"] != float64(0) {
		t.Errorf("total_learned = %v, want 0", stats["total_learned"])
	}
	if stats["last_learned_date"] != nil {
		t.Errorf("last_learned_date = %v, want null", stats["last_learned_date"])
	}
}

func TestQuizScoreFlow(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/user-progress/quiz-score/s1",
		`{"score":8,"total_questions":10}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}
	if body["quiz_score"] != float64(80) {
		t.Errorf("quiz_score = %v, want 80", body["quiz_score"])
	}

	_, achievements := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/achievements/s1", "")
	current, _ := achievements["current_achievements"].([]interface{})
	found := map[string]bool{}
	for _, id := range current {
		found[id.(string)] = true
	}
	if !found["quiz_beginner"] || !found["quiz_master"] {
		t.Errorf("current_achievements = %v, want quiz_beginner and quiz_master", current)
	}
	if found["perfect_quiz"] {
		t.Errorf("perfect_quiz should not unlock at 80: %v", current)
	}
}

func TestAchievementsAreMonotonicAcrossCalls(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	doJSON(t, http.MethodPost, server.URL+"/api/user-progress/s1/2024-01-01/0", "")

	_, first := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/achievements/s1", "")
	newly, _ := first["new_achievements"].([]interface{})
	if len(newly) == 0 {
		t.Fatal("first evaluation should unlock first_learn")
	}

	_, second := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/achievements/s1", "")
	if newly, _ := second["new_achievements"].([]interface{}); len(newly) != 0 {
		t.Errorf("second evaluation should add nothing, got %v", newly)
	}
	if len(second["current_achievements"].([]interface{})) != len(first["current_achievements"].([]interface{})) {
		t.Error("achievement set must not shrink between calls")
	}
}

func TestStatsOverride(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	payload := `{"total_learned":42,"streak_days":9,"achievements":["first_learn"]}`
	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/user-progress/stats/s1", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}
	if body["message"] != "Stats updated successfully" {
		t.Errorf("message = %v", body["message"])
	}

	_, stats := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/stats/s1", "")
	if stats["total_learned"] != float64(42) {
		t.Errorf("total_learned = %v, want the overridden 42", stats["total_learned"])
	}

	t.Run("non-object body is rejected", func(t *testing.T) {
		resp, _ := doJSON(t, http.MethodPost, server.URL+"/api/user-progress/stats/s1", `[1,2,3]`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %v, want 400", resp.StatusCode)
		}
	})
}

func TestGetProgressMergedView(t *testing.T) {
	server := newTestServer()
	defer server.Close()

	doJSON(t, http.MethodPost, server.URL+"/api/user-progress/s1/2024-01-01/0", "")
	doJSON(t, http.MethodPost, server.URL+"/api/user-progress/s1/2024-01-01/2", "")

	resp, progress := doJSON(t, http.MethodGet, server.URL+"/api/user-progress/s1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %v, want 200", resp.StatusCode)
	}

	items, ok := progress["2024-01-01"].([]interface{})
	if !ok || len(items) != 2 {
		t.Errorf("progress[2024-01-01] = %v, want two indices", progress["2024-01-01"])
	}
	if progress["total_learned"] != float64(2) {
		t.Errorf("total_learned = %v, want 2 flattened into the view", progress["total_learned"])
	}
}
