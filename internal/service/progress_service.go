package service

import (
	"encoding/json"
	"fmt"
	"math"

	"learntrack/internal/models"

	"github.com/google/uuid"
)

// ProgressService orchestrates learning events: it grows the raw
// records, then delegates to the stats and achievement services
type ProgressService struct {
	store        ProgressStore
	stats        *StatsService
	achievements *AchievementService
}

// NewProgressService creates a new progress service
func NewProgressService(store ProgressStore, stats *StatsService, achievements *AchievementService) *ProgressService {
	return &ProgressService{
		store:        store,
		stats:        stats,
		achievements: achievements,
	}
}

// NewSessionID mints a fresh opaque session identifier
func (s *ProgressService) NewSessionID() string {
	return uuid.NewString()
}

// RecordItem adds an item index to the date's learned set and
// recomputes the summary. Recording the same (date, index) twice is a
// no-op on the set.
func (s *ProgressService) RecordItem(sessionID, date string, infoIndex int) error {
	record, err := s.store.GetRecord(sessionID, models.KindItems, date)
	if err != nil {
		return fmt.Errorf("failed to load item record: %w", err)
	}

	var items []int
	if record != nil {
		items = record.ItemSet()
	}

	if !models.ContainsItem(items, infoIndex) {
		items = append(items, infoIndex)
		payload, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("failed to encode item set: %w", err)
		}
		if err := s.store.UpsertRecord(sessionID, models.KindItems, date, string(payload)); err != nil {
			return fmt.Errorf("failed to persist item record: %w", err)
		}
	}

	_, err = s.stats.Recompute(sessionID)
	return err
}

// RecordTerm adds a term to the (date, info_index) learned set and
// recomputes the summary
func (s *ProgressService) RecordTerm(sessionID, date string, infoIndex int, term string) error {
	key := models.TermKey(date, infoIndex)

	record, err := s.store.GetRecord(sessionID, models.KindTerms, key)
	if err != nil {
		return fmt.Errorf("failed to load term record: %w", err)
	}

	var terms []string
	if record != nil {
		terms = record.TermSet()
	}

	if !models.ContainsTerm(terms, term) {
		terms = append(terms, term)
		payload, err := json.Marshal(terms)
		if err != nil {
			return fmt.Errorf("failed to encode term set: %w", err)
		}
		if err := s.store.UpsertRecord(sessionID, models.KindTerms, key, string(payload)); err != nil {
			return fmt.Errorf("failed to persist term record: %w", err)
		}
	}

	_, err = s.stats.Recompute(sessionID)
	return err
}

// SubmitQuiz stores the percentage quiz score and evaluates
// achievements. Only the quiz_score field changes; every other summary
// field survives the update. A non-positive question count scores 0.
func (s *ProgressService) SubmitQuiz(sessionID string, score, totalQuestions int) (int, error) {
	quizScore := 0
	if totalQuestions > 0 {
		quizScore = int(math.Round(100 * float64(score) / float64(totalQuestions)))
	}

	raw, err := s.store.GetSummary(sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to load summary: %w", err)
	}

	summary := models.ParseSummary(raw)
	summary.QuizScore = quizScore

	payload, err := json.Marshal(summary)
	if err != nil {
		return 0, fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := s.store.UpsertSummary(sessionID, string(payload)); err != nil {
		return 0, fmt.Errorf("failed to persist summary: %w", err)
	}

	if _, _, err := s.achievements.Evaluate(sessionID); err != nil {
		return 0, err
	}

	return quizScore, nil
}

// Progress returns the merged progress view: date -> learned item
// indices for every item record, plus the flattened summary fields
func (s *ProgressService) Progress(sessionID string) (map[string]interface{}, error) {
	records, err := s.store.ListRecords(sessionID, models.KindItems)
	if err != nil {
		return nil, fmt.Errorf("failed to list item records: %w", err)
	}

	result := make(map[string]interface{})
	for _, record := range records {
		if items := record.ItemSet(); items != nil {
			result[record.RecordKey] = items
		}
	}

	raw, err := s.store.GetSummary(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	if raw != "" {
		var fields map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &fields); err == nil {
			for k, v := range fields {
				result[k] = v
			}
		}
	}

	return result, nil
}

// Stats returns the stored summary payload verbatim, or the zero-valued
// default when the session has none (or the stored payload is corrupt)
func (s *ProgressService) Stats(sessionID string) (json.RawMessage, error) {
	raw, err := s.store.GetSummary(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}

	if raw != "" && json.Valid([]byte(raw)) {
		return json.RawMessage(raw), nil
	}

	payload, err := json.Marshal(models.NewSummary())
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return payload, nil
}

// OverrideStats replaces the summary record verbatim with a
// client-supplied payload. This is a trusted sync path: it bypasses the
// derived-counter invariants and the next recompute reconciles them.
func (s *ProgressService) OverrideStats(sessionID string, payload json.RawMessage) error {
	if err := s.store.UpsertSummary(sessionID, string(payload)); err != nil {
		return fmt.Errorf("failed to persist summary: %w", err)
	}
	return nil
}

// EvaluateAchievements runs the achievement evaluator for a session
func (s *ProgressService) EvaluateAchievements(sessionID string) ([]string, []string, error) {
	return s.achievements.Evaluate(sessionID)
}
