package service

import (
	"encoding/json"
	"fmt"
	"time"

	"learntrack/internal/models"
)

const dateLayout = "2006-01-02"

// StatsService recomputes the per-session summary record from raw
// learning records
type StatsService struct {
	store ProgressStore
}

// NewStatsService creates a new stats service
func NewStatsService(store ProgressStore) *StatsService {
	return &StatsService{store: store}
}

// Recompute derives the summary counters for a session from all of its
// raw learning records and persists the result. Records whose payload
// does not decode are skipped, never fatal. MaxStreak, QuizScore and
// Achievements are carried over from the previous summary; MaxStreak
// never decreases.
func (s *StatsService) Recompute(sessionID string) (models.Summary, error) {
	itemRecords, err := s.store.ListRecords(sessionID, models.KindItems)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to list item records: %w", err)
	}

	termRecords, err := s.store.ListRecords(sessionID, models.KindTerms)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to list term records: %w", err)
	}

	totalLearned := 0
	activeDates := make(map[string]bool)
	for _, record := range itemRecords {
		items := record.ItemSet()
		totalLearned += len(items)
		if len(items) > 0 {
			activeDates[record.RecordKey] = true
		}
	}

	totalTerms := 0
	for _, record := range termRecords {
		totalTerms += len(record.TermSet())
	}

	streakDays, lastDate := computeStreak(activeDates)

	prevRaw, err := s.store.GetSummary(sessionID)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to load summary: %w", err)
	}
	prev := models.ParseSummary(prevRaw)

	maxStreak := prev.MaxStreak
	if streakDays > maxStreak {
		maxStreak = streakDays
	}

	summary := models.Summary{
		TotalLearned:        totalLearned,
		TotalTermsLearned:   totalTerms,
		TotalTermsAvailable: totalTerms,
		StreakDays:          streakDays,
		MaxStreak:           maxStreak,
		QuizScore:           prev.QuizScore,
		Achievements:        prev.Achievements,
	}
	if lastDate != "" {
		summary.LastLearnedDate = &lastDate
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to encode summary: %w", err)
	}

	if err := s.store.UpsertSummary(sessionID, string(payload)); err != nil {
		return models.Summary{}, fmt.Errorf("failed to persist summary: %w", err)
	}

	return summary, nil
}

// computeStreak counts consecutive active calendar days ending at the
// most recent active date. Date strings are YYYY-MM-DD, so the
// lexicographic maximum is the chronological maximum.
func computeStreak(activeDates map[string]bool) (int, string) {
	lastDate := ""
	for date := range activeDates {
		if date > lastDate {
			lastDate = date
		}
	}
	if lastDate == "" {
		return 0, ""
	}

	streak := 0
	current := lastDate
	for activeDates[current] {
		streak++
		t, err := time.Parse(dateLayout, current)
		if err != nil {
			// Unparseable date ends the walk; the day itself still counts
			break
		}
		current = t.AddDate(0, 0, -1).Format(dateLayout)
	}

	return streak, lastDate
}
