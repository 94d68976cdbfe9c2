package service

import (
	"encoding/json"
	"fmt"

	"learntrack/internal/models"
)

// achievementRule gates one badge on a summary counter threshold
type achievementRule struct {
	ID        string
	Threshold int
	Counter   func(*models.Summary) int
}

func totalLearned(s *models.Summary) int { return s.TotalLearned }
func totalTerms(s *models.Summary) int   { return s.TotalTermsLearned }
func streakDays(s *models.Summary) int   { return s.StreakDays }
func quizScore(s *models.Summary) int    { return s.QuizScore }

// achievementRules is the fixed, ordered unlock table. Rules are
// independent; each is re-evaluated on every call and an unlocked id
// is never removed.
var achievementRules = []achievementRule{
	{"first_learn", 1, totalLearned},
	{"beginner", 3, totalLearned},
	{"learner", 5, totalLearned},
	{"first_10", 10, totalLearned},
	{"knowledge_seeker", 20, totalLearned},
	{"first_50", 50, totalLearned},
	{"first_term", 1, totalTerms},
	{"term_collector", 5, totalTerms},
	{"term_master", 10, totalTerms},
	{"three_day_streak", 3, streakDays},
	{"week_streak", 7, streakDays},
	{"two_week_streak", 14, streakDays},
	{"quiz_beginner", 60, quizScore},
	{"quiz_master", 80, quizScore},
	{"perfect_quiz", 100, quizScore},
}

// AchievementService evaluates threshold-based badge unlocks against
// the current summary counters
type AchievementService struct {
	store ProgressStore
}

// NewAchievementService creates a new achievement service
func NewAchievementService(store ProgressStore) *AchievementService {
	return &AchievementService{store: store}
}

// Evaluate compares the session's counters against the unlock table and
// returns the full achievement set plus the ids unlocked by this call.
// The updated set is persisted only when something new was unlocked.
func (s *AchievementService) Evaluate(sessionID string) ([]string, []string, error) {
	raw, err := s.store.GetSummary(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load summary: %w", err)
	}
	summary := models.ParseSummary(raw)

	newAchievements := []string{}
	for _, rule := range achievementRules {
		if rule.Counter(&summary) >= rule.Threshold && !summary.HasAchievement(rule.ID) {
			summary.Achievements = append(summary.Achievements, rule.ID)
			newAchievements = append(newAchievements, rule.ID)
		}
	}

	if len(newAchievements) > 0 {
		payload, err := json.Marshal(summary)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode summary: %w", err)
		}
		if err := s.store.UpsertSummary(sessionID, string(payload)); err != nil {
			return nil, nil, fmt.Errorf("failed to persist summary: %w", err)
		}
	}

	return summary.Achievements, newAchievements, nil
}
