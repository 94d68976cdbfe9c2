package models

import "encoding/json"

// Summary holds the derived per-session aggregate counters and the
// unlocked achievement set. It is recomputed from raw learning records;
// MaxStreak and Achievements are monotonic and never shrink.
type Summary struct {
	TotalLearned      int `json:"total_learned"`
	TotalTermsLearned int `json:"total_terms_learned"`

	// Mirror of TotalTermsLearned, kept for frontend compatibility
	TotalTermsAvailable int `json:"total_terms_available"`

	StreakDays      int      `json:"streak_days"`
	MaxStreak       int      `json:"max_streak"`
	LastLearnedDate *string  `json:"last_learned_date"`
	QuizScore       int      `json:"quiz_score"`
	Achievements    []string `json:"achievements"`
}

// NewSummary returns a zero-valued summary with an empty (non-nil)
// achievement list so it marshals as [] rather than null
func NewSummary() Summary {
	return Summary{Achievements: []string{}}
}

// ParseSummary decodes a stored summary payload. Malformed or empty
// payloads yield the zero-valued default; missing fields stay zero.
func ParseSummary(raw string) Summary {
	s := NewSummary()
	if raw == "" {
		return s
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return NewSummary()
	}
	if s.Achievements == nil {
		s.Achievements = []string{}
	}
	return s
}

// HasAchievement reports whether the achievement id is already unlocked
func (s *Summary) HasAchievement(id string) bool {
	for _, a := range s.Achievements {
		if a == id {
			return true
		}
	}
	return false
}
