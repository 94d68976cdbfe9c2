package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// RecordKind discriminates what a learning record holds
type RecordKind string

const (
	// KindItems records are keyed by calendar date (YYYY-MM-DD) and hold
	// the set of informational item indices learned that day
	KindItems RecordKind = "items"

	// KindTerms records are keyed by "date:info_index" and hold the set
	// of vocabulary terms learned for that item
	KindTerms RecordKind = "terms"

	// KindStats is the per-session summary slot (single row, empty key)
	KindStats RecordKind = "stats"
)

// SummaryKey is the record key used for the summary slot
const SummaryKey = ""

// LearningRecord is one stored row of a learner's progress
type LearningRecord struct {
	SessionID string
	Kind      RecordKind
	RecordKey string
	Payload   string
	UpdatedAt time.Time
}

// TermKey builds the record key for a term record
func TermKey(date string, infoIndex int) string {
	return date + ":" + strconv.Itoa(infoIndex)
}

// ItemSet decodes the payload as a list of learned item indices.
// Malformed payloads decode to an empty set, never an error.
func (r *LearningRecord) ItemSet() []int {
	var items []int
	if err := json.Unmarshal([]byte(r.Payload), &items); err != nil {
		return nil
	}
	return items
}

// TermSet decodes the payload as a list of learned terms.
// Malformed payloads decode to an empty set, never an error.
func (r *LearningRecord) TermSet() []string {
	var terms []string
	if err := json.Unmarshal([]byte(r.Payload), &terms); err != nil {
		return nil
	}
	return terms
}

// ContainsItem reports whether the decoded item set includes index
func ContainsItem(items []int, index int) bool {
	for _, item := range items {
		if item == index {
			return true
		}
	}
	return false
}

// ContainsTerm reports whether the decoded term set includes term
func ContainsTerm(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}
