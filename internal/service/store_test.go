package service

import (
	"sort"
	"time"

	"learntrack/internal/models"
)

// memStore is an in-memory ProgressStore for tests
type memStore struct {
	records map[string]models.LearningRecord

	// summaryWrites counts UpsertSummary calls to assert no-write paths
	summaryWrites int
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
	m.summaryWrites++
	return m.UpsertRecord(sessionID, models.KindStats, models.SummaryKey, payload)
}

// seedItems stores an item record with the given payload
func (m *memStore) seedItems(sessionID, date, payload string) {
	m.UpsertRecord(sessionID, models.KindItems, date, payload)
}

// seedTerms stores a term record with the given payload
func (m *memStore) seedTerms(sessionID, key, payload string) {
	m.UpsertRecord(sessionID, models.KindTerms, key, payload)
}
