package service

import "learntrack/internal/models"

// ProgressStore is the record store contract the services operate on.
// *repository.ProgressRepository satisfies it; tests use an in-memory
// implementation.
type ProgressStore interface {
	GetRecord(sessionID string, kind models.RecordKind, key string) (*models.LearningRecord, error)
	ListRecords(sessionID string, kind models.RecordKind) ([]models.LearningRecord, error)
	UpsertRecord(sessionID string, kind models.RecordKind, key, payload string) error
	GetSummary(sessionID string) (string, error)
	UpsertSummary(sessionID, payload string) error
}
