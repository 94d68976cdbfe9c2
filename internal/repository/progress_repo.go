package repository

import (
	"database/sql"

	"learntrack/internal/database"
	"learntrack/internal/models"
)

// ProgressRepository handles learning record database operations
type ProgressRepository struct {
	db *database.DB
}

// NewProgressRepository creates a new progress repository
func NewProgressRepository(db *database.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetRecord retrieves a single learning record, or nil if absent
func (r *ProgressRepository) GetRecord(sessionID string, kind models.RecordKind, key string) (*models.LearningRecord, error) {
	query := `
		SELECT session_id, kind, record_key, payload, updated_at
		FROM learning_records
		WHERE session_id = ? AND kind = ? AND record_key = ?
	`

	record := &models.LearningRecord{}
	var payload sql.NullString
	var kindStr string

	err := r.db.QueryRow(query, sessionID, string(kind), key).Scan(
		&record.SessionID,
		&kindStr,
		&record.RecordKey,
		&payload,
		&record.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record.Kind = models.RecordKind(kindStr)
	if payload.Valid {
		record.Payload = payload.String
	}

	return record, nil
}

// ListRecords retrieves all records of one kind for a session
func (r *ProgressRepository) ListRecords(sessionID string, kind models.RecordKind) ([]models.LearningRecord, error) {
	query := `
		SELECT session_id, kind, record_key, payload, updated_at
		FROM learning_records
		WHERE session_id = ? AND kind = ?
		ORDER BY record_key ASC
	`

	rows, err := r.db.Query(query, sessionID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.LearningRecord
	for rows.Next() {
		var record models.LearningRecord
		var payload sql.NullString
		var kindStr string

		err := rows.Scan(
			&record.SessionID,
			&kindStr,
			&record.RecordKey,
			&payload,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		record.Kind = models.RecordKind(kindStr)
		if payload.Valid {
			record.Payload = payload.String
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// UpsertRecord inserts or replaces a record's payload
func (r *ProgressRepository) UpsertRecord(sessionID string, kind models.RecordKind, key, payload string) error {
	_, err := r.db.Exec(r.db.Dialect.UpsertRecordQuery(), sessionID, string(kind), key, payload)
	return err
}

// GetSummary retrieves the raw summary payload for a session, or "" if absent
func (r *ProgressRepository) GetSummary(sessionID string) (string, error) {
	record, err := r.GetRecord(sessionID, models.KindStats, models.SummaryKey)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", nil
	}
	return record.Payload, nil
}

// UpsertSummary inserts or replaces the summary payload for a session
func (r *ProgressRepository) UpsertSummary(sessionID, payload string) error {
	return r.UpsertRecord(sessionID, models.KindStats, models.SummaryKey, payload)
}
