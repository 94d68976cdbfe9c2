package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"learntrack/internal/database"
)

// BackupData represents the complete learning-record backup structure
type BackupData struct {
	Version      string                 `json:"version"`
	ExportedAt   time.Time              `json:"exported_at"`
	DatabaseType string                 `json:"database_type"`
	Records      []LearningRecordBackup `json:"records"`
}

// LearningRecordBackup represents one learning record for backup
type LearningRecordBackup struct {
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	RecordKey string    `json:"record_key"`
	Payload   string    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BackupService exports and imports the learning_records table as JSON
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export writes all learning records as a versioned JSON document
func (s *BackupService) Export(w io.Writer) error {
	query := `
		SELECT session_id, kind, record_key, payload, updated_at
		FROM learning_records
		ORDER BY session_id, kind, record_key
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query learning records: %w", err)
	}
	defer rows.Close()

	backup := BackupData{
		Version:      "1",
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
		Records:      []LearningRecordBackup{},
	}

	for rows.Next() {
		var record LearningRecordBackup
		var payload sql.NullString

		err := rows.Scan(&record.SessionID, &record.Kind, &record.RecordKey, &payload, &record.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to scan learning record: %w", err)
		}

		if payload.Valid {
			record.Payload = payload.String
		}
		backup.Records = append(backup.Records, record)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read learning records: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	return nil
}

// ExportToFile writes the backup to the given path
func (s *BackupService) ExportToFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	return s.Export(file)
}

// Import restores learning records from a backup document. Existing
// records with matching keys are overwritten; with clear set, the whole
// table is emptied first.
func (s *BackupService) Import(r io.Reader, clear bool) (int, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return 0, fmt.Errorf("failed to decode backup: %w", err)
	}

	if backup.Version != "1" {
		return 0, fmt.Errorf("unsupported backup version: %q", backup.Version)
	}

	if clear {
		if _, err := s.db.Exec("DELETE FROM learning_records"); err != nil {
			return 0, fmt.Errorf("failed to clear learning records: %w", err)
		}
	}

	upsert := s.db.Dialect.UpsertRecordQuery()
	imported := 0
	for _, record := range backup.Records {
		_, err := s.db.Exec(upsert, record.SessionID, record.Kind, record.RecordKey, record.Payload)
		if err != nil {
			return imported, fmt.Errorf("failed to import record (%s, %s, %s): %w",
				record.SessionID, record.Kind, record.RecordKey, err)
		}
		imported++
	}

	return imported, nil
}

// ImportFromFile restores learning records from the given path
func (s *BackupService) ImportFromFile(path string, clear bool) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	return s.Import(file, clear)
}
