package domain

import (
	"database/sql"
	"time"
)

// Transcription status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidStatus reports whether s is one of the known transcription statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// TranscriptionRecord is the client-visible state of one transcription
// request. The record store is its single source of truth; the job queue
// tracks its own attempt counters independently.
type TranscriptionRecord struct {
	ID            string         `db:"id"`
	AudioURL      string         `db:"audio_url"`
	Status        string         `db:"status"`
	Transcription string         `db:"transcription"`
	FilePath      sql.NullString `db:"file_path"`
	Attempts      int            `db:"attempts"`
	Error         string         `db:"error_message"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}
