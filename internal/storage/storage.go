package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurahnFakhri/audioTranscribe/internal/domain"
	"github.com/BurahnFakhri/audioTranscribe/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

const (
	// DefaultPageSize is the list page size when none is requested
	DefaultPageSize = 20
	// MaxPageSize is the hard ceiling on the list page size
	MaxPageSize = 100
)

// RecordStore persists transcription records. It is the single owner of
// record state; the job queue keeps its own table.
type RecordStore struct {
	db *sqlx.DB
}

// NewRecordStore creates a RecordStore backed by the given client
func NewRecordStore(pg *postgresql.Client) *RecordStore {
	return &RecordStore{db: pg.GetDB()}
}

// NewRecordStoreFromDB creates a RecordStore from a raw sqlx handle
func NewRecordStoreFromDB(db *sqlx.DB) *RecordStore {
	return &RecordStore{db: db}
}

// CreateRecord inserts a new transcription record
func (s *RecordStore) CreateRecord(ctx context.Context, rec *domain.TranscriptionRecord) error {
	query := `
		INSERT INTO transcriptions (
			id, audio_url, status, transcription,
			file_path, attempts, error_message, created_at, updated_at
		) VALUES (
			:id, :audio_url, :status, :transcription,
			:file_path, :attempts, :error_message, :created_at, :updated_at
		)
	`

	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to create transcription record: %w", err)
	}

	return nil
}

// GetRecord fetches a record by id, returning domain.ErrNotFound when absent
func (s *RecordStore) GetRecord(ctx context.Context, id string) (*domain.TranscriptionRecord, error) {
	query := `
		SELECT id, audio_url, status, transcription,
		       file_path, attempts, error_message, created_at, updated_at
		FROM transcriptions
		WHERE id = $1
	`

	var rec domain.TranscriptionRecord
	if err := s.db.GetContext(ctx, &rec, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transcription record: %w", err)
	}

	return &rec, nil
}

// UpdateRecord writes the mutable fields of rec back to the database and
// refreshes updated_at. audio_url and created_at are immutable.
func (s *RecordStore) UpdateRecord(ctx context.Context, rec *domain.TranscriptionRecord) error {
	query := `
		UPDATE transcriptions
		SET status = $1,
		    transcription = $2,
		    file_path = $3,
		    attempts = $4,
		    error_message = $5,
		    updated_at = NOW()
		WHERE id = $6
	`

	res, err := s.db.ExecContext(ctx, query,
		rec.Status,
		rec.Transcription,
		rec.FilePath,
		rec.Attempts,
		rec.Error,
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transcription record: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// ListOptions are the optional filters for ListRecords. Zero values mean
// "not set".
type ListOptions struct {
	Page   int
	Limit  int
	Status string
	Sort   string // "-created_at" (default) or "created_at"
	Search string // substring match on audio_url
	From   *time.Time
	To     *time.Time
}

// Normalize clamps paging values into their allowed ranges and fills
// defaults: page >= 1, limit in [1, 100] defaulting to 20, newest first.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageSize
	}
	if o.Limit > MaxPageSize {
		o.Limit = MaxPageSize
	}
	if strings.TrimSpace(o.Sort) == "" {
		o.Sort = "-created_at"
	}
	return o
}

// buildListPredicate turns the optional filters into a WHERE clause and
// positional args, starting at $1.
func buildListPredicate(opts ListOptions) (string, []interface{}) {
	clauses := []string{"1=1"}
	args := []interface{}{}

	if opts.Status != "" {
		args = append(args, opts.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	if opts.Search != "" {
		args = append(args, "%"+opts.Search+"%")
		clauses = append(clauses, fmt.Sprintf("audio_url LIKE $%d", len(args)))
	}

	if opts.From != nil {
		args = append(args, *opts.From)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	if opts.To != nil {
		args = append(args, *opts.To)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}

// orderClause maps the sort option onto a deterministic ORDER BY. The id
// tiebreaker keeps pagination stable for records created in the same
// instant.
func orderClause(sort string) string {
	if sort == "created_at" {
		return "ORDER BY created_at ASC, id ASC"
	}
	return "ORDER BY created_at DESC, id DESC"
}

// ListRecords returns one page of records matching opts plus the total
// matching count.
func (s *RecordStore) ListRecords(ctx context.Context, opts ListOptions) ([]domain.TranscriptionRecord, int, error) {
	opts = opts.Normalize()

	where, args := buildListPredicate(opts)

	countQuery := "SELECT COUNT(*) FROM transcriptions WHERE " + where

	var total int
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count transcription records: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, audio_url, status, transcription,
		       file_path, attempts, error_message, created_at, updated_at
		FROM transcriptions
		WHERE %s
		%s
		LIMIT $%d OFFSET $%d
	`, where, orderClause(opts.Sort), len(args)+1, len(args)+2)

	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	records := []domain.TranscriptionRecord{}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list transcription records: %w", err)
	}

	return records, total, nil
}
