package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

const historyColumns = `
	id, job_id, source_url, filename, title, artist, album,
	release_year, duration, size, created_at
`

// HistoryRepository implements [models.HistoryRepository] for the downloads table.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository creates a new HistoryRepository with the given database connection
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

var _ models.HistoryRepository = (*HistoryRepository)(nil)

// Create inserts a finished download, assigning an ID and creation time when unset
func (r *HistoryRepository) Create(entry *models.HistoryEntry) error {
	if entry.JobID == "" || entry.Filename == "" {
		return fmt.Errorf("%w: history entry needs a job ID and filename", shared.ErrInvalidInput)
	}
	if entry.ID == "" {
		entry.ID = shared.GenerateID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO downloads (
			id, job_id, source_url, filename, title, artist, album,
			release_year, duration, size, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		entry.ID,
		entry.JobID,
		entry.SourceURL,
		entry.Filename,
		entry.Title,
		entry.Artist,
		entry.Album,
		entry.ReleaseYear,
		entry.Duration,
		entry.Size,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}
	return nil
}

// Get retrieves a download by ID, excluding soft-deleted rows
func (r *HistoryRepository) Get(id string) (*models.HistoryEntry, error) {
	query := `SELECT` + historyColumns + `FROM downloads WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByJobID retrieves the download recorded for a job
func (r *HistoryRepository) GetByJobID(jobID string) (*models.HistoryEntry, error) {
	query := `SELECT` + historyColumns + `FROM downloads WHERE job_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, jobID))
}

// List returns downloads newest first. A limit of zero or less returns every row.
func (r *HistoryRepository) List(limit int) ([]*models.HistoryEntry, error) {
	query := `SELECT` + historyColumns + `FROM downloads WHERE deleted_at IS NULL ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	entries := []*models.HistoryEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Delete soft-deletes a download by ID
func (r *HistoryRepository) Delete(id string) error {
	query := `
		UPDATE downloads
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: download %s", shared.ErrRecordNotFound, id)
	}
	return nil
}

// scanOne scans a single [sql.Row] into a [models.HistoryEntry]
func (r *HistoryRepository) scanOne(row *sql.Row) (*models.HistoryEntry, error) {
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: download", shared.ErrRecordNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan download: %w", err)
	}
	return entry, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.HistoryEntry, error) {
	var e models.HistoryEntry
	err := s.Scan(
		&e.ID, &e.JobID, &e.SourceURL, &e.Filename, &e.Title, &e.Artist, &e.Album,
		&e.ReleaseYear, &e.Duration, &e.Size, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
