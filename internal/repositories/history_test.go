package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/audiograb/internal/models"
	"github.com/desertthunder/audiograb/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newEntry(jobID string, created time.Time) *models.HistoryEntry {
	return &models.HistoryEntry{
		JobID:       jobID,
		SourceURL:   "https://www.youtube.com/watch?v=" + jobID,
		Filename:    "Song " + jobID + ".m4a",
		Title:       "Song",
		Artist:      "Artist",
		Album:       "Record",
		ReleaseYear: "2020",
		Duration:    215,
		Size:        4096,
		CreatedAt:   created,
	}
}

func TestHistoryRepository(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Create", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		entry := newEntry("job-1", time.Time{})

		if err := repo.Create(entry); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if entry.ID == "" {
			t.Error("entry ID should be set after creation")
		}
		if entry.CreatedAt.IsZero() {
			t.Error("created_at should be set after creation")
		}
	})

	t.Run("Create Validates", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		if err := repo.Create(&models.HistoryEntry{Filename: "x.m4a"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := repo.Create(&models.HistoryEntry{JobID: "job"}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Create Duplicate Job", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		if err := repo.Create(newEntry("job-1", base)); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}
		if err := repo.Create(newEntry("job-1", base)); err == nil {
			t.Error("expected unique constraint error for duplicate job ID")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		entry := newEntry("job-1", base)
		if err := repo.Create(entry); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		got, err := repo.Get(entry.ID)
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if got.JobID != "job-1" || got.Artist != "Artist" || got.Duration != 215 || got.Size != 4096 {
			t.Errorf("unexpected entry %+v", got)
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("expected created_at %v, got %v", base, got.CreatedAt)
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound, got %v", err)
		}
	})

	t.Run("GetByJobID", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		entry := newEntry("job-7", base)
		if err := repo.Create(entry); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		got, err := repo.GetByJobID("job-7")
		if err != nil {
			t.Fatalf("failed to get entry: %v", err)
		}
		if got.ID != entry.ID {
			t.Errorf("expected ID %s, got %s", entry.ID, got.ID)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		for i, id := range []string{"old", "mid", "new"} {
			if err := repo.Create(newEntry(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
				t.Fatalf("failed to create entry: %v", err)
			}
		}

		all, err := repo.List(0)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(all))
		}
		if all[0].JobID != "new" || all[2].JobID != "old" {
			t.Errorf("expected newest first, got %s..%s", all[0].JobID, all[2].JobID)
		}

		limited, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if len(limited) != 2 || limited[0].JobID != "new" {
			t.Errorf("unexpected limited list %+v", limited)
		}
	})

	t.Run("List Empty", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))

		entries, err := repo.List(10)
		if err != nil {
			t.Fatalf("failed to list entries: %v", err)
		}
		if entries == nil || len(entries) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", entries)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewHistoryRepository(setupTestDB(t))
		entry := newEntry("job-1", base)
		if err := repo.Create(entry); err != nil {
			t.Fatalf("failed to create entry: %v", err)
		}

		if err := repo.Delete(entry.ID); err != nil {
			t.Fatalf("failed to delete entry: %v", err)
		}
		if _, err := repo.Get(entry.ID); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected deleted entry to be hidden, got %v", err)
		}
		if entries, _ := repo.List(0); len(entries) != 0 {
			t.Errorf("expected deleted entry excluded from list, got %d", len(entries))
		}
		if err := repo.Delete(entry.ID); !errors.Is(err, shared.ErrRecordNotFound) {
			t.Errorf("expected ErrRecordNotFound on second delete, got %v", err)
		}
	})
}
