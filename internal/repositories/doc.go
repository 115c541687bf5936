// Package repositories implements SQLite persistence for finished downloads.
//
// [HistoryRepository] implements [models.HistoryRepository] on the downloads table
// created by the embedded migrations in shared. Rows are soft deleted through a
// deleted_at timestamp and excluded from every query once deleted.
//
// Missing or deleted rows are reported as [shared.ErrRecordNotFound].
package repositories
