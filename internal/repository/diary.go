package repository

import (
	"context"
	"errors"

	"diaryapi/internal/model"
)

var (
	// ErrNotFound is returned by mutations addressing an id that does not exist.
	ErrNotFound = errors.New("diary entry not found")
	// ErrStorageUnavailable wraps any failure to create, read for write, or write the backing store.
	ErrStorageUnavailable = errors.New("diary storage unavailable")
)

// DiaryRepository persists diary entries. Implementations perform no input validation;
// callers validate and sanitize before calling in.
//
// Read operations never fail: when the backing store is unavailable or corrupt they
// return an empty collection.
type DiaryRepository interface {
	// List returns every entry, newest created_at first.
	List(ctx context.Context) []model.DiaryEntry

	// FindByID returns the entry with the given id. The boolean is false when no such entry exists.
	FindByID(ctx context.Context, id int64) (model.DiaryEntry, bool)

	// Create appends a new entry with id = max(existing ids)+1 and returns that id.
	Create(ctx context.Context, in model.NewEntry) (int64, error)

	// Update merges the set fields of patch into the entry and refreshes updated_at.
	// Returns ErrNotFound when the id does not exist.
	Update(ctx context.Context, id int64, patch model.EntryPatch) error

	// Delete removes the entry. Returns ErrNotFound when the id does not exist.
	Delete(ctx context.Context, id int64) error

	// Search returns entries whose title or content contains query, case-insensitively,
	// ordered like List. An empty query matches every entry.
	Search(ctx context.Context, query string) []model.DiaryEntry

	// Snapshot returns every entry like List, but reports a storage failure instead of
	// degrading to empty. Used wherever an empty result would authorize deletions.
	Snapshot(ctx context.Context) ([]model.DiaryEntry, error)
}
