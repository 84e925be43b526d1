package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"diaryapi/internal/model"
	"diaryapi/internal/repository"
)

const emptyCollection = "[]"

// DiaryStore is a repository.DiaryRepository backed by a single JSON file holding the whole collection.
// Every mutation reads the full collection, changes it in memory and writes it back.
// A mutex serializes these cycles within the process; other processes writing the same file are not guarded against.
type DiaryStore struct {
	path   string
	log    *slog.Logger
	now    func() time.Time
	repair bool

	mu sync.Mutex
}

var _ repository.DiaryRepository = (*DiaryStore)(nil)

// Option configures a DiaryStore.
type Option func(*DiaryStore)

// WithLogger sets the logger used for degraded reads and self-healing events.
func WithLogger(l *slog.Logger) Option {
	return func(s *DiaryStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *DiaryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPermissionRepair makes a failed write relax permissions on the data directory (0777)
// and the file (0666) and retry once. It works around hosts with inconsistent file ownership.
func WithPermissionRepair(enabled bool) Option {
	return func(s *DiaryStore) {
		s.repair = enabled
	}
}

// NewDiaryStore returns a store for the file at path. Nothing is touched on disk until the first operation.
func NewDiaryStore(path string, opts ...Option) *DiaryStore {
	s := &DiaryStore{
		path: path,
		log:  slog.Default(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "diary_store", "path", path)
	return s
}

// Path returns the location of the backing file.
func (s *DiaryStore) Path() string {
	return s.path
}

// List returns all entries sorted by created_at descending.
func (s *DiaryStore) List(ctx context.Context) []model.DiaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readDegraded(ctx)
	sortNewestFirst(entries)
	return entries
}

// FindByID returns the entry with the given id.
func (s *DiaryStore) FindByID(ctx context.Context, id int64) (model.DiaryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.readDegraded(ctx)
	if i := indexOf(entries, id); i >= 0 {
		return entries[i], true
	}
	return model.DiaryEntry{}, false
}

// Create assigns the next id, stamps the entry and persists the collection.
func (s *DiaryStore) Create(ctx context.Context, in model.NewEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return 0, err
	}

	now := model.NewTimestamp(s.now())
	created := now
	if v, ok := in.CreatedAt.Get(); ok {
		created = v
	}

	entry := model.DiaryEntry{
		ID:        nextID(entries),
		Title:     in.Title,
		Content:   in.Content,
		Images:    model.CloneImages(in.Images),
		CreatedAt: created,
		UpdatedAt: now,
	}
	entries = append(entries, entry)

	if err := s.write(ctx, entries); err != nil {
		return 0, err
	}
	return entry.ID, nil
}

// Update merges patch into the entry and refreshes updated_at, even if no field changed.
func (s *DiaryStore) Update(ctx context.Context, id int64, patch model.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return repository.ErrNotFound
	}

	patch.Apply(&entries[i])
	entries[i].UpdatedAt = model.NewTimestamp(s.now())

	return s.write(ctx, entries)
}

// Delete removes the entry and persists the collection.
func (s *DiaryStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return err
	}
	i := indexOf(entries, id)
	if i < 0 {
		return repository.ErrNotFound
	}

	return s.write(ctx, slices.Delete(entries, i, i+1))
}

// Search matches query against title and content without regard to case.
func (s *DiaryStore) Search(ctx context.Context, query string) []model.DiaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(query)
	matches := make([]model.DiaryEntry, 0)
	for _, e := range s.readDegraded(ctx) {
		if strings.Contains(strings.ToLower(e.Title), needle) || strings.Contains(strings.ToLower(e.Content), needle) {
			matches = append(matches, e)
		}
	}
	sortNewestFirst(matches)
	return matches
}

// Snapshot returns all entries like List, but a storage failure is returned rather than hidden.
func (s *DiaryStore) Snapshot(ctx context.Context) ([]model.DiaryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(entries)
	return entries, nil
}

// readDegraded is the read path of List, FindByID and Search: failures yield an empty collection.
func (s *DiaryStore) readDegraded(ctx context.Context) []model.DiaryEntry {
	entries, err := s.read(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "diary store unreadable, returning empty collection", "error", err)
		return make([]model.DiaryEntry, 0)
	}
	return entries
}

// read loads the collection, initializing a missing file and resetting one that is not a JSON array.
// A well-formed array whose records cannot be decoded is left on disk and reported as unavailable.
func (s *DiaryStore) read(ctx context.Context) ([]model.DiaryEntry, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}

	if !isCollection(data) {
		s.log.ErrorContext(ctx, "diary store corrupt, reinitializing", "lost_bytes", len(data))
		if werr := s.writeRaw([]byte(emptyCollection)); werr != nil {
			s.log.ErrorContext(ctx, "diary store reinitialization failed", "error", werr)
		}
		return make([]model.DiaryEntry, 0), nil
	}

	var entries []model.DiaryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	if entries == nil {
		entries = make([]model.DiaryEntry, 0)
	}
	for i := range entries {
		if entries[i].Images == nil {
			entries[i].Images = []string{}
		}
	}
	return entries, nil
}

// isCollection reports whether data is valid JSON holding an array or null.
func isCollection(data []byte) bool {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return false
	}
	return data[0] == '[' || bytes.Equal(data, []byte("null"))
}

// ensure creates the data directory and an empty collection file when missing.
func (s *DiaryStore) ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create data dir: %w", repository.ErrStorageUnavailable, err)
	}
	if err := s.writeRaw([]byte(emptyCollection)); err != nil {
		return fmt.Errorf("%w: initialize %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	return nil
}

func (s *DiaryStore) write(ctx context.Context, entries []model.DiaryEntry) error {
	data, err := encode(entries)
	if err != nil {
		return fmt.Errorf("encode diaries: %w", err)
	}

	err = s.writeRaw(data)
	if err != nil && s.repair {
		s.log.WarnContext(ctx, "diary store write failed, repairing permissions and retrying", "error", err)
		if rerr := s.repairPermissions(); rerr != nil {
			s.log.ErrorContext(ctx, "permission repair failed", "error", rerr)
		}
		err = s.writeRaw(data)
	}
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}

	s.log.DebugContext(ctx, "diaries saved", "count", len(entries))
	return nil
}

func (s *DiaryStore) writeRaw(data []byte) error {
	return atomic.WriteFile(s.path, bytes.NewReader(data))
}

func (s *DiaryStore) repairPermissions() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return err
	}
	if err := os.Chmod(dir, 0o777); err != nil {
		return err
	}
	if err := os.Chmod(s.path, 0o666); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// encode renders the collection as 2-space indented JSON without HTML escaping,
// which is the exact layout existing diary files use.
func encode(entries []model.DiaryEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func nextID(entries []model.DiaryEntry) int64 {
	var maxID int64
	for _, e := range entries {
		maxID = max(maxID, e.ID)
	}
	return maxID + 1
}

func indexOf(entries []model.DiaryEntry, id int64) int {
	return slices.IndexFunc(entries, func(e model.DiaryEntry) bool { return e.ID == id })
}

// sortNewestFirst orders by created_at descending. Ties keep file order, so repeated calls agree.
func sortNewestFirst(entries []model.DiaryEntry) {
	slices.SortStableFunc(entries, func(a, b model.DiaryEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt.Time)
	})
}
