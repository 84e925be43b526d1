package jsonfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diaryapi/internal/model"
	"diaryapi/internal/repository"
)

// stepClock returns a time source that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func newTestStore(t *testing.T, opts ...Option) *DiaryStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "diaries.json")
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(stepClock(time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))),
	}
	return NewDiaryStore(path, append(base, opts...)...)
}

func ts(t *testing.T, s string) model.Timestamp {
	t.Helper()
	v, err := model.ParseTimestamp(s)
	require.NoError(t, err)
	return v
}

func ids(entries []model.DiaryEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestDiaryStore_MissingFileIsInitialized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Empty(t, s.List(ctx))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDiaryStore_CreateAndFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := ts(t, "2023-12-24T18:30:00.000Z")

	id, err := s.Create(ctx, model.NewEntry{
		Title:     "Christmas Eve",
		Content:   "# Snow\n\nIt snowed.",
		Images:    []string{"/uploads/1-2.png"},
		CreatedAt: model.Some(created),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	got, ok := s.FindByID(ctx, id)
	require.True(t, ok)

	want := model.DiaryEntry{
		ID:        1,
		Title:     "Christmas Eve",
		Content:   "# Snow\n\nIt snowed.",
		Images:    []string{"/uploads/1-2.png"},
		CreatedAt: created,
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.DiaryEntry{}, "UpdatedAt")); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt.Time))

	_, ok = s.FindByID(ctx, 42)
	assert.False(t, ok)
}

func TestDiaryStore_CreateDefaultsCreatedAtToNow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	require.NoError(t, err)

	got, ok := s.FindByID(ctx, id)
	require.True(t, ok)
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	assert.NotNil(t, got.Images)
	assert.Empty(t, got.Images)
}

func TestDiaryStore_IDReuseAfterDeletingMax(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, model.NewEntry{Title: fmt.Sprintf("t%d", i), Content: "c"})
		require.NoError(t, err)
	}
	require.NoError(t, s.Delete(ctx, 3))

	id, err := s.Create(ctx, model.NewEntry{Title: "again", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	require.NoError(t, s.Delete(ctx, 1))
	id, err = s.Create(ctx, model.NewEntry{Title: "gap", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id, "gaps below the max are not refilled")
}

func TestDiaryStore_Update(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*DiaryStore, model.DiaryEntry) {
		s := newTestStore(t)
		id, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C", Images: []string{"/uploads/a.png", "/uploads/b.png"}})
		require.NoError(t, err)
		e, ok := s.FindByID(ctx, id)
		require.True(t, ok)
		return s, e
	}

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		s, before := setup(t)
		require.NoError(t, s.Update(ctx, before.ID, model.EntryPatch{Title: model.Some("X")}))

		after, _ := s.FindByID(ctx, before.ID)
		assert.Equal(t, "X", after.Title)
		assert.Equal(t, before.Content, after.Content)
		assert.Equal(t, before.Images, after.Images)
		assert.Equal(t, before.CreatedAt, after.CreatedAt)
		assert.True(t, after.UpdatedAt.After(before.UpdatedAt.Time))
	})

	t.Run("explicit empty images clears", func(t *testing.T) {
		s, before := setup(t)
		require.NoError(t, s.Update(ctx, before.ID, model.EntryPatch{Images: model.Some([]string{})}))

		after, _ := s.FindByID(ctx, before.ID)
		assert.Empty(t, after.Images)
	})

	t.Run("empty patch only refreshes updated_at", func(t *testing.T) {
		s, before := setup(t)
		require.NoError(t, s.Update(ctx, before.ID, model.EntryPatch{}))

		after, _ := s.FindByID(ctx, before.ID)
		assert.Equal(t, before.Images, after.Images)
		assert.Equal(t, before.Title, after.Title)
		assert.True(t, after.UpdatedAt.After(before.UpdatedAt.Time))
	})

	t.Run("created_at can be replaced", func(t *testing.T) {
		s, before := setup(t)
		newCreated := ts(t, "2020-01-01T00:00:00Z")
		require.NoError(t, s.Update(ctx, before.ID, model.EntryPatch{CreatedAt: model.Some(newCreated)}))

		after, _ := s.FindByID(ctx, before.ID)
		assert.Equal(t, newCreated, after.CreatedAt)
	})

	t.Run("unknown id", func(t *testing.T) {
		s, _ := setup(t)
		assert.ErrorIs(t, s.Update(ctx, 99, model.EntryPatch{Title: model.Some("X")}), repository.ErrNotFound)
	})
}

func TestDiaryStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	_, ok := s.FindByID(ctx, id)
	assert.False(t, ok)
	assert.ErrorIs(t, s.Delete(ctx, id), repository.ErrNotFound)
}

func TestDiaryStore_SortOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, c := range []string{
		"2024-01-02T00:00:00Z",
		"2024-01-05T00:00:00Z",
		"2024-01-01T00:00:00Z",
		"2024-01-05T00:00:00Z",
	} {
		_, err := s.Create(ctx, model.NewEntry{Title: "t", Content: "c", CreatedAt: model.Some(ts(t, c))})
		require.NoError(t, err)
	}

	first := ids(s.List(ctx))
	assert.Equal(t, []int64{2, 4, 1, 3}, first)
	assert.Equal(t, first, ids(s.List(ctx)), "ties must be stable across calls")
	assert.Equal(t, first, ids(s.Search(ctx, "")))
}

func TestDiaryStore_Search(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	inputs := []model.NewEntry{
		{Title: "Hiking Day", Content: "mountains", CreatedAt: model.Some(ts(t, "2024-01-01T00:00:00Z"))},
		{Title: "Rain", Content: "stayed in and read about HIKING", CreatedAt: model.Some(ts(t, "2024-01-03T00:00:00Z"))},
		{Title: "Work", Content: "meetings", CreatedAt: model.Some(ts(t, "2024-01-02T00:00:00Z"))},
	}
	for _, in := range inputs {
		_, err := s.Create(ctx, in)
		require.NoError(t, err)
	}

	assert.Equal(t, []int64{2, 1}, ids(s.Search(ctx, "hiking")))
	assert.Equal(t, []int64{3}, ids(s.Search(ctx, "MEET")))
	assert.Empty(t, s.Search(ctx, "nothing like this"))
	assert.Len(t, s.Search(ctx, ""), 3)
}

func TestDiaryStore_CorruptFileRecovery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(`[{"id": 1, "title": "half`), 0o644))

	assert.Empty(t, s.List(ctx))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	id, err := s.Create(ctx, model.NewEntry{Title: "fresh", Content: "start"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Len(t, s.List(ctx), 1)
}

func TestDiaryStore_CorruptFileHealsOnWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte("not json"), 0o644))

	id, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Len(t, s.List(ctx), 1)
}

func TestDiaryStore_KeepsEntriesWithNonStandardDates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := `[{"id":1,"title":"a","content":"c","images":[],"created_at":"2024-01-15","updated_at":""},
{"id":2,"title":"b","content":"c","images":[],"created_at":"2024-02-01T09:00:00Z","updated_at":"2024-02-01T09:00:00Z"}]`
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(original), 0o644))

	got := s.List(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{2, 1}, ids(got))
	assert.Equal(t, "2024-01-15", got[1].CreatedAt.String())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, original, string(data), "a read must not rewrite the file")

	require.NoError(t, s.Update(ctx, 2, model.EntryPatch{Title: model.Some("b2")}))

	data, err = os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"created_at": "2024-01-15"`)
	assert.Contains(t, string(data), `"updated_at": ""`)
	assert.Contains(t, string(data), `"created_at": "2024-02-01T09:00:00Z"`)
	assert.Len(t, s.List(ctx), 2)
}

func TestDiaryStore_UndecodableRecordIsNotOverwritten(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	original := `[{"id":"seven","title":"a","content":"c","images":[],"created_at":"2024-01-15T00:00:00Z","updated_at":"2024-01-15T00:00:00Z"}]`
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(original), 0o644))

	assert.Empty(t, s.List(ctx))

	_, err := s.Snapshot(ctx)
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

	_, err = s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, original, string(data))
}

func TestDiaryStore_NonArrayDocumentIsReset(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "object", content: `{"id":1}`},
		{name: "string", content: `"diaries"`},
		{name: "empty file", content: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(tt.content), 0o644))

			assert.Empty(t, s.List(context.Background()))

			data, err := os.ReadFile(s.Path())
			require.NoError(t, err)
			assert.Equal(t, "[]", string(data))
		})
	}
}

func TestDiaryStore_OnDiskLayout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, model.NewEntry{
		Title:     "a < b & c",
		Content:   "> quote",
		CreatedAt: model.Some(ts(t, "2024-02-03T04:05:06.789Z")),
	})
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	want := `[
  {
    "id": 1,
    "title": "a < b & c",
    "content": "> quote",
    "images": [],
    "created_at": "2024-02-03T04:05:06.789Z",
    "updated_at": "2024-03-01T08:00:01.000Z"
  }
]`
	assert.Equal(t, want, string(data))
}

func TestDiaryStore_ReadsLegacyFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	legacy := `[{"id":7,"title":"old","content":"c","images":["/uploads/x.jpg"],"created_at":"2023-05-01T10:00:00.000Z","updated_at":"2023-05-01T10:00:00.000Z"},
{"id":3,"title":"no images","content":"c","created_at":"2023-06-01T10:00:00+08:00","updated_at":"2023-06-01T10:00:00+08:00"}]`
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacy), 0o644))

	got := s.List(ctx)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.NotNil(t, got[0].Images)

	id, err := s.Create(ctx, model.NewEntry{Title: "next", Content: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
}

func TestDiaryStore_UnwritableLocation(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	ctx := context.Background()

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Mkdir(locked, 0o555))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	s := NewDiaryStore(filepath.Join(locked, "db", "diaries.json"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	assert.Empty(t, s.List(ctx))
	assert.Empty(t, s.Search(ctx, "x"))
	_, ok := s.FindByID(ctx, 1)
	assert.False(t, ok)

	_, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
	assert.ErrorIs(t, s.Ping(ctx), repository.ErrStorageUnavailable)
}

func TestDiaryStore_PermissionRepair(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	ctx := context.Background()

	s := newTestStore(t, WithPermissionRepair(true))
	_, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	require.NoError(t, err)

	dir := filepath.Dir(s.Path())
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	_, err = s.Create(ctx, model.NewEntry{Title: "T2", Content: "C2"})
	require.NoError(t, err)
	assert.Len(t, s.List(ctx), 2)
}

func TestDiaryStore_ConcurrentCreatesGetUniqueIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	got := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
			assert.NoError(t, err)
			got <- id
		}()
	}
	wg.Wait()
	close(got)

	seen := map[int64]bool{}
	for id := range got {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, s.List(ctx), n)
}

func TestDiaryStore_EndToEndScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C", Images: []string{}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)

	id2, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id2)

	require.NoError(t, s.Delete(ctx, 1))
	assert.Equal(t, []int64{2}, ids(s.List(ctx)))

	id3, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id3)

	require.NoError(t, s.Update(ctx, 2, model.EntryPatch{Title: model.Some("T2")}))
	e, ok := s.FindByID(ctx, 2)
	require.True(t, ok)
	assert.Equal(t, "T2", e.Title)
	assert.Equal(t, "C", e.Content)
}

func TestDiaryStore_BackupAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, model.NewEntry{Title: "T", Content: "C"})
	require.NoError(t, err)

	backup, err := s.Backup(ctx)
	require.NoError(t, err)
	assert.Regexp(t, `backup-2024-03-01T08-00-\d\d-000Z\.json$`, backup)

	orig, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	copied, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, orig, copied)

	old := filepath.Join(filepath.Dir(s.Path()), "backup-2000-01-01T00-00-00-000Z.json")
	require.NoError(t, os.WriteFile(old, []byte("[]"), 0o644))
	longAgo := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(old, longAgo, longAgo))

	removed, err := s.PruneBackups(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, backup)
	assert.FileExists(t, s.Path())
}

func TestDiaryStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestDiaryStore_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("sorted like list", func(t *testing.T) {
		s := newTestStore(t)
		_, err := s.Create(ctx, model.NewEntry{Title: "old", Content: "c", CreatedAt: model.Some(ts(t, "2024-01-01T00:00:00Z"))})
		require.NoError(t, err)
		_, err = s.Create(ctx, model.NewEntry{Title: "new", Content: "c", CreatedAt: model.Some(ts(t, "2024-02-01T00:00:00Z"))})
		require.NoError(t, err)

		got, err := s.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 1}, ids(got))
	})

	t.Run("storage failure is reported", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
		s := NewDiaryStore(filepath.Join(blocker, "db", "diaries.json"),
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

		got, err := s.Snapshot(ctx)
		assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
		assert.Nil(t, got)
		assert.Empty(t, s.List(ctx))
	})
}
