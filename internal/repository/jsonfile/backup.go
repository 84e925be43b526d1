package jsonfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"diaryapi/internal/model"
	"diaryapi/internal/repository"
)

const (
	backupPrefix = "backup-"
	backupSuffix = ".json"

	// DefaultBackupRetention is how long PruneBackups keeps snapshots unless told otherwise.
	DefaultBackupRetention = 30 * 24 * time.Hour
)

// Backup copies the current diary file next to itself as backup-<timestamp>.json and returns the new path.
// It is never invoked implicitly by the store.
func (s *DiaryStore) Backup(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensure(); err != nil {
		return "", err
	}

	src, err := os.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", repository.ErrStorageUnavailable, s.path, err)
	}
	defer src.Close()

	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(model.NewTimestamp(s.now()).String())
	dst := filepath.Join(filepath.Dir(s.path), backupPrefix+stamp+backupSuffix)
	if err := atomic.WriteFile(dst, src); err != nil {
		return "", fmt.Errorf("%w: write backup: %w", repository.ErrStorageUnavailable, err)
	}

	s.log.InfoContext(ctx, "diary backup written", "backup", dst)
	return dst, nil
}

// PruneBackups deletes backup files whose modification time is older than maxAge and returns how many were removed.
// Individual removal failures are logged and skipped.
func (s *DiaryStore) PruneBackups(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultBackupRetention
	}

	dir := filepath.Dir(s.path)
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: list %s: %w", repository.ErrStorageUnavailable, dir, err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		info, err := f.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			s.log.WarnContext(ctx, "remove old backup failed", "backup", name, "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Ping reports whether the data directory accepts writes, creating it if needed.
func (s *DiaryStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrStorageUnavailable, err)
	}
	f, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return fmt.Errorf("%w: %w", repository.ErrStorageUnavailable, err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
