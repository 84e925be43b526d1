package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"diaryapi/internal/model"
	"diaryapi/internal/repository"
	"diaryapi/internal/storage"
)

var (
	ErrNotFound = errors.New("diary not found")
)

const tracerName = "diaryapi/service"

// AttachmentJanitor removes image files that are no longer referenced.
type AttachmentJanitor interface {
	DeleteUnreferenced(ctx context.Context, paths []string) int
	Sweep(ctx context.Context, referenced []string) (int, error)
}

// DiaryService defines the use cases for handling diary entries.
// Input is expected to be validated and sanitized by the caller.
type DiaryService interface {
	// List returns all entries, newest first. It never fails.
	List(ctx context.Context) []model.DiaryEntry

	// Search returns entries whose title or content contains query, case-insensitively.
	Search(ctx context.Context, query string) []model.DiaryEntry

	// Get returns a single entry or ErrNotFound.
	Get(ctx context.Context, id int64) (*model.DiaryEntry, error)

	// Create stores a new entry and returns it as persisted.
	Create(ctx context.Context, in model.NewEntry) (*model.DiaryEntry, error)

	// Update applies patch and removes images dropped from the entry.
	Update(ctx context.Context, id int64, patch model.EntryPatch) (*model.DiaryEntry, error)

	// Delete removes the entry and its images.
	Delete(ctx context.Context, id int64) error

	// SweepOrphans deletes every stored image that no entry references and returns how many were removed.
	SweepOrphans(ctx context.Context) (int, error)
}

// diaryService is a concrete implementation of DiaryService.
type diaryService struct {
	repo    repository.DiaryRepository
	janitor AttachmentJanitor
	log     *slog.Logger
	tracer  trace.Tracer
}

// NewDiaryService constructs a new DiaryService.
func NewDiaryService(repo repository.DiaryRepository, janitor AttachmentJanitor, logger *slog.Logger) DiaryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &diaryService{
		repo:    repo,
		janitor: janitor,
		log:     logger.With("component", "diary_service"),
		tracer:  otel.Tracer(tracerName),
	}
}

func (s *diaryService) List(ctx context.Context) []model.DiaryEntry {
	ctx, span := s.tracer.Start(ctx, "DiaryService.List")
	defer span.End()

	entries := s.repo.List(ctx)
	span.SetAttributes(attribute.Int("diary.count", len(entries)))
	return entries
}

func (s *diaryService) Search(ctx context.Context, query string) []model.DiaryEntry {
	ctx, span := s.tracer.Start(ctx, "DiaryService.Search")
	defer span.End()

	entries := s.repo.Search(ctx, query)
	span.SetAttributes(attribute.Int("diary.count", len(entries)))
	return entries
}

func (s *diaryService) Get(ctx context.Context, id int64) (*model.DiaryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "DiaryService.Get", trace.WithAttributes(attribute.Int64("diary.id", id)))
	defer span.End()

	e, ok := s.repo.FindByID(ctx, id)
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *diaryService) Create(ctx context.Context, in model.NewEntry) (_ *model.DiaryEntry, err error) {
	ctx, span := s.tracer.Start(ctx, "DiaryService.Create")
	defer func() { endSpan(span, err) }()

	id, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create diary: %w", err)
	}
	span.SetAttributes(attribute.Int64("diary.id", id))

	e, ok := s.repo.FindByID(ctx, id)
	if !ok {
		return nil, fmt.Errorf("reload diary %d: %w", id, ErrNotFound)
	}
	return &e, nil
}

func (s *diaryService) Update(ctx context.Context, id int64, patch model.EntryPatch) (_ *model.DiaryEntry, err error) {
	ctx, span := s.tracer.Start(ctx, "DiaryService.Update", trace.WithAttributes(attribute.Int64("diary.id", id)))
	defer func() { endSpan(span, err) }()

	old, ok := s.repo.FindByID(ctx, id)
	if !ok {
		return nil, ErrNotFound
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update diary %d: %w", id, err)
	}

	if images, ok := patch.Images.Get(); ok {
		s.cleanup(ctx, difference(old.Images, images))
	}

	e, ok := s.repo.FindByID(ctx, id)
	if !ok {
		return nil, fmt.Errorf("reload diary %d: %w", id, ErrNotFound)
	}
	return &e, nil
}

func (s *diaryService) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "DiaryService.Delete", trace.WithAttributes(attribute.Int64("diary.id", id)))
	defer func() { endSpan(span, err) }()

	old, ok := s.repo.FindByID(ctx, id)
	if !ok {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete diary %d: %w", id, err)
	}

	s.cleanup(ctx, old.Images)
	return nil
}

func (s *diaryService) SweepOrphans(ctx context.Context) (_ int, err error) {
	ctx, span := s.tracer.Start(ctx, "DiaryService.SweepOrphans")
	defer func() { endSpan(span, err) }()

	entries, err := s.repo.Snapshot(ctx)
	if err != nil {
		// An unreadable store would look like an empty diary and wipe every image.
		return 0, fmt.Errorf("load diaries for sweep: %w", err)
	}

	removed, err := s.janitor.Sweep(ctx, referencedImages(entries))
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int("janitor.removed", removed))
	return removed, nil
}

// cleanup hands candidates to the janitor, minus any image another entry still references.
func (s *diaryService) cleanup(ctx context.Context, candidates []string) {
	if len(candidates) == 0 {
		return
	}
	entries, err := s.repo.Snapshot(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "skipping image cleanup, diaries unreadable", "error", err, "candidates", len(candidates))
		return
	}

	live := make(map[string]struct{})
	for _, ref := range referencedImages(entries) {
		live[storage.KeyFromPath(ref)] = struct{}{}
	}
	orphans := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := live[storage.KeyFromPath(c)]; !ok {
			orphans = append(orphans, c)
		}
	}
	if len(orphans) == 0 {
		return
	}

	removed := s.janitor.DeleteUnreferenced(ctx, orphans)
	s.log.InfoContext(ctx, "orphaned images cleaned", "candidates", len(orphans), "removed", removed)
}

// difference returns the elements of old that are not in updated, in order.
func difference(old, updated []string) []string {
	keep := make(map[string]struct{}, len(updated))
	for _, img := range updated {
		keep[img] = struct{}{}
	}
	out := make([]string, 0, len(old))
	for _, img := range old {
		if _, ok := keep[img]; !ok {
			out = append(out, img)
		}
	}
	return out
}

func referencedImages(entries []model.DiaryEntry) []string {
	refs := make([]string, 0, len(entries))
	for _, e := range entries {
		refs = append(refs, e.Images...)
	}
	return refs
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
