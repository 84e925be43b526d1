package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"diaryapi/internal/export"
	"diaryapi/internal/repository"
)

// ExportFile is a rendered export ready to be sent as a download.
type ExportFile struct {
	Name        string
	ContentType string
	Body        []byte
}

// ExportService renders the whole diary collection in a chosen format.
type ExportService interface {
	// Export returns export.ErrUnsupportedFormat for unknown formats. An empty format selects JSON.
	Export(ctx context.Context, format string) (*ExportFile, error)
}

type exportService struct {
	repo     repository.DiaryRepository
	exporter *export.Exporter
	now      func() time.Time
	tracer   trace.Tracer
}

// NewExportService constructs an ExportService.
func NewExportService(repo repository.DiaryRepository, exporter *export.Exporter) ExportService {
	return &exportService{
		repo:     repo,
		exporter: exporter,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *exportService) Export(ctx context.Context, format string) (_ *ExportFile, err error) {
	ctx, span := s.tracer.Start(ctx, "ExportService.Export")
	defer func() { endSpan(span, err) }()

	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("export.format", string(f)))

	entries := s.repo.List(ctx)
	now := s.now()

	var buf bytes.Buffer
	if err := s.exporter.Write(&buf, f, entries, now); err != nil {
		return nil, fmt.Errorf("export %s: %w", f, err)
	}
	return &ExportFile{
		Name:        export.FileName(f, now),
		ContentType: f.ContentType(),
		Body:        buf.Bytes(),
	}, nil
}
