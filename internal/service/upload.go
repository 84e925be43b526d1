package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"diaryapi/internal/storage"
)

var (
	ErrReaderNil       = errors.New("reader is nil")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrImageNotFound   = errors.New("image not found")
)

// DefaultMaxUploadBytes is the upload limit used when none is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

// UploadURLPrefix is the public path under which stored images are served.
const UploadURLPrefix = "/uploads/"

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// UploadResult describes a stored image.
type UploadResult struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// UploadService stores and serves diary images.
type UploadService interface {
	// Upload checks type and size, stores the image under a generated name and returns its public URL.
	// - originalFilename is used only for its extension.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string) (*UploadResult, error)

	// Open streams a stored image. The caller must close the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error)
}

type uploadService struct {
	store    storage.Storage
	maxBytes int64
	now      func() time.Time
	tracer   trace.Tracer
}

// NewUploadService constructs an UploadService. maxBytes <= 0 selects DefaultMaxUploadBytes.
func NewUploadService(store storage.Storage, maxBytes int64) UploadService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &uploadService{
		store:    store,
		maxBytes: maxBytes,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *uploadService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string) (_ *UploadResult, err error) {
	ctx, span := s.tracer.Start(ctx, "UploadService.Upload")
	defer func() { endSpan(span, err) }()

	if r == nil {
		return nil, ErrReaderNil
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if _, ok := allowedImageTypes[contentType]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}

	// Read one byte past the limit to tell "exactly max" from "too large".
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	name := s.generateName(originalFilename, contentType)
	span.SetAttributes(attribute.String("upload.name", name), attribute.Int("upload.size", len(data)))

	info, err := s.store.Put(ctx, name, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	size := info.Size
	if size <= 0 {
		size = int64(len(data))
	}
	return &UploadResult{URL: UploadURLPrefix + name, Name: name, Size: size}, nil
}

func (s *uploadService) Open(ctx context.Context, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	if err := storage.ValidateKey(name); err != nil {
		return nil, storage.ObjectInfo{}, err
	}
	rc, info, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, storage.ObjectInfo{}, ErrImageNotFound
		}
		return nil, storage.ObjectInfo{}, fmt.Errorf("open image %s: %w", name, err)
	}
	return rc, info, nil
}

// generateName returns {unix millis}-{random below 1e9}{lowercase extension}.
// Names without an image extension take the one of contentType.
func (s *uploadService) generateName(originalFilename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if !storage.IsImageKey(ext) {
		ext = storage.ExtensionFor(contentType)
	}
	return fmt.Sprintf("%d-%d%s", s.now().UnixMilli(), rand.IntN(1_000_000_000), ext)
}
