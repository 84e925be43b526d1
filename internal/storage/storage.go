// Package storage holds the attachment object store used for uploaded diary images.
// Objects live in a flat namespace: a key is a bare file name such as "1712345678901-42.png".
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var (
	// ErrObjectNotFound is returned when a key does not exist in the backend.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey is returned for keys that are empty or would escape the flat namespace.
	ErrInvalidKey = errors.New("invalid object key")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the attachment store consumed by the upload service and the janitor.
type Storage interface {
	// Put stores an object under key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get opens an object for streaming. Returns ErrObjectNotFound for unknown keys.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object. Returns ErrObjectNotFound when the key is absent and the backend can tell.
	Delete(ctx context.Context, key string) error
	// List returns every object currently stored.
	List(ctx context.Context) ([]ObjectInfo, error)
}

// ValidateKey rejects keys that are not a single plain path element.
func ValidateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// KeyFromPath maps an image reference such as "/uploads/123-4.png" to its storage key (the basename).
// It returns "" when the reference has no usable basename.
func KeyFromPath(ref string) string {
	ref = strings.TrimSpace(strings.ReplaceAll(ref, `\`, "/"))
	if ref == "" {
		return ""
	}
	key := path.Base(ref)
	if ValidateKey(key) != nil {
		return ""
	}
	return key
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// IsImageKey reports whether key carries one of the image extensions uploads are stored with.
func IsImageKey(key string) bool {
	_, ok := contentTypes[strings.ToLower(path.Ext(key))]
	return ok
}

// ExtensionFor returns the canonical file extension of an image content type, or "".
func ExtensionFor(contentType string) string {
	return imageExtensions[strings.ToLower(contentType)]
}

// ContentTypeFor guesses an image content type from the key's extension.
func ContentTypeFor(key string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}
