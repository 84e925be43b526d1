package storage

import (
	"fmt"
	"strings"

	"diaryapi/internal/config"
)

const (
	BackendLocal = "local"
	BackendMinIO = "minio"
)

// New opens the attachment backend selected by up.Backend.
func New(up config.UploadConfig, mc config.MinIOConfig) (Storage, error) {
	switch strings.ToLower(up.Backend) {
	case "", BackendLocal:
		return NewLocal(up.Dir)
	case BackendMinIO:
		return NewMinIO(mc)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", up.Backend)
	}
}
